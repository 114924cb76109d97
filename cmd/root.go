package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/fakeyudi/encore/internal/config"
	"github.com/fakeyudi/encore/internal/logging"
	"github.com/fakeyudi/encore/internal/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// activeProfile holds the loaded player profile.
var activeProfile *profile.Profile

// logger is the file logger, a no-op until PersistentPreRunE runs.
var logger = zap.NewNop()

var closeLog = func() error { return nil }

var rootCmd = &cobra.Command{
	Use:           "encore",
	Short:         "Record practice sessions and keep a practice journal",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup check for the setup command itself.
		if cmd.Name() == "setup" {
			return nil
		}

		// First-run: profile missing → run setup wizard automatically.
		// Only do this when stdin is an interactive terminal.
		if !profile.Exists() && term.IsTerminal(os.Stdin.Fd()) {
			fmt.Println()
			fmt.Println("  Welcome to encore! Looks like this is your first time.")
			if err := runSetup(os.Stdin, os.Stdout); err != nil {
				return err
			}
		}

		activeProfile = nil
		if profile.Exists() {
			p, err := profile.Load()
			if err != nil {
				return fmt.Errorf("loading profile: %w", err)
			}
			activeProfile = p
		}

		return loadConfig()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

// loadConfig merges .env, the config files and the environment into cfg and
// opens the log file.
func loadConfig() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	global, err := config.LoadGlobal()
	if err != nil {
		return fmt.Errorf("loading global config: %w", err)
	}
	project, err := config.LoadProject()
	if err != nil {
		return fmt.Errorf("loading project config: %w", err)
	}
	cfg = config.Merge(global, project)
	if err := config.ApplyEnv(&cfg); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	// Profile values fill in config gaps.
	if activeProfile != nil {
		if cfg.DefaultFormat == "" || cfg.DefaultFormat == "markdown" {
			if activeProfile.DefaultFormat != "" {
				cfg.DefaultFormat = activeProfile.DefaultFormat
			}
		}
		if cfg.OutputDir == "." && activeProfile.OutputDir != "" && activeProfile.OutputDir != "." {
			cfg.OutputDir = activeProfile.OutputDir
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	dir, err := config.StateDir()
	if err != nil {
		return err
	}
	log, closeFn, err := logging.New(logging.Options{Dir: dir, Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	logger, closeLog = log, closeFn
	return nil
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_ = closeLog()
		os.Exit(1)
	}
}

// warn prints a non-fatal problem to stderr.
func warn(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "warning: "+format+"\n", args...)
}
