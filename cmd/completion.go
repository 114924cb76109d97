package cmd

import (
	"bytes"
	"fmt"

	"github.com/fakeyudi/encore/internal/shell"
	"github.com/spf13/cobra"
)

var installCompletionCmd = &cobra.Command{
	Use:       "install-completion <bash|zsh|fish>",
	Short:     "Install tab completion for your shell",
	Args:      cobra.ExactArgs(1),
	ValidArgs: shell.Supported,
	// Works before a profile exists.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		var buf bytes.Buffer
		var err error
		switch args[0] {
		case "bash":
			err = rootCmd.GenBashCompletionV2(&buf, true)
		case "zsh":
			err = rootCmd.GenZshCompletion(&buf)
		case "fish":
			err = rootCmd.GenFishCompletion(&buf, true)
		default:
			return fmt.Errorf("unsupported shell for completion: %s (supported: bash, zsh, fish)", args[0])
		}
		if err != nil {
			return fmt.Errorf("generating completion: %w", err)
		}
		return shell.Install(args[0], buf.Bytes(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(installCompletionCmd)
}
