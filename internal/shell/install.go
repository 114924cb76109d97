// Package shell installs encore's shell completion scripts.
package shell

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Supported lists the shells Install accepts.
var Supported = []string{"bash", "zsh", "fish"}

// ScriptPath returns where the completion script for shell is written.
func ScriptPath(shell string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "encore", "encore.completion."+shell), nil
}

// Install writes script as the completion file for shell and prints the
// source instruction the user needs to add to their rc file.
func Install(shell string, script []byte, out io.Writer) error {
	if !isSupported(shell) {
		return fmt.Errorf("unsupported shell for completion: %s (supported: bash, zsh, fish)", shell)
	}
	path, err := ScriptPath(shell)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, script, 0o644); err != nil {
		return fmt.Errorf("writing completion file: %w", err)
	}

	rcFile := rcFileName(shell)
	fmt.Fprintf(out, "\n  ✓ Completion written to %s\n", path)
	fmt.Fprintf(out, "\n  Add this line to your %s:\n", rcFile)
	fmt.Fprintf(out, "    source %s\n", path)
	fmt.Fprintf(out, "\n  Then reload: source %s\n\n", rcFile)
	return nil
}

// IsInstalled reports whether the completion file exists on disk.
func IsInstalled(shell string) bool {
	path, err := ScriptPath(shell)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func isSupported(shell string) bool {
	for _, s := range Supported {
		if s == shell {
			return true
		}
	}
	return false
}

func rcFileName(shell string) string {
	switch shell {
	case "zsh":
		return "~/.zshrc"
	case "bash":
		return "~/.bashrc"
	case "fish":
		return "~/.config/fish/config.fish"
	default:
		return "~/." + shell + "rc"
	}
}
