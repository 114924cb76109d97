package config

import (
	"os"
	"path/filepath"
)

// ResolveDataDir returns where the journal lives: the configured data_dir, else
// $XDG_DATA_HOME/encore, else ~/.local/share/encore.
func (c Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// StateDir returns $XDG_STATE_HOME/encore or ~/.local/state/encore. Logs are
// written here.
func StateDir() (string, error) {
	return xdgDir("XDG_STATE_HOME", ".local", "state")
}

func xdgDir(env string, fallback ...string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(append([]string{home}, fallback...)...)
	}
	return filepath.Join(base, "encore"), nil
}
