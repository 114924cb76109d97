package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileName returns the report file name for the week beginning on r's
// WeekStart.
func FileName(r *Report, ext string) string {
	return "encore-week-" + r.Meta.WeekStart.Format("2006-01-02") + ext
}

// WriteFile writes data to dir/name atomically via a temp file and rename.
// An existing file is never replaced: a numeric suffix is added instead
// (name-2.md, name-3.md, ...). The path written is returned.
func WriteFile(dir, name string, data []byte) (path string, err error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path, err = freePath(dir, name)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".encore-*.tmp")
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func freePath(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; n < 1000; n++ {
		candidate := name
		if n > 1 {
			candidate = stem + "-" + strconv.Itoa(n) + ext
		}
		p := filepath.Join(dir, candidate)
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			return p, nil
		} else if err != nil {
			return "", fmt.Errorf("write report: %w", err)
		}
	}
	return "", fmt.Errorf("write report: too many files named %s in %s", name, dir)
}

// ReadFile reads and parses the report at path, choosing the parser from its
// extension.
func ReadFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, err
	}
	return ParserFor(path).Parse(data)
}
