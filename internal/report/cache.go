package report

import (
	"errors"
	"os"
)

// Cache is the plain-text file holding the last diagnostics report. It
// is consulted before re-running the external tool, which is expensive
// on a large workspace.
type Cache struct {
	Path string
}

// Load returns the cached report if one exists. A missing file is not
// an error.
func (c Cache) Load() (string, bool, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

// Save replaces the cached report with a fresh one.
func (c Cache) Save(output string) error {
	return os.WriteFile(c.Path, []byte(output), 0o644)
}
