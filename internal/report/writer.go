// Package report persists the final markdown artifact.
package report

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteError reports a persistence failure. Write failures are terminal.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write report %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Write persists the markdown report to path. The write goes through a
// temp file in the same directory plus a rename, so a failed run never
// leaves a half-written report behind.
func Write(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: path, Err: fmt.Errorf("mkdir: %w", err)}
	}

	tmp, err := os.CreateTemp(dir, ".digest-report-*")
	if err != nil {
		return &WriteError{Path: path, Err: fmt.Errorf("create temp: %w", err)}
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: fmt.Errorf("write: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: fmt.Errorf("close: %w", err)}
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &WriteError{Path: path, Err: fmt.Errorf("rename: %w", err)}
	}

	return os.Chmod(path, 0o644)
}
