package ingestion

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// WorkDir manages run-scoped scratch files for downloaded resumes.
type WorkDir struct {
	root string
}

// NewWorkDir creates a work dir rooted at root
func NewWorkDir(root string) *WorkDir {
	return &WorkDir{root: root}
}

// Root returns the base directory.
func (w *WorkDir) Root() string {
	return w.root
}

// TempFile is a scratch file that must be released by its acquirer.
type TempFile struct {
	Path string
	once sync.Once
	err  error
}

// Acquire reserves a deterministic path for one row of a run. The file
// itself is created by whoever writes to Path.
func (w *WorkDir) Acquire(runID string, row int, ext string) (*TempFile, error) {
	if ext == "" {
		ext = ".pdf"
	}

	dir := filepath.Join(w.root, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	return &TempFile{Path: filepath.Join(dir, fmt.Sprintf("resume_%d%s", row, ext))}, nil
}

// Release removes the file. It is safe to call more than once and when the
// file was never written.
func (f *TempFile) Release() error {
	f.once.Do(func() {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			f.err = fmt.Errorf("failed to remove %s: %w", f.Path, err)
		}
	})
	return f.err
}

// ReleaseRun removes the run's directory and anything left inside it.
func (w *WorkDir) ReleaseRun(runID string) error {
	if runID == "" {
		return nil
	}
	if err := os.RemoveAll(filepath.Join(w.root, runID)); err != nil {
		return fmt.Errorf("failed to clear run directory: %w", err)
	}
	return nil
}
