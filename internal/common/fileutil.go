package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// TempName returns a hidden, collision-free file name for staging writes.
func TempName(final string) string {
	return "." + final + "." + uuid.NewString() + ".tmp"
}

// WriteFileAtomic streams content into a temp file in dir and renames it to
// name, so readers only ever see a complete file.
func WriteFileAtomic(dir, name string, perm os.FileMode, write func(w io.Writer) error) (err error) {
	tmpPath := filepath.Join(dir, TempName(name))

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if err = write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err = os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
