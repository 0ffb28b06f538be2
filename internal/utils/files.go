package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// EnsureDir ensures the provided directory exists.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// AtomicWrite streams content produced by fill into a temp file next to path,
// syncs it and renames it into place. On any failure the temp file is removed and
// path is left untouched.
func AtomicWrite(path string, fill func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = fill(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	return AtomicWrite(path, func(w io.Writer) error {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write temp file: %w", err)
		}
		return nil
	})
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}

// UniquePath returns dir/<stem><suffix>, or the first "<stem>__N<suffix>" variant
// (N from 2) that exists neither on disk nor in taken. The chosen path is added
// to taken when taken is non-nil.
func UniquePath(dir, stem, suffix string, taken map[string]bool) string {
	for idx := 1; ; idx++ {
		name := stem + suffix
		if idx > 1 {
			name = fmt.Sprintf("%s__%d%s", stem, idx, suffix)
		}
		cand := filepath.Join(dir, name)
		if taken[cand] {
			continue
		}
		if _, err := os.Stat(cand); !os.IsNotExist(err) {
			continue
		}
		if taken != nil {
			taken[cand] = true
		}
		return cand
	}
}
