package orchestrator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// defaultFilePerm is used for targets that do not exist yet.
const defaultFilePerm fs.FileMode = 0644

// readTarget reads the primary tree's target. A missing file is not an
// error: it reports exists=false and empty content.
func readTarget(path string) (content string, exists bool, perm fs.FileMode, err error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, defaultFilePerm, nil
	}
	if err != nil {
		return "", false, 0, fmt.Errorf("stat target: %w", err)
	}
	if info.IsDir() {
		return "", false, 0, fmt.Errorf("target %s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, 0, fmt.Errorf("read target: %w", err)
	}
	return string(data), true, info.Mode().Perm(), nil
}

// writeAtomic replaces path with content through a temp file in the same
// directory, so readers see either the old file or the new one.
func writeAtomic(path, content string, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bakeoff-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace target: %w", err)
	}

	success = true
	return nil
}
