// Package storage provides filesystem utilities for safe and atomic file operations.
//
// It implements atomic writes using the standard temp-file + rename pattern so
// that either the complete file lands on disk or nothing changes. The streaming
// variant is used for release asset downloads, where the payload must never be
// buffered fully in memory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// AtomicWriteFile writes data to a file atomically (temp file + rename).
// The parent directory is created when missing. On any error the temp file
// is removed and the original file, if present, stays untouched.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return errors.New("path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := EnsureDir(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure parent directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	// Atomic rename is the step that makes the write all-or-nothing.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	tmpFile = nil
	return nil
}

// AtomicWriteReader streams r into path using the same temp-file + rename
// pattern as AtomicWriteFile and returns the number of bytes written.
// A partially transferred file never becomes visible under path.
func AtomicWriteReader(path string, r io.Reader, perm os.FileMode) (int64, error) {
	if path == "" {
		return 0, errors.New("path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := EnsureDir(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to ensure parent directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		return 0, fmt.Errorf("failed to stream to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return 0, fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("failed to rename temp file: %w", err)
	}

	tmpFile = nil
	return written, nil
}

// EnsureDir creates a directory and all necessary parents. Existing
// directories are not an error.
func EnsureDir(path string, perm os.FileMode) error {
	if path == "" {
		return errors.New("path cannot be empty")
	}
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
