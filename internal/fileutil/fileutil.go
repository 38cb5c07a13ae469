package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// Exists reports whether something is present at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// WriteFileAtomic replaces path with data. The data is written to a temporary
// file in the same directory and renamed over the original, so readers never
// see a partially written file. The original permissions are kept.
func WriteFileAtomic(path string, data []byte) error {
	perm := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Move renames src to dest, falling back to copy+delete for cross-filesystem
// moves. An existing dest is refused rather than overwritten.
func Move(src, dest string) error {
	if Exists(dest) {
		return fmt.Errorf("destination already exists: %s", dest)
	}

	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		return moveByCopy(src, dest)
	}

	return err
}

// moveByCopy removes src only once dest is completely written.
func moveByCopy(src, dest string) error {
	if err := copyFile(src, dest); err != nil {
		return err
	}
	return os.Remove(src)
}

type destFile interface {
	io.Writer
	Sync() error
	Close() error
}

var openDest = func(name string, perm os.FileMode) (destFile, error) {
	return os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
}

// copyFile copies a file from src to dest. On failure dest is removed.
func copyFile(src, dest string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	out, err := openDest(dest, srcInfo.Mode())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, srcFile); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("failed to copy to %s: %w", dest, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("failed to sync %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}

	return os.Chtimes(dest, srcInfo.ModTime(), srcInfo.ModTime())
}
