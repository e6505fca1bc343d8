package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AtomicWrite writes data to path using a tmp+rename strategy.
// If rename fails, the tmp file is cleaned up.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// PlaceDir publishes the directory src at dst with a single rename. An existing
// dst is moved aside first and restored when the rename fails. src and dst
// must be on the same filesystem.
func PlaceDir(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create parent: %w", err)
	}
	backup := ""
	if _, err := os.Lstat(dst); err == nil {
		backup = fmt.Sprintf("%s.bak-%d", dst, time.Now().UnixNano())
		if err := os.Rename(dst, backup); err != nil {
			return fmt.Errorf("backup existing: %w", err)
		}
	}
	if err := os.Rename(src, dst); err != nil {
		if backup != "" {
			_ = os.Rename(backup, dst)
		}
		return err
	}
	if backup != "" {
		_ = os.RemoveAll(backup)
	}
	return nil
}
