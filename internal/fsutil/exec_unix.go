//go:build !windows

package fsutil

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func checkExecMode(path string, _ os.FileInfo) error {
	if err := unix.Access(path, unix.X_OK); err != nil {
		return fmt.Errorf("not executable: %w", err)
	}
	return nil
}

// MarkExecutable adds execute permission for everyone who can read path.
func MarkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	mode |= (mode & 0o444) >> 2
	return os.Chmod(path, mode|0o100)
}
