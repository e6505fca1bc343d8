package fsutil

import (
	"errors"
	"fmt"
	"os"
)

// CheckExecutable returns nil when path is an existing regular file the
// current user may execute, or an error describing why not.
func CheckExecutable(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file does not exist")
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("is a directory")
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file")
	}
	return checkExecMode(path, info)
}

func IsExecutable(path string) bool {
	return CheckExecutable(path) == nil
}
