//go:build windows

package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func checkExecMode(path string, _ os.FileInfo) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".exe", ".com", ".bat", ".cmd":
		return nil
	}
	return fmt.Errorf("not executable: unsupported extension %q", filepath.Ext(path))
}

// MarkExecutable is a no-op on windows; executability follows the extension.
func MarkExecutable(path string) error {
	_, err := os.Stat(path)
	return err
}
