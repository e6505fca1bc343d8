package fsutil

import (
	"fmt"
	"os"
)

// WithTempDir creates a fresh directory under parent, passes it to fn and
// removes it afterwards, whether fn returns normally, fails or panics.
func WithTempDir(parent, pattern string, fn func(dir string) error) (err error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("create temp parent: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, pattern)
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil && err == nil {
			err = fmt.Errorf("remove temp dir: %w", rmErr)
		}
	}()
	return fn(dir)
}
