package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dapboot/config.toml"
	}
	return filepath.Join(home, ".dapboot", "config.toml")
}

func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
	}
	return path, nil
}

// ResolveCacheRoot expands the configured cache root to an absolute path.
func ResolveCacheRoot(cfg Config) (string, error) {
	expanded, err := ExpandPath(cfg.Adapter.CacheRoot)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}
