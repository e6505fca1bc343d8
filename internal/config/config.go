package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"dapboot/internal/fsutil"
)

// Ensure loads the config at path, writing the defaults first when the file
// does not exist yet. An existing but invalid file is reported, never replaced.
func Ensure(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg, err := Load(path)
	switch {
	case err == nil:
		return cfg, nil
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, err
	}
	cfg = DefaultConfig()
	if err := Save(path, cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads, normalizes and validates path. Unknown keys are rejected so a
// misspelled setting does not silently fall back to its default.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
		return Config{}, fmt.Errorf("CONF_READ: %w", err)
	}
	cfg, err := decode(data)
	if err != nil {
		return Config{}, err
	}
	cfg = Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte) (Config, error) {
	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("CONF_UNKNOWN_KEY: %s", strings.TrimSpace(strict.String()))
		}
		return Config{}, fmt.Errorf("CONF_PARSE: %w", err)
	}
	return cfg, nil
}

// Save validates cfg and replaces path atomically.
func Save(path string, cfg Config) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg = Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("CONF_WRITE: %w", err)
	}
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("CONF_ENCODE: %w", err)
	}
	if err := fsutil.AtomicWrite(path, blob, 0o644); err != nil {
		return fmt.Errorf("CONF_WRITE: %w", err)
	}
	return nil
}
