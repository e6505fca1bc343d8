package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

var allowedLogLevels = map[string]struct{}{
	"trace": {},
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

var allowedLogFormats = map[string]struct{}{
	"text": {},
	"json": {},
}

func Validate(cfg Config) error {
	if cfg.Version != SchemaVersion {
		return fmt.Errorf("CONF_VERSION: unsupported version %d", cfg.Version)
	}
	if err := validateAdapterVersion(cfg.Adapter.Version); err != nil {
		return err
	}
	if owner, name, ok := strings.Cut(cfg.Adapter.ReleaseRepo, "/"); !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("CONF_ADAPTER: release_repo must be owner/name, got %q", cfg.Adapter.ReleaseRepo)
	}
	if u, err := url.Parse(cfg.Adapter.ReleaseAPI); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("CONF_ADAPTER: release_api must be an http(s) URL, got %q", cfg.Adapter.ReleaseAPI)
	}
	if strings.TrimSpace(cfg.Adapter.CacheRoot) == "" {
		return fmt.Errorf("CONF_STORAGE: missing cache root")
	}
	if d, err := time.ParseDuration(cfg.Network.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("CONF_NETWORK: invalid timeout %q", cfg.Network.Timeout)
	}
	if _, ok := allowedLogLevels[cfg.Logging.Level]; !ok {
		return fmt.Errorf("CONF_LOGGING: invalid level %q", cfg.Logging.Level)
	}
	if _, ok := allowedLogFormats[cfg.Logging.Format]; !ok {
		return fmt.Errorf("CONF_LOGGING: invalid format %q", cfg.Logging.Format)
	}
	return nil
}

// The version names a cache directory, so it must be a single path element.
func validateAdapterVersion(v string) error {
	if v == "" || v == "." || v == ".." || strings.ContainsAny(v, `/\`) || strings.HasPrefix(v, ".") {
		return fmt.Errorf("CONF_ADAPTER: invalid adapter version %q", v)
	}
	return nil
}

// Timeout returns the parsed network timeout of a validated config.
func Timeout(cfg Config) time.Duration {
	d, err := time.ParseDuration(cfg.Network.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultTimeout)
	}
	return d
}
