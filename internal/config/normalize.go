package config

import "strings"

func Normalize(cfg Config) Config {
	if cfg.Version == 0 {
		cfg.Version = SchemaVersion
	}
	cfg.Adapter.Version = strings.TrimSpace(cfg.Adapter.Version)
	if cfg.Adapter.Version == "" {
		cfg.Adapter.Version = DefaultAdapterVersion
	}
	if cfg.Adapter.ReleaseRepo == "" {
		cfg.Adapter.ReleaseRepo = DefaultReleaseRepo
	}
	if cfg.Adapter.ReleaseAPI == "" {
		cfg.Adapter.ReleaseAPI = DefaultReleaseAPI
	}
	cfg.Adapter.ReleaseAPI = strings.TrimSuffix(cfg.Adapter.ReleaseAPI, "/")
	if cfg.Adapter.CacheRoot == "" {
		cfg.Adapter.CacheRoot = DefaultCacheRoot
	}
	if cfg.Network.Timeout == "" {
		cfg.Network.Timeout = DefaultTimeout
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	return cfg
}
