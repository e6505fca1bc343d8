package config

// Config is the v1 dapboot schema.
type Config struct {
	Version int           `toml:"version"`
	Adapter AdapterConfig `toml:"adapter"`
	Network NetworkConfig `toml:"network"`
	Logging LoggingConfig `toml:"logging"`
}

// AdapterConfig pins the netcoredbg build and where it comes from.
type AdapterConfig struct {
	Version     string `toml:"version" json:"version"`
	ReleaseRepo string `toml:"release_repo" json:"releaseRepo"`
	ReleaseAPI  string `toml:"release_api" json:"releaseApi"`
	CacheRoot   string `toml:"cache_root" json:"cacheRoot"`
}

type NetworkConfig struct {
	Timeout string `toml:"timeout" json:"timeout"`
}

type LoggingConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
}
