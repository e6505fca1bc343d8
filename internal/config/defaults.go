package config

const (
	SchemaVersion = 1

	DefaultAdapterVersion = "3.1.2-1054"
	DefaultReleaseRepo    = "Samsung/netcoredbg"
	DefaultReleaseAPI     = "https://api.github.com"
	DefaultCacheRoot      = "~/.dapboot/cache"
	DefaultTimeout        = "2m"
)

// DefaultConfig returns a fully-populated v1 config document.
func DefaultConfig() Config {
	return Config{
		Version: SchemaVersion,
		Adapter: AdapterConfig{
			Version:     DefaultAdapterVersion,
			ReleaseRepo: DefaultReleaseRepo,
			ReleaseAPI:  DefaultReleaseAPI,
			CacheRoot:   DefaultCacheRoot,
		},
		Network: NetworkConfig{
			Timeout: DefaultTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
