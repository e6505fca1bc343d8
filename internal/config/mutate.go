package config

import (
	"fmt"
	"sort"
	"strings"
)

type field struct {
	get func(*Config) *string
}

var fields = map[string]field{
	"adapter.version":      {func(c *Config) *string { return &c.Adapter.Version }},
	"adapter.release_repo": {func(c *Config) *string { return &c.Adapter.ReleaseRepo }},
	"adapter.release_api":  {func(c *Config) *string { return &c.Adapter.ReleaseAPI }},
	"adapter.cache_root":   {func(c *Config) *string { return &c.Adapter.CacheRoot }},
	"network.timeout":      {func(c *Config) *string { return &c.Network.Timeout }},
	"logging.level":        {func(c *Config) *string { return &c.Logging.Level }},
	"logging.format":       {func(c *Config) *string { return &c.Logging.Format }},
}

// Keys lists the settable dotted keys in sorted order.
func Keys() []string {
	out := make([]string, 0, len(fields))
	for k := range fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func Get(cfg Config, key string) (string, error) {
	f, ok := fields[strings.ToLower(key)]
	if !ok {
		return "", fmt.Errorf("CONF_KEY: unknown key %q", key)
	}
	return *f.get(&cfg), nil
}

// Set assigns value to key and leaves cfg untouched when the result does not
// validate.
func Set(cfg *Config, key, value string) error {
	if cfg == nil {
		return fmt.Errorf("CONF_KEY: nil config")
	}
	f, ok := fields[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("CONF_KEY: unknown key %q", key)
	}
	next := *cfg
	*f.get(&next) = value
	next = Normalize(next)
	if err := Validate(next); err != nil {
		return err
	}
	*cfg = next
	return nil
}
