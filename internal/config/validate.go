package config

import (
	"fmt"
	"slices"
)

var logLevels = []string{"debug", "info", "warn", "error"}
var logFormats = []string{"json", "text"}

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Store.validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Cache.validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of %v (got %q)", logLevels, c.Log.Level)
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		return fmt.Errorf("log.format must be one of %v (got %q)", logFormats, c.Log.Format)
	}
	return nil
}

func (s *StoreConfig) validate() error {
	if s.DefaultPageSize <= 0 {
		return fmt.Errorf("default_page_size must be > 0 (got %d)", s.DefaultPageSize)
	}
	if s.MaxPageSize < s.DefaultPageSize {
		return fmt.Errorf("max_page_size must be >= default_page_size (got %d < %d)",
			s.MaxPageSize, s.DefaultPageSize)
	}
	if s.ScrollTTL <= 0 {
		return fmt.Errorf("scroll_ttl must be > 0 (got %v)", s.ScrollTTL)
	}
	return nil
}

func (c *CacheConfig) validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("ttl must be > 0 (got %v)", c.TTL)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup_interval must be > 0 (got %v)", c.CleanupInterval)
	}
	return nil
}
