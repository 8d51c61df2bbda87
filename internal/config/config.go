// Package config loads rowtable's ambient knobs from a TOML file, the
// way the teacher's internal/parser/toml package loads its schema
// documents: a toml-tagged struct decoded with
// github.com/BurntSushi/toml, then validated field-by-field.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the knobs SPEC_FULL.md §10.3 leaves to the implementer:
// cache sizing (§4.7), the skip-set spill bound (§9's open question),
// and the backfill/trigger worker pool size (§5).
type Config struct {
	Cache   CacheConfig   `toml:"cache"`
	SkipSet SkipSetConfig `toml:"skip_set"`
	Workers WorkersConfig `toml:"workers"`
}

// CacheConfig sizes the internal/cache variants. Capacity bounds each
// cache's LRU (the bounded-LRU stand-in for the source's GC-driven
// soft/weak reference cleanup; see DESIGN.md's Open Question decision).
type CacheConfig struct {
	Capacity int `toml:"capacity"`
}

// SkipSetConfig carries a skip-set size threshold, loaded and validated
// like the other sections. Nothing in internal/update reads it: the
// skip-set there has no bound or spill policy (see internal/update's
// skipSet doc).
type SkipSetConfig struct {
	MaxEntries int `toml:"max_entries"`
}

// WorkersConfig sizes the shared backfill/trigger-disablement worker
// pool (spec §5's "single dynamically-sized worker pool").
type WorkersConfig struct {
	PoolSize  int `toml:"pool_size"`
	QueueSize int `toml:"queue_size"`
}

// Default returns the configuration rowtable uses when no file is
// loaded.
func Default() Config {
	return Config{
		Cache:   CacheConfig{Capacity: 4096},
		SkipSet: SkipSetConfig{MaxEntries: 10000},
		Workers: WorkersConfig{PoolSize: 4, QueueSize: 64},
	}
}

// Load reads and decodes a TOML config file at path, validating it
// before returning.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open file %q: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads and decodes TOML config content from r, validating it
// before returning.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate runs all structural checks on cfg, returning the first error
// encountered, matching the teacher's Database.Validate style of a
// top-level method delegating to small per-section checks.
func (c Config) Validate() error {
	if err := c.Cache.validate(); err != nil {
		return err
	}
	if err := c.SkipSet.validate(); err != nil {
		return err
	}
	if err := c.Workers.validate(); err != nil {
		return err
	}
	return nil
}

func (c CacheConfig) validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("config: cache.capacity must be at least 1, got %d", c.Capacity)
	}
	return nil
}

func (c SkipSetConfig) validate() error {
	if c.MaxEntries < 1 {
		return fmt.Errorf("config: skip_set.max_entries must be at least 1, got %d", c.MaxEntries)
	}
	return nil
}

func (c WorkersConfig) validate() error {
	if c.PoolSize < 1 {
		return fmt.Errorf("config: workers.pool_size must be at least 1, got %d", c.PoolSize)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("config: workers.queue_size must be at least 1, got %d", c.QueueSize)
	}
	return nil
}
