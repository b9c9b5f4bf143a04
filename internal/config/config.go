// Package config loads the overlay catalog file.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/joeblew999/plat-overlay/internal/overlay"
)

// DefaultPath is the catalog file read when none is given.
const DefaultPath = "overlays.yaml"

// Config is the overlay catalog.
type Config struct {
	// Overlays maps overlay names to resource paths relative to the data
	// directory (or source URL). Unlisted overlays use their built-in path.
	Overlays     map[string]string `yaml:"overlays" koanf:"overlays"`
	FetchTimeout time.Duration     `yaml:"fetch_timeout" koanf:"fetch_timeout"`
	HitTolerance float64           `yaml:"hit_tolerance" koanf:"hit_tolerance"`
	Archive      bool              `yaml:"archive" koanf:"archive"`
}

// DefaultConfig returns the built-in catalog.
func DefaultConfig() *Config {
	return &Config{
		Overlays:     map[string]string{},
		FetchTimeout: 30 * time.Second,
		HitTolerance: 0.05,
		Archive:      true,
	}
}

// Load reads the catalog from path, then overlays environment variable
// overrides (OVERLAY_FETCH_TIMEOUT, OVERLAY_OVERLAYS__MANGROVE, ...).
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider("OVERLAY_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "OVERLAY_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the catalog only names known overlays.
func (c *Config) Validate() error {
	for name, path := range c.Overlays {
		if _, err := overlay.ParseName(name); err != nil {
			return fmt.Errorf("overlays: %w", err)
		}
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("overlays.%s: resource path is empty", name)
		}
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch_timeout must be non-negative")
	}
	if c.HitTolerance < 0 {
		return fmt.Errorf("hit_tolerance must be non-negative")
	}
	return nil
}

// Resources returns the resource path of every overlay with overrides applied.
func (c *Config) Resources() overlay.Resources {
	res := overlay.DefaultResources()
	for name, path := range c.Overlays {
		if n, err := overlay.ParseName(name); err == nil && path != "" {
			res[n] = path
		}
	}
	return res
}

// Overridden lists the overlays whose resource differs from the built-in one.
func (c *Config) Overridden() []string {
	var names []string
	for name, path := range c.Overlays {
		n, err := overlay.ParseName(name)
		if err != nil || path == "" || path == n.Resource() {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
