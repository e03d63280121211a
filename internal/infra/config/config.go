package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"omnisearch/internal/domain"
)

// Config is the top-level application configuration. It is loaded once at
// startup, validated, and passed by reference into constructors; core logic
// never reads configuration from ambient globals.
type Config struct {
	Search     SearchConfig     `yaml:"search"`
	Suspension SuspensionConfig `yaml:"suspension"`
	Cache      CacheConfig      `yaml:"cache"`
	Logger     LoggerConfig     `yaml:"logger"`
	Tracer     TracerConfig     `yaml:"tracer"`
	Hooks      HooksConfig      `yaml:"hooks"`
	Engines    []EngineConfig   `yaml:"engines"`
}

// SearchConfig tunes the orchestrator and collector.
type SearchConfig struct {
	// Deadline bounds one whole Dispatch call, across all backends.
	Deadline time.Duration `yaml:"deadline"`
	// MaxConcurrent caps simultaneously running backend executors.
	MaxConcurrent int `yaml:"max_concurrent"`
	// DefaultTimeout applies to engines that declare none of their own.
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	// RankSmoothing is the k in weight/(position+k); larger values flatten
	// the positional bonus.
	RankSmoothing float64 `yaml:"rank_smoothing"`
	// DefaultLocale is used when the request carries no locale.
	DefaultLocale string `yaml:"default_locale"`
	// DisabledCategories turns whole categories off without touching the
	// per-engine entries.
	DisabledCategories []string `yaml:"disabled_categories,omitempty"`
}

// CategoryDisabled reports whether c is switched off in the config.
func (s *SearchConfig) CategoryDisabled(c domain.Category) bool {
	for _, d := range s.DisabledCategories {
		if domain.Category(d) == c {
			return true
		}
	}
	return false
}

// SuspensionConfig tunes the failure circuit for chronically failing engines.
type SuspensionConfig struct {
	// Threshold is the consecutive-failure count that triggers suspension.
	Threshold int `yaml:"threshold"`
	// Base is the first suspension window; it doubles per repeated offense.
	Base time.Duration `yaml:"base"`
	// Max caps the suspension window growth.
	Max time.Duration `yaml:"max"`
}

// CacheConfig holds continuity token store settings.
type CacheConfig struct {
	Path          string `yaml:"path"`           // sqlite file path
	SweepSchedule string `yaml:"sweep_schedule"` // cron spec, e.g. "@every 10m"
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout, noop
}

// HooksConfig configures the built-in hook chain.
type HooksConfig struct {
	// BlockedHosts drops results whose URL host matches (suffix match).
	BlockedHosts []string `yaml:"blocked_hosts"`
	// Shortcuts enables "!code query" bang routing.
	Shortcuts bool `yaml:"shortcuts"`
}

// EngineConfig describes one backend entry. The compiled-in adapter for ID
// supplies parsing; the config supplies operational knobs.
type EngineConfig struct {
	ID             string        `yaml:"id"`
	Shortcut       string        `yaml:"shortcut,omitempty"`
	Category       string        `yaml:"category"`
	Weight         float64       `yaml:"weight"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`
	Disabled       bool          `yaml:"disabled,omitempty"`
	RatePerSec     float64       `yaml:"rate_per_sec,omitempty"`
	RateBurst      int           `yaml:"rate_burst,omitempty"`
	Locales        []string      `yaml:"locales,omitempty"`
	DefaultLocale  string        `yaml:"default_locale,omitempty"`
	LocaleRequired bool          `yaml:"locale_required,omitempty"`
	BaseURL        string        `yaml:"base_url,omitempty"` // endpoint override, mainly for tests
}

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			Deadline:       6 * time.Second,
			MaxConcurrent:  16,
			DefaultTimeout: 3 * time.Second,
			RankSmoothing:  6,
			DefaultLocale:  "en",
		},
		Suspension: SuspensionConfig{
			Threshold: 3,
			Base:      time.Minute,
			Max:       time.Hour,
		},
		Cache: CacheConfig{
			Path:          "./omnisearch.db",
			SweepSchedule: "@every 10m",
		},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer: TracerConfig{Enabled: false, Exporter: "noop"},
		Hooks:  HooksConfig{Shortcuts: true},
		Engines: []EngineConfig{
			{ID: "duckduckgo", Shortcut: "d", Category: "general", Weight: 1.0},
			{ID: "wikipedia", Shortcut: "w", Category: "general", Weight: 1.2,
				Locales: []string{"en", "de", "fr", "es", "it"}, DefaultLocale: "en"},
			{ID: "currency", Category: "general", Weight: 1.0},
			{ID: "openmeteo", Category: "general", Weight: 1.0},
		},
	}
}

// Load reads the yaml file at path on top of the defaults, applies
// OMNISEARCH_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigLoad, err)
		}
		// No file: defaults plus environment.
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfigLoad, path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays a small set of environment overrides onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv("OMNISEARCH_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("OMNISEARCH_LOG_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("OMNISEARCH_CACHE_PATH"); v != "" {
		cfg.Cache.Path = v
	}
	if v := os.Getenv("OMNISEARCH_DEADLINE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Search.Deadline = d
		}
	}
	if v := os.Getenv("OMNISEARCH_TRACING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tracer.Enabled = b
		}
	}
}

// Engine returns the engine entry with the given id, or nil.
func (c *Config) Engine(id string) *EngineConfig {
	for i := range c.Engines {
		if c.Engines[i].ID == id {
			return &c.Engines[i]
		}
	}
	return nil
}

// Descriptor converts an engine entry into a backend descriptor, filling in
// search-level defaults. Kind and remaining traits come from the adapter.
func (c *Config) Descriptor(e *EngineConfig) domain.Descriptor {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = c.Search.DefaultTimeout
	}
	weight := e.Weight
	if weight <= 0 {
		weight = 1.0
	}
	return domain.Descriptor{
		ID:       e.ID,
		Shortcut: e.Shortcut,
		Category: domain.Category(e.Category),
		Traits: domain.Traits{
			Locales:        e.Locales,
			DefaultLocale:  e.DefaultLocale,
			LocaleRequired: e.LocaleRequired,
		},
		Weight:     weight,
		Timeout:    timeout,
		Enabled:    !e.Disabled,
		RatePerSec: e.RatePerSec,
		RateBurst:  e.RateBurst,
	}
}
