package config

import (
	"fmt"
	"strings"

	"omnisearch/internal/domain"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a
// *ValidationError carrying every problem found, not just the first.
func (c *Config) Validate() error {
	ve := &ValidationError{}
	validateSearch(c, ve)
	validateSuspension(c, ve)
	validateCache(c, ve)
	validateLogger(c, ve)
	validateEngines(c, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateSearch(c *Config, ve *ValidationError) {
	if c.Search.Deadline <= 0 {
		ve.Add("search.deadline must be > 0")
	}
	if c.Search.MaxConcurrent <= 0 {
		ve.Add("search.max_concurrent must be > 0")
	}
	if c.Search.DefaultTimeout <= 0 {
		ve.Add("search.default_timeout must be > 0")
	}
	if c.Search.DefaultTimeout > c.Search.Deadline {
		ve.Add("search.default_timeout must not exceed search.deadline")
	}
	if c.Search.RankSmoothing < 0 {
		ve.Add("search.rank_smoothing must be >= 0")
	}
	for _, d := range c.Search.DisabledCategories {
		if !domain.ValidCategory(domain.Category(d)) {
			ve.Add("search.disabled_categories: unknown category %q", d)
		}
	}
}

func validateSuspension(c *Config, ve *ValidationError) {
	if c.Suspension.Threshold <= 0 {
		ve.Add("suspension.threshold must be > 0")
	}
	if c.Suspension.Base <= 0 {
		ve.Add("suspension.base must be > 0")
	}
	if c.Suspension.Max < c.Suspension.Base {
		ve.Add("suspension.max must be >= suspension.base")
	}
}

func validateCache(c *Config, ve *ValidationError) {
	if c.Cache.Path == "" {
		ve.Add("cache.path must not be empty")
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

func validateLogger(c *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(c.Logger.Level)] {
		ve.Add("logger.level %q is not one of debug/info/warn/error", c.Logger.Level)
	}
	switch strings.ToLower(c.Logger.Format) {
	case "text", "json", "":
	default:
		ve.Add("logger.format %q is not one of text/json", c.Logger.Format)
	}
}

func validateEngines(c *Config, ve *ValidationError) {
	if len(c.Engines) == 0 {
		ve.Add("engines must not be empty")
	}
	seen := make(map[string]bool, len(c.Engines))
	shortcuts := make(map[string]string)
	for i, e := range c.Engines {
		if e.ID == "" {
			ve.Add("engines[%d].id must not be empty", i)
			continue
		}
		if seen[e.ID] {
			ve.Add("engines[%d]: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = true
		if !domain.ValidCategory(domain.Category(e.Category)) {
			ve.Add("engine %q: unknown category %q", e.ID, e.Category)
		}
		if e.Weight < 0 {
			ve.Add("engine %q: weight must be >= 0", e.ID)
		}
		if e.Timeout < 0 {
			ve.Add("engine %q: timeout must be >= 0", e.ID)
		}
		if e.RatePerSec < 0 {
			ve.Add("engine %q: rate_per_sec must be >= 0", e.ID)
		}
		if e.Shortcut != "" {
			if prev, dup := shortcuts[e.Shortcut]; dup {
				ve.Add("engine %q: shortcut %q already used by %q", e.ID, e.Shortcut, prev)
			}
			shortcuts[e.Shortcut] = e.ID
		}
		if e.LocaleRequired && len(e.Locales) == 0 && e.DefaultLocale == "" {
			ve.Add("engine %q: locale_required without declared locales", e.ID)
		}
	}
}
