package config

import (
	"fmt"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jchantrell/arcbank/internal/texel"
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks every field that flags can override. Call it again
// after applying flags.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("unsupported log level '%s': supported levels are %v", c.LogLevel, validLogLevels)
	}

	if !slices.Contains(validLogFormats, c.LogFormat) {
		return fmt.Errorf("unsupported log format '%s': supported formats are %v", c.LogFormat, validLogFormats)
	}

	if !texel.ValidFormat(c.TextureFormat) {
		return fmt.Errorf("unsupported texture format '%s': supported formats are png, webp, tga, bmp", c.TextureFormat)
	}

	if c.TextureCacheSize < 0 {
		return fmt.Errorf("texture cache size cannot be negative")
	}

	for name, patterns := range map[string][]string{
		"arc":     c.Filters.ARC,
		"glb":     c.Filters.GLB,
		"cdfiles": c.Filters.CDFiles,
		"arcn":    c.Filters.ARCN,
		"lda":     c.Filters.LDA,
	} {
		if err := validatePatterns(patterns); err != nil {
			return fmt.Errorf("filters.%s: %w", name, err)
		}
	}

	return nil
}

// validatePatterns ensures a filter has patterns and each one is a valid glob
func validatePatterns(patterns []string) error {
	if len(patterns) == 0 {
		return fmt.Errorf("filter needs at least one pattern")
	}

	for _, p := range patterns {
		if p == "" {
			return fmt.Errorf("pattern cannot be empty")
		}

		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid pattern '%s'", p)
		}
	}
	return nil
}
