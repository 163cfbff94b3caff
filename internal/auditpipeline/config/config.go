// Package config loads the recognized options from SPEC_FULL.md §6:
// fetch timeouts/size caps, the performance probe policy, the global audit
// deadline, and the canonical AI bot list used for penalty calculation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultAIBots is the canonical bot list from spec.md §4.5.
var DefaultAIBots = []string{
	"GPTBot",
	"Google-Extended",
	"ChatGPT-User",
	"anthropic-ai",
	"Claude-Web",
	"PerplexityBot",
	"CCBot",
}

// Config holds runtime configuration for one audit. Values come from
// Default() overlaid with an optional YAML config file, matching the
// teacher's config-struct pattern (models.FetchConfig). The CLI has no
// per-option flags; its --config flag only selects the file.
type Config struct {
	Fetch struct {
		TimeoutMs    int    `yaml:"timeoutMs"`
		MaxBytes     int    `yaml:"maxBytes"`
		UserAgent    string `yaml:"userAgent"`
		MaxRedirects int    `yaml:"maxRedirects"`
	} `yaml:"fetch"`

	Probe struct {
		TimeoutMs  int    `yaml:"timeoutMs"`
		MaxRetries int    `yaml:"maxRetries"`
		BaseURL    string `yaml:"baseUrl"`
	} `yaml:"probe"`

	Audit struct {
		GlobalDeadlineMs int `yaml:"globalDeadlineMs"`
	} `yaml:"audit"`

	AIBots []string `yaml:"aiBots"`
}

// Default returns the configuration with every spec-recommended default.
func Default() *Config {
	c := &Config{}
	c.Fetch.TimeoutMs = 10_000
	c.Fetch.MaxBytes = 10 * 1024 * 1024
	c.Fetch.UserAgent = "GEOAuditBot/1.0 (+https://example.invalid/bot)"
	c.Fetch.MaxRedirects = 5
	c.Probe.TimeoutMs = 20_000
	c.Probe.MaxRetries = 2
	c.Audit.GlobalDeadlineMs = 90_000
	c.AIBots = append([]string(nil), DefaultAIBots...)
	return c
}

// Load reads a YAML config file and overlays it onto the defaults. A missing
// path is not an error: it simply yields Default().
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if len(c.AIBots) == 0 {
		c.AIBots = append([]string(nil), DefaultAIBots...)
	}
	return c, nil
}

// FetchTimeout returns the per-artifact deadline as a time.Duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutMs) * time.Millisecond
}

// ProbeTimeout returns the external performance probe's overall deadline.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutMs) * time.Millisecond
}

// GlobalDeadline returns the whole-audit deadline.
func (c *Config) GlobalDeadline() time.Duration {
	return time.Duration(c.Audit.GlobalDeadlineMs) * time.Millisecond
}
