package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents the top-level configuration structure.
type Config struct {
	Sources  []Source      `yaml:"sources"`
	Output   OutputConfig  `yaml:"output"`
	Fetch    FetchConfig   `yaml:"fetch"`
	Log      LogConfig     `yaml:"log"`
	Interval time.Duration `yaml:"interval,omitempty"` // Rebuild period, zero builds once
}

// Source represents a single upstream rule list.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url,omitempty"`  // Remote URL
	Path string `yaml:"path,omitempty"` // Local file path
}

// OutputConfig describes the generated rule file.
type OutputConfig struct {
	Path         string `yaml:"path"`
	Title        string `yaml:"title"`
	SubscribeURL string `yaml:"subscribe_url,omitempty"`
}

// FetchConfig holds retrieval settings for remote sources.
type FetchConfig struct {
	UserAgent   string        `yaml:"user_agent"`
	Timeout     time.Duration `yaml:"timeout"`
	Retries     int           `yaml:"retries"`
	Concurrency int           `yaml:"concurrency"`
	DataDir     string        `yaml:"data_dir"`            // Cache directory, empty disables the cache
	CacheTTL    time.Duration `yaml:"cache_ttl,omitempty"` // Serve cache without fetching while younger than this

	// Also accept *.d, +.d, AdGuard ||d^ and hosts lines.
	ExtendedSyntax bool `yaml:"extended_syntax,omitempty"`
}

// LogConfig selects the log level and an optional log file.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// Default returns the built-in configuration: the four upstream ad lists the
// merged Loon list has always been built from.
func Default() *Config {
	return &Config{
		Sources: []Source{
			{Name: "AdRules", URL: "https://raw.githubusercontent.com/Cats-Team/AdRules/main/adrules.list"},
			{Name: "anti-ad", URL: "https://anti-ad.net/surge2.txt"},
			{Name: "Advertising-Domain", URL: "https://raw.githubusercontent.com/blackmatrix7/ios_rule_script/master/rule/Loon/Advertising/Advertising_Domain.list"},
			{Name: "Advertising", URL: "https://raw.githubusercontent.com/blackmatrix7/ios_rule_script/master/rule/Loon/Advertising/Advertising.list"},
		},
		Output: OutputConfig{
			Path:         "Loon_rules.txt",
			Title:        "Loon_AD",
			SubscribeURL: "https://ddcm1349.github.io/Loon/Loon_rules.txt",
		},
		Fetch: FetchConfig{
			UserAgent:   "Mozilla/5.0 (compatible; RuleFetcher/1.0)",
			Timeout:     30 * time.Second,
			Retries:     3,
			Concurrency: 4,
			DataDir:     "data",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration can drive a build.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("no sources configured")
	}
	names := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("source #%d has no name", i+1)
		}
		if names[src.Name] {
			return fmt.Errorf("duplicate source name '%s'", src.Name)
		}
		names[src.Name] = true
		if (src.URL == "") == (src.Path == "") {
			return fmt.Errorf("source '%s' needs exactly one of url or path", src.Name)
		}
	}
	if c.Output.Path == "" {
		return errors.New("output.path is empty")
	}
	if c.Fetch.Timeout < 0 || c.Fetch.Retries < 0 || c.Fetch.Concurrency < 0 {
		return errors.New("fetch timeout, retries and concurrency must not be negative")
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative, got %v", c.Interval)
	}
	return nil
}
