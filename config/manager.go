package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Manager handles thread-safe configuration access and reloads.
type Manager struct {
	mu         sync.RWMutex
	current    *Config
	configPath string
}

// NewManager creates a new configuration manager holding the defaults.
func NewManager(path string) *Manager {
	return &Manager{
		configPath: path,
		current:    Default(),
	}
}

// Load reads the configuration file from disk on top of the defaults and
// swaps it in when valid. On error the current configuration is kept.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	newConfig, err := Parse(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.current = newConfig
	m.mu.Unlock()

	return nil
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg := *m.current
	return &cfg
}

// Update applies fn to a copy of the current configuration and swaps it in
// if the result is valid.
func (m *Manager) Update(fn func(*Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := *m.current
	cfg.Sources = append([]Source(nil), m.current.Sources...)
	fn(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.current = &cfg
	return nil
}
