package config

import (
	"fmt"
	"os"

	"rl-dashboard/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Defaults applied when the YAML omits a value.
const (
	DefaultReconnectDelaySeconds   = 3
	DefaultPingIntervalSeconds     = 30
	DefaultHandshakeTimeoutSeconds = 10
	DefaultBufferCapacity          = 100
	DefaultRetentionDays           = 7
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Realtime.ReconnectDelaySeconds <= 0 {
		c.Realtime.ReconnectDelaySeconds = DefaultReconnectDelaySeconds
	}
	if c.Realtime.PingIntervalSeconds <= 0 {
		c.Realtime.PingIntervalSeconds = DefaultPingIntervalSeconds
	}
	if c.Realtime.HandshakeTimeoutSeconds <= 0 {
		c.Realtime.HandshakeTimeoutSeconds = DefaultHandshakeTimeoutSeconds
	}
	if c.Buffer.Capacity <= 0 {
		c.Buffer.Capacity = DefaultBufferCapacity
	}
	if c.Storage.RetentionDays <= 0 {
		c.Storage.RetentionDays = DefaultRetentionDays
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Realtime endpoint
	if c.Realtime.URL == "" {
		return fmt.Errorf("realtime url cannot be empty")
	}

	// REST collaborator
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base_url cannot be empty")
	}

	// Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	// Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Startup channels
	for i, ch := range c.Channels {
		if ch.Topic == "" {
			return fmt.Errorf("channel %d must have a topic", i)
		}
		if ch.EntityID == "" {
			return fmt.Errorf("channel %d (%s) must have an entity_id", i, ch.Topic)
		}
	}

	// Simulator (only checked when enabled via a port)
	if c.Simulator.Port != 0 {
		if c.Simulator.Port <= 1024 || c.Simulator.Port > 65535 {
			return fmt.Errorf("invalid simulator port number: %d (must be between 1025 and 65535)", c.Simulator.Port)
		}
		if c.Simulator.TickIntervalSeconds <= 0 {
			return fmt.Errorf("simulator tick interval must be greater than 0")
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
