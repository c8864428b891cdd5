// Package config loads the YAML configuration of the gsweb command and
// of applications embedding the client.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/megaganjotsingh/GSWebServiceHelper/client/throttle"
)

// Config is the root configuration structure.
type Config struct {
	BaseURL     string          `yaml:"base_url" validate:"required,url"`
	Timeout     time.Duration   `yaml:"timeout" validate:"gte=0"`
	UserAgent   string          `yaml:"user_agent"`
	Throttle    throttle.Config `yaml:"throttle"`
	Websocket   Websocket       `yaml:"websocket"`
	Credentials Credentials     `yaml:"credentials"`
	Auth        Auth            `yaml:"auth"`
	Reach       Reach           `yaml:"reach"`
	Metrics     Metrics         `yaml:"metrics"`
}

// Websocket configures the persistent connection.
type Websocket struct {
	URL          string        `yaml:"url" validate:"omitempty,url"`
	CloseTimeout time.Duration `yaml:"close_timeout" validate:"gte=0"`
	SendRPS      int           `yaml:"send_rps" validate:"gte=0"`
	SendBurst    int           `yaml:"send_burst" validate:"required_with=SendRPS,gte=0"`
}

// Credentials configures where the bearer token is persisted. An empty
// File keeps credentials in memory.
type Credentials struct {
	File string `yaml:"file"`
}

// Auth configures the token endpoint used for renewal.
type Auth struct {
	TokenURL string `yaml:"token_url" validate:"omitempty,url"`
	ClientID string `yaml:"client_id"`
}

// Reach configures the connectivity probe. An empty ProbeAddr assumes the
// network is reachable.
type Reach struct {
	ProbeAddr string        `yaml:"probe_addr" validate:"omitempty,hostname_port"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
}

// Metrics configures Prometheus collection.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns a configuration with defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		Websocket: Websocket{
			CloseTimeout: 5 * time.Second,
		},
		Reach: Reach{
			Timeout: 2 * time.Second,
		},
	}
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a YAML document over [DefaultConfig] and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
