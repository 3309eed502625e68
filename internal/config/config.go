package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const FileName = "streakline.yml"

const (
	BackendJSON   = "json"
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

// Config models streakline.yml.
type Config struct {
	Store struct {
		Backend string `yaml:"backend" json:"backend"`
		Path    string `yaml:"path" json:"path"`
	} `yaml:"store" json:"store"`
	Defaults struct {
		DurationDays int `yaml:"duration_days" json:"duration_days"`
	} `yaml:"defaults" json:"defaults"`
	Server ServerConfig `yaml:"server" json:"server"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	BasePath  string `yaml:"base_path" json:"base_path"`
	RateLimit struct {
		PerSecond  float64 `yaml:"per_second" json:"per_second"`
		Burst      int     `yaml:"burst" json:"burst"`
		TrustProxy bool    `yaml:"trust_proxy" json:"trust_proxy"`
	} `yaml:"rate_limit" json:"rate_limit"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with sl init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendJSON, BackendYAML, BackendSQLite:
	default:
		return fmt.Errorf("config.store.backend must be one of json, yaml, sqlite (got %q)", c.Store.Backend)
	}
	if c.Defaults.DurationDays <= 0 {
		return fmt.Errorf("config.defaults.duration_days must be positive")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.RateLimit.PerSecond < 0 || c.Server.RateLimit.Burst < 0 {
		return fmt.Errorf("config.server.rate_limit values must not be negative")
	}
	if c.Server.RateLimit.PerSecond > 0 && c.Server.RateLimit.Burst == 0 {
		return fmt.Errorf("config.server.rate_limit.burst is required when per_second is set")
	}
	return nil
}

// StorePath returns the configured store location, defaulting per backend.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	switch c.Store.Backend {
	case BackendYAML:
		return "challenges.yml"
	case BackendSQLite:
		return "streakline.db"
	default:
		return "challenges.json"
	}
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing keys keep
// their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `store:
  # json | yaml | sqlite
  backend: json
  # relative paths live under .streakline/ in the workspace
  path: ""

defaults:
  duration_days: 30

server:
  addr: 127.0.0.1:8080
  base_path: /v0
  rate_limit:
    per_second: 5
    burst: 30
    # key clients on X-Forwarded-For; only behind a trusted proxy
    trust_proxy: false
`
