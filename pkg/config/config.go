// Package config loads the service configuration. Values absent from
// the file keep their defaults, so a partial file is a valid one.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
)

// Config is the top-level JSON schema of the service.
type Config struct {
	Listen          string `json:"listen"`
	AuthToken       string `json:"auth_token"`
	DefaultPageSize int    `json:"default_page_size"`
	TimeZone        string `json:"time_zone"`
	Collation       string `json:"collation"`
	LogLevel        string `json:"log_level"`

	Sources []SourceConfig `json:"sources"`
}

// SourceConfig describes one queryable source. The driver decides
// which of the optional fields apply; Options carries the rest.
type SourceConfig struct {
	Name     string `json:"name"`
	Driver   string `json:"driver"`
	DSN      string `json:"dsn,omitempty"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Database string `json:"database,omitempty"`
	Table    string `json:"table,omitempty"`
	Path     string `json:"path,omitempty"`
	Sheet    string `json:"sheet,omitempty"`

	Options map[string]interface{} `json:"options,omitempty"`
}

// StringOption reads a string from Options, falling back when the key
// is absent or holds another type.
func (s *SourceConfig) StringOption(key, fallback string) string {
	if v, ok := s.Options[key].(string); ok {
		return v
	}
	return fallback
}

// BoolOption reads a bool from Options.
func (s *SourceConfig) BoolOption(key string, fallback bool) bool {
	if v, ok := s.Options[key].(bool); ok {
		return v
	}
	return fallback
}

// IntOption reads an integer from Options. JSON numbers decode as
// float64, which is the representation checked.
func (s *SourceConfig) IntOption(key string, fallback int) int {
	if v, ok := s.Options[key].(float64); ok {
		return int(v)
	}
	return fallback
}

var knownDrivers = map[string]bool{
	"memory":   true,
	"sqlite":   true,
	"mysql":    true,
	"postgres": true,
	"gorm":     true,
	"badger":   true,
	"excel":    true,
	"neo4j":    true,
}

var knownLogLevels = map[string]bool{
	"":        true,
	"error":   true,
	"warn":    true,
	"warning": true,
	"info":    true,
	"debug":   true,
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Listen:          ":8080",
		DefaultPageSize: 10,
		TimeZone:        "UTC",
		LogLevel:        "info",
	}
}

// LoadConfig reads and validates a configuration file. An empty path
// yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigOrDefault tries the QUERYABLE_CONFIG environment variable,
// then common locations, and falls back to the defaults.
func LoadConfigOrDefault() *Config {
	if envPath := os.Getenv("QUERYABLE_CONFIG"); envPath != "" {
		if cfg, err := LoadConfig(envPath); err == nil {
			return cfg
		}
	}

	possiblePaths := []string{
		"config.json",
		"./config/config.json",
		"/etc/queryable/config.json",
	}
	for _, path := range possiblePaths {
		if absPath, err := filepath.Abs(path); err == nil {
			if cfg, err := LoadConfig(absPath); err == nil {
				return cfg
			}
		}
	}

	return DefaultConfig()
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.DefaultPageSize < 1 {
		return fmt.Errorf("default page size must be positive, got %d", c.DefaultPageSize)
	}
	if !knownLogLevels[c.LogLevel] {
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}
	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			return fmt.Errorf("unknown time zone %s: %w", c.TimeZone, err)
		}
	}
	if c.Collation != "" {
		if _, err := language.Parse(c.Collation); err != nil {
			return fmt.Errorf("unknown collation %s: %w", c.Collation, err)
		}
	}

	seen := map[string]bool{}
	for i := range c.Sources {
		src := &c.Sources[i]
		if err := src.validate(); err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name: %s", src.Name)
		}
		seen[src.Name] = true
	}
	return nil
}

func (s *SourceConfig) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if !knownDrivers[s.Driver] {
		return fmt.Errorf("unknown driver: %s", s.Driver)
	}

	switch s.Driver {
	case "sqlite":
		if s.DSN == "" && s.Path == "" {
			return fmt.Errorf("sqlite needs a dsn or path")
		}
		if s.Table == "" {
			return fmt.Errorf("sqlite needs a table")
		}
	case "mysql", "postgres":
		if s.Database == "" {
			return fmt.Errorf("%s needs a database", s.Driver)
		}
		if s.Table == "" {
			return fmt.Errorf("%s needs a table", s.Driver)
		}
	case "gorm":
		if s.DSN == "" {
			return fmt.Errorf("gorm needs a dsn")
		}
		if s.Table == "" {
			return fmt.Errorf("gorm needs a table")
		}
	case "badger":
		if s.Path == "" && !s.BoolOption("in_memory", false) {
			return fmt.Errorf("badger needs a path unless options.in_memory is set")
		}
		if s.Table == "" {
			return fmt.Errorf("badger needs a table")
		}
	case "excel":
		if s.Path == "" {
			return fmt.Errorf("excel needs a path")
		}
	case "neo4j":
		if s.DSN == "" && s.Host == "" {
			return fmt.Errorf("neo4j needs a dsn or host")
		}
		if s.Table == "" {
			return fmt.Errorf("neo4j needs a table to use as the node label")
		}
	}
	return nil
}

// URI assembles the Neo4j connection string when no explicit DSN is
// given.
func (s *SourceConfig) URI() string {
	if s.DSN != "" {
		return s.DSN
	}
	port := s.Port
	if port == 0 {
		port = 7687
	}
	return fmt.Sprintf("neo4j://%s:%d", s.Host, port)
}
