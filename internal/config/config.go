// Package config holds the YAML configuration file surface. Values from the
// file can be overridden by BOOKSAPI_ environment variables through the CLI
// layer; this package only knows about the file itself.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level configuration file.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Books   BooksConfig   `yaml:"books"`
	Log     LogConfig     `yaml:"log"`
	Logging LoggingConfig `yaml:"logging"`
	DataDir string        `yaml:"data_dir"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host"`
	Port            int        `yaml:"port"`
	ShutdownTimeout string     `yaml:"shutdown_timeout"`
	RateLimit       int        `yaml:"rate_limit_per_minute"`
	CORS            CORSConfig `yaml:"cors"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
	Methods []string `yaml:"methods"`
}

// AuthConfig controls token issuance.
type AuthConfig struct {
	SecretKey       string `yaml:"secret_key"`
	Algorithm       string `yaml:"algorithm"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
}

// BooksConfig locates the catalog snapshot.
type BooksConfig struct {
	CSVPath string `yaml:"csv_path"`
}

// LogConfig controls the request-event sinks. File and DatabaseURL are both
// optional; console output is always on.
type LogConfig struct {
	File        string `yaml:"file"`
	DatabaseURL string `yaml:"database_url"`
}

// LoggingConfig controls the application logger, separate from the
// request-event pipeline.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// TokenTTL returns the configured token lifetime as a duration.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

// Addr returns the host:port the server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads and parses a YAML configuration file. Environment variables
// referenced as ${VAR_NAME} in the file are expanded before parsing, so
// secrets can stay out of the file itself.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Default returns a Config pre-filled with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: "30s",
			RateLimit:       60,
			CORS: CORSConfig{
				Origins: []string{"*"},
				Methods: []string{"GET", "POST", "PUT", "DELETE"},
			},
		},
		Auth: AuthConfig{
			Algorithm:       "HS256",
			TokenTTLMinutes: 30,
		},
		Books: BooksConfig{
			CSVPath: "data/books.csv",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the settings a running server cannot do without.
func (c *Config) Validate() error {
	if c.Auth.SecretKey == "" {
		return fmt.Errorf("auth.secret_key is required")
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	return nil
}

// WriteDefault writes the default configuration to a YAML file.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
