// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Player  PlayerConfig  `yaml:"player"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// AuthConfig represents bearer-token verification configuration.
// The identity provider itself is external; the server only verifies.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" validate:"required"`
	Issuer    string `yaml:"issuer"`
}

// StorageConfig represents durable store configuration. Driver-specific
// settings live in an opaque map decoded on demand.
type StorageConfig struct {
	Driver   string         `yaml:"driver" default:"sqlite" validate:"required,oneof=sqlite"`
	Settings map[string]any `yaml:"settings"`
}

// SQLiteSettings represents settings for the sqlite driver.
type SQLiteSettings struct {
	Path         string `mapstructure:"path"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// SQLite decodes the storage settings map for the sqlite driver.
func (c StorageConfig) SQLite() (SQLiteSettings, error) {
	s := SQLiteSettings{Path: "melodeon.db", MaxOpenConns: 1}
	if c.Settings == nil {
		return s, nil
	}
	if err := mapstructure.Decode(c.Settings, &s); err != nil {
		return s, errors.Wrap(err, "decode sqlite settings")
	}
	if s.Path == "" {
		s.Path = "melodeon.db"
	}
	return s, nil
}

// PlayerConfig represents local player configuration.
type PlayerConfig struct {
	SnapshotPath string `yaml:"snapshot_path" default:"melodeon-state.json"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Output string `yaml:"output" default:"stdout"`
}

// Load loads configuration from a YAML file. Environment variables take
// precedence over file values for secrets.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("MELODEON_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("MELODEON_DB_PATH"); v != "" {
		if c.Storage.Settings == nil {
			c.Storage.Settings = map[string]any{}
		}
		c.Storage.Settings["path"] = v
	}
	if v := os.Getenv("MELODEON_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	if _, err := c.Storage.SQLite(); err != nil {
		return err
	}
	return nil
}
