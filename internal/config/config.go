// Package config loads GraphWalker configuration using Viper.
//
// Precedence, lowest to highest: defaults, user config
// (~/.graphwalker/config.toml), project config (graphwalker.toml found by
// walking up from the working directory), explicit --config file,
// GRAPHWALKER_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/AplusKminus/GraphWalker/internal/errors"
)

// EnvPrefix is the prefix for environment overrides, e.g. GRAPHWALKER_DATABASE_PATH.
const EnvPrefix = "GRAPHWALKER"

// ProjectConfigName is the file searched for in the working directory and its parents.
const ProjectConfigName = "graphwalker.toml"

// Config is the resolved configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path          string `mapstructure:"path"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
}

// ServerConfig configures the HTTP/WebSocket API.
type ServerConfig struct {
	Addr               string   `mapstructure:"addr"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	ShutdownTimeoutSec int      `mapstructure:"shutdown_timeout_seconds"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	JSON       bool   `mapstructure:"json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Neo4jConfig configures the Neo4j sync target.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// Load resolves configuration. explicitPath may be empty.
func Load(explicitPath string) (*Config, error) {
	v, err := NewViper(explicitPath)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// LoadWithViper unmarshals configuration from a prepared Viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return &cfg, nil
}

// NewViper builds a Viper instance with defaults, config files and env binding.
func NewViper(explicitPath string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	paths := candidatePaths()
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return nil, errors.Wrapf(err, "config file %s", explicitPath)
		}
		paths = append(paths, explicitPath)
	}

	for _, p := range paths {
		if err := mergeFile(v, p); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func mergeFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	tmp := viper.New()
	tmp.SetConfigFile(path)
	tmp.SetConfigType("toml")
	if err := tmp.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := v.MergeConfigMap(tmp.AllSettings()); err != nil {
		return errors.Wrapf(err, "merge config %s", path)
	}
	return nil
}

func candidatePaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".graphwalker", "config.toml"))
	}
	if p := findProjectConfig(); p != "" {
		paths = append(paths, p)
	}
	return paths
}

// findProjectConfig walks up from the working directory looking for graphwalker.toml.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		p := filepath.Join(dir, ProjectConfigName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
