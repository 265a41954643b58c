// Package config loads service configuration from an optional YAML file and
// LEDGERIMPORT_-prefixed environment variables, with env taking precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds everything the import service needs at startup.
type Config struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	// AuthToken, when set, is required as a bearer token on API requests.
	AuthToken string `mapstructure:"auth_token"`

	Store    StoreConfig    `mapstructure:"store"`
	Classify ClassifyConfig `mapstructure:"classify"`
	Import   ImportConfig   `mapstructure:"import"`
	Queue    QueueConfig    `mapstructure:"queue"`
}

// StoreConfig selects and configures the transaction store backend.
type StoreConfig struct {
	// Backend is "firestore" or "memory".
	Backend string `mapstructure:"backend"`
	Project string `mapstructure:"project"`

	// BatchSize caps the atomic commit group size for the memory backend.
	// Firestore always uses its own 500-op limit.
	BatchSize int `mapstructure:"batch_size"`
}

// ClassifyConfig configures the chat-completions classification endpoint.
type ClassifyConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
}

// ImportConfig tunes the parsing and commit behavior.
type ImportConfig struct {
	// DirectionPolicy is "default-income" or "reject".
	DirectionPolicy string `mapstructure:"direction_policy"`
}

// QueueConfig tunes the in-memory job queue.
type QueueConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
	Workers    int `mapstructure:"workers"`
}

// Load reads configuration. path is an optional config file; an empty path
// means env and defaults only.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("auth_token", "")
	v.SetDefault("store.backend", "firestore")
	v.SetDefault("store.project", "")
	v.SetDefault("store.batch_size", 500)
	v.SetDefault("classify.endpoint", "https://ark.cn-beijing.volces.com/api/v3/chat/completions")
	v.SetDefault("classify.model", "doubao-seed-1-6-flash-250615")
	v.SetDefault("classify.api_key", "")
	v.SetDefault("import.direction_policy", "default-income")
	v.SetDefault("queue.buffer_size", 100)
	v.SetDefault("queue.workers", 4)

	v.SetEnvPrefix("LEDGERIMPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "firestore":
		if c.Store.Project == "" {
			return errors.New("store.project is required for the firestore backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Import.DirectionPolicy {
	case "default-income", "reject":
	default:
		return fmt.Errorf("unknown direction policy %q", c.Import.DirectionPolicy)
	}
	return nil
}
