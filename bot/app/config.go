package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/pdfbot/core/config"
	coredatabase "github.com/m3rciful/pdfbot/core/database"
)

// Statistics backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// StatsConfig selects where the statistics record lives.
type StatsConfig struct {
	Backend     string `yaml:"backend" envconfig:"STATS_BACKEND"`
	Path        string `yaml:"path" envconfig:"STATS_PATH"`
	LegacyPath  string `yaml:"legacy_path" envconfig:"STATS_LEGACY_PATH"`
	RedisPrefix string `yaml:"redis_prefix" envconfig:"STATS_REDIS_PREFIX"`
}

// RedisConfig holds the connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// FilesConfig locates user working directories.
type FilesConfig struct {
	Dir string `yaml:"dir" envconfig:"FILES_DIR"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Stats    StatsConfig         `yaml:"stats"`
	Redis    RedisConfig         `yaml:"redis"`
	Files    FilesConfig         `yaml:"files"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// LoadConfig reads path, applies the environment overlay and validates.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	b := strings.ToLower(strings.TrimSpace(c.Stats.Backend))
	if b == "" {
		b = BackendFile
	}
	switch b {
	case BackendFile:
	case BackendPostgres:
		if err := c.Database.Normalize(); err != nil {
			return err
		}
	case BackendRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("redis.addr is required when stats.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid stats.backend %q; allowed: file, postgres, redis", c.Stats.Backend)
	}
	c.Stats.Backend = b
	return nil
}
