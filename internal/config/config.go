package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Backend names accepted by Archive.Backend.
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config holds application configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	Log     Log     `mapstructure:"log" yaml:"log"`
	Archive Archive `mapstructure:"archive" yaml:"archive"`
}

// Log configures the zerolog logger.
type Log struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=console json"`
}

// Archive configures the message archive and its backend.
type Archive struct {
	Backend     string `mapstructure:"backend" yaml:"backend" validate:"oneof=redis sqlite badger"`
	Capacity    int    `mapstructure:"capacity" yaml:"capacity" validate:"min=1,max=200"`
	DefaultRead int    `mapstructure:"default_read" yaml:"default_read" validate:"min=1,max=200"`
	KeyPrefix   string `mapstructure:"key_prefix" yaml:"key_prefix"`

	Redis  Redis  `mapstructure:"redis" yaml:"redis"`
	SQLite SQLite `mapstructure:"sqlite" yaml:"sqlite"`
	Badger Badger `mapstructure:"badger" yaml:"badger"`
}

// Redis holds connection settings for the redis backend.
type Redis struct {
	Host     string        `mapstructure:"host" yaml:"host" validate:"required"`
	Port     int           `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
	DB       int           `mapstructure:"db" yaml:"db" validate:"min=0"`
	Username string        `mapstructure:"username" yaml:"username"`
	Password string        `mapstructure:"password" yaml:"password"`
	UseTLS   bool          `mapstructure:"use_tls" yaml:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=0"`
}

// SQLite holds settings for the embedded sqlite backend.
type SQLite struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Badger holds settings for the embedded badger backend.
type Badger struct {
	Dir      string `mapstructure:"dir" yaml:"dir"`
	InMemory bool   `mapstructure:"in_memory" yaml:"in_memory"`
}

// Default returns configuration with reasonable starter defaults.
// An empty environment still yields a working local redis connection.
func Default() Config {
	return Config{
		Addr:              ":8000",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		Log: Log{
			Level:  "info",
			Format: "console",
		},
		Archive: Archive{
			Backend:     BackendRedis,
			Capacity:    200,
			DefaultRead: 100,
			Redis: Redis{
				Host:    "localhost",
				Port:    6379,
				DB:      0,
				Timeout: 60 * time.Second,
			},
			SQLite: SQLite{Path: "chatnuff.db"},
			Badger: Badger{Dir: "chatnuff-badger"},
		},
	}
}

// Validate checks field constraints and cross-field requirements.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	switch c.Archive.Backend {
	case BackendSQLite:
		if c.Archive.SQLite.Path == "" {
			return fmt.Errorf("validate config: archive.sqlite.path is required for the sqlite backend")
		}
	case BackendBadger:
		if c.Archive.Badger.Dir == "" && !c.Archive.Badger.InMemory {
			return fmt.Errorf("validate config: archive.badger.dir is required unless in_memory is set")
		}
	}
	return nil
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
	if other.Archive.Backend != "" {
		c.Archive.Backend = other.Archive.Backend
	}
	if other.Archive.Redis.Host != "" {
		c.Archive.Redis.Host = other.Archive.Redis.Host
	}
	if other.Archive.Redis.Port != 0 {
		c.Archive.Redis.Port = other.Archive.Redis.Port
	}
	if other.Archive.SQLite.Path != "" {
		c.Archive.SQLite.Path = other.Archive.SQLite.Path
	}
	if other.Archive.Badger.Dir != "" {
		c.Archive.Badger.Dir = other.Archive.Badger.Dir
	}
}
