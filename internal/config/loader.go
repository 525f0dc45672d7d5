package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "CHATNUFF"
	envConfigDefaultPath = "CHATNUFF_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
	dotEnvFile           = ".env"
)

// legacyEnv maps config keys to the environment names used by earlier deployments.
var legacyEnv = map[string]string{
	"archive.redis.host":    "REDIS_HOST",
	"archive.redis.port":    "REDIS_PORT",
	"archive.redis.db":      "REDIS_DB",
	"archive.redis.use_tls": "REDIS_USE_TLS",
}

// legacyTimeoutEnv holds the redis timeout in seconds, without a unit.
const legacyTimeoutEnv = "REDIS_TIMEOUT"

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
// A .env file in the working directory is loaded into the environment first when present.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, "", fmt.Errorf("load %s: %w", dotEnvFile, err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envName := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, legacy); err != nil {
			return cfg, "", fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := applyLegacyTimeout(v); err != nil {
		return cfg, configPath, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, configPath, err
	}

	return cfg, configPath, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	v.SetDefault("archive.backend", cfg.Archive.Backend)
	v.SetDefault("archive.capacity", cfg.Archive.Capacity)
	v.SetDefault("archive.default_read", cfg.Archive.DefaultRead)
	v.SetDefault("archive.key_prefix", cfg.Archive.KeyPrefix)

	v.SetDefault("archive.redis.host", cfg.Archive.Redis.Host)
	v.SetDefault("archive.redis.port", cfg.Archive.Redis.Port)
	v.SetDefault("archive.redis.db", cfg.Archive.Redis.DB)
	v.SetDefault("archive.redis.username", cfg.Archive.Redis.Username)
	v.SetDefault("archive.redis.password", cfg.Archive.Redis.Password)
	v.SetDefault("archive.redis.use_tls", cfg.Archive.Redis.UseTLS)
	v.SetDefault("archive.redis.timeout", cfg.Archive.Redis.Timeout)

	v.SetDefault("archive.sqlite.path", cfg.Archive.SQLite.Path)
	v.SetDefault("archive.badger.dir", cfg.Archive.Badger.Dir)
	v.SetDefault("archive.badger.in_memory", cfg.Archive.Badger.InMemory)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyLegacyTimeout honors REDIS_TIMEOUT unless the prefixed variable is set.
func applyLegacyTimeout(v *viper.Viper) error {
	raw, ok := os.LookupEnv(legacyTimeoutEnv)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	if _, set := os.LookupEnv(envPrefix + "_ARCHIVE_REDIS_TIMEOUT"); set {
		return nil
	}
	d, err := parseSeconds(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", legacyTimeoutEnv, err)
	}
	v.Set("archive.redis.timeout", d)
	return nil
}

// parseSeconds reads a bare number of seconds ("60", "2.5") or a Go duration ("1m").
func parseSeconds(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, numErr := strconv.ParseFloat(raw, 64)
		if numErr != nil {
			return 0, fmt.Errorf("%q is neither seconds nor a duration", raw)
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d < 0 {
		return 0, fmt.Errorf("%q is negative", raw)
	}
	return d, nil
}
