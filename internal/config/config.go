package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/klabast/wb-services/habit-tracker/internal/storage"
)

// EnvPrefix is the prefix for environment overrides, e.g. HABIT_SERVER_PORT.
const EnvPrefix = "HABIT"

// StorageConfig selects the blob backend holding the habit collection.
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	Key        string `mapstructure:"key"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	AuthFile string `mapstructure:"auth_file"`
}

// Config holds all runtime configuration.
// Values are populated from .habit-tracker.yaml, HABIT_* env vars, and CLI flags.
type Config struct {
	DataDir  string        `mapstructure:"data_dir"`
	Storage  StorageConfig `mapstructure:"storage"`
	Server   ServerConfig  `mapstructure:"server"`
	Timezone string        `mapstructure:"timezone"`
	Watch    bool          `mapstructure:"watch"`
	Verbose  bool          `mapstructure:"verbose"`
}

// SetDefaults registers built-in defaults and environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".")
	v.SetDefault("storage.driver", storage.DriverFile)
	v.SetDefault("storage.key", "habits")
	v.SetDefault("storage.sqlite_path", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.auth_file", "auth.secret")
	v.SetDefault("timezone", "Local")
	v.SetDefault("watch", true)
	v.SetDefault("verbose", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadFrom reads configuration from v.
func LoadFrom(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks option values that would otherwise fail later.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case storage.DriverFile, storage.DriverSQLite, storage.DriverMemory:
	default:
		return fmt.Errorf("invalid storage.driver %q (want file, sqlite or memory)", c.Storage.Driver)
	}
	if c.Storage.Key == "" || strings.ContainsAny(c.Storage.Key, `/\`) {
		return fmt.Errorf("invalid storage.key %q", c.Storage.Key)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured time zone that decides "today".
func (c Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// StorageOptions returns the backend options, resolving relative paths
// against the data directory.
func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		Driver:     c.Storage.Driver,
		Dir:        c.DataDir,
		SQLitePath: c.resolve(c.Storage.SQLitePath),
	}
}

// AuthFilePath returns the auth file location.
func (c Config) AuthFilePath() string {
	return c.resolve(c.Server.AuthFile)
}

func (c Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}
