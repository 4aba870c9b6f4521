// Package config loads studytrack settings from the config file, the
// environment (STUDYTRACK_*) and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sadopc/studytrack/internal/store"
)

const (
	BackendNone  = "none"
	BackendRedis = "redis"
	BackendHTTP  = "http"
)

type Redis struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

type HTTP struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type Remote struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Redis   Redis  `mapstructure:"redis" yaml:"redis"`
	HTTP    HTTP   `mapstructure:"http" yaml:"http"`
}

type Sync struct {
	ReadinessTimeout time.Duration `mapstructure:"readiness_timeout" yaml:"readiness_timeout"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	DrainTimeout     time.Duration `mapstructure:"drain_timeout" yaml:"drain_timeout"`
	QueueSize        int           `mapstructure:"queue_size" yaml:"queue_size"`
}

type Log struct {
	File       string `mapstructure:"file" yaml:"file"`
	Level      string `mapstructure:"level" yaml:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

type Config struct {
	DataDir     string `mapstructure:"data_dir" yaml:"data_dir"`
	DBPath      string `mapstructure:"db_path" yaml:"db_path"`
	SessionPath string `mapstructure:"session_path" yaml:"session_path"`
	QuotaBytes  int64  `mapstructure:"quota_bytes" yaml:"quota_bytes"`
	Remote      Remote `mapstructure:"remote" yaml:"remote"`
	Sync        Sync   `mapstructure:"sync" yaml:"sync"`
	Log         Log    `mapstructure:"log" yaml:"log"`
}

// DefaultDir returns ~/.config/studytrack, next to the default database.
func DefaultDir() (string, error) {
	db, err := store.DefaultDBPath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(db), nil
}

// Defaults returns the configuration used when nothing else is set.
func Defaults(dir string) Config {
	return Config{
		DataDir:     dir,
		DBPath:      filepath.Join(dir, "studytrack.db"),
		SessionPath: filepath.Join(dir, "session.yaml"),
		QuotaBytes:  5 << 20,
		Remote: Remote{
			Backend: BackendNone,
			Redis:   Redis{Addr: "localhost:6379", Prefix: "studytrack"},
			HTTP:    HTTP{Timeout: 30 * time.Second},
		},
		Sync: Sync{
			ReadinessTimeout: 5 * time.Second,
			FetchTimeout:     10 * time.Second,
			WriteTimeout:     10 * time.Second,
			DrainTimeout:     2 * time.Second,
			QueueSize:        256,
		},
		Log: Log{
			File:       filepath.Join(dir, "studytrack.log"),
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// NewViper returns a viper instance seeded with defaults for dir and bound
// to STUDYTRACK_* environment variables.
func NewViper(dir string) *viper.Viper {
	v := viper.New()
	d := Defaults(dir)

	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("db_path", "")
	v.SetDefault("session_path", "")
	v.SetDefault("quota_bytes", d.QuotaBytes)
	v.SetDefault("remote.backend", d.Remote.Backend)
	v.SetDefault("remote.redis.addr", d.Remote.Redis.Addr)
	v.SetDefault("remote.redis.password", "")
	v.SetDefault("remote.redis.db", 0)
	v.SetDefault("remote.redis.prefix", d.Remote.Redis.Prefix)
	v.SetDefault("remote.http.base_url", "")
	v.SetDefault("remote.http.timeout", d.Remote.HTTP.Timeout)
	v.SetDefault("sync.readiness_timeout", d.Sync.ReadinessTimeout)
	v.SetDefault("sync.fetch_timeout", d.Sync.FetchTimeout)
	v.SetDefault("sync.write_timeout", d.Sync.WriteTimeout)
	v.SetDefault("sync.drain_timeout", d.Sync.DrainTimeout)
	v.SetDefault("sync.queue_size", d.Sync.QueueSize)
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)

	v.SetEnvPrefix("STUDYTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file (or config.yaml in dir when file is empty) into a Config.
// A missing default config file is not an error.
func Load(v *viper.Viper, dir, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolvePaths fills unset file locations from DataDir.
func (c *Config) resolvePaths() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "studytrack.db")
	}
	if c.SessionPath == "" {
		c.SessionPath = filepath.Join(c.DataDir, "session.yaml")
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(c.DataDir, "studytrack.log")
	}
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	switch c.Remote.Backend {
	case BackendNone:
	case BackendRedis:
		if c.Remote.Redis.Addr == "" {
			return fmt.Errorf("remote.redis.addr is required for the redis backend")
		}
		if c.Remote.Redis.Prefix == "" {
			return fmt.Errorf("remote.redis.prefix cannot be empty")
		}
	case BackendHTTP:
		if c.Remote.HTTP.BaseURL == "" {
			return fmt.Errorf("remote.http.base_url is required for the http backend")
		}
	default:
		return fmt.Errorf("unknown remote backend %q (want none, redis or http)", c.Remote.Backend)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.QuotaBytes < 0 {
		return fmt.Errorf("quota_bytes cannot be negative")
	}
	return nil
}

func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}
	return lvl, nil
}

// WriteFile writes cfg as YAML to path. An existing file is only replaced
// when force is set.
func WriteFile(path string, cfg Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
