package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultRestSeconds         = 60
	defaultTickIntervalMs      = 1000
	defaultAlertPollIntervalMs = 1000
	defaultAlertKeyPrefix      = "gymcoach-alerts"
	defaultPersonalMaxCacheMB  = 10
	defaultPersonalMaxCacheTTL = 600
	defaultEventsBufferSize    = 20
)

var ErrMissingEnvSection = errors.New("missing config env section")

type Config struct {
	Environment string `toml:"-"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	MetricsHost string `toml:"metrics_host"`
	MetricsPort string `toml:"metrics_port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// storage
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	RedisHost      string `toml:"redis_host"`
	RedisPort      string `toml:"redis_port"`

	// workout
	DefaultRestSeconds    int `toml:"default_rest_seconds"`
	TickIntervalMs        int `toml:"tick_interval_ms"`
	WorkoutIdleTimeoutMin int `toml:"workout_idle_timeout_min"`
	EventsBufferSize      int `toml:"events_buffer_size"`

	// notifications
	AlertPollIntervalMs int    `toml:"alert_poll_interval_ms"`
	AlertKeyPrefix      string `toml:"alert_key_prefix"`
	FCMEnabled          bool   `toml:"fcm_enabled"`
	FCMProjectID        string `toml:"fcm_project_id"`
	DesktopAlerts       bool   `toml:"desktop_alerts"`

	PersonalMaxCacheMB     int `toml:"personal_max_cache_mb"`
	PersonalMaxCacheTTLSec int `toml:"personal_max_cache_ttl_sec"`

	RateLimitPerMin int      `toml:"rate_limit_per_min"`
	AllowedOrigins  []string `toml:"allowed_origins"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
		env = "development"
	case "prod", "production":
		cfg = t.Production
		env = "production"
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}

	if cfg == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingEnvSection, env)
	}
	cfg.Environment = env

	return cfg, nil
}

// Load reads the TOML file at path and returns the section for env with defaults applied.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file [%s]: %w", path, err)
	}
	return fromToml(&t, env)
}

// Parse is Load for an in-memory document.
func Parse(env, data string) (*Config, error) {
	var t Toml
	if _, err := toml.Decode(data, &t); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return fromToml(&t, env)
}

func fromToml(t *Toml, env string) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.DefaultRestSeconds <= 0 {
		c.DefaultRestSeconds = defaultRestSeconds
	}
	if c.TickIntervalMs <= 0 {
		c.TickIntervalMs = defaultTickIntervalMs
	}
	if c.AlertPollIntervalMs <= 0 {
		c.AlertPollIntervalMs = defaultAlertPollIntervalMs
	}
	if c.AlertKeyPrefix == "" {
		c.AlertKeyPrefix = defaultAlertKeyPrefix
	}
	if c.PersonalMaxCacheMB <= 0 {
		c.PersonalMaxCacheMB = defaultPersonalMaxCacheMB
	}
	if c.PersonalMaxCacheTTLSec <= 0 {
		c.PersonalMaxCacheTTLSec = defaultPersonalMaxCacheTTL
	}
	if c.EventsBufferSize <= 0 {
		c.EventsBufferSize = defaultEventsBufferSize
	}
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

func (c *Config) AlertPollInterval() time.Duration {
	return time.Duration(c.AlertPollIntervalMs) * time.Millisecond
}

func (c *Config) PersonalMaxCacheTTL() time.Duration {
	return time.Duration(c.PersonalMaxCacheTTLSec) * time.Second
}

// WorkoutIdleTimeout is zero when idle workouts are kept forever.
func (c *Config) WorkoutIdleTimeout() time.Duration {
	return time.Duration(c.WorkoutIdleTimeoutMin) * time.Minute
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
