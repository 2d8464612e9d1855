package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "TIMETABLE"

const (
	DriverPGX      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var ErrInvalidConfig = errors.New("invalid configuration")
var ErrReadingConfigFailed = errors.New("reading configuration failed")

var tablePrefixPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Config is the top-level timetable configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// DatabaseConfig selects the driver and connection of the timetable cache.
type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	ReplicaDSN  string `mapstructure:"replica_dsn"`
	MaxConns    int    `mapstructure:"max_conns"`
	TablePrefix string `mapstructure:"table_prefix"`
}

// UpstreamConfig points at the schedule API.
type UpstreamConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// SyncConfig controls concurrency and retries of sync runs.
type SyncConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig controls export of traces, metrics and logs over OTLP gRPC.
// Nothing is exported unless Enabled is set.
type TelemetryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ServiceName     string        `mapstructure:"service_name"`
	Endpoint        string        `mapstructure:"endpoint"`
	Insecure        bool          `mapstructure:"insecure"`
	MetricInterval  time.Duration `mapstructure:"metric_interval"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SetDefaults registers every key with its default, which also makes each key visible to AutomaticEnv.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "file:timetable.db?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	v.SetDefault("database.replica_dsn", "")
	v.SetDefault("database.max_conns", 5)
	v.SetDefault("database.table_prefix", "")
	v.SetDefault("upstream.base_url", "https://sh.mindenit.org/api")
	v.SetDefault("upstream.timeout", 60*time.Second)
	v.SetDefault("upstream.user_agent", "LinerdsTimetable/0.1.0")
	v.SetDefault("sync.concurrency", 4)
	v.SetDefault("sync.max_attempts", 4)
	v.SetDefault("sync.base_delay", 500*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "timetable")
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.metric_interval", 15*time.Second)
	v.SetDefault("telemetry.shutdown_timeout", 5*time.Second)
}

// SetupEnv maps keys to TIMETABLE_ prefixed variables, e.g. database.dsn to TIMETABLE_DATABASE_DSN.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix TIMETABLE_).
func Load(path string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Join(ErrReadingConfigFailed, fmt.Errorf("reading config %s: %w", path, err))
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates an already prepared viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("unmarshalling config: %w", err))
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns all validation errors found rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateDatabase()...)
	errs = append(errs, c.validateUpstream()...)
	errs = append(errs, c.validateSync()...)
	errs = append(errs, c.validateLog()...)
	errs = append(errs, c.validateTelemetry()...)

	return errs
}

func (c *Config) validateDatabase() []error {
	var errs []error

	validDrivers := []string{DriverPGX, DriverPostgres, DriverSQLite}
	if !slices.Contains(validDrivers, c.Database.Driver) {
		errs = append(errs, fmt.Errorf("config: database.driver must be one of [%s], got %q",
			strings.Join(validDrivers, ", "), c.Database.Driver))
	}

	if c.Database.DSN == "" {
		errs = append(errs, errors.New("config: database.dsn must not be empty"))
	}

	if c.Database.ReplicaDSN != "" && c.Database.Driver != DriverPGX {
		errs = append(errs, fmt.Errorf("config: database.replica_dsn is only supported with driver %q, got %q",
			DriverPGX, c.Database.Driver))
	}

	if c.Database.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("config: database.max_conns must be greater than 0, got %d", c.Database.MaxConns))
	}

	if c.Database.TablePrefix != "" && !tablePrefixPattern.MatchString(c.Database.TablePrefix) {
		errs = append(errs, fmt.Errorf("config: database.table_prefix may only contain lower case letters, digits and underscores, got %q",
			c.Database.TablePrefix))
	}

	return errs
}

func (c *Config) validateUpstream() []error {
	var errs []error

	parsed, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("config: upstream.base_url must be an absolute http(s) url, got %q", c.Upstream.BaseURL))
	}

	if c.Upstream.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("config: upstream.timeout must be greater than 0, got %s", c.Upstream.Timeout))
	}

	if strings.TrimSpace(c.Upstream.UserAgent) == "" {
		errs = append(errs, errors.New("config: upstream.user_agent must not be empty"))
	}

	return errs
}

func (c *Config) validateSync() []error {
	var errs []error

	if c.Sync.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("config: sync.concurrency must be greater than 0, got %d", c.Sync.Concurrency))
	}

	if c.Sync.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("config: sync.max_attempts must be greater than 0, got %d", c.Sync.MaxAttempts))
	}

	if c.Sync.BaseDelay < 0 {
		errs = append(errs, fmt.Errorf("config: sync.base_delay must not be negative, got %s", c.Sync.BaseDelay))
	}

	return errs
}

func (c *Config) validateLog() []error {
	var errs []error

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("config: log.level must be one of [%s], got %q",
			strings.Join(validLevels, ", "), c.Log.Level))
	}

	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("config: log.format must be one of [%s], got %q",
			strings.Join(validFormats, ", "), c.Log.Format))
	}

	return errs
}

// validateTelemetry only checks the remaining keys when telemetry is enabled.
func (c *Config) validateTelemetry() []error {
	if !c.Telemetry.Enabled {
		return nil
	}

	var errs []error

	if strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		errs = append(errs, errors.New("config: telemetry.service_name must not be empty"))
	}

	if c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("config: telemetry.endpoint must not be empty"))
	}

	if c.Telemetry.MetricInterval <= 0 {
		errs = append(errs, fmt.Errorf("config: telemetry.metric_interval must be greater than 0, got %s", c.Telemetry.MetricInterval))
	}

	if c.Telemetry.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("config: telemetry.shutdown_timeout must be greater than 0, got %s", c.Telemetry.ShutdownTimeout))
	}

	return errs
}
