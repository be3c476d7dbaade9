package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

const (
	SourceMock = "mock"
	SourceAPI  = "api"

	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"

	envPrefix = "INSIGHTS"
)

// Config is the root configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level" mapstructure:"log_level"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Generator GeneratorConfig `yaml:"generator" mapstructure:"generator"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Snapshots SnapshotsConfig `yaml:"snapshots" mapstructure:"snapshots"`
	Worker    WorkerConfig    `yaml:"worker" mapstructure:"worker"`
	Reports   ReportsConfig   `yaml:"reports" mapstructure:"reports"`
	S3        S3Config        `yaml:"s3" mapstructure:"s3"`
}

type ServerConfig struct {
	Listen       string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins  []string        `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimit    RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	TemplatesDir string          `yaml:"templates_dir" mapstructure:"templates_dir"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// SourceConfig selects where runs come from.
type SourceConfig struct {
	Mode        string        `yaml:"mode" mapstructure:"mode"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Project     string        `yaml:"project" mapstructure:"project"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	DateRange   string        `yaml:"date_range" mapstructure:"date_range"`
	Token       string        `yaml:"token" mapstructure:"token"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type GeneratorConfig struct {
	Runs  int   `yaml:"runs" mapstructure:"runs"`
	Tests int   `yaml:"tests" mapstructure:"tests"`
	Seed  int64 `yaml:"seed" mapstructure:"seed"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

type SnapshotsConfig struct {
	Driver   string         `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"sslmode" mapstructure:"sslmode"`
}

type WorkerConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	Branches []string      `yaml:"branches" mapstructure:"branches"`
}

type ReportsConfig struct {
	Dir string        `yaml:"dir" mapstructure:"dir"`
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// S3Config configures publishing of report directories.
type S3Config struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix" mapstructure:"prefix"`
	Region          string `yaml:"region" mapstructure:"region"`
	EndpointURL     string `yaml:"endpoint_url" mapstructure:"endpoint_url"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit.enabled", false)
	v.SetDefault("server.rate_limit.requests_per_minute", 120)
	v.SetDefault("server.templates_dir", "web/templates")

	v.SetDefault("source.mode", SourceMock)
	v.SetDefault("source.environment", "Production")
	v.SetDefault("source.date_range", "7days")
	v.SetDefault("source.timeout", 30*time.Second)

	v.SetDefault("generator.runs", 20)
	v.SetDefault("generator.tests", 10)
	v.SetDefault("generator.seed", 1337)

	v.SetDefault("database.driver", DriverMemory)

	v.SetDefault("snapshots.driver", DriverSQLite)
	v.SetDefault("snapshots.sqlite.path", "insights.db")
	v.SetDefault("snapshots.postgres.port", 5432)
	v.SetDefault("snapshots.postgres.sslmode", "disable")

	v.SetDefault("worker.enabled", false)
	v.SetDefault("worker.interval", time.Minute)
	v.SetDefault("worker.branches", []string{"All"})

	v.SetDefault("reports.dir", "reports")
	v.SetDefault("reports.ttl", 24*time.Hour)

	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.force_path_style", false)

	// Environment overrides only bind to keys viper already knows.
	for _, key := range []string{
		"source.base_url", "source.project", "source.token",
		"database.dsn",
		"snapshots.postgres.host", "snapshots.postgres.user",
		"snapshots.postgres.password", "snapshots.postgres.database",
		"s3.bucket", "s3.prefix", "s3.endpoint_url",
		"s3.access_key_id", "s3.secret_access_key",
	} {
		v.SetDefault(key, "")
	}
}

// Load reads the optional config file at path, applies INSIGHTS_* environment
// overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file or environment is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Source.Mode {
	case SourceMock:
	case SourceAPI:
		if c.Source.BaseURL == "" {
			return fmt.Errorf("%w: source.base_url is required in api mode", ErrInvalid)
		}
		if c.Source.Project == "" {
			return fmt.Errorf("%w: source.project is required in api mode", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unsupported source mode %q", ErrInvalid, c.Source.Mode)
	}

	if c.Generator.Runs < 0 || c.Generator.Tests < 0 {
		return fmt.Errorf("%w: generator runs and tests must not be negative", ErrInvalid)
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres, DriverMySQL:
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn is required for driver %s", ErrInvalid, c.Database.Driver)
		}
	default:
		return fmt.Errorf("%w: unsupported database driver %q", ErrInvalid, c.Database.Driver)
	}

	switch c.Snapshots.Driver {
	case DriverSQLite:
		if c.Snapshots.SQLite.Path == "" {
			return fmt.Errorf("%w: snapshots.sqlite.path is required", ErrInvalid)
		}
	case DriverPostgres:
		if c.Snapshots.Postgres.Host == "" {
			return fmt.Errorf("%w: snapshots.postgres.host is required", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unsupported snapshots driver %q", ErrInvalid, c.Snapshots.Driver)
	}

	if c.Worker.Enabled && c.Worker.Interval <= 0 {
		return fmt.Errorf("%w: worker.interval must be positive", ErrInvalid)
	}

	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("%w: server.rate_limit.requests_per_minute must be positive", ErrInvalid)
	}

	if c.S3.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("%w: s3.bucket is required when s3 is enabled", ErrInvalid)
	}

	return nil
}
