// Package config loads cdibase settings from defaults, an optional config
// file and CDIBASE_ environment variables, and builds the zap logger.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CDIBASE"

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
}

type UploadsConfig struct {
	Dir string `mapstructure:"dir"`
}

type ReportConfig struct {
	DefaultCDIFormat string `mapstructure:"default_cdi_format"`
	ExcludeDeleted   bool   `mapstructure:"exclude_deleted"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

type MetricsConfig struct {
	// Output is a file the metrics registry is written to after each
	// command. Empty disables the dump.
	Output string `mapstructure:"output"`
}

// Config is the complete application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Uploads  UploadsConfig  `mapstructure:"uploads"`
	Report   ReportConfig   `mapstructure:"report"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "cdibase.db")
	v.SetDefault("database.table", "snapshots")
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("report.default_cdi_format", "")
	v.SetDefault("report.exclude_deleted", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("metrics.output", "")
}

// New returns a viper instance with defaults and environment binding set
// up. CDIBASE_DATABASE_DSN overrides database.dsn.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file into v and decodes the result. An explicit
// file must exist. Otherwise cdibase.{yaml,json,...} is looked up in the
// working directory and $HOME/.cdibase, and a missing file is fine.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("cdibase")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.cdibase")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot check by type.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "sqlite", "pgx":
	default:
		return fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn: must not be empty")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format: expected json or console, got %q", c.Log.Format)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// NewLogger builds a production logger for the json format and a
// development logger for the console format.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.EncoderConfig.TimeKey = "timestamp"
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
