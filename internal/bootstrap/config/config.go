package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"supplychain/internal/bootstrap/logging"
	"supplychain/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Source   SourceConfig   `mapstructure:"source"`
	Load     LoadConfig     `mapstructure:"load"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	// MustExist makes Open fail instead of creating a missing SQLite store.
	MustExist bool `mapstructure:"-"`
}

// SourceConfig locates the per-table extracts. Driver "fs" reads Dir,
// driver "s3" reads Bucket/Prefix.
type SourceConfig struct {
	Driver   string `mapstructure:"driver"`
	Dir      string `mapstructure:"dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type LoadConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithComponent(ctx, "bootstrap.config")

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("source_driver", cfg.Source.Driver),
	)

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	switch strings.ToLower(c.Source.Driver) {
	case "fs":
		if strings.TrimSpace(c.Source.Dir) == "" {
			return errors.New("source.dir is required for the fs source")
		}
	case "s3":
		if strings.TrimSpace(c.Source.Bucket) == "" {
			return errors.New("source.bucket is required for the s3 source")
		}
	default:
		return fmt.Errorf("unsupported source.driver %q", c.Source.Driver)
	}
	if c.Load.BatchSize <= 0 {
		return fmt.Errorf("load.batch_size must be positive, got %d", c.Load.BatchSize)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "supplychain")
	v.SetDefault("app.env", "local")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/database/supply_chain.db")
	v.SetDefault("source.driver", "fs")
	v.SetDefault("source.dir", "data/derived")
	v.SetDefault("source.bucket", "")
	v.SetDefault("source.prefix", "")
	v.SetDefault("source.region", "us-east-1")
	v.SetDefault("source.endpoint", "")
	v.SetDefault("load.batch_size", 200)
	v.SetDefault("metrics.textfile", "")
}
