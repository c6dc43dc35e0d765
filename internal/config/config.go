// Package config loads command settings from the environment, an optional
// .env file and an optional tzbed.{yaml,json,toml} config file.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/andreiashu/tzbed"
)

// EnvPrefix is prepended to every environment variable, e.g.
// TZBED_CATALOGUE_DIR.
const EnvPrefix = "TZBED"

// Config holds the settings shared by the tzbed commands.
type Config struct {
	CatalogueDir string
	ArchivePath  string
	BatchSize    int
	Workers      int
	LogLevel     string
}

// Load reads configuration. Values come, lowest priority first, from the
// defaults, the config file, .env and the process environment.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("catalogue_dir", "./tzbed-data")
	v.SetDefault("archive", "")
	v.SetDefault("batch_size", tzbed.DefaultBatchSize)
	v.SetDefault("workers", runtime.GOMAXPROCS(0))
	v.SetDefault("log_level", "info")

	v.SetConfigName("tzbed")
	v.AddConfigPath(".")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{
		CatalogueDir: v.GetString("catalogue_dir"),
		ArchivePath:  v.GetString("archive"),
		BatchSize:    v.GetInt("batch_size"),
		Workers:      v.GetInt("workers"),
		LogLevel:     strings.ToLower(v.GetString("log_level")),
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("batch_size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	return cfg, nil
}

// Options converts the configuration into tzbed options.
func (c *Config) Options(log *zap.Logger) []tzbed.Option {
	opts := []tzbed.Option{
		tzbed.WithCatalogueDir(c.CatalogueDir),
		tzbed.WithBatchSize(c.BatchSize),
		tzbed.WithWorkers(c.Workers),
	}
	if c.ArchivePath != "" {
		opts = append(opts, tzbed.WithArchivePath(c.ArchivePath))
	}
	if log != nil {
		opts = append(opts, tzbed.WithLogger(log))
	}
	return opts
}
