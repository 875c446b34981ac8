// Package config loads application configuration from file and
// environment and owns the global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/atlas-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	Imagery  ImageryConfig  `yaml:"imagery" mapstructure:"imagery"`
	Overpass OverpassConfig `yaml:"overpass" mapstructure:"overpass"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	Path        string           `yaml:"path" mapstructure:"path"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// DataConfig configures the on-disk layout of run outputs and caches.
type DataConfig struct {
	WorkDir  string `yaml:"work_dir" mapstructure:"work_dir"`
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`
}

// ImageryConfig configures the imagery source. Only the synthetic
// source is built in; width and height size its reference grid.
type ImageryConfig struct {
	Width  int   `yaml:"width" mapstructure:"width"`
	Height int   `yaml:"height" mapstructure:"height"`
	Seed   int64 `yaml:"seed" mapstructure:"seed"`
}

// OverpassConfig configures the OSM line source.
type OverpassConfig struct {
	Endpoint    string  `yaml:"endpoint" mapstructure:"endpoint"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentRuns int `yaml:"max_concurrent_runs" mapstructure:"max_concurrent_runs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "atlas.db")
	v.SetDefault("data.work_dir", "runs")
	v.SetDefault("data.cache_dir", ".atlas-cache")
	v.SetDefault("imagery.width", 256)
	v.SetDefault("imagery.height", 256)
	v.SetDefault("imagery.seed", 42)
	v.SetDefault("overpass.endpoint", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.user_agent", "atlas-cli/1.0")
	v.SetDefault("overpass.timeout_secs", 60)
	v.SetDefault("overpass.rate_per_sec", 1)
	v.SetDefault("overpass.enabled", false)
	v.SetDefault("batch.max_concurrent_runs", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	if c.Data.WorkDir == "" {
		problems = append(problems, "data.work_dir is required")
	}
	if c.Batch.MaxConcurrentRuns < 1 || c.Batch.MaxConcurrentRuns > 32 {
		problems = append(problems, "batch.max_concurrent_runs must be between 1 and 32")
	}
	if c.Imagery.Width < 1 || c.Imagery.Height < 1 {
		problems = append(problems, "imagery dimensions must be positive")
	}
	if c.Overpass.Enabled && c.Overpass.Endpoint == "" {
		problems = append(problems, "overpass.endpoint is required when overpass is enabled")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
