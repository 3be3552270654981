package config

import (
	"errors"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Dataset DatasetConfig `yaml:"dataset" mapstructure:"dataset"`
	Filter  FilterConfig  `yaml:"filter" mapstructure:"filter"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DatasetConfig locates the scored grid dataset.
type DatasetConfig struct {
	// Source is a local path or an http(s)/ftp URL.
	Source string `yaml:"source" mapstructure:"source"`
	// Format overrides extension detection: geojson, shapefile, xlsx, csv or zip.
	Format            string  `yaml:"format" mapstructure:"format"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// Timeout returns TimeoutSecs as a duration.
func (c DatasetConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// FilterConfig configures the score slider and ranking length.
type FilterConfig struct {
	SliderMin float64 `yaml:"slider_min" mapstructure:"slider_min"`
	SliderMax float64 `yaml:"slider_max" mapstructure:"slider_max"`
	TopN      int     `yaml:"top_n" mapstructure:"top_n"`
}

// GeocodeConfig configures address search and its cache.
type GeocodeConfig struct {
	Provider       string  `yaml:"provider" mapstructure:"provider"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	CensusFallback bool    `yaml:"census_fallback" mapstructure:"census_fallback"`
	CensusURL      string  `yaml:"census_url" mapstructure:"census_url"`
	Region         string  `yaml:"region" mapstructure:"region"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`

	Cache         string `yaml:"cache" mapstructure:"cache"`
	CacheDSN      string `yaml:"cache_dsn" mapstructure:"cache_dsn"`
	CacheTable    string `yaml:"cache_table" mapstructure:"cache_table"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`

	RetryAttempts       int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	BreakerThreshold    int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
	BatchConcurrency    int `yaml:"batch_concurrency" mapstructure:"batch_concurrency"`
}

// Timeout returns TimeoutSecs as a duration.
func (c GeocodeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CacheTTL returns CacheTTLHours as a duration.
func (c GeocodeConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// BreakerCooldown returns BreakerCooldownSecs as a duration.
func (c GeocodeConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownSecs) * time.Second
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	CORSOrigins      []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ReadTimeoutSecs  int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var cacheBackends = []string{"none", "sqlite", "postgres", "redis"}

// Load reads configuration from .env, the config file and the environment.
// Environment variables use the GRIDFINDER_ prefix, e.g. GRIDFINDER_DATASET_SOURCE.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GRIDFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key needs one so AutomaticEnv can bind it on Unmarshal.
	v.SetDefault("dataset.source", "data/grid_scores.geojson")
	v.SetDefault("dataset.format", "")
	v.SetDefault("dataset.timeout_secs", 120)
	v.SetDefault("dataset.requests_per_second", 5)
	v.SetDefault("filter.slider_min", 0.0)
	v.SetDefault("filter.slider_max", 5.0)
	v.SetDefault("filter.top_n", 3)
	v.SetDefault("geocode.provider", "nominatim")
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.census_fallback", true)
	v.SetDefault("geocode.census_url", "https://geocoding.geo.census.gov")
	v.SetDefault("geocode.region", "New Jersey")
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("geocode.user_agent", "")
	v.SetDefault("geocode.timeout_secs", 15)
	v.SetDefault("geocode.cache", "sqlite")
	v.SetDefault("geocode.cache_dsn", "gridfinder-cache.db")
	v.SetDefault("geocode.cache_table", "geocode_cache")
	v.SetDefault("geocode.cache_ttl_hours", 720)
	v.SetDefault("geocode.retry_attempts", 3)
	v.SetDefault("geocode.breaker_threshold", 5)
	v.SetDefault("geocode.breaker_cooldown_secs", 30)
	v.SetDefault("geocode.batch_concurrency", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 30)
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

// LoadDotEnv loads the given env files, or ".env" when none are given, into
// the process environment. Missing files are skipped; variables already set
// win over file values.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return eris.Wrapf(err, "config: load %s", p)
		}
	}
	return nil
}

// Validate checks the settings a command mode depends on. Modes: serve,
// query (rank, points, search, export, explore) and cache.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		errs = append(errs, c.validateDataset()...)
		errs = append(errs, c.validateFilter()...)
		errs = append(errs, c.validateGeocode()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.WriteTimeoutSecs < 0 {
			errs = append(errs, "server.write_timeout_secs must be >= 0 (0 disables the request timeout)")
		}
	case "query":
		errs = append(errs, c.validateDataset()...)
		errs = append(errs, c.validateFilter()...)
		errs = append(errs, c.validateGeocode()...)
	case "cache":
		errs = append(errs, c.validateGeocode()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateDataset() []string {
	if strings.TrimSpace(c.Dataset.Source) == "" {
		return []string{"dataset.source is required"}
	}
	return nil
}

func (c *Config) validateFilter() []string {
	var errs []string
	if c.Filter.SliderMin >= c.Filter.SliderMax {
		errs = append(errs, "filter.slider_min must be < filter.slider_max")
	}
	if c.Filter.TopN < 1 || c.Filter.TopN > 50 {
		errs = append(errs, "filter.top_n must be between 1 and 50")
	}
	return errs
}

func (c *Config) validateGeocode() []string {
	var errs []string
	backend := strings.ToLower(c.Geocode.Cache)
	if backend != "" && !slices.Contains(cacheBackends, backend) {
		errs = append(errs, "geocode.cache must be one of none, sqlite, postgres, redis")
	}
	if (backend == "postgres" || backend == "redis") && c.Geocode.CacheDSN == "" {
		errs = append(errs, "geocode.cache_dsn is required for "+backend)
	}
	if c.Geocode.RateLimit <= 0 {
		errs = append(errs, "geocode.rate_limit must be > 0")
	}
	if c.Geocode.Provider != "" && c.Geocode.Provider != "nominatim" && c.Geocode.Provider != "census" {
		errs = append(errs, "geocode.provider must be nominatim or census")
	}
	return errs
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
