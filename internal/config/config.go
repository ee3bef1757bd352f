package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Predict PredictConfig `yaml:"predict" mapstructure:"predict"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// PredictConfig configures the flood-risk scoring service.
type PredictConfig struct {
	Mode        string `yaml:"mode" mapstructure:"mode"` // "live" or "offline"
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GeocodeConfig configures reverse geocoding against Nominatim.
type GeocodeConfig struct {
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit     float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CachePath     string  `yaml:"cache_path" mapstructure:"cache_path"`
	CacheTTLHours int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// RetryConfig is the caller-side retry policy for analysis commands.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// BatchConfig configures the batch command.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the presentation API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, floodsense.yaml, and the environment.
// Environment variables use the FLOODSENSE_ prefix, e.g. FLOODSENSE_PREDICT_MODE.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("floodsense")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FLOODSENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("predict.mode", "live")
	v.SetDefault("predict.base_url", "http://localhost:8000")
	v.SetDefault("predict.timeout_secs", 15)
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "FloodSense/1.0")
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.cache_path", "")
	v.SetDefault("geocode.cache_ttl_hours", 720)
	v.SetDefault("retry.max_attempts", 1)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings the core depends on, plus anything the
// named command needs ("serve" requires a port).
func (c *Config) Validate(command string) error {
	var errs []string

	switch c.Predict.Mode {
	case "live", "offline":
	default:
		errs = append(errs, "predict.mode must be live or offline, got "+quote(c.Predict.Mode))
	}
	if c.Predict.Mode == "live" && c.Predict.BaseURL == "" {
		errs = append(errs, "predict.base_url is required in live mode")
	}
	if c.Predict.TimeoutSecs <= 0 {
		errs = append(errs, "predict.timeout_secs must be > 0")
	}
	if c.Geocode.TimeoutSecs <= 0 {
		errs = append(errs, "geocode.timeout_secs must be > 0")
	}
	if c.Geocode.RateLimit <= 0 {
		errs = append(errs, "geocode.rate_limit must be > 0")
	}
	if c.Batch.Concurrency < 1 {
		errs = append(errs, "batch.concurrency must be >= 1")
	}
	if command == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func quote(s string) string {
	return `"` + s + `"`
}

// InitLogger initializes the global zap logger. Logs go to stderr so
// command output on stdout stays machine readable.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.OutputPaths = []string{"stderr"}

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
