package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	API    APIConfig    `yaml:"api" mapstructure:"api"`
	Import ImportConfig `yaml:"import" mapstructure:"import"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"` // sqlite file path
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// APIConfig configures the reports API the importer uploads to.
type APIConfig struct {
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	MaxRetries int     `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimit  float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
}

// ImportConfig configures spreadsheet extraction.
type ImportConfig struct {
	DefaultYear   int     `yaml:"default_year" mapstructure:"default_year"` // year for M.D file names
	ShiftHours    float64 `yaml:"shift_hours" mapstructure:"shift_hours"`   // assumed run time when unreported
	Concurrency   int     `yaml:"concurrency" mapstructure:"concurrency"`
	TemplatesFile string  `yaml:"templates_file" mapstructure:"templates_file"`
}

// ServerConfig configures the reports API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("MILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "mill.db")
	v.SetDefault("api.base_url", "http://localhost:3000")
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.rate_limit", 5.0)
	v.SetDefault("import.default_year", 2025)
	v.SetDefault("import.shift_hours", 8.0)
	v.SetDefault("import.concurrency", 4)
	v.SetDefault("server.port", 3000)
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

// Validate checks the fields a command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	checkStore := func() {
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.Path == "" {
				errs = append(errs, "store.path is required for the sqlite driver")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required for the postgres driver")
			}
		default:
			errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
	}

	switch mode {
	case "import":
		if c.Import.Concurrency < 1 || c.Import.Concurrency > 32 {
			errs = append(errs, "import.concurrency must be between 1 and 32")
		}
		if c.Import.ShiftHours <= 0 {
			errs = append(errs, "import.shift_hours must be > 0")
		}
		if c.Import.DefaultYear < 2000 || c.Import.DefaultYear > 2100 {
			errs = append(errs, "import.default_year must be a plausible year")
		}
		if c.API.BaseURL == "" {
			errs = append(errs, "api.base_url is required")
		}
		checkStore()
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		checkStore()
	case "inspect":
		if c.Import.ShiftHours <= 0 {
			errs = append(errs, "import.shift_hours must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
