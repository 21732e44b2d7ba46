// Package config loads and validates application configuration from YAML,
// environment variables and CLI flag overrides, in that precedence order via
// viper. Components receive their config sections by value; nothing reads
// viper directly after Load.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggerConfig controls the zap logger construction.
type LoggerConfig struct {
	Level       string      `mapstructure:"level"`
	Format      string      `mapstructure:"format"` // "console" or "json"
	ServiceName string      `mapstructure:"service_name"`
	LogFile     string      `mapstructure:"log_file"`
	MaxSize     int         `mapstructure:"max_size"` // megabytes, per lumberjack
	MaxBackups  int         `mapstructure:"max_backups"`
	MaxAge      int         `mapstructure:"max_age"` // days
	Compress    bool        `mapstructure:"compress"`
	AddSource   bool        `mapstructure:"add_source"`
	Colors      ColorConfig `mapstructure:"colors"`
}

// ColorConfig maps log levels to terminal colors for console output.
type ColorConfig struct {
	Debug string `mapstructure:"debug"`
	Info  string `mapstructure:"info"`
	Warn  string `mapstructure:"warn"`
	Error string `mapstructure:"error"`
	Fatal string `mapstructure:"fatal"`
}

// DetectorConfig toggles the individual detector families. Every family
// defaults to enabled; a disabled family contributes an empty outcome, never
// an error.
type DetectorConfig struct {
	EnableScriptAnalysis       bool `mapstructure:"enable_script_analysis"`
	EnableAuthorAnalysis       bool `mapstructure:"enable_author_analysis"`
	EnableMetadataAnalysis     bool `mapstructure:"enable_metadata_analysis"`
	EnableTyposquatting        bool `mapstructure:"enable_typosquatting"`
	EnableHomographDetection   bool `mapstructure:"enable_homograph_detection"`
	EnableVersionConfusion     bool `mapstructure:"enable_version_confusion"`
	EnableBrandJacking         bool `mapstructure:"enable_brand_jacking"`
	EnableDependencyConfusion  bool `mapstructure:"enable_dependency_confusion"`
	EnableSupplyChainInjection bool `mapstructure:"enable_supply_chain_injection"`
	EnableSteganography        bool `mapstructure:"enable_steganography"`
	EnableMaintainerCompromise bool `mapstructure:"enable_maintainer_compromise"`
	EnableBehavioralAnomaly    bool `mapstructure:"enable_behavioral_anomaly"`
}

// EngineConfig controls scoring, caching and batch execution.
type EngineConfig struct {
	Detectors DetectorConfig `mapstructure:"detectors"`

	// ConfidenceThreshold filters results and cache write-backs.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`

	// MaxConcurrency caps the derived worker-pool size for batch scans.
	MaxConcurrency int `mapstructure:"max_concurrency"`

	// SequentialThreshold is the batch size below which misses are
	// processed without a worker pool.
	SequentialThreshold int `mapstructure:"sequential_threshold"`

	PerItemTimeout time.Duration `mapstructure:"per_item_timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`

	ResultCacheSize    int `mapstructure:"result_cache_size"`
	TyposquatCacheSize int `mapstructure:"typosquat_cache_size"`
}

// DatabaseConfig controls the optional Postgres result sink.
type DatabaseConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// Config is the root of the application configuration tree.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Database DatabaseConfig `mapstructure:"database"`
}

// Load reads configuration from the given file (or ./config.yaml when empty),
// layered under SDA_-prefixed environment variables, and returns the
// validated result.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
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

// Default returns the configuration with every default applied and no file or
// environment input. Useful for library embedding and tests.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "sda")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("engine.confidence_threshold", 0.65)
	v.SetDefault("engine.max_concurrency", 8)
	v.SetDefault("engine.sequential_threshold", 5)
	v.SetDefault("engine.per_item_timeout", 10*time.Second)
	v.SetDefault("engine.retry_attempts", 1)
	v.SetDefault("engine.result_cache_size", 4096)
	v.SetDefault("engine.typosquat_cache_size", 8192)

	for _, flag := range []string{
		"enable_script_analysis",
		"enable_author_analysis",
		"enable_metadata_analysis",
		"enable_typosquatting",
		"enable_homograph_detection",
		"enable_version_confusion",
		"enable_brand_jacking",
		"enable_dependency_confusion",
		"enable_supply_chain_injection",
		"enable_steganography",
		"enable_maintainer_compromise",
		"enable_behavioral_anomaly",
	} {
		v.SetDefault("engine.detectors."+flag, true)
	}

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.connect_timeout", 5*time.Second)
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.ConfidenceThreshold < 0 || c.Engine.ConfidenceThreshold > 1 {
		return fmt.Errorf("engine.confidence_threshold must be within [0,1], got %v", c.Engine.ConfidenceThreshold)
	}
	if c.Engine.MaxConcurrency < 1 {
		return fmt.Errorf("engine.max_concurrency must be at least 1, got %d", c.Engine.MaxConcurrency)
	}
	if c.Engine.PerItemTimeout <= 0 {
		return fmt.Errorf("engine.per_item_timeout must be positive, got %v", c.Engine.PerItemTimeout)
	}
	if c.Engine.RetryAttempts < 0 {
		return fmt.Errorf("engine.retry_attempts cannot be negative, got %d", c.Engine.RetryAttempts)
	}
	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("database.url is required when database.enabled is set")
	}
	return nil
}
