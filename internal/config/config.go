package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Prefilter PrefilterConfig `yaml:"prefilter" mapstructure:"prefilter"`
	Ollama    OllamaConfig    `yaml:"ollama" mapstructure:"ollama"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Filter    FilterConfig    `yaml:"filter" mapstructure:"filter"`
	Load      LoadConfig      `yaml:"load" mapstructure:"load"`
	Notify    NotifyConfig    `yaml:"notify" mapstructure:"notify"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the warehouse backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ExtractConfig configures dump extraction.
type ExtractConfig struct {
	ChunkSize int    `yaml:"chunk_size" mapstructure:"chunk_size"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// PrefilterConfig configures the deterministic rule filter.
type PrefilterConfig struct {
	RuleSet  string `yaml:"rule_set" mapstructure:"rule_set"`
	MinViews int    `yaml:"min_views" mapstructure:"min_views"`
}

// OllamaConfig holds the default classifier backend settings.
type OllamaConfig struct {
	Host        string  `yaml:"host" mapstructure:"host"`
	Model       string  `yaml:"model" mapstructure:"model"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// AnthropicConfig holds the alternate classifier backend settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// FilterConfig configures batch orchestration of the external classifier.
type FilterConfig struct {
	Backend   string `yaml:"backend" mapstructure:"backend"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// LoadConfig configures warehouse bulk loading.
type LoadConfig struct {
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size"`
}

// NotifyConfig configures the run-event webhook notifier.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
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
	v.SetEnvPrefix("PAGEVIEWS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("extract.chunk_size", 500_000)
	v.SetDefault("extract.output_dir", "./data")
	v.SetDefault("prefilter.rule_set", "standard")
	v.SetDefault("prefilter.min_views", 0)
	v.SetDefault("ollama.host", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3.2:1b")
	v.SetDefault("ollama.timeout_secs", 120)
	v.SetDefault("ollama.rate_per_sec", 2)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("filter.backend", "ollama")
	v.SetDefault("filter.batch_size", 50)
	v.SetDefault("load.chunk_size", 100_000)
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
