// Package config loads the application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/andes-group/invest-cli/internal/finance"
	"github.com/andes-group/invest-cli/internal/llm"
	"github.com/andes-group/invest-cli/internal/report"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Portal    PortalConfig    `yaml:"portal" mapstructure:"portal"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Simulator SimulatorConfig `yaml:"simulator" mapstructure:"simulator"`
	Report    report.Config   `yaml:"report" mapstructure:"report"`
	Budget    BudgetConfig    `yaml:"budget" mapstructure:"budget"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// Analyzer returns the model parameters in analyzer form.
func (a AnthropicConfig) Analyzer() llm.Config {
	return llm.Config{Model: a.Model, MaxTokens: a.MaxTokens}
}

// PortalConfig configures the listing extractor.
type PortalConfig struct {
	TimeoutSecs int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Headless    bool `yaml:"headless" mapstructure:"headless"`
}

// SearchConfig configures the comparable-search client.
type SearchConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SimulatorConfig configures the loan-simulator client.
type SimulatorConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// BudgetConfig bounds model token spend over a rolling window.
type BudgetConfig struct {
	TokensPerHour int `yaml:"tokens_per_hour" mapstructure:"tokens_per_hour"`
}

// Window returns the rolling window length.
func (BudgetConfig) Window() time.Duration { return time.Hour }

// ServerConfig configures the webhook server.
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
	v.SetEnvPrefix("INVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "invest.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("portal.timeout_secs", 90)
	v.SetDefault("portal.headless", true)
	v.SetDefault("search.base_url", "https://api.goplaceit.com")
	v.SetDefault("search.rate_per_sec", 2)
	v.SetDefault("search.timeout_secs", 60)
	v.SetDefault("simulator.base_url", "https://api.mesimulator.cl")
	v.SetDefault("simulator.rate_per_sec", 1)
	v.SetDefault("simulator.timeout_secs", 60)
	v.SetDefault("budget.tokens_per_hour", 500_000)
	v.SetDefault("report.uf_value_clp", 38_000)
	v.SetDefault("report.preferred_term_years", 20)
	v.SetDefault("report.default_location", "Santiago, Metropolitana")
	v.SetDefault("report.search_max_pages", 3)
	v.SetDefault("report.source_timeout", "90s")

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

// CostParams exposes the cost assumptions with defaults applied for
// anything the file left unset.
func (c *Config) CostParams() finance.CostParams {
	if (c.Report.Costs == finance.CostParams{}) {
		return finance.DefaultCostParams()
	}
	return c.Report.Costs
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
