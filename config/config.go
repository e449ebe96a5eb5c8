package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the market intelligence service.
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Search     SearchConfig     `mapstructure:"search"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug             bool          `mapstructure:"debug"`
	LogLevel          string        `mapstructure:"log_level"`
	MaxProcessingTime time.Duration `mapstructure:"max_processing_time"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains the extraction model provider configuration.
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Models     map[string]LLMModel `mapstructure:"models"`
	Routing    LLMRoutingConfig    `mapstructure:"routing"`
	MaxRetries int                 `mapstructure:"max_retries"`
	Timeout    time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration.
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	APIName         string  `mapstructure:"api_name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

// LLMRoutingConfig defines which model handles each extraction path.
type LLMRoutingConfig struct {
	Extraction string `mapstructure:"extraction"` // batched insight extraction
	Sentiment  string `mapstructure:"sentiment"`  // sentiment schema calls
	Simulation string `mapstructure:"simulation"` // tier-2 simulated retrieval
	Fallback   string `mapstructure:"fallback"`
}

// SearchConfig contains web search provider settings.
type SearchConfig struct {
	Provider             string             `mapstructure:"provider"` // serper or brave
	SerperAPIKey         string             `mapstructure:"serper_api_key"`
	BraveAPIKey          string             `mapstructure:"brave_api_key"`
	MaxResults           int                `mapstructure:"max_results"`
	Timeout              time.Duration      `mapstructure:"timeout"`
	EnrichContent        bool               `mapstructure:"enrich_content"`
	ReliabilityOverrides map[string]float64 `mapstructure:"reliability_overrides"`
}

// APIKey returns the credential for the configured provider.
func (s SearchConfig) APIKey() string {
	if s.Provider == "brave" {
		return s.BraveAPIKey
	}
	return s.SerperAPIKey
}

// CacheConfig controls the batch extraction cache.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// EngineConfig contains pipeline tuning knobs.
type EngineConfig struct {
	MaxConcurrentQueries int `mapstructure:"max_concurrent_queries"`
	TrendResultCap       int `mapstructure:"trend_result_cap"`
	ConsolidatedCap      int `mapstructure:"consolidated_cap"`
	SeasonalWindowDays   int `mapstructure:"seasonal_window_days"`
}

// TelemetryConfig contains monitoring settings.
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	CostTracking bool `mapstructure:"cost_tracking"`
}

// StorageConfig contains the analysis history store settings.
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host       string        `mapstructure:"host"`
	Port       string        `mapstructure:"port"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	Timeout    time.Duration `mapstructure:"timeout"`
	HistoryTTL time.Duration `mapstructure:"history_ttl"`
}

// MonitoringConfig controls the next-monitoring-schedule output.
type MonitoringConfig struct {
	CronSpec string `mapstructure:"cron_spec"`
}

// LoadConfig loads config from file, applying MARKETINTEL_* env overrides.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.max_processing_time", "20s")
	viper.SetDefault("general.default_timeout", "10s")
	viper.SetDefault("server.address", ":10020")
	viper.SetDefault("llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.max_retries", 2)
	viper.SetDefault("llm.timeout", "30s")
	viper.SetDefault("search.provider", "serper")
	viper.SetDefault("search.max_results", 8)
	viper.SetDefault("search.timeout", "10s")
	viper.SetDefault("cache.ttl", "15m")
	viper.SetDefault("engine.max_concurrent_queries", 8)
	viper.SetDefault("engine.trend_result_cap", 10)
	viper.SetDefault("engine.consolidated_cap", 20)
	viper.SetDefault("engine.seasonal_window_days", 90)
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.cost_tracking", true)
	viper.SetDefault("storage.redis.timeout", "5s")
	viper.SetDefault("storage.redis.history_ttl", "720h")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("MARKETINTEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine: env + defaults carry a full runnable config.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if config.LLM.APIKey == "" {
		config.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if config.Search.SerperAPIKey == "" {
		config.Search.SerperAPIKey = os.Getenv("SERPER_API_KEY")
	}
	if config.Search.BraveAPIKey == "" {
		config.Search.BraveAPIKey = os.Getenv("BRAVE_API_KEY")
	}
	if len(config.LLM.Models) == 0 {
		config.LLM.Models = defaultModels()
	}
	if config.LLM.Routing == (LLMRoutingConfig{}) {
		config.LLM.Routing = LLMRoutingConfig{
			Extraction: "analysis",
			Sentiment:  "analysis",
			Simulation: "analysis",
			Fallback:   "analysis",
		}
	}

	return &config
}

func defaultModels() map[string]LLMModel {
	return map[string]LLMModel{
		"analysis": {
			Name:            "gpt-4o-mini",
			APIName:         "gpt-4o-mini",
			MaxTokens:       4000,
			Temperature:     0.3,
			CostPer1K:       0.00015,
			CostPer1KOutput: 0.0006,
		},
	}
}
