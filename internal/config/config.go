// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Retriever RetrieverConfig `mapstructure:"retriever"`
	Generator GeneratorConfig `mapstructure:"generator"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// PipelineConfig governs batch scrape and generation behavior.
type PipelineConfig struct {
	Concurrency     int      `mapstructure:"concurrency"`
	MaxHeadlines    int      `mapstructure:"max_headlines"`
	MaxDescriptions int      `mapstructure:"max_descriptions"`
	AllowedDomains  []string `mapstructure:"allowed_domains"`
}

// PricingConfig sets per-URL unit costs in half-credit units.
type PricingConfig struct {
	ScrapeHalfCredits   int64 `mapstructure:"scrape_half_credits"`
	GenerateHalfCredits int64 `mapstructure:"generate_half_credits"`
}

// RetrieverConfig configures the content-retrieval provider client.
type RetrieverConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
}

// GeneratorConfig configures the generative-text provider client.
type GeneratorConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory stores.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for phase-completion event publishing. An empty
// topic disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RSAWRITER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("pipeline.concurrency", 5)
	v.SetDefault("pipeline.max_headlines", 15)
	v.SetDefault("pipeline.max_descriptions", 4)
	v.SetDefault("pricing.scrape_half_credits", 1)
	v.SetDefault("pricing.generate_half_credits", 1)
	v.SetDefault("retriever.user_agent", "rsa-writer-bot/0.1")
	v.SetDefault("retriever.timeout_seconds", 15)
	v.SetDefault("generator.base_url", "https://api.openai.com/v1")
	v.SetDefault("generator.model", "gpt-4o-mini")
	v.SetDefault("generator.max_tokens", 500)
	v.SetDefault("generator.temperature", 0.7)
	v.SetDefault("generator.timeout_seconds", 60)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be > 0")
	}
	if c.Pricing.ScrapeHalfCredits < 0 || c.Pricing.GenerateHalfCredits < 0 {
		return fmt.Errorf("pricing unit costs must be >= 0")
	}
	if c.Retriever.TimeoutSeconds <= 0 {
		return fmt.Errorf("retriever.timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when a topic is configured")
	}
	return nil
}

// RetrieverTimeout converts the configured seconds into a duration.
func (c Config) RetrieverTimeout() time.Duration {
	return time.Duration(c.Retriever.TimeoutSeconds) * time.Second
}

// GeneratorTimeout converts the configured seconds into a duration.
func (c Config) GeneratorTimeout() time.Duration {
	return time.Duration(c.Generator.TimeoutSeconds) * time.Second
}
