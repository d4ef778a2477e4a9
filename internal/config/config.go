package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	AI         AIConfig         `mapstructure:"ai"`
	Taxonomy   TaxonomyConfig   `mapstructure:"taxonomy"`
	Images     ImagesConfig     `mapstructure:"images"`
	Attachment AttachmentConfig `mapstructure:"attachment"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

// ServerConfig holds the inbound webhook server configuration
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// CatalogConfig holds the remote catalog platform configuration
type CatalogConfig struct {
	BaseURL              string `mapstructure:"base_url"`
	AccessToken          string `mapstructure:"access_token"`
	Timeout              int    `mapstructure:"timeout"`
	MaxRetries           int    `mapstructure:"max_retries"`
	MaxRequestsPerSecond int    `mapstructure:"max_requests_per_second"`
	PollAttempts         int    `mapstructure:"poll_attempts"`
	PollDelaySeconds     int    `mapstructure:"poll_delay_seconds"`
}

// AIConfig holds the generative text service configuration
type AIConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
	Timeout   int    `mapstructure:"timeout"`
}

// TaxonomyConfig points at the category tree definition file
type TaxonomyConfig struct {
	DefinitionFile string `mapstructure:"definition_file"`
}

// ImagesConfig drives collection image resolution by convention
type ImagesConfig struct {
	BaseURL     string   `mapstructure:"base_url"`
	Extensions  []string `mapstructure:"extensions"`
	DefaultFile string   `mapstructure:"default_file"`
}

// AttachmentConfig toggles collection attachment behaviour
type AttachmentConfig struct {
	Enabled bool `mapstructure:"enabled"`
	DryRun  bool `mapstructure:"dry_run"`
}

// WebhookConfig holds inbound webhook verification settings
type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
}

// RedisConfig holds the optional in-flight lock backend. Empty host disables it.
type RedisConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Password       string `mapstructure:"password"`
	Database       int    `mapstructure:"database"`
	LockTTLSeconds int    `mapstructure:"lock_ttl_seconds"`
}

// DatabaseConfig holds the optional run-audit database. Empty host disables it.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// Load loads configuration from YAML file with environment variable overrides
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, fmt.Errorf("config.yaml file not found in current directory")
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if config.Catalog.BaseURL == "" {
		return nil, fmt.Errorf("catalog.base_url is required")
	}
	if config.AI.APIKey == "" {
		return nil, fmt.Errorf("ai.api_key is required")
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")

	viper.SetDefault("catalog.timeout", 30)
	viper.SetDefault("catalog.max_retries", 3)
	viper.SetDefault("catalog.max_requests_per_second", 2)
	viper.SetDefault("catalog.poll_attempts", 5)
	viper.SetDefault("catalog.poll_delay_seconds", 2)

	viper.SetDefault("ai.model", "claude-sonnet-4-20250514")
	viper.SetDefault("ai.max_tokens", 4096)
	viper.SetDefault("ai.timeout", 120)

	viper.SetDefault("taxonomy.definition_file", "./taxonomy.json")

	viper.SetDefault("images.extensions", []string{".webp", ".jpg", ".png"})
	viper.SetDefault("images.default_file", "collection-default.webp")

	viper.SetDefault("attachment.enabled", true)
	viper.SetDefault("attachment.dry_run", false)

	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.database", 0)
	viper.SetDefault("redis.lock_ttl_seconds", 300)

	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "enricher")
	viper.SetDefault("database.user", "enricher_user")
}
