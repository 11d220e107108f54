package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Session    SessionConfig    `mapstructure:"session"`
	Roles      RolesConfig      `mapstructure:"roles"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type ProvidersConfig struct {
	Default    string             `mapstructure:"default"`
	Timeout    time.Duration      `mapstructure:"timeout"`
	MaxRetries int                `mapstructure:"max_retries"`
	Endpoints  []ProviderEndpoint `mapstructure:"endpoints"`
}

type ProviderEndpoint struct {
	Name        string      `mapstructure:"name"`
	DisplayName string      `mapstructure:"display_name"`
	BaseURL     string      `mapstructure:"base_url"`
	APIKey      string      `mapstructure:"api_key"`
	Models      []ModelInfo `mapstructure:"models"`
}

type ModelInfo struct {
	ID        string `mapstructure:"id"`
	Name      string `mapstructure:"name"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type StorageConfig struct {
	Type   string       `mapstructure:"type"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Memory MemoryConfig `mapstructure:"memory"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MemoryConfig struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type SessionConfig struct {
	MaxMessages         int    `mapstructure:"max_messages"`
	DefaultSystemPrompt string `mapstructure:"default_system_prompt"`
	DefaultLanguage     string `mapstructure:"default_language"`
}

type RolesConfig struct {
	DefaultRole string `mapstructure:"default_role"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
	Dir             string   `mapstructure:"dir"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	setDefaults()

	// Enable environment variable substitution
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Set environment variable overrides
	viper.SetEnvPrefix("") // No prefix
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("providers.default", "DEFAULT_PROVIDER")
	viper.BindEnv("storage.redis.addr", "REDIS_HOST", "REDIS_PORT")
	viper.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	viper.BindEnv("storage.redis.db", "REDIS_DB")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Handle Redis address special case
	if redisHost := viper.GetString("REDIS_HOST"); redisHost != "" {
		redisPort := viper.GetString("REDIS_PORT")
		if redisPort == "" {
			redisPort = "6379"
		}
		config.Storage.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}

	// Load extra provider endpoints from environment variables
	if providerEndpoints := os.Getenv("PROVIDER_ENDPOINTS"); providerEndpoints != "" {
		endpoints := strings.Split(providerEndpoints, ",")
		for _, endpointName := range endpoints {
			endpointName = strings.TrimSpace(endpointName)
			if endpointName == "" {
				continue
			}

			// Convert endpoint name to env var prefix
			envPrefix := strings.ToUpper(strings.ReplaceAll(endpointName, "-", "_"))

			// Get endpoint configuration from env vars
			baseURL := os.Getenv(envPrefix + "_BASE_URL")
			apiKey := os.Getenv(envPrefix + "_API_KEY")
			modelsStr := os.Getenv(envPrefix + "_MODELS")

			if baseURL == "" {
				continue
			}

			// Create new endpoint
			endpoint := ProviderEndpoint{
				Name:        endpointName,
				DisplayName: endpointName,
				BaseURL:     baseURL,
				APIKey:      apiKey,
				Models:      []ModelInfo{},
			}

			// Parse models
			if modelsStr != "" {
				modelList := strings.Split(modelsStr, ",")
				for _, modelStr := range modelList {
					modelStr = strings.TrimSpace(modelStr)
					if modelStr == "" {
						continue
					}

					// Check if model has display name
					parts := strings.SplitN(modelStr, ":", 2)
					modelID := parts[0]
					modelName := modelID
					if len(parts) == 2 {
						modelName = parts[1]
					}

					endpoint.Models = append(endpoint.Models, ModelInfo{
						ID:   modelID,
						Name: modelName,
					})
				}
			}

			// Add endpoint to config
			config.Providers.Endpoints = append(config.Providers.Endpoints, endpoint)
		}
	}

	// Validate required fields
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", []string{"*"})
	viper.SetDefault("providers.timeout", 5*time.Minute)
	viper.SetDefault("providers.max_retries", 3)
	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.default_expiration", 24*time.Hour)
	viper.SetDefault("storage.memory.cleanup_interval", time.Hour)
	viper.SetDefault("cache.ttl", time.Hour)
	viper.SetDefault("rate_limit.requests_per_minute", 60)
	viper.SetDefault("rate_limit.burst", 10)
	viper.SetDefault("session.max_messages", 50)
	viper.SetDefault("session.default_language", "en")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("monitoring.metrics.path", "/metrics")
	viper.SetDefault("i18n.default_language", "en")
	viper.SetDefault("i18n.languages", []string{"en", "zh"})
}

func validateConfig(cfg *Config) error {
	if len(cfg.Providers.Endpoints) == 0 {
		return fmt.Errorf("at least one provider endpoint is required")
	}
	switch cfg.Storage.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "redis" && cfg.Storage.Redis.Addr == "" {
		return fmt.Errorf("redis storage requires an address")
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requires a positive requests_per_minute")
	}
	return nil
}
