// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment selects the deployment mode. Signature verification is
	// skipped only when this is exactly "development"; anything else,
	// including empty or misspelled values, verifies.
	Environment string `yaml:"environment"`

	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	SES      SESConfig      `yaml:"ses"`
	Webhook  WebhookConfig  `yaml:"webhook"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GetHost returns the bind host, defaulting to localhost.
func (s ServerConfig) GetHost() string {
	if s.Host == "" {
		return "localhost"
	}
	return s.Host
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds Redis connection settings. When Enabled, the idempotency
// ledger runs on Redis instead of Postgres.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SESConfig holds AWS SES credentials for the outbound send path.
type SESConfig struct {
	Region           string `yaml:"region"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	FromEmail        string `yaml:"from_email"`
	ConfigurationSet string `yaml:"configuration_set"`
}

// WebhookConfig holds delivery-event pipeline settings.
type WebhookConfig struct {
	MaxRetries             int `yaml:"max_retries"`
	BaseDelaySeconds       int `yaml:"base_delay_seconds"`
	LedgerRetentionDays    int `yaml:"ledger_retention_days"`
	JanitorIntervalMinutes int `yaml:"janitor_interval_minutes"`
}

// BaseDelay returns the first backoff delay.
func (w WebhookConfig) BaseDelay() time.Duration {
	return time.Duration(w.BaseDelaySeconds) * time.Second
}

// LedgerRetention returns the idempotency dedup window.
func (w WebhookConfig) LedgerRetention() time.Duration {
	return time.Duration(w.LedgerRetentionDays) * 24 * time.Hour
}

// JanitorInterval returns how often expired ledger rows are purged.
func (w WebhookConfig) JanitorInterval() time.Duration {
	return time.Duration(w.JanitorIntervalMinutes) * time.Minute
}

// IsDevelopment reports whether the unauthenticated dev mode is active.
// Only the exact string "development" enables it.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.Webhook.MaxRetries == 0 {
		cfg.Webhook.MaxRetries = 3
	}
	if cfg.Webhook.BaseDelaySeconds == 0 {
		cfg.Webhook.BaseDelaySeconds = 1
	}
	if cfg.Webhook.LedgerRetentionDays == 0 {
		cfg.Webhook.LedgerRetentionDays = 7
	}
	if cfg.Webhook.JanitorIntervalMinutes == 0 {
		cfg.Webhook.JanitorIntervalMinutes = 60
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets can
// live in .env locally and in real env vars in deployment. A missing config
// file is not an error: all settings can come from the environment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		applyDefaults(cfg)
	}

	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("SES_FROM_EMAIL"); v != "" {
		cfg.SES.FromEmail = v
	}
	if v := os.Getenv("AWS_SES_CONFIGURATION_SET"); v != "" {
		cfg.SES.ConfigurationSet = v
	}

	return cfg, nil
}
