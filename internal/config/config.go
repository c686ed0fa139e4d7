package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
// Values come from an optional YAML file (CONFIG_FILE) and are then
// overridden by environment variables.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Auth     AuthConfig    `yaml:"auth"`
	Storage  StorageConfig `yaml:"storage"`
	Seed     SeedConfig    `yaml:"seed"`
	LogLevel string        `yaml:"log_level"`
}

type ServerConfig struct {
	Port            string   `yaml:"port"`
	Host            string   `yaml:"host"`
	ReadTimeout     int      `yaml:"read_timeout"`
	WriteTimeout    int      `yaml:"write_timeout"`
	ShutdownTimeout int      `yaml:"shutdown_timeout"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxy      bool     `yaml:"trust_proxy"`
}

type AuthConfig struct {
	SessionTTLHours   int    `yaml:"session_ttl_hours"`
	ResetTokenMinutes int    `yaml:"reset_token_minutes"`
	SweepSchedule     string `yaml:"sweep_schedule"`
	RatePerMinute     int    `yaml:"rate_per_minute"`
	AdminEmail        string `yaml:"admin_email"`
	AdminPassword     string `yaml:"admin_password"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"` // memory, postgres or badger
	DatabaseURL string `yaml:"database_url"`
	BadgerPath  string `yaml:"badger_path"`
}

type SeedConfig struct {
	Sources     []string `yaml:"sources"`
	S3Region    string   `yaml:"s3_region"`
	S3Endpoint  string   `yaml:"s3_endpoint"`
	S3AccessKey string   `yaml:"s3_access_key"`
	S3SecretKey string   `yaml:"s3_secret_key"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			ReadTimeout:     15,
			WriteTimeout:    15,
			ShutdownTimeout: 30,
			AllowedOrigins:  []string{"*"},
		},
		Auth: AuthConfig{
			SessionTTLHours:   24,
			ResetTokenMinutes: 60,
			SweepSchedule:     "@every 10m",
			RatePerMinute:     20,
		},
		Storage: StorageConfig{
			Driver:     "memory",
			BadgerPath: "./data/badger",
		},
		Seed: SeedConfig{
			S3Region: "us-east-1",
		},
		LogLevel: "info",
	}
}

// Load reads configuration from CONFIG_FILE (if set) and environment variables
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.ReadTimeout = getEnvAsInt("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsInt("WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvAsInt("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.AllowedOrigins = getEnvAsSlice("ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.TrustProxy = getEnvAsBool("TRUST_PROXY", c.Server.TrustProxy)

	c.Auth.SessionTTLHours = getEnvAsInt("SESSION_TTL_HOURS", c.Auth.SessionTTLHours)
	c.Auth.ResetTokenMinutes = getEnvAsInt("RESET_TOKEN_MINUTES", c.Auth.ResetTokenMinutes)
	c.Auth.SweepSchedule = getEnv("SESSION_SWEEP_SCHEDULE", c.Auth.SweepSchedule)
	c.Auth.RatePerMinute = getEnvAsInt("AUTH_RATE_PER_MINUTE", c.Auth.RatePerMinute)
	c.Auth.AdminEmail = getEnv("ADMIN_EMAIL", c.Auth.AdminEmail)
	c.Auth.AdminPassword = getEnv("ADMIN_PASSWORD", c.Auth.AdminPassword)

	c.Storage.Driver = strings.ToLower(getEnv("STORAGE_DRIVER", c.Storage.Driver))
	c.Storage.DatabaseURL = getEnv("DATABASE_URL", c.Storage.DatabaseURL)
	c.Storage.BadgerPath = getEnv("BADGER_PATH", c.Storage.BadgerPath)

	c.Seed.Sources = getEnvAsSlice("SEED_SOURCES", c.Seed.Sources)
	c.Seed.S3Region = getEnv("SEED_S3_REGION", c.Seed.S3Region)
	c.Seed.S3Endpoint = getEnv("SEED_S3_ENDPOINT", c.Seed.S3Endpoint)
	c.Seed.S3AccessKey = getEnv("SEED_S3_ACCESS_KEY", c.Seed.S3AccessKey)
	c.Seed.S3SecretKey = getEnv("SEED_S3_SECRET_KEY", c.Seed.S3SecretKey)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Auth.SessionTTLHours <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}

	if c.Auth.RatePerMinute <= 0 {
		return fmt.Errorf("AUTH_RATE_PER_MINUTE must be positive")
	}

	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case "badger":
		if c.Storage.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH is required for the badger driver")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s (must be memory, postgres, or badger)", c.Storage.Driver)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
