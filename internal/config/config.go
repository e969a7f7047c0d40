package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig      `toml:"app"`
	Database DatabaseConfig `toml:"database"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`
}

type AppConfig struct {
	Name     string `toml:"name"`
	Env      string `toml:"env"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	GinMode  string `toml:"gin_mode"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	URL                 string `toml:"url"`
	ConnectAttempts     int    `toml:"connect_attempts"`
	ConnectDelaySeconds int    `toml:"connect_delay_seconds"`
	MaxIdleConns        int    `toml:"max_idle_conns"`
	MaxOpenConns        int    `toml:"max_open_conns"`
}

type RabbitMQConfig struct {
	URL             string `toml:"url"`
	UserEventsQueue string `toml:"user_events_queue"`
}

// Load builds the configuration from defaults, an optional TOML file and the
// environment, in that order. A .env file in the working directory is loaded
// into the environment first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) ConnectDelay() time.Duration {
	return time.Duration(c.Database.ConnectDelaySeconds) * time.Second
}

func (c *Config) EventsEnabled() bool {
	return c.RabbitMQ.URL != ""
}

// String masks the connection strings, which usually carry credentials.
func (c *Config) String() string {
	return fmt.Sprintf("Config{App: %s/%s, HTTP: %s, DB: *** (masked), Events: %t}",
		c.App.Name, c.App.Env, c.HTTPAddr(), c.EventsEnabled())
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is empty; set DB_URL")
	}
	if c.Database.ConnectAttempts < 1 {
		return fmt.Errorf("database connect attempts must be at least 1, got %d", c.Database.ConnectAttempts)
	}
	if c.Database.ConnectDelaySeconds < 0 {
		return fmt.Errorf("database connect delay must not be negative, got %d", c.Database.ConnectDelaySeconds)
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid app port %d", c.App.Port)
	}
	switch c.App.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid gin mode %q; use debug, release or test", c.App.GinMode)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "userapi",
			Env:      "dev",
			Host:     "0.0.0.0",
			Port:     4000,
			GinMode:  "release",
			LogLevel: "info",
		},
		Database: DatabaseConfig{
			URL:                 "sqlite://users.db",
			ConnectAttempts:     5,
			ConnectDelaySeconds: 5,
			MaxIdleConns:        10,
			MaxOpenConns:        50,
		},
		RabbitMQ: RabbitMQConfig{
			URL:             "",
			UserEventsQueue: "user.events",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)

	cfg.Database.URL = getEnv("DB_URL", cfg.Database.URL)
	cfg.Database.ConnectAttempts = getEnvAsInt("DB_CONNECT_ATTEMPTS", cfg.Database.ConnectAttempts)
	cfg.Database.ConnectDelaySeconds = getEnvAsInt("DB_CONNECT_DELAY_SECONDS", cfg.Database.ConnectDelaySeconds)
	cfg.Database.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.UserEventsQueue = getEnv("RABBITMQ_USER_EVENTS_QUEUE", cfg.RabbitMQ.UserEventsQueue)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
