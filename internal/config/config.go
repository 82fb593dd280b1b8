package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// insecureSecret is the fallback the first version of the service signed with. Treat
// it as unset.
const insecureSecret = "default_secret"

// ErrInsecureSecret is returned when JWT_SECRET is the known fallback value.
var ErrInsecureSecret = errors.New("JWT_SECRET must be set to a private value")

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	Env            string `mapstructure:"ENV" validate:"required,oneof=local staging production"`
	AppPort        string `mapstructure:"APP_PORT" validate:"required"`
	DatabaseDriver string `mapstructure:"DATABASE_DRIVER" validate:"required,oneof=postgres sqlite"`
	DatabaseDSN    string `mapstructure:"DATABASE_DSN" validate:"required"`
	JWTSecret      string `mapstructure:"JWT_SECRET" validate:"required,min=16"`
	BcryptCost     int    `mapstructure:"BCRYPT_COST" validate:"min=4,max=31"`
	RabbitMQURL    string `mapstructure:"RABBITMQ_URL" validate:"omitempty,url"`
	LogLevel       string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	CORSOrigins    string `mapstructure:"CORS_ORIGINS"`
	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`
}

var defaults = map[string]any{
	"ENV":             "local",
	"APP_PORT":        ":5500",
	"DATABASE_DRIVER": "sqlite",
	"DATABASE_DSN":    "storekode.db",
	"JWT_SECRET":      "",
	"BCRYPT_COST":     10,
	"RABBITMQ_URL":    "",
	"LOG_LEVEL":       "info",
	"CORS_ORIGINS":    "*",
	"METRICS_ENABLED": true,
}

// Load reads configuration from the environment and, when CONFIG_PATH is set, from
// that file. Environment variables win over the file.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and rejects the insecure fallback secret.
func (c *Config) Validate() error {
	if c.JWTSecret == insecureSecret {
		return ErrInsecureSecret
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
