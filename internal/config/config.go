package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Environment   string        `mapstructure:"ENV"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	DBDSN         string        `mapstructure:"DB_DSN"`
	Store         string        `mapstructure:"STORE"`
	AutoMigrate   bool          `mapstructure:"AUTO_MIGRATE"`
	HTTPAddr      string        `mapstructure:"HTTP_ADDR"`
	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	JWTTTL        time.Duration `mapstructure:"JWT_TTL"`
	TelegramToken string        `mapstructure:"TELEGRAM_TOKEN"`
	Timezone      string        `mapstructure:"TIMEZONE"` // пояс для времени в боте и картинке недели
}

var defaults = map[string]any{
	"ENV":            "development",
	"LOG_LEVEL":      "",
	"DB_DSN":         "",
	"STORE":          StorePostgres,
	"AUTO_MIGRATE":   true,
	"HTTP_ADDR":      ":5000",
	"JWT_SECRET":     "",
	"JWT_TTL":        "24h",
	"TELEGRAM_TOKEN": "",
	"TIMEZONE":       "UTC",
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	} else {
		log.Println("Loaded configuration from .env file")
	}

	return FromViper(viper.New())
}

// FromViper собирает конфиг из окружения через переданный экземпляр viper
func FromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required but not set")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required but not set")
	}

	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	return nil
}

// Location часовой пояс из TIMEZONE
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}
