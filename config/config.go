package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	AppEnv   string
	LogLevel string
	Port     string

	// Database
	DBDriver       string
	DBURL          string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// DemoUserID is the single owner every request acts as.
	DemoUserID string

	CORSOrigin      string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment, after loading a .env file
// when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return FromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_PORT", "4000")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 25)
	v.SetDefault("DEMO_USER_ID", "demo-user-default-id")
	v.SetDefault("CORS_ORIGIN", "*")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppEnv:          v.GetString("APP_ENV"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		Port:            v.GetString("SERVER_PORT"),
		DBDriver:        strings.ToLower(v.GetString("DB_DRIVER")),
		DBURL:           v.GetString("DB_URL"),
		DBMaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		DemoUserID:      v.GetString("DEMO_USER_ID"),
		CORSOrigin:      v.GetString("CORS_ORIGIN"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required for the postgres driver")
		}
	case "sqlite":
		if cfg.DBURL == "" {
			cfg.DBURL = "subscriptions.db"
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", cfg.DBDriver)
	}
	if cfg.DemoUserID == "" {
		return nil, fmt.Errorf("DEMO_USER_ID must not be empty")
	}
	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}
