package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	DB       DBConfig
	Server   ServerConfig
	Telegram TelegramConfig

	Environment string
	LogLevel    string
	AutoMigrate bool
}

type DBConfig struct {
	URL      string // DATABASE_URL; takes precedence over the discrete fields
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type ServerConfig struct {
	Address     string
	CORSOrigins []string
}

type TelegramConfig struct {
	MessageToken string // token of the bot that posts menu change notifications
	AdminChatID  int64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("DB_PORT: %w", err)
	}
	adminID, err := strconv.ParseInt(getEnv("ADMIN_ID", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_ID: %w", err)
	}

	cfg := &Config{
		DB: DBConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "menus"),
		},
		Server: ServerConfig{
			Address:     getEnv("SERVER_ADDRESS", ":3001"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		},
		Telegram: TelegramConfig{
			MessageToken: getEnv("MESSAGE_TOKEN", ""),
			AdminChatID:  adminID,
		},
		Environment: getEnv("ENVIRONMENT", EnvDevelopment),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		AutoMigrate: getEnvBool("AUTO_MIGRATE", false),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot repair with a default.
func (c *Config) Validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("ENVIRONMENT must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment)
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		return fmt.Errorf("DB_PORT out of range: %d", c.DB.Port)
	}
	if c.IsProduction() && c.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// ConnString returns DATABASE_URL when set, otherwise a postgres URL assembled from DB_*.
func (c DBConfig) ConnString() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	return u.String()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
