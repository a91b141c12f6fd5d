package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string

	DBDriver    string
	DatabaseDSN string

	JWTSecret []byte
	TokenTTL  time.Duration
	RedisURL  string

	CORSOrigins []string
	LogLevel    string
	LogFormat   string

	RateLimitRPS   float64
	RateLimitBurst int

	StrictOrderTransitions bool
	VerifyOrderTotal       bool
	AdminOnlyMenuWrites    bool

	MediaRoot string
}

const defaultJWTSecret = "feasto_dev_secret_change_me"

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     os.Getenv("GIN_MODE"),
		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DatabaseDSN: getEnv("DATABASE_DSN", "feasto.db?_pragma=foreign_keys(1)"),
		JWTSecret:   []byte(getEnv("JWT_SECRET", defaultJWTSecret)),
		RedisURL:    os.Getenv("REDIS_URL"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		MediaRoot:   getEnv("MEDIA_ROOT", "media"),
	}

	var err error
	if cfg.TokenTTL, err = durationEnv("TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = floatEnv("RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = intEnv("RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}
	if cfg.StrictOrderTransitions, err = boolEnv("STRICT_ORDER_TRANSITIONS", false); err != nil {
		return nil, err
	}
	if cfg.VerifyOrderTotal, err = boolEnv("VERIFY_ORDER_TOTAL", false); err != nil {
		return nil, err
	}
	if cfg.AdminOnlyMenuWrites, err = boolEnv("ADMIN_ONLY_MENU_WRITES", false); err != nil {
		return nil, err
	}

	switch cfg.DBDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return nil, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.DBDriver)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
