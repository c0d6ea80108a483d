package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/Freeeeeet/ltrc_platform/internal/availability"
)

type Config struct {
	Environment      string
	LogLevel         string
	DBDSN            string
	HTTPAddr         string
	JWTSecret        string
	SessionTTL       time.Duration
	AvailabilityMode string
	Location         *time.Location
	TelegramToken    string
	RedisURL         string
	SignInPerMinute  float64
	SignInBurst      int
	MigrationsDir    string
	CORSOrigins      []string
}

func Load() (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv builds the config from a lookup function, applies defaults and
// checks required values.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Environment:      getenv("ENV"),
		LogLevel:         strings.TrimSpace(getenv("LOG_LEVEL")),
		DBDSN:            getenv("DB_DSN"),
		HTTPAddr:         getenv("HTTP_ADDR"),
		JWTSecret:        getenv("JWT_SECRET"),
		AvailabilityMode: strings.ToLower(strings.TrimSpace(getenv("AVAILABILITY_MODE"))),
		TelegramToken:    getenv("TELEGRAM_TOKEN"),
		RedisURL:         getenv("REDIS_URL"),
		MigrationsDir:    getenv("MIGRATIONS_DIR"),
		CORSOrigins:      splitList(getenv("CORS_ORIGINS")),
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.AvailabilityMode == "" {
		cfg.AvailabilityMode = availability.ModeAlwaysOpen
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	switch cfg.AvailabilityMode {
	case availability.ModeAlwaysOpen, availability.ModeStatic, availability.ModeConfigured:
	default:
		return nil, fmt.Errorf("AVAILABILITY_MODE must be one of always, static, configured; got %q", cfg.AvailabilityMode)
	}

	if cfg.LogLevel != "" {
		if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}

	var err error
	if cfg.SessionTTL, err = durationOr(getenv("SESSION_TTL"), 24*time.Hour); err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	if cfg.SignInPerMinute, err = floatOr(getenv("SIGNIN_RATE"), 5); err != nil {
		return nil, fmt.Errorf("SIGNIN_RATE: %w", err)
	}
	if cfg.SignInBurst, err = intOr(getenv("SIGNIN_BURST"), 5); err != nil {
		return nil, fmt.Errorf("SIGNIN_BURST: %w", err)
	}

	tz := getenv("TIMEZONE")
	if tz == "" {
		cfg.Location = time.Local
	} else if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
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

func durationOr(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

func floatOr(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("must be positive, got %v", f)
	}
	return f, nil
}

func intOr(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
