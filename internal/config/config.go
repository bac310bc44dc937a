package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	DBAutoMigrate     bool
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	BcryptCost        int

	// Display zone used for slot keys and hour alignment. Only fixed offsets are supported.
	DisplayTZName   string
	DisplayTZOffset string
	GridDays        int

	RedisURL         string // empty disables redis, the rate limiter then keeps state in memory
	BookingRateLimit string
	SweepInterval    time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	LogLevel string
	LogFile  string

	// EnvFileErr is set when .env could not be loaded. It is informational only.
	EnvFileErr error
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	// Load .env file if it exists
	cfg.EnvFileErr = godotenv.Load()

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	var err error
	cfg.DBAutoMigrate, err = getEnvAsBool("DB_AUTO_MIGRATE", false)
	if err != nil {
		return nil, err
	}

	// JWT secret is required for signing tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// JWT access token TTL, parse as time.Duration (e.g. "15m", "1h").
	cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	// Bcrypt cost for password hashing (default: 12)
	cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	cfg.DisplayTZName = getEnv("DISPLAY_TZ_NAME", "IST")
	cfg.DisplayTZOffset = getEnv("DISPLAY_TZ_OFFSET", "+05:30")

	cfg.GridDays, err = getEnvAsInt("GRID_DAYS", 14)
	if err != nil {
		return nil, fmt.Errorf("invalid GRID_DAYS: %w", err)
	}
	if cfg.GridDays < 1 {
		return nil, fmt.Errorf("invalid GRID_DAYS: must be positive, got %d", cfg.GridDays)
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	cfg.BookingRateLimit = getEnv("BOOKING_RATE_LIMIT", "30-1m")

	cfg.SweepInterval, err = getEnvAsDuration("SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("invalid SWEEP_INTERVAL: must be positive")
	}

	cfg.SMTPHost = getEnv("SMTP_HOST", "")
	cfg.SMTPPort, err = getEnvAsInt("SMTP_PORT", 587)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	cfg.SMTPUser = getEnv("SMTP_USER", "")
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SMTPFrom = getEnv("SMTP_FROM", "")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFile = getEnv("LOG_FILE", "")

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valStr := strings.TrimSpace(getEnv(key, ""))
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return false, fmt.Errorf("env %s value %q is not a valid boolean: %w", key, valStr, err)
	}
	return val, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return val, nil
}
