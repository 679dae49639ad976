// Package config reads the service configuration from the environment,
// loading a .env file first when one is present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port     int
	AppEnv   string
	LogLevel string
	LogFile  string

	SessionSecret string
	JWTSecret     string

	StoreDriver string
	SQLitePath  string
	Postgres    PostgresConfig

	OpenAIKey      string
	OpenAIModel    string
	GeminiKey      string
	GeminiModel    string
	AIMaxRetries   int
	ScanWait       time.Duration
	ScanTimeout    time.Duration
	SessionTTL     time.Duration
	MaxSessions    int
	RecommenderURL string
}

// PostgresConfig keeps the BLUEPRINT_DB_* naming of the deployment scripts.
type PostgresConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
}

// DSN returns the pgx connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		p.Username, p.Password, p.Host, p.Port, p.Database, p.Schema)
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	// a missing .env is normal in containers
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getenv("APP_ENV", "development"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFile:        os.Getenv("LOG_FILE"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		JWTSecret:      os.Getenv("JWT_SECRET_KEY"),
		StoreDriver:    getenv("STORE_DRIVER", DriverMemory),
		SQLitePath:     getenv("SQLITE_PATH", "mealvibe.db"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    getenv("OPENAI_MODEL", "gpt-4o"),
		GeminiKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		RecommenderURL: os.Getenv("RECOMMENDER_URL"),
		Postgres: PostgresConfig{
			Host:     os.Getenv("BLUEPRINT_DB_HOST"),
			Port:     getenv("BLUEPRINT_DB_PORT", "5432"),
			Database: os.Getenv("BLUEPRINT_DB_DATABASE"),
			Username: os.Getenv("BLUEPRINT_DB_USERNAME"),
			Password: os.Getenv("BLUEPRINT_DB_PASSWORD"),
			Schema:   getenv("BLUEPRINT_DB_SCHEMA", "public"),
		},
	}

	var err error
	if cfg.Port, err = intEnv("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.AIMaxRetries, err = intEnv("AI_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.MaxSessions, err = intEnv("WIZARD_MAX_SESSIONS", 10000); err != nil {
		return nil, err
	}
	if cfg.ScanWait, err = durationEnv("SCAN_WAIT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ScanTimeout, err = durationEnv("SCAN_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = durationEnv("WIZARD_SESSION_TTL", 2*time.Hour); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Postgres.Host == "" || c.Postgres.Database == "" {
			return fmt.Errorf("STORE_DRIVER=postgres requires BLUEPRINT_DB_HOST and BLUEPRINT_DB_DATABASE")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q, must be memory, sqlite or postgres", c.StoreDriver)
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY must be set in production")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("WIZARD_MAX_SESSIONS must be positive, got %d", c.MaxSessions)
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
