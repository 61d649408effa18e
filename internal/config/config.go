package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "dev-secret"

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Mongo        MongoConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Notification NotificationConfig
	Seed         SeedConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	ListMaxLimit          int
}

// PostgresConfig holds DB connection values for the user store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// MongoConfig holds connection values for the issue document store.
type MongoConfig struct {
	URI            string
	Database       string
	TimeoutSeconds int
	EnsureIndexes  bool
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// RateLimitConfig bounds how many issues a single user may report per day.
type RateLimitConfig struct {
	IssuesPerDay int
	KeyPrefix    string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// SeedConfig toggles demo account creation on startup.
type SeedConfig struct {
	DemoUsers    bool
	DemoPassword string
}

// Load reads configuration from environment variables, applying defaults
// where possible, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisCfg, err := loadRedis()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App:          loadApp(),
		Postgres:     loadPostgres(),
		Mongo:        loadMongo(),
		Redis:        redisCfg,
		Logger:       LoggerConfig{Level: getEnv("LOG_LEVEL", "info")},
		Auth:         loadAuth(),
		RateLimit:    loadRateLimit(),
		Notification: loadNotification(),
		Seed: SeedConfig{
			DemoUsers:    getEnvAsBool("SEED_DEMO_USERS", false),
			DemoPassword: getEnv("SEED_DEMO_PASSWORD", "password"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.App.ListMaxLimit <= 0 {
		errs = append(errs, fmt.Errorf("LIST_MAX_LIMIT must be positive, got %d", c.App.ListMaxLimit))
	}
	if c.RateLimit.IssuesPerDay < 0 {
		errs = append(errs, fmt.Errorf("ISSUE_RATE_LIMIT_PER_DAY must not be negative, got %d", c.RateLimit.IssuesPerDay))
	}
	if c.Mongo.Database == "" {
		errs = append(errs, errors.New("MONGO_DATABASE must not be empty"))
	}
	if c.App.Env == "production" && c.Auth.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be set in production"))
	}
	return errors.Join(errs...)
}

func loadApp() AppConfig {
	return AppConfig{
		Name:                  getEnv("APP_NAME", "civic-reporter"),
		Env:                   getEnv("APP_ENV", "development"),
		Host:                  getEnv("APP_HOST", "0.0.0.0"),
		Port:                  getEnv("APP_PORT", "8080"),
		Version:               getEnv("APP_VERSION", "dev"),
		RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		ListMaxLimit:          getEnvAsInt("LIST_MAX_LIMIT", 100),
	}
}

func loadPostgres() PostgresConfig {
	return PostgresConfig{
		DSN:            os.Getenv("POSTGRES_DSN"),
		MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
		MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
		RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
		ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
		ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
	}
}

func loadMongo() MongoConfig {
	return MongoConfig{
		URI:            getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		Database:       getEnv("MONGO_DATABASE", "civic_reporter"),
		TimeoutSeconds: getEnvAsInt("MONGO_TIMEOUT_SECONDS", 10),
		EnsureIndexes:  getEnvAsBool("MONGO_ENSURE_INDEXES", true),
	}
}

// loadRedis rejects a malformed REDIS_DB instead of falling back.
func loadRedis() (RedisConfig, error) {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func loadAuth() AuthConfig {
	return AuthConfig{
		JWTSecret:             getEnv("AUTH_JWT_SECRET", defaultJWTSecret),
		AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
	}
}

func loadRateLimit() RateLimitConfig {
	return RateLimitConfig{
		IssuesPerDay: getEnvAsInt("ISSUE_RATE_LIMIT_PER_DAY", 20),
		KeyPrefix:    getEnv("ISSUE_RATE_LIMIT_PREFIX", "issue_limit"),
	}
}

func loadNotification() NotificationConfig {
	return NotificationConfig{
		EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
		WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
	}
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-operation deadline applied to Mongo calls made outside a request.
func (m MongoConfig) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
