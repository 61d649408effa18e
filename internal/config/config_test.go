package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("MONGO_DATABASE", "")
	t.Setenv("ISSUE_RATE_LIMIT_PER_DAY", "")
	t.Setenv("REDIS_DB", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.App.Port)
	}
	if cfg.Mongo.Database != "civic_reporter" {
		t.Fatalf("expected default mongo database, got %s", cfg.Mongo.Database)
	}
	if cfg.RateLimit.IssuesPerDay != 20 {
		t.Fatalf("expected default rate limit 20, got %d", cfg.RateLimit.IssuesPerDay)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("ISSUE_RATE_LIMIT_PER_DAY", "0")
	t.Setenv("SEED_DEMO_USERS", "true")
	t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.App.Port)
	}
	if cfg.RateLimit.IssuesPerDay != 0 {
		t.Fatalf("expected limiter disabled, got %d", cfg.RateLimit.IssuesPerDay)
	}
	if !cfg.Seed.DemoUsers {
		t.Fatalf("expected demo users enabled")
	}
	if cfg.Postgres.MaxConns != 10 {
		t.Fatalf("expected malformed int to fall back to 10, got %d", cfg.Postgres.MaxConns)
	}
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "primary")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid REDIS_DB")
	}
}

func TestRequestTimeout(t *testing.T) {
	if got := (AppConfig{RequestTimeoutSeconds: 0}).RequestTimeout(); got != 0 {
		t.Fatalf("expected no timeout, got %v", got)
	}
	if got := (AppConfig{RequestTimeoutSeconds: 5}).RequestTimeout(); got != 5*time.Second {
		t.Fatalf("expected 5s, got %v", got)
	}
	if got := (MongoConfig{}).Timeout(); got != 10*time.Second {
		t.Fatalf("expected 10s default, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:       AppConfig{Env: "production", ListMaxLimit: 100},
			Mongo:     MongoConfig{Database: "civic_reporter"},
			Auth:      AuthConfig{JWTSecret: "s3cret"},
			RateLimit: RateLimitConfig{IssuesPerDay: 5},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "default secret in production", mutate: func(c *Config) { c.Auth.JWTSecret = defaultJWTSecret }, wantErr: true},
		{name: "default secret in development", mutate: func(c *Config) {
			c.App.Env = "development"
			c.Auth.JWTSecret = defaultJWTSecret
		}},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimit.IssuesPerDay = -1 }, wantErr: true},
		{name: "zero list limit", mutate: func(c *Config) { c.App.ListMaxLimit = 0 }, wantErr: true},
		{name: "missing mongo database", mutate: func(c *Config) { c.Mongo.Database = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
