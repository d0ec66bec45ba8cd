package config

import (
	"testing"
	"time"
)

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "production", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "doublecheck", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret", JWTIssuer: "iss", JWTAudience: "aud"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "doublecheck", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}

func TestValidate_CheckDefaults(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "doublecheck"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Check.VelocityLimit != 10 {
		t.Fatalf("expected velocity limit default 10, got %d", c.Check.VelocityLimit)
	}
	if c.Check.VelocityWindow != 24*time.Hour {
		t.Fatalf("expected velocity window default 24h, got %s", c.Check.VelocityWindow)
	}
	if c.Check.PendingListLimit != 50 {
		t.Fatalf("expected pending list limit default 50, got %d", c.Check.PendingListLimit)
	}
}

func TestValidate_ReviewThresholdMustNotExceedDeny(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "doublecheck"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
		Check: CheckConfig{ReviewAmountMinor: 1000, DenyAmountMinor: 500},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for review threshold above deny threshold")
	}
}

func TestSummary_ContainsNoSecrets(t *testing.T) {
	c := Config{
		App:  AppConfig{Env: "production", Port: 8080},
		DB:   DBConfig{Password: "hunter2"},
		Auth: AuthConfig{JWTSecret: "topsecret"},
	}
	s := c.Summary()
	for k, v := range s {
		str, _ := v.(string)
		if str == "hunter2" || str == "topsecret" {
			t.Fatalf("summary leaked a secret under %q", k)
		}
	}
	if s["env"] != "production" {
		t.Fatalf("expected env in summary")
	}
}
