package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("JWT_TTL_MINUTES", "")
	t.Setenv("AUTH_REQUIRE_VERIFIED", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg := Load()

	if cfg.Env != "dev" {
		t.Fatalf("Env = %q, want dev", cfg.Env)
	}
	if cfg.Port != 3000 {
		t.Fatalf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.TokenTTL() != time.Hour {
		t.Fatalf("TokenTTL = %s, want 1h", cfg.TokenTTL())
	}
	if !cfg.RequireVerified {
		t.Fatalf("RequireVerified should default to true")
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("CORSOrigins = %v, want [*]", cfg.CORSOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_TTL_MINUTES", "5")
	t.Setenv("AUTH_REQUIRE_VERIFIED", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("WORKER_POLL_INTERVAL", "250ms")
	t.Setenv("PUBLIC_BASE_URL", "https://contacts.example.com/")

	cfg := Load()

	if cfg.Port != 8080 {
		t.Fatalf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.TokenTTL() != 5*time.Minute {
		t.Fatalf("TokenTTL = %s, want 5m", cfg.TokenTTL())
	}
	if cfg.RequireVerified {
		t.Fatalf("RequireVerified should be false")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.WorkerPollInterval != 250*time.Millisecond {
		t.Fatalf("WorkerPollInterval = %s", cfg.WorkerPollInterval)
	}
	if cfg.PublicBaseURL != "https://contacts.example.com" {
		t.Fatalf("PublicBaseURL = %q", cfg.PublicBaseURL)
	}
}

func TestValidate(t *testing.T) {
	base := Config{Env: "prod", JWTSecret: "s", Store: "postgres", AvatarStore: "local", MailDelivery: "log"}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "missing_secret_in_prod", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: true},
		{name: "missing_secret_in_dev", mutate: func(c *Config) { c.JWTSecret = ""; c.Env = "dev" }},
		{name: "unknown_store", mutate: func(c *Config) { c.Store = "mongo" }, wantErr: true},
		{name: "s3_without_bucket", mutate: func(c *Config) { c.AvatarStore = "s3" }, wantErr: true},
		{name: "smtp_without_key", mutate: func(c *Config) { c.MailDelivery = "smtp" }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
