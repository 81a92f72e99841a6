package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Port:                 "8000",
		Env:                  "development",
		LogLevel:             "info",
		DuckDBPath:           ":memory:",
		DuckDBAccessMode:     "read_write",
		DBMaxOpenConns:       4,
		AutoMigrate:          true,
		SeedPersons:          20,
		RequestTimeout:       30 * time.Second,
		OutcomesDefaultLimit: 5000,
		OutcomesMaxLimit:     50000,
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.DuckDBPath != "data/omop.duckdb" {
		t.Errorf("expected default duckdb path, got %s", cfg.DuckDBPath)
	}
	if cfg.OutcomesDefaultLimit != 5000 {
		t.Errorf("expected default outcomes limit 5000, got %d", cfg.OutcomesDefaultLimit)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("expected 30s request timeout, got %s", cfg.RequestTimeout)
	}
	if !cfg.MetricsEnabled {
		t.Error("expected metrics enabled by default")
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("expected CORS origins [*], got %v", cfg.CORSOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DUCKDB_PATH", "/tmp/test.duckdb")
	t.Setenv("OUTCOMES_MAX_LIMIT", "100000")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, http://example.org")
	t.Setenv("REQUEST_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DuckDBPath != "/tmp/test.duckdb" {
		t.Errorf("expected DUCKDB_PATH from env, got %s", cfg.DuckDBPath)
	}
	if cfg.OutcomesMaxLimit != 100000 {
		t.Errorf("expected OUTCOMES_MAX_LIMIT 100000, got %d", cfg.OutcomesMaxLimit)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.RequestTimeout)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://example.org" {
		t.Errorf("expected two trimmed origins, got %v", cfg.CORSOrigins)
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
	if !c.IsProduction() {
		t.Error("expected IsProduction() to return true for production")
	}
}

func TestConfig_DSN(t *testing.T) {
	c := &Config{DuckDBPath: "data/omop.duckdb", DuckDBAccessMode: "read_write"}
	if got := c.DSN(); got != "data/omop.duckdb" {
		t.Errorf("DSN() = %q", got)
	}
	c.DuckDBAccessMode = "read_only"
	if got := c.DSN(); got != "data/omop.duckdb?access_mode=read_only" {
		t.Errorf("DSN() = %q", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing path", func(c *Config) { c.DuckDBPath = "" }, true},
		{"bad access mode", func(c *Config) { c.DuckDBAccessMode = "exclusive" }, true},
		{"read only with migrate", func(c *Config) { c.DuckDBAccessMode = "read_only" }, true},
		{"read only without writes", func(c *Config) {
			c.DuckDBAccessMode = "read_only"
			c.AutoMigrate = false
		}, false},
		{"zero conns", func(c *Config) { c.DBMaxOpenConns = 0 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"too few seed persons", func(c *Config) { c.SeedPersons = 1 }, true},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, true},
		{"max below default", func(c *Config) { c.OutcomesMaxLimit = 10 }, true},
		{"tls without cert", func(c *Config) { c.TLSEnabled = true }, true},
		{"tls complete", func(c *Config) {
			c.TLSEnabled = true
			c.TLSCertFile = "cert.pem"
			c.TLSKeyFile = "key.pem"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
