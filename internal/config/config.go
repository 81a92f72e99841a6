package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Port                 string        `mapstructure:"PORT"`
	Env                  string        `mapstructure:"ENV"`
	LogLevel             string        `mapstructure:"LOG_LEVEL"`
	DuckDBPath           string        `mapstructure:"DUCKDB_PATH"`
	DuckDBAccessMode     string        `mapstructure:"DUCKDB_ACCESS_MODE"`
	DBMaxOpenConns       int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	AutoMigrate          bool          `mapstructure:"AUTO_MIGRATE"`
	SeedIfEmpty          bool          `mapstructure:"SEED_IF_EMPTY"`
	SeedPersons          int           `mapstructure:"SEED_PERSONS"`
	SeedRandomSeed       int64         `mapstructure:"SEED_RANDOM_SEED"`
	ConceptSetsFile      string        `mapstructure:"CONCEPT_SETS_FILE"`
	CORSOrigins          []string      `mapstructure:"CORS_ORIGINS"`
	RequestTimeout       time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RateLimitRPS         float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst       int           `mapstructure:"RATE_LIMIT_BURST"`
	OutcomesDefaultLimit int           `mapstructure:"OUTCOMES_DEFAULT_LIMIT"`
	OutcomesMaxLimit     int           `mapstructure:"OUTCOMES_MAX_LIMIT"`
	MetricsEnabled       bool          `mapstructure:"METRICS_ENABLED"`
	TLSEnabled           bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile          string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile           string        `mapstructure:"TLS_KEY_FILE"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DUCKDB_PATH", "DUCKDB_ACCESS_MODE", "DB_MAX_OPEN_CONNS",
	"AUTO_MIGRATE", "SEED_IF_EMPTY", "SEED_PERSONS", "SEED_RANDOM_SEED",
	"CONCEPT_SETS_FILE", "CORS_ORIGINS", "REQUEST_TIMEOUT",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"OUTCOMES_DEFAULT_LIMIT", "OUTCOMES_MAX_LIMIT", "METRICS_ENABLED",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DUCKDB_PATH", "data/omop.duckdb")
	v.SetDefault("DUCKDB_ACCESS_MODE", "read_write")
	v.SetDefault("DB_MAX_OPEN_CONNS", 4)
	v.SetDefault("AUTO_MIGRATE", true)
	v.SetDefault("SEED_IF_EMPTY", false)
	v.SetDefault("SEED_PERSONS", 20)
	v.SetDefault("SEED_RANDOM_SEED", 42)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("OUTCOMES_DEFAULT_LIMIT", 5000)
	v.SetDefault("OUTCOMES_MAX_LIMIT", 50000)
	v.SetDefault("METRICS_ENABLED", true)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DSN returns the DuckDB data source name, including the access mode when it
// is not the default.
func (c *Config) DSN() string {
	if c.DuckDBAccessMode == "" || c.DuckDBAccessMode == "read_write" {
		return c.DuckDBPath
	}
	return c.DuckDBPath + "?access_mode=" + c.DuckDBAccessMode
}

// Level parses LOG_LEVEL, falling back to info for an empty value.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(c.LogLevel))
}

// Validate checks that the configuration is usable before any resource is
// opened.
func (c *Config) Validate() error {
	if c.DuckDBPath == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	switch c.DuckDBAccessMode {
	case "", "read_write", "read_only":
	default:
		return fmt.Errorf("DUCKDB_ACCESS_MODE must be \"read_write\" or \"read_only\", got %q", c.DuckDBAccessMode)
	}
	if c.DuckDBAccessMode == "read_only" && (c.AutoMigrate || c.SeedIfEmpty) {
		return fmt.Errorf("AUTO_MIGRATE and SEED_IF_EMPTY require DUCKDB_ACCESS_MODE=read_write")
	}
	if c.DBMaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1, got %d", c.DBMaxOpenConns)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.SeedPersons < 2 {
		return fmt.Errorf("SEED_PERSONS must be at least 2, got %d", c.SeedPersons)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.OutcomesDefaultLimit < 1 {
		return fmt.Errorf("OUTCOMES_DEFAULT_LIMIT must be positive, got %d", c.OutcomesDefaultLimit)
	}
	if c.OutcomesMaxLimit < c.OutcomesDefaultLimit {
		return fmt.Errorf("OUTCOMES_MAX_LIMIT (%d) must not be below OUTCOMES_DEFAULT_LIMIT (%d)",
			c.OutcomesMaxLimit, c.OutcomesDefaultLimit)
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
