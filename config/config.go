/*
Package config loads server settings.

SOURCES (later wins):
  1. Built-in defaults
  2. .env file (optional, path from ENV_FILE, default ".env")
  3. Process environment
  4. Command-line flags

SETTINGS:
  -port      PORT            HTTP port (8080)
             APP_ADDR        Full listen address, overrides PORT (e.g. 127.0.0.1:9000)
  -db        DATABASE_PATH   SQLite path (portal.db); "memory" uses the in-process store
  -secret    JWT_SECRET      HS256 signing key
  -token-ttl TOKEN_TTL       Session lifetime (12h)
  -latency   MOCK_LATENCY    Artificial delay per API call (0)
  -cancel    CANCEL_POLICY   remove | retain (remove)
  -seed      SEED_SCENARIO   Scenario loaded into an empty store (default)
  -origins   CORS_ORIGINS    Comma separated allowed origins
             APP_ENV         development | production (development)
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/empowerflow/portal/leave"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const DevSecret = "dev-secret-change-me"

type Config struct {
	Port           int
	ListenAddr     string
	DBPath         string
	JWTSecret      string
	TokenTTL       time.Duration
	Latency        time.Duration
	CancelPolicy   leave.CancelPolicy
	SeedScenario   string
	AllowedOrigins []string
	Env            string
}

func (c *Config) Addr() string {
	if c.ListenAddr != "" {
		return c.ListenAddr
	}
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

// NewLogger builds the process logger: JSON at info level in production,
// console output at debug level otherwise.
func (c *Config) NewLogger() (*zap.Logger, error) {
	if c.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// UsesMemoryStore is true when no database file should be opened.
func (c *Config) UsesMemoryStore() bool { return c.DBPath == "memory" }

// Load reads .env, the environment and args (without the program name).
func Load(args []string) (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	port := fs.Int("port", getEnvInt("PORT", 8080), "HTTP server port")
	dbPath := fs.String("db", getEnv("DATABASE_PATH", "portal.db"), `SQLite database path ("memory" for the in-process store)`)
	secret := fs.String("secret", getEnv("JWT_SECRET", DevSecret), "JWT signing secret")
	ttl := fs.Duration("token-ttl", getEnvDuration("TOKEN_TTL", 12*time.Hour), "session token lifetime")
	latency := fs.Duration("latency", getEnvDuration("MOCK_LATENCY", 0), "artificial delay added to API calls")
	cancel := fs.String("cancel", getEnv("CANCEL_POLICY", "remove"), "cancel policy: remove or retain")
	seed := fs.String("seed", getEnv("SEED_SCENARIO", "default"), "scenario loaded into an empty store (empty to skip)")
	origins := fs.String("origins", getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"), "allowed CORS origins")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	policy, err := leave.ParseCancelPolicy(*cancel)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:           *port,
		ListenAddr:     strings.TrimSpace(os.Getenv("APP_ADDR")),
		DBPath:         *dbPath,
		JWTSecret:      *secret,
		TokenTTL:       *ttl,
		Latency:        *latency,
		CancelPolicy:   policy,
		SeedScenario:   strings.TrimSpace(*seed),
		AllowedOrigins: splitList(*origins),
		Env:            strings.ToLower(getEnv("APP_ENV", "development")),
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("database path is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if c.Latency < 0 {
		return errors.New("latency cannot be negative")
	}
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == DevSecret) {
		return errors.New("JWT_SECRET must be set in production")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
