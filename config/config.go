package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	GinMode  string `env:"GIN_MODE" envDefault:"debug"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppURL   string `env:"APP_URL" envDefault:"http://localhost:8080"`
	DBUrl    string `env:"DATABASE_URL" envDefault:"sqlite://identity-sync.db"`

	// Identity provider
	WebhookSecret       string `env:"CLERK_USER_WEBHOOK_SECRET"`
	ClerkSecretKey      string `env:"CLERK_SECRET_KEY"`
	ClerkAPIURL         string `env:"CLERK_API_URL" envDefault:"https://api.clerk.com"`
	ClerkFrontendAPIURL string `env:"CLERK_FRONTEND_API_URL"`
	ClerkJWKSURL        string `env:"CLERK_JWKS_URL"`
	ClerkIssuer         string `env:"CLERK_ISSUER"`
	ClerkJWTKey         string `env:"CLERK_JWT_KEY"`
	SessionCookieName   string `env:"SESSION_COOKIE_NAME" envDefault:"__session"`

	// Redis
	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// Rate limiting
	RateLimitWindowSeconds    int `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
	RateLimitWebhookThreshold int `env:"RATE_LIMIT_WEBHOOK_THRESHOLD" envDefault:"120"`
	RateLimitRPCThreshold     int `env:"RATE_LIMIT_RPC_THRESHOLD" envDefault:"300"`
	SignupAttemptTTLMinutes   int `env:"SIGNUP_ATTEMPT_TTL_MINUTES" envDefault:"15"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

func LoadConfig() (*Config, error) {
	// .env is optional; production reads the real environment.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	cfg.ClerkAPIURL = strings.TrimRight(cfg.ClerkAPIURL, "/")
	cfg.ClerkFrontendAPIURL = strings.TrimRight(cfg.ClerkFrontendAPIURL, "/")

	if cfg.WebhookSecret == "" {
		log.Println("WARNING: CLERK_USER_WEBHOOK_SECRET is empty. Every webhook delivery will be rejected.")
	}
	if cfg.RedisURL == "" {
		log.Println("WARNING: REDIS_URL not configured. Rate limiting and signup attempts will use in-memory storage.")
	}

	return cfg, nil
}

// UsesPostgres reports whether DATABASE_URL points at PostgreSQL rather than SQLite.
func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DBUrl, "postgres://") || strings.HasPrefix(c.DBUrl, "postgresql://")
}

// SQLitePath strips the sqlite:// scheme from DATABASE_URL.
func (c *Config) SQLitePath() string {
	return strings.TrimPrefix(c.DBUrl, "sqlite://")
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c *Config) SignupAttemptTTL() time.Duration {
	return time.Duration(c.SignupAttemptTTLMinutes) * time.Minute
}

// JWKSURL falls back to the frontend API's well-known endpoint.
func (c *Config) JWKSURL() string {
	if c.ClerkJWKSURL != "" {
		return c.ClerkJWKSURL
	}
	if c.ClerkFrontendAPIURL == "" {
		return ""
	}
	return c.ClerkFrontendAPIURL + "/.well-known/jwks.json"
}

// BackendAPIURL is the versioned Backend API root the provider SDK expects.
func (c *Config) BackendAPIURL() string {
	if strings.HasSuffix(c.ClerkAPIURL, "/v1") {
		return c.ClerkAPIURL
	}
	return c.ClerkAPIURL + "/v1"
}

// AllowedOrigins is the CORS allow-list; APP_URL is always included.
func (c *Config) AllowedOrigins() []string {
	origins := []string{c.AppURL}
	for _, o := range c.CORSAllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" && o != c.AppURL {
			origins = append(origins, o)
		}
	}
	return origins
}

func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}
