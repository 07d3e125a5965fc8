package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	App       AppConfig
	Auth      AuthConfig
	Store     string `env:"STORE, default=mongo"`
	Mongo     MongoConfig
	Redis     RedisConfig
	Google    GoogleConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
	Workers   int `env:"MAIL_WORKERS, default=4"`
}

type AppConfig struct {
	Name     string `env:"APP_NAME,  default=Natours"`
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	URL      string `env:"APP_URL,   default=http://localhost:8080"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
}

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET"`
	JWTTTL     time.Duration `env:"JWT_EXPIRES_IN,        default=2160h"`
	CookieTTL  time.Duration `env:"JWT_COOKIE_EXPIRES_IN, default=24h"`
	ResetTTL   time.Duration `env:"PASSWORD_RESET_TTL,    default=10m"`
	TrustProxy bool          `env:"TRUST_PROXY,           default=true"`
	// TrustedProxies lists CIDRs of public proxies allowed to set
	// X-Forwarded-For. Private and loopback ranges are always trusted.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=natours"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
}

type MailConfig struct {
	ResendAPIKey string `env:"RESEND_API_KEY"`
	From         string `env:"EMAIL_FROM, default=Natours <hello@natours.io>"`
}

type RateLimitConfig struct {
	Requests int           `env:"AUTH_RATE_LIMIT,        default=10"`
	Window   time.Duration `env:"AUTH_RATE_LIMIT_WINDOW, default=15m"`
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

// GoogleEnabled reports whether Google OAuth credentials are configured.
func (c *Config) GoogleEnabled() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != ""
}

// ProxyRanges parses TrustedProxies.
func (c *Config) ProxyRanges() ([]*net.IPNet, error) {
	ranges := make([]*net.IPNet, 0, len(c.Auth.TrustedProxies))
	for _, cidr := range c.Auth.TrustedProxies {
		_, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		ranges = append(ranges, ipNet)
	}
	return ranges, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.JWTTTL <= 0 || c.Auth.CookieTTL <= 0 || c.Auth.ResetTTL <= 0 {
		errs = append(errs, errors.New("token and cookie lifetimes must be positive"))
	}
	if c.Store != "mongo" && c.Store != "memory" {
		errs = append(errs, fmt.Errorf("STORE must be mongo or memory, got %q", c.Store))
	}
	if c.IsProduction() && c.Mail.ResendAPIKey == "" {
		errs = append(errs, errors.New("RESEND_API_KEY is required in production"))
	}
	if _, err := c.ProxyRanges(); err != nil {
		errs = append(errs, err)
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit must be positive"))
	}
	return errors.Join(errs...)
}

// Load reads an optional .env file and then the process environment.
func Load(ctx context.Context) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
