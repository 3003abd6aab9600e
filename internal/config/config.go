package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	DB          DBConfig
	Auth        AuthConfig
	Metadata    MetadataConfig
	Preview     PreviewConfig
	RateLimit   RateLimitConfig
	Mail        MailConfig
	Bot         BotConfig
	Maintenance MaintenanceConfig
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	CORSOrigins  string        `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
	TrustProxy   bool          `envconfig:"TRUST_PROXY" default:"false"`
	PublicURL    string        `envconfig:"PUBLIC_URL" default:"http://localhost:3000"`
}

// AllowedOrigins splits CORSOrigins into a trimmed list
func (c *ServerConfig) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// DBConfig holds database configuration
type DBConfig struct {
	Driver   string `envconfig:"DB_DRIVER" default:"mysql"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASSWORD"`
	Database string `envconfig:"DB_NAME" default:"vidnest"`
	Path     string `envconfig:"DB_PATH" default:"vidnest.db"`
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"10"`
}

// AuthConfig holds token and session configuration
type AuthConfig struct {
	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL        time.Duration `envconfig:"JWT_TTL" default:"720h"`
	CookieName    string        `envconfig:"COOKIE_NAME" default:"token"`
	CookieSecure  bool          `envconfig:"COOKIE_SECURE" default:"false"`
	ResetTokenTTL time.Duration `envconfig:"RESET_TOKEN_TTL" default:"1h"`
	LinkCodeTTL   time.Duration `envconfig:"LINK_CODE_TTL" default:"15m"`
}

// MetadataConfig holds configuration for the external link-unfurling API
type MetadataConfig struct {
	APIURL    string        `envconfig:"METADATA_API_URL" default:"https://api.microlink.io"`
	APIKey    string        `envconfig:"METADATA_API_KEY"`
	Timeout   time.Duration `envconfig:"METADATA_TIMEOUT" default:"10s"`
	UserAgent string        `envconfig:"METADATA_USER_AGENT" default:"VidNest/1.0 (+https://github.com/user/vidnest)"`
	RateLimit float64       `envconfig:"METADATA_RATE_LIMIT" default:"5"`
}

// PreviewConfig holds configuration for the raw link-preview scraper
type PreviewConfig struct {
	Timeout        time.Duration `envconfig:"PREVIEW_TIMEOUT" default:"10s"`
	BrowserEnabled bool          `envconfig:"PREVIEW_BROWSER_ENABLED" default:"false"`
}

// RateLimitConfig holds API rate limiting configuration
type RateLimitConfig struct {
	RPS           float64 `envconfig:"RATE_LIMIT_RPS" default:"10"`
	Burst         int     `envconfig:"RATE_LIMIT_BURST" default:"30"`
	AuthPerMinute int     `envconfig:"AUTH_RATE_LIMIT_PER_MIN" default:"20"`
}

// MailConfig holds SMTP configuration; an empty Host logs mails instead of sending
type MailConfig struct {
	Host     string `envconfig:"SMTP_HOST"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	User     string `envconfig:"SMTP_USER"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"MAIL_FROM" default:"VidNest <no-reply@vidnest.local>"`
}

// BotConfig holds Telegram share bot configuration; an empty Token disables the bot
type BotConfig struct {
	Token string `envconfig:"BOT_TOKEN"`
}

// Enabled reports whether the share bot should run
func (c *BotConfig) Enabled() bool {
	return c.Token != ""
}

// MaintenanceConfig holds configuration for the opt-in periodic housekeeping
type MaintenanceConfig struct {
	Enabled      bool          `envconfig:"MAINTENANCE_ENABLED" default:"false"`
	InitialDelay time.Duration `envconfig:"MAINTENANCE_INITIAL_DELAY" default:"5s"`
	Interval     time.Duration `envconfig:"MAINTENANCE_INTERVAL" default:"15m"`
}

// DSN returns the data source name for the configured driver
func (c *DBConfig) DSN() string {
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case "sqlite":
		return c.Path
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.Database)
	}
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	if err := envconfig.Process("", &cfg.DB); err != nil {
		return nil, fmt.Errorf("failed to load db config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Auth); err != nil {
		return nil, fmt.Errorf("failed to load auth config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Metadata); err != nil {
		return nil, fmt.Errorf("failed to load metadata config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Preview); err != nil {
		return nil, fmt.Errorf("failed to load preview config: %w", err)
	}

	if err := envconfig.Process("", &cfg.RateLimit); err != nil {
		return nil, fmt.Errorf("failed to load rate limit config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Mail); err != nil {
		return nil, fmt.Errorf("failed to load mail config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Bot); err != nil {
		return nil, fmt.Errorf("failed to load bot config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Maintenance); err != nil {
		return nil, fmt.Errorf("failed to load maintenance config: %w", err)
	}

	var top struct {
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	}
	if err := envconfig.Process("", &top); err != nil {
		return nil, fmt.Errorf("failed to load log config: %w", err)
	}
	cfg.LogLevel = top.LogLevel

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	switch c.DB.Driver {
	case "mysql", "postgres":
		if c.DB.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for driver %s", c.DB.Driver)
		}
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("DB_PATH is required for driver sqlite")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be one of mysql, postgres, sqlite")
	}
	if c.Metadata.Timeout <= 0 {
		return fmt.Errorf("METADATA_TIMEOUT must be positive")
	}
	if c.Metadata.RateLimit <= 0 {
		return fmt.Errorf("METADATA_RATE_LIMIT must be positive")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.RateLimit.AuthPerMinute <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT_PER_MIN must be positive")
	}
	if c.Maintenance.Enabled && c.Maintenance.Interval <= 0 {
		return fmt.Errorf("MAINTENANCE_INTERVAL must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	return nil
}
