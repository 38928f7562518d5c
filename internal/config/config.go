// Package config loads folio settings from the environment, an optional .env
// file and an optional YAML file. Environment variables win over YAML values;
// secrets are read from the environment only.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DevPassphrase is used outside release mode when ADMIN_PASSPHRASE is unset.
const DevPassphrase = "letmein"

type Config struct {
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	GinMode  string `yaml:"gin_mode" env:"GIN_MODE" env-default:"debug"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// SecureCookies marks the admin session cookie Secure. Enable behind TLS.
	SecureCookies bool     `yaml:"secure_cookies" env:"SECURE_COOKIES" env-default:"false"`
	CORSOrigins   []string `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:","`

	Store     StoreConfig     `yaml:"store"`
	Admin     AdminConfig     `yaml:"admin"`
	AI        AIConfig        `yaml:"ai"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Contact   ContactConfig   `yaml:"contact"`
	Terminal  TerminalConfig  `yaml:"terminal"`
	Prompts   PromptsConfig   `yaml:"prompts"`
	Viewport  ViewportConfig  `yaml:"viewport"`
	Analytics AnalyticsConfig `yaml:"analytics"`

	// Warnings collects non-fatal notes produced while loading, logged by the
	// caller once a logger exists.
	Warnings []string `yaml:"-"`
}

type StoreConfig struct {
	Backend       string `yaml:"backend" env:"STORE_BACKEND" env-default:"sqlite"`
	SQLitePath    string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"data/portfolio.db"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"-" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
	DatabaseURL   string `yaml:"-" env:"DATABASE_URL"`
	ProjectsKey   string `yaml:"projects_key" env:"PROJECTS_KEY" env-default:"portfolioProjects"`
	QuotaBytes    int    `yaml:"quota_bytes" env:"STORE_QUOTA_BYTES" env-default:"5242880"`
}

type AdminConfig struct {
	Passphrase    string `yaml:"-" env:"ADMIN_PASSPHRASE"`
	SessionSecret string `yaml:"-" env:"SESSION_SECRET"`
}

type AIConfig struct {
	Provider string        `yaml:"provider" env:"AI_PROVIDER"`
	APIKey   string        `yaml:"-" env:"AI_API_KEY"`
	Model    string        `yaml:"model" env:"AI_MODEL"`
	BaseURL  string        `yaml:"base_url" env:"AI_BASE_URL"`
	Timeout  time.Duration `yaml:"timeout" env:"AI_TIMEOUT" env-default:"30s"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST" env-default:"smtp.gmail.com"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"-" env:"SMTP_USER"`
	Password string `yaml:"-" env:"SMTP_PASS"`
	To       string `yaml:"to" env:"TO_EMAIL"`
}

type ContactConfig struct {
	PerHour int `yaml:"per_hour" env:"CONTACT_PER_HOUR" env-default:"5"`
	Burst   int `yaml:"burst" env:"CONTACT_BURST" env-default:"2"`
}

// TerminalConfig rate limits the public AI terminal per client IP.
type TerminalConfig struct {
	PerHour int `yaml:"per_hour" env:"TERMINAL_PER_HOUR" env-default:"20"`
	Burst   int `yaml:"burst" env:"TERMINAL_BURST" env-default:"3"`
}

// PromptsConfig points at a markdown prompt library. Empty uses the built-in one.
type PromptsConfig struct {
	File string `yaml:"file" env:"PROMPTS_FILE"`
}

type ViewportConfig struct {
	Mode     string        `yaml:"mode" env:"VIEWPORT_MODE" env-default:"scroll"`
	Throttle time.Duration `yaml:"throttle" env:"VIEWPORT_THROTTLE" env-default:"100ms"`
	LeadIn   float64       `yaml:"lead_in" env:"VIEWPORT_LEAD_IN" env-default:"200"`
	MaxViews int           `yaml:"max_views" env:"VIEWPORT_MAX_VIEWS" env-default:"1024"`
}

type AnalyticsConfig struct {
	Enabled         bool          `yaml:"enabled" env:"ANALYTICS_ENABLED" env-default:"true"`
	Salt            string        `yaml:"-" env:"ANALYTICS_SALT" env-default:"folio-visitors"`
	Retention       time.Duration `yaml:"retention" env:"VISITOR_RETENTION" env-default:"8760h"`
	CleanupSchedule string        `yaml:"cleanup_schedule" env:"CLEANUP_SCHEDULE" env-default:"@daily"`
	XCloudURL       string        `yaml:"xcloud_url" env:"XCLOUD_URL" env-default:"https://x.com"`
}

// Release reports whether gin runs in release mode.
func (c *Config) Release() bool { return c.GinMode == "release" }

// Load reads .env (if present), then path as YAML when it exists, then the
// environment. An empty path skips the YAML step.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("could not load .env: %v", err))
	}

	var err error
	if path != "" && fileExists(path) {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))

	if c.Admin.Passphrase == "" && !c.Release() {
		c.Admin.Passphrase = DevPassphrase
		c.Warnings = append(c.Warnings, "Using default admin passphrase. Set ADMIN_PASSPHRASE environment variable.")
	}
	if c.Admin.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return fmt.Errorf("failed to generate session secret: %w", err)
		}
		c.Admin.SessionSecret = secret
		c.Warnings = append(c.Warnings, "SESSION_SECRET not set; admin sessions will not survive a restart.")
	}
	if c.SMTP.To == "" {
		c.SMTP.To = c.SMTP.User
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown GIN_MODE %q", c.GinMode)
	}
	switch c.Store.Backend {
	case "memory", "sqlite", "redis":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Admin.Passphrase == "" {
		return fmt.Errorf("ADMIN_PASSPHRASE is required in release mode")
	}
	switch c.AI.Provider {
	case "", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", c.AI.Provider)
	}
	if c.AI.Provider != "" && c.AI.APIKey == "" {
		return fmt.Errorf("AI_API_KEY is required when AI_PROVIDER is set")
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive")
	}
	switch c.Viewport.Mode {
	case "scroll", "visibility":
	default:
		return fmt.Errorf("unknown VIEWPORT_MODE %q", c.Viewport.Mode)
	}
	if c.Viewport.Throttle <= 0 {
		return fmt.Errorf("VIEWPORT_THROTTLE must be positive")
	}
	if c.Viewport.LeadIn < 0 {
		return fmt.Errorf("VIEWPORT_LEAD_IN must not be negative")
	}
	if c.Contact.PerHour <= 0 || c.Contact.Burst <= 0 {
		return fmt.Errorf("CONTACT_PER_HOUR and CONTACT_BURST must be positive")
	}
	if c.Terminal.PerHour <= 0 || c.Terminal.Burst <= 0 {
		return fmt.Errorf("TERMINAL_PER_HOUR and TERMINAL_BURST must be positive")
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
