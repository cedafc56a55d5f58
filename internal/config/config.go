// Package config loads application settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	BaseURL           string        `mapstructure:"APP_BASE_URL"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	LogFile           string        `mapstructure:"LOG_FILE"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	LogMaxBytes       int64         `mapstructure:"LOG_MAX_BYTES"`
	LogMaxBackups     int           `mapstructure:"LOG_MAX_BACKUPS"`
	NoEmailVerify     bool          `mapstructure:"NO_EMAIL_VERIFY"`
	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`
	RememberTTL       time.Duration `mapstructure:"REMEMBER_TTL"`
	BcryptCost        int           `mapstructure:"BCRYPT_COST"`
	LoginRedirect     string        `mapstructure:"LOGIN_REDIRECT"`
	LogoutRedirect    string        `mapstructure:"LOGOUT_REDIRECT"`
	SweepInterval     time.Duration `mapstructure:"SWEEP_INTERVAL"`
	MigrationsOnStart bool          `mapstructure:"MIGRATIONS_ON_START"`

	RawAllowedOrigins  string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	CORSFallbackOrigin string `mapstructure:"CORS_FALLBACK_ORIGIN"`
	RawTrustedProxies  string `mapstructure:"TRUSTED_PROXIES"`

	EmailHost     string `mapstructure:"EMAIL_SERVER_HOST"`
	EmailPort     int    `mapstructure:"EMAIL_SERVER_PORT"`
	EmailUser     string `mapstructure:"EMAIL_SERVER_USER"`
	EmailPassword string `mapstructure:"EMAIL_SERVER_PASSWORD"`
	EmailFrom     string `mapstructure:"EMAIL_FROM"`
	EmailSecure   bool   `mapstructure:"EMAIL_SERVER_SECURE"`

	AllowedOrigins []string    `mapstructure:"-"`
	TrustedProxies []string    `mapstructure:"-"`
	Email          EmailConfig `mapstructure:"-"`
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Secure   bool
}

func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Port != 0 && e.From != ""
}

var defaults = map[string]any{
	"PORT":                  "8080",
	"APP_BASE_URL":          "http://localhost",
	"DATABASE_URL":          "",
	"REDIS_URL":             "redis://localhost:6379",
	"LOG_FILE":              "logs/server.log",
	"LOG_LEVEL":             "info",
	"LOG_MAX_BYTES":         int64(10 << 20),
	"LOG_MAX_BACKUPS":       5,
	"NO_EMAIL_VERIFY":       false,
	"SESSION_TTL":           "8h",
	"REMEMBER_TTL":          "720h",
	"BCRYPT_COST":           12,
	"LOGIN_REDIRECT":        "dashboard.php",
	"LOGOUT_REDIRECT":       "login.html",
	"SWEEP_INTERVAL":        "0s",
	"MIGRATIONS_ON_START":   false,
	"CORS_ALLOWED_ORIGINS":  "http://localhost,http://localhost:3000,http://localhost:8080,http://127.0.0.1,http://127.0.0.1:8080",
	"CORS_FALLBACK_ORIGIN":  "http://localhost",
	"TRUSTED_PROXIES":       "",
	"EMAIL_SERVER_HOST":     "",
	"EMAIL_SERVER_PORT":     587,
	"EMAIL_SERVER_USER":     "",
	"EMAIL_SERVER_PASSWORD": "",
	"EMAIL_FROM":            "",
	"EMAIL_SERVER_SECURE":   false,
}

// Load reads .env when present, then the environment. Environment variables win.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return Config{}, errors.New("BCRYPT_COST must be between 4 and 31")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, errors.New("SESSION_TTL must be positive")
	}
	if cfg.RememberTTL <= 0 {
		return Config{}, errors.New("REMEMBER_TTL must be positive")
	}
	if cfg.SweepInterval < 0 {
		cfg.SweepInterval = 0
	}

	cfg.BaseURL = strings.TrimRight(clean(cfg.BaseURL), "/")
	cfg.AllowedOrigins = parseList(cfg.RawAllowedOrigins)
	cfg.TrustedProxies = parseList(cfg.RawTrustedProxies)
	if cfg.CORSFallbackOrigin == "" || cfg.CORSFallbackOrigin == "*" {
		return Config{}, errors.New("CORS_FALLBACK_ORIGIN must be a concrete origin")
	}

	if cfg.EmailPort <= 0 {
		cfg.EmailPort = 587
	}
	cfg.Email = EmailConfig{
		Host:     clean(cfg.EmailHost),
		Port:     cfg.EmailPort,
		Username: clean(cfg.EmailUser),
		Password: clean(cfg.EmailPassword),
		From:     clean(cfg.EmailFrom),
		Secure:   cfg.EmailSecure,
	}

	return cfg, nil
}

func clean(val string) string {
	return strings.Trim(val, "\"' \t\r\n")
}

func parseList(val string) []string {
	parts := strings.Split(val, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
