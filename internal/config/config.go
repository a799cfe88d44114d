// Package config loads server settings from defaults, an optional config
// file and DUOTRAK_* environment variables, in increasing priority.
//
//	DUOTRAK_JWT_SECRET=... DUOTRAK_PORT=9090 ./server
//	DUOTRAK_CONFIG=/etc/duotrak.yaml ./server
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "DUOTRAK"

type Config struct {
	Port   int    `mapstructure:"port"`
	DBPath string `mapstructure:"db_path"`

	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`

	FrontendURL         string        `mapstructure:"frontend_url"`
	InviteTTL           time.Duration `mapstructure:"invite_ttl"`
	InviteRatePerMinute int           `mapstructure:"invite_rate_per_minute"`

	ResendAPIKey string `mapstructure:"resend_api_key"`
	EmailFrom    string `mapstructure:"email_from"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "data/duotrak.db")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_issuer", "")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("invite_ttl", "168h")
	v.SetDefault("invite_rate_per_minute", 5)
	v.SetDefault("resend_api_key", "")
	v.SetDefault("email_from", "DuoTrak <noreply@duotrak.app>")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads and validates the configuration. The config file named by
// DUOTRAK_CONFIG, if any, may be YAML, TOML or JSON.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("config"); err != nil {
		return nil, fmt.Errorf("config: binding config path: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("jwt_secret must be at least 16 characters"))
	}
	if u, err := url.Parse(c.FrontendURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("frontend_url %q is not an absolute URL", c.FrontendURL))
	}
	if c.InviteTTL <= 0 {
		errs = append(errs, errors.New("invite_ttl must be positive"))
	}
	if c.InviteRatePerMinute <= 0 {
		errs = append(errs, errors.New("invite_rate_per_minute must be positive"))
	}
	if c.ResendAPIKey != "" && c.EmailFrom == "" {
		errs = append(errs, errors.New("email_from is required when resend_api_key is set"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q must be text or json", c.LogFormat))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q is not a valid level", s)
	}
	return level, nil
}
