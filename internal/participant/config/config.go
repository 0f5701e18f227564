// Package config loads participant runtime configuration, in the shape of
// the teacher's internal/config.Config but backed by viper so environment
// variables and defaults compose; no config file is read.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures a participant's runtime configuration.
type Config struct {
	AppName        string
	Port           string
	LogLevel       string
	DatabaseURL    string
	AuthSecret     string
	ShutdownPeriod time.Duration
	LockTimeout    time.Duration
}

// Load reads configuration from environment variables and sane defaults for
// local development. Port, log level and database URL prefer the
// PARTICIPANT_-prefixed variable and fall back to the unprefixed name
// (PORT, LOG_LEVEL, DATABASE_URL); the other values are read unprefixed
// only. AuthSecret in
// particular reads TOKEN_SECRET first: HS256 is symmetric, and both
// binaries must agree on the one secret named by spec §6.4, so the shared
// name takes priority over the participant-specific fallbacks.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_name", "twopc-participant")
	v.SetDefault("port", "8081")
	v.SetDefault("log_level", "info")
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("lock_timeout", 30*time.Second)

	cfg := Config{
		AppName:        v.GetString("app_name"),
		Port:           firstNonEmpty(v.GetString("participant_port"), v.GetString("port")),
		LogLevel:       strings.ToLower(firstNonEmpty(v.GetString("participant_log_level"), v.GetString("log_level"))),
		DatabaseURL:    firstNonEmpty(v.GetString("participant_database_url"), v.GetString("database_url")),
		AuthSecret:     firstNonEmpty(v.GetString("token_secret"), v.GetString("participant_auth_secret"), v.GetString("twopc_auth_secret")),
		ShutdownPeriod: v.GetDuration("shutdown_timeout"),
		LockTimeout:    v.GetDuration("lock_timeout"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("PARTICIPANT_DATABASE_URL or DATABASE_URL must be set")
	}
	if cfg.AuthSecret == "" {
		return Config{}, fmt.Errorf("TOKEN_SECRET, PARTICIPANT_AUTH_SECRET, or TWOPC_AUTH_SECRET must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
