// Package config loads coordinator runtime configuration via viper (spec
// §6.4), generalized from the retrieved transaction-service's config
// package's default/env-binding idiom to this system's variable names.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/congo-pay/twopc/internal/coordinator/twophase"
)

// Config captures the coordinator's runtime configuration.
type Config struct {
	AppName           string
	Port              string
	LogLevel          string
	DatabaseURL       string
	RedisURL          string
	AuthSecret        string
	ServiceTokenTTL   time.Duration
	ShutdownPeriod    time.Duration
	IdempotencyTTL    time.Duration
	ParticipantURLs   []string
	ReconcileInterval time.Duration
	Protocol          twophase.Config
	AMQPURL           string
}

// Load reads configuration from environment variables and sane defaults.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_name", "twopc-coordinator")
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("idempotency_ttl", 24*time.Hour)
	v.SetDefault("service_token_ttl", 5*time.Minute)
	v.SetDefault("reconcile_interval", 10*time.Second)
	v.SetDefault("prepare_timeout_ms", 5000)
	v.SetDefault("commit_timeout_ms", 5000)
	v.SetDefault("transaction_timeout_ms", 30000)
	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_delay_ms", 1000)

	cfg := Config{
		AppName:           v.GetString("app_name"),
		Port:              v.GetString("port"),
		LogLevel:          strings.ToLower(v.GetString("log_level")),
		DatabaseURL:       v.GetString("database_url"),
		RedisURL:          v.GetString("redis_url"),
		AuthSecret:        v.GetString("token_secret"),
		ServiceTokenTTL:   v.GetDuration("service_token_ttl"),
		ShutdownPeriod:    v.GetDuration("shutdown_timeout"),
		IdempotencyTTL:    v.GetDuration("idempotency_ttl"),
		ReconcileInterval: v.GetDuration("reconcile_interval"),
		AMQPURL:           v.GetString("amqp_url"),
		Protocol: twophase.Config{
			PrepareTimeout:     time.Duration(v.GetInt("prepare_timeout_ms")) * time.Millisecond,
			CommitTimeout:      time.Duration(v.GetInt("commit_timeout_ms")) * time.Millisecond,
			TransactionTimeout: time.Duration(v.GetInt("transaction_timeout_ms")) * time.Millisecond,
			MaxRetries:         v.GetInt("max_retries"),
			RetryDelay:         time.Duration(v.GetInt("retry_delay_ms")) * time.Millisecond,
		},
	}

	if raw := v.GetString("participant_urls"); raw != "" {
		for _, u := range strings.Split(raw, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.ParticipantURLs = append(cfg.ParticipantURLs, u)
			}
		}
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}
	if cfg.AuthSecret == "" {
		return Config{}, fmt.Errorf("TOKEN_SECRET must be set")
	}
	if len(cfg.ParticipantURLs) == 0 {
		return Config{}, fmt.Errorf("PARTICIPANT_URLS must list at least one participant base URL")
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
