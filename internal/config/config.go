package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/wekeepgrowing/restoration-backend/pkg/config"
	"github.com/wekeepgrowing/restoration-backend/pkg/logger"
)

const serviceName = "restore"

type Config struct {
	Service   ServiceConfig   `mapstructure:"service" yaml:"service"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Log       logger.Config   `mapstructure:"log" yaml:"log"`
	JWT       JWTConfig       `mapstructure:"jwt" yaml:"jwt"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Inference InferenceConfig `mapstructure:"inference" yaml:"inference"`
	Ledger    LedgerConfig    `mapstructure:"ledger" yaml:"ledger"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`

	// PacksFile is resolved relative to the loaded config file when not absolute.
	PacksFile string `mapstructure:"packs_file" yaml:"packs_file"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"service.name":                  "restore",
		"service.free_tier_limit":       1,
		"service.quota_reservation_ttl": "10m",
		"server.http.port":              8080,
		"server.http.body_limit":        "25M",
		"server.grpc.port":              9090,
		"database.port":                 5432,
		"database.max_open_conns":       25,
		"database.max_idle_conns":       5,
		"database.conn_max_lifetime":    "30m",
		"database.conn_max_idle_time":   "5m",
		"log.level":                     "info",
		"log.format":                    "json",
		"log.output":                    "stdout",
		"inference.timeout":             "60s",
		"inference.retry_backoff":       "1s",
		"ledger.expiry_interval":        "1h",
		"rate_limit.backend":            "memory",
		"rate_limit.requests":           30,
		"rate_limit.window":             "1m",
		"rate_limit.burst":              10,
		"redis.channel":                 "restoration.events",
		"storage.presign_ttl":           "24h",
		"storage.preview_widths":        []int{256, 1024},
		"packs_file":                    "packs.yaml",
	}
}

// LoadConfig reads configs/<env>/restore.yaml with RESTORE_* environment overrides.
func LoadConfig() (*Config, error) {
	v, err := pkgconfig.Load(serviceName, pkgconfig.Options{Defaults: defaults()})
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.PacksFile = resolvePath(pkgconfig.Dir(v), cfg.PacksFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Service.StripeWebhookSecret == "" {
		return fmt.Errorf("service.stripe_webhook_secret is required")
	}
	if c.Service.FreeTierLimit < 0 {
		return fmt.Errorf("service.free_tier_limit must not be negative")
	}
	if c.Inference.Timeout <= 0 {
		return fmt.Errorf("inference.timeout must be positive")
	}
	if c.Ledger.ExpiryInterval < time.Minute {
		return fmt.Errorf("ledger.expiry_interval must be at least 1m")
	}
	return nil
}
