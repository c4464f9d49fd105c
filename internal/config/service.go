package config

import "time"

type ServiceConfig struct {
	Name                string        `mapstructure:"name" yaml:"name"`
	Environment         string        `mapstructure:"environment" yaml:"environment"`
	Version             string        `mapstructure:"version" yaml:"version"`
	ClientURL           string        `mapstructure:"client_url" yaml:"client_url"`
	StripeSecretKey     string        `mapstructure:"stripe_secret_key" yaml:"stripe_secret_key"`
	StripeWebhookSecret string        `mapstructure:"stripe_webhook_secret" yaml:"stripe_webhook_secret"`
	FreeTierLimit       int           `mapstructure:"free_tier_limit" yaml:"free_tier_limit"`
	UpgradeURL          string        `mapstructure:"upgrade_url" yaml:"upgrade_url"`
	// QuotaReservationTTL is how long an unfinished free restore holds the fingerprint's slot.
	QuotaReservationTTL time.Duration `mapstructure:"quota_reservation_ttl" yaml:"quota_reservation_ttl"`
}

type StorageConfig struct {
	Bucket          string        `mapstructure:"bucket" yaml:"bucket"`
	Region          string        `mapstructure:"region" yaml:"region"`
	Endpoint        string        `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	UsePathStyle    bool          `mapstructure:"use_path_style" yaml:"use_path_style"`
	PresignTTL      time.Duration `mapstructure:"presign_ttl" yaml:"presign_ttl"`
	PreviewWidths   []int         `mapstructure:"preview_widths" yaml:"preview_widths"`
}

type InferenceConfig struct {
	URL          string        `mapstructure:"url" yaml:"url"`
	APIKey       string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
}

type LedgerConfig struct {
	ExpiryInterval time.Duration `mapstructure:"expiry_interval" yaml:"expiry_interval"`
}

type RateLimitConfig struct {
	// Backend is "memory" or "redis".
	Backend  string        `mapstructure:"backend" yaml:"backend"`
	Requests int           `mapstructure:"requests" yaml:"requests"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
	Burst    int           `mapstructure:"burst" yaml:"burst"`
}
