package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCreditPacks(t *testing.T) {
	catalog, err := ParseCreditPacks([]byte(`
packs:
  - id: starter
    stripe_price_id: price_123
    credits: 10
  - id: pro
    display_name: Pro pack
    stripe_price_id: price_456
    credits: 50
`))
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	starter, ok := catalog.Get("starter")
	require.True(t, ok)
	assert.Equal(t, "10 credits", starter.DisplayName)
	assert.Equal(t, 10, starter.Credits)

	_, ok = catalog.Get("missing")
	assert.False(t, ok)
}

func TestParseCreditPacksRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing id", "packs:\n  - stripe_price_id: p\n    credits: 1\n"},
		{"missing price", "packs:\n  - id: a\n    credits: 1\n"},
		{"zero credits", "packs:\n  - id: a\n    stripe_price_id: p\n"},
		{"duplicate", "packs:\n  - id: a\n    stripe_price_id: p\n    credits: 1\n  - id: a\n    stripe_price_id: q\n    credits: 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCreditPacks([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseCreditPacksEmpty(t *testing.T) {
	catalog, err := ParseCreditPacks([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, catalog)
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Service:   ServiceConfig{StripeWebhookSecret: "whsec_x", FreeTierLimit: 1},
		Inference: InferenceConfig{Timeout: time.Minute},
		Ledger:    LedgerConfig{ExpiryInterval: time.Hour},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Service.StripeWebhookSecret = ""
	assert.Error(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "localhost", Port: 5432, User: "u", Password: "p", Name: "restore", SSLMode: "disable"}
	assert.Equal(t, "host=localhost port=5432 user=u password=p dbname=restore sslmode=disable", db.DSN())
}
