package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"postgres_url": "postgres://localhost:5432/trust",
		"nats_url": "nats://localhost:4222",
		"birdeye_api_key": "key-1"
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultSellSubject, cfg.SellSubject)
	assert.Equal(t, DefaultBirdeyeBaseURL, cfg.BirdeyeBaseURL)
	assert.Equal(t, DefaultDexscreenerURL, cfg.DexscreenerURL)
	assert.Equal(t, DefaultScanInterval, cfg.ScanInterval)
	assert.Equal(t, DefaultRetries, cfg.Retries)
	assert.Equal(t, float64(DefaultWeightRugPull), cfg.WeightRugPull)
	assert.Equal(t, float64(DefaultConfidenceDivisor), cfg.ConfidenceDivisor)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"postgres_url": "postgres://localhost:5432/trust",
		"nats_url": "nats://localhost:4222",
		"sell_subject": "sim.sell",
		"scan_interval": 15,
		"weight_rapid_dump": 7.5,
		"confidence_divisor": 500000
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sim.sell", cfg.SellSubject)
	assert.Equal(t, 15, cfg.ScanInterval)
	assert.Equal(t, 7.5, cfg.WeightRapidDump)
	assert.Equal(t, 500000.0, cfg.ConfidenceDivisor)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing postgres url", `{"nats_url": "nats://localhost:4222"}`},
		{"missing nats url", `{"postgres_url": "postgres://localhost:5432/trust"}`},
		{"bad birdeye url", `{
			"postgres_url": "postgres://localhost:5432/trust",
			"nats_url": "nats://localhost:4222",
			"birdeye_base_url": "ftp://example.com"
		}`},
		{"bad scan interval", `{
			"postgres_url": "postgres://localhost:5432/trust",
			"nats_url": "nats://localhost:4222",
			"scan_interval": 0
		}`},
		{"negative weight", `{
			"postgres_url": "postgres://localhost:5432/trust",
			"nats_url": "nats://localhost:4222",
			"weight_scam": -1
		}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("TRUST_ENGINE_BIRDEYE_API_KEY", "env-key")
	t.Setenv("TRUST_ENGINE_POSTGRES_URL", "postgres://env:5432/trust")

	path := writeConfig(t, `{
		"postgres_url": "postgres://file:5432/trust",
		"nats_url": "nats://localhost:4222",
		"birdeye_api_key": "file-key"
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.BirdeyeAPIKey)
	assert.Equal(t, "postgres://env:5432/trust", cfg.PostgresURL)
}
