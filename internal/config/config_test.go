// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "adb", cfg.Device.ADBPath)
	assert.Equal(t, "gemini-2.5-flash", cfg.Oracle.Model)
	assert.Equal(t, 60*time.Second, cfg.Oracle.RequestTimeout)

	assert.Equal(t, 3, cfg.Optimizer.MaxIterations)
	assert.Equal(t, 15, cfg.Optimizer.MaxScrolls)
	assert.Equal(t, 5, cfg.Optimizer.StockRevealScrolls)
	assert.Equal(t, 3*time.Second, cfg.Optimizer.IterationSettle)
	assert.Equal(t, 800*time.Millisecond, cfg.Optimizer.ScrollSettle)

	assert.Equal(t, []string{"flipkart.com", "amazon.in", "myntra.com"}, cfg.Search.Sites)
	assert.Equal(t, "in", cfg.Search.Country)

	assert.Equal(t, 540, cfg.Cart.FallbackTapX)
	assert.Equal(t, 1900, cfg.Cart.FallbackTapY)
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("optimizer.max_iterations", 5)
	v.Set("device.serial", "emulator-5554")
	v.Set("search.sites", []string{"flipkart.com"})

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Optimizer.MaxIterations)
	assert.Equal(t, "emulator-5554", cfg.Device.Serial)
	assert.Equal(t, []string{"flipkart.com"}, cfg.Search.Sites)
}

func TestLoadAPIKeyEnvFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-from-env")
	t.Setenv("SERPER_API_KEY", "serp-from-env")

	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "gem-from-env", cfg.Oracle.APIKey)
	assert.Equal(t, "serp-from-env", cfg.Search.APIKey)
}

func TestLoadExplicitKeyBeatsEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-from-env")

	v := viper.New()
	SetDefaults(v)
	v.Set("oracle.api_key", "gem-from-config")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "gem-from-config", cfg.Oracle.APIKey)
}
