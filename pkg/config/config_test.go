package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "prestige_flowers.db", cfg.DBPath)
	assert.Equal(t, "https://www.prestigeflowers.co.uk/christmas-plants", cfg.CategoryURL)
	assert.True(t, cfg.StealthEnabled)
	assert.Equal(t, 2, cfg.RateLimit)
	assert.Equal(t, 2*time.Second, cfg.RateLimitDelay())
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.BackoffBase)
	assert.True(t, cfg.Browser.Headless)
	assert.False(t, cfg.Browser.Undetected)
	assert.Equal(t, "a.product-img", cfg.ProductLinkSelector)
	assert.Zero(t, cfg.MaxProducts)
	assert.Empty(t, cfg.Browser.DebugDir)
	assert.Equal(t, "docs", cfg.APISpecDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCRAPER_DB_PATH", "/tmp/other.db")
	t.Setenv("SCRAPER_STEALTH_ENABLED", "false")
	t.Setenv("SCRAPER_RATE_LIMIT", "5")
	t.Setenv("SCRAPER_BACKOFF_BASE", "500ms")
	t.Setenv("SCRAPER_BROWSER_HEADLESS", "false")
	t.Setenv("SCRAPER_BROWSER_DEBUG_DIR", "/tmp/debug")
	t.Setenv("SCRAPER_MAX_PRODUCTS", "10")
	t.Setenv("SCRAPER_API_SPEC_DIR", "/srv/api")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/other.db", cfg.DBPath)
	assert.False(t, cfg.StealthEnabled)
	assert.Equal(t, 5*time.Second, cfg.RateLimitDelay())
	assert.Equal(t, 500*time.Millisecond, cfg.BackoffBase)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "/tmp/debug", cfg.Browser.DebugDir)
	assert.Equal(t, 10, cfg.MaxProducts)
	assert.Equal(t, "/srv/api", cfg.APISpecDir)
}

func TestLoad_ConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("category_url: https://shop.example/roses\nrate_limit: 7\n"), 0644))
	t.Setenv("SCRAPER_RATE_LIMIT", "1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/roses", cfg.CategoryURL)
	assert.Equal(t, 1, cfg.RateLimit, "env wins over file")
}

func TestLoad_RejectsNegativeRateLimit(t *testing.T) {
	t.Setenv("SCRAPER_RATE_LIMIT", "-1")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit")
}
