package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "currency-tracker", cfg.App.Name)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.True(t, cfg.Scheduler.AlignToCycle)
	assert.Equal(t, "KRW", cfg.KoreaExim.BaseCurrency)
	assert.Equal(t, 4, cfg.Evaluator.DispatchWorkers)
	assert.Equal(t, 5*time.Second, cfg.Evaluator.DispatchTimeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Server.TokenTTL)
	assert.EqualValues(t, 16, cfg.Cache.MaxItems)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestLoadFromFile(t *testing.T) {
	doc := `
app:
  environment: production
scheduler:
  interval: 30m
  align_to_cycle: false
koreaexim:
  base_currency: krw
  auth_key: file-key
evaluator:
  dispatch_workers: 8
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Environment)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
	assert.False(t, cfg.Scheduler.AlignToCycle)
	assert.Equal(t, "file-key", cfg.KoreaExim.AuthKey)
	assert.Equal(t, 8, cfg.Evaluator.DispatchWorkers)
	// Untouched sections keep their defaults.
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Scheduler: SchedulerConfig{Interval: time.Hour},
			KoreaExim: KoreaEximConfig{BaseCurrency: "KRW"},
			Evaluator: EvaluatorConfig{DispatchWorkers: 4, DispatchTimeout: 5 * time.Second},
			Cache:     CacheConfig{MaxItems: 16},
		}
	}

	valid := base()
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Scheduler.Interval = 0 }},
		{"missing base currency", func(c *Config) { c.KoreaExim.BaseCurrency = "" }},
		{"zero workers", func(c *Config) { c.Evaluator.DispatchWorkers = 0 }},
		{"zero dispatch timeout", func(c *Config) { c.Evaluator.DispatchTimeout = 0 }},
		{"zero cache size", func(c *Config) { c.Cache.MaxItems = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
