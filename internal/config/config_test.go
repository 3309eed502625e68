package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streakline/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.BackendJSON, cfg.Store.Backend)
	assert.Equal(t, 30, cfg.Defaults.DurationDays)
	assert.Equal(t, "/v0", cfg.Server.BasePath)
	assert.Equal(t, "challenges.json", cfg.StorePath())
	assert.False(t, cfg.Server.RateLimit.TrustProxy)
}

func TestFromFile(t *testing.T) {
	path := t.TempDir() + "/streakline.yml"
	require.NoError(t, os.WriteFile(path, []byte("defaults:\n  duration_days: 66\n"), 0o644))
	cfg, err := config.FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 66, cfg.Defaults.DurationDays)

	_, err = config.FromFile(path + ".missing")
	assert.Error(t, err)
}

func TestFromYAMLKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := config.FromYAML([]byte("store:\n  backend: sqlite\n"))
	require.NoError(t, err)
	assert.Equal(t, config.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "streakline.db", cfg.StorePath())
	assert.Equal(t, 30, cfg.Defaults.DurationDays)
	assert.Equal(t, 30, cfg.Server.RateLimit.Burst)
}

func TestFromYAMLValidation(t *testing.T) {
	cases := map[string]string{
		"backend":  "store:\n  backend: postgres\n",
		"duration": "defaults:\n  duration_days: 0\n",
		"burst":    "server:\n  rate_limit:\n    per_second: 2\n    burst: 0\n",
		"syntax":   "store: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.FromYAML([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, config.BackendJSON, cfg.Store.Backend)

	_, err = config.Load(dir)
	assert.ErrorContains(t, err, "sl init")

	require.NoError(t, os.WriteFile(config.Path(dir), []byte("store:\n  backend: yaml\n  path: mine.yml\n"), 0o644))
	cfg, err = config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "mine.yml", cfg.StorePath())
}

func TestGenerateDefaultRoundTrips(t *testing.T) {
	cfg, err := config.FromYAML([]byte(config.GenerateDefault()))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}
