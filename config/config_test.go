package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openroad/roadcall/errors"
)

// defaultConfig builds a Config from package defaults only.
func defaultConfig(t *testing.T) *Config {
	t.Helper()

	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	return cfg
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := defaultConfig(t)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Selection.WeightSum())
	assert.Equal(t, AlgorithmSmartMatch, cfg.Assignment.Algorithm)
}

func TestValidate_WeightSumMustBe100(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Selection.Distance = 15 // sum now 90

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigInvalid))
	assert.Contains(t, err.Error(), "sum to exactly 100")
}

func TestValidate_Bounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"refresh interval too low", func(c *Config) { c.Monitoring.RefreshIntervalSeconds = 5 }},
		{"refresh interval too high", func(c *Config) { c.Monitoring.RefreshIntervalSeconds = 301 }},
		{"admin escalation zero", func(c *Config) { c.Escalation.AdminMinutes = 0 }},
		{"customer escalation too high", func(c *Config) { c.Escalation.CustomerMinutes = 121 }},
		{"auto assign too low", func(c *Config) { c.Escalation.AutoAssignMinutes = 9 }},
		{"admin cooldown too low", func(c *Config) { c.Cooldowns.AdminAlertMinutes = 9 }},
		{"rejection cooldown too high", func(c *Config) { c.Cooldowns.ContractorRejectionMinutes = 481 }},
		{"max alert attempts zero", func(c *Config) { c.Alerting.MaxAlertAttempts = 0 }},
		{"max notification attempts too high", func(c *Config) { c.Alerting.MaxNotificationAttempts = 6 }},
		{"unknown algorithm", func(c *Config) { c.Assignment.Algorithm = "fastest_available" }},
		{"offer window too short", func(c *Config) { c.Assignment.OfferWindowSeconds = 10 }},
		{"negative factor weight", func(c *Config) { c.Selection.Distance = -1; c.Selection.Rating = 46 }},
		{"priority weight zero", func(c *Config) { c.Priority.Standard = 0 }},
		{"priority weight too high", func(c *Config) { c.Priority.Emergency = 11 }},
		{"threshold warning above critical", func(c *Config) { c.Thresholds.JobAge = ThresholdPair{Warning: 30, Critical: 15} }},
		{"threshold warning equals critical", func(c *Config) { c.Thresholds.PendingJobs = ThresholdPair{Warning: 10, Critical: 10} }},
		{"webhook enabled without url", func(c *Config) { c.Alerting.Channels.Webhook = true; c.Alerting.WebhookURL = "" }},
		{"zero service radius", func(c *Config) { c.Selection.ServiceRadiusMiles = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrConfigInvalid), "expected ErrConfigInvalid, got %v", err)
		})
	}
}

func TestHolder_SwapRejectsInvalid(t *testing.T) {
	cfg := defaultConfig(t)
	holder, err := NewHolder(cfg)
	require.NoError(t, err)

	before := holder.Snapshot()
	require.Equal(t, int64(1), before.Version)

	bad := defaultConfig(t)
	bad.Selection.Rating = 0 // sum 80

	_, err = holder.Swap(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigInvalid))

	// Prior snapshot remains active
	assert.Same(t, before, holder.Snapshot())
}

func TestHolder_SwapInstallsNewVersion(t *testing.T) {
	holder, err := NewHolder(defaultConfig(t))
	require.NoError(t, err)

	next := defaultConfig(t)
	next.Monitoring.RefreshIntervalSeconds = 120

	snap, err := holder.Swap(next)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Version)
	assert.Equal(t, 120, holder.Snapshot().Config.Monitoring.RefreshIntervalSeconds)

	// Mutating the source config after the swap does not leak into the snapshot
	next.Monitoring.RefreshIntervalSeconds = 10
	assert.Equal(t, 120, holder.Snapshot().Config.Monitoring.RefreshIntervalSeconds)
}

func TestNewHolder_RejectsInvalid(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Monitoring.RefreshIntervalSeconds = 1
	_, err := NewHolder(cfg)
	require.Error(t, err)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roadcall.toml")

	cfg := defaultConfig(t)
	cfg.Assignment.Algorithm = AlgorithmNearestAvailable
	cfg.Monitoring.RefreshIntervalSeconds = 45
	require.NoError(t, Save(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmNearestAvailable, loaded.Assignment.Algorithm)
	assert.Equal(t, 45, loaded.Monitoring.RefreshIntervalSeconds)
	require.NoError(t, loaded.Validate())
}

func TestSave_RefusesInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roadcall.toml")

	cfg := defaultConfig(t)
	cfg.Selection.ResponseTime = 0 // sum 90
	err := Save(cfg, path)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "invalid config must not be written")
}

func TestSave_RotatesBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roadcall.toml")

	cfg := defaultConfig(t)
	require.NoError(t, Save(cfg, path))

	cfg.Monitoring.RefreshIntervalSeconds = 90
	require.NoError(t, Save(cfg, path))

	_, err := os.Stat(path + ".back1")
	assert.NoError(t, err, "previous config should be preserved as .back1")
}
