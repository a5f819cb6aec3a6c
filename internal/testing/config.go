package testing

import (
	"testing"

	"github.com/spf13/viper"

	"github.com/openroad/roadcall/config"
)

// DefaultConfig builds a configuration from defaults, optionally mutated
// before validation.
func DefaultConfig(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()

	v := viper.New()
	config.SetDefaults(v)

	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("Failed to unmarshal default config: %v", err)
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return &cfg
}

// Snapshot builds an active configuration snapshot from defaults, optionally
// mutated. Fails the test if the mutated configuration is invalid.
func Snapshot(t *testing.T, mutate func(*config.Config)) *config.Snapshot {
	t.Helper()

	cfg := DefaultConfig(t, mutate)
	holder, err := config.NewHolder(cfg)
	if err != nil {
		t.Fatalf("Failed to build config snapshot: %v", err)
	}
	return holder.Snapshot()
}
