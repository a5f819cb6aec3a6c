package config

import (
	"sync"
	"time"
)

// Snapshot is an immutable, versioned view of the configuration. The engine
// reads exactly one snapshot per tick; configuration changes only take effect
// at the next tick boundary, never mid-tick.
type Snapshot struct {
	Config    Config
	Version   int64
	CreatedAt time.Time
}

// RefreshInterval returns the scan period.
func (s *Snapshot) RefreshInterval() time.Duration {
	return time.Duration(s.Config.Monitoring.RefreshIntervalSeconds) * time.Second
}

// OfferWindow returns the bounded offer resolution window.
func (s *Snapshot) OfferWindow() time.Duration {
	return time.Duration(s.Config.Assignment.OfferWindowSeconds) * time.Second
}

// SendTimeout returns the per-channel alert send timeout.
func (s *Snapshot) SendTimeout() time.Duration {
	return time.Duration(s.Config.Alerting.SendTimeoutSeconds) * time.Second
}

// AdminAlertCooldown returns the admin alert channel cooldown.
func (s *Snapshot) AdminAlertCooldown() time.Duration {
	return time.Duration(s.Config.Cooldowns.AdminAlertMinutes) * time.Minute
}

// CustomerNoticeCooldown returns the customer notice channel cooldown.
func (s *Snapshot) CustomerNoticeCooldown() time.Duration {
	return time.Duration(s.Config.Cooldowns.CustomerNoticeMinutes) * time.Minute
}

// RejectionCooldown returns the contractor rejection cooldown.
func (s *Snapshot) RejectionCooldown() time.Duration {
	return time.Duration(s.Config.Cooldowns.ContractorRejectionMinutes) * time.Minute
}

// Holder stores the active snapshot and swaps it atomically. Swap only
// succeeds for configurations that already passed Validate; an invalid
// configuration never replaces the active snapshot.
type Holder struct {
	mu       sync.RWMutex
	active   *Snapshot
	versions int64
}

// NewHolder creates a holder seeded with a validated configuration.
func NewHolder(cfg *Config) (*Holder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Holder{}
	h.active = h.freeze(cfg)
	return h, nil
}

// Snapshot returns the currently active snapshot.
func (h *Holder) Snapshot() *Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active
}

// Swap validates cfg and installs it as the active snapshot. On validation
// failure the previous snapshot stays active and the error is returned.
func (h *Holder) Swap(cfg *Config) (*Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = h.freeze(cfg)
	return h.active, nil
}

// freeze copies cfg into a new immutable snapshot with the next version.
// Callers must hold h.mu for writing (or be the constructor).
func (h *Holder) freeze(cfg *Config) *Snapshot {
	h.versions++
	return &Snapshot{
		Config:    *cfg, // value copy; Config has no reference fields
		Version:   h.versions,
		CreatedAt: time.Now(),
	}
}
