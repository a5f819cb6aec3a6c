package monitor

import (
	"time"

	"github.com/openroad/roadcall/logger"
	"github.com/openroad/roadcall/store"
)

// statsWindow is the rolling window the dashboard counters cover.
const statsWindow = 24 * time.Hour

// Stats is the rolling activity summary surfaced to the dashboard.
type Stats struct {
	JobsMonitored int       `json:"jobs_monitored"`
	AlertsSent    int       `json:"alerts_sent"`
	AutoAssigned  int       `json:"auto_assigned"`
	WindowHours   int       `json:"window_hours"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// Recorder derives rolling counters from persisted stat events, so counts
// survive restarts along with the rest of the engine state.
type Recorder struct {
	state   *store.StateStore
	timeNow func() time.Time
}

// NewRecorder creates a stats recorder over the state store.
func NewRecorder(state *store.StateStore) *Recorder {
	return &Recorder{state: state, timeNow: time.Now}
}

// JobMonitored counts one job evaluation. Stat recording never blocks the
// scan; a failed insert is logged and dropped.
func (r *Recorder) JobMonitored(now time.Time) {
	if err := r.state.RecordStatEvent(store.StatJobsMonitored, now); err != nil {
		logger.Warnw("Failed to record monitoring stat", "error", err)
	}
}

// Snapshot returns the counters over the rolling window.
func (r *Recorder) Snapshot() (*Stats, error) {
	now := r.timeNow()
	since := now.Add(-statsWindow)

	s := &Stats{
		WindowHours: int(statsWindow.Hours()),
		GeneratedAt: now,
	}

	var err error
	if s.JobsMonitored, err = r.state.CountStatEventsSince(store.StatJobsMonitored, since); err != nil {
		return nil, err
	}
	if s.AlertsSent, err = r.state.CountStatEventsSince(store.StatAlertsSent, since); err != nil {
		return nil, err
	}
	if s.AutoAssigned, err = r.state.CountStatEventsSince(store.StatAutoAssigned, since); err != nil {
		return nil, err
	}
	return s, nil
}

// Prune drops stat events that fell out of the rolling window.
func (r *Recorder) Prune() {
	pruned, err := r.state.PruneStatEvents(r.timeNow().Add(-statsWindow))
	if err != nil {
		logger.Warnw("Failed to prune stat events", "error", err)
		return
	}
	if pruned > 0 {
		logger.Debugw("Pruned expired stat events", "count", pruned)
	}
}
