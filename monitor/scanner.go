// Package monitor runs the periodic control loop: scan open jobs, advance
// their escalation stages, and trigger alerts and auto-assignment.
package monitor

import (
	"context"
	"time"

	"github.com/openroad/roadcall/alert"
	"github.com/openroad/roadcall/assign"
	"github.com/openroad/roadcall/config"
	"github.com/openroad/roadcall/errors"
	"github.com/openroad/roadcall/jobs"
	"github.com/openroad/roadcall/logger"
	"github.com/openroad/roadcall/store"
)

// systemPendingJobsID keys the engine-wide pending-backlog alert in the alert
// state table, reusing the per-job cooldown machinery.
const systemPendingJobsID = "system:pending_jobs"

// Severity classifies a measurement against a warning/critical pair.
type Severity int

const (
	SeverityNormal Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Classify maps a value onto its severity band: below warning is normal,
// below critical is warning, critical and above is critical.
func Classify(value float64, pair config.ThresholdPair) Severity {
	switch {
	case value < float64(pair.Warning):
		return SeverityNormal
	case value < float64(pair.Critical):
		return SeverityWarning
	default:
		return SeverityCritical
	}
}

// Scanner evaluates every open job once per tick: severity classification,
// escalation stage advancement, alert dispatch, and handoff of
// auto-assignment candidates to the assignment dispatcher.
type Scanner struct {
	adapter  store.Adapter
	state    *store.StateStore
	alerts   *alert.Dispatcher
	assigner *assign.Dispatcher
	stats    *Recorder

	timeNow func() time.Time
}

// NewScanner wires a scanner over its collaborators.
func NewScanner(adapter store.Adapter, state *store.StateStore, alerts *alert.Dispatcher, assigner *assign.Dispatcher, stats *Recorder) *Scanner {
	return &Scanner{
		adapter:  adapter,
		state:    state,
		alerts:   alerts,
		assigner: assigner,
		stats:    stats,
		timeNow:  time.Now,
	}
}

// Scan runs one full evaluation pass. It returns an error only when the
// external store cannot be read at all; per-job failures are logged and the
// pass continues.
func (s *Scanner) Scan(ctx context.Context, snap *config.Snapshot) error {
	now := s.timeNow()

	open, err := s.adapter.ListOpenJobs(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list open jobs")
	}

	s.sweepTerminalJobs(open)

	var pending []*jobs.Job
	for _, job := range open {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stage, err := s.evaluate(snap, job, now)
		if err != nil {
			logger.Errorw("Job evaluation failed", "job_id", job.ID, "error", err)
			continue
		}
		if stage == jobs.StageAutoAssignTriggered {
			pending = append(pending, job)
		}
	}

	s.checkPendingBacklog(snap, len(open))

	if len(pending) > 0 {
		s.assigner.Run(ctx, snap, pending)
	}

	s.stats.Prune()
	return nil
}

// evaluate classifies one job and advances its escalation stage when its age
// crossed the next threshold. Returns the job's (possibly advanced) stage.
func (s *Scanner) evaluate(snap *config.Snapshot, job *jobs.Job, now time.Time) (jobs.EscalationStage, error) {
	s.stats.JobMonitored(now)

	age := job.AgeMinutes(now)
	severity := Classify(age, snap.Config.Thresholds.JobAge)
	if rt, ok := job.ResponseTimeMinutes(); ok {
		if rtSeverity := Classify(rt, snap.Config.Thresholds.ResponseTime); rtSeverity > severity {
			severity = rtSeverity
		}
	}
	if severity == SeverityCritical {
		logger.Warnw("Job past critical threshold",
			"job_id", job.ID, "priority_class", job.PriorityClass,
			"age_minutes", int(age))
	}

	st, err := s.state.GetJobState(job.ID)
	if err != nil {
		return jobs.StageNew, err
	}
	stage := jobs.StageNew
	if st != nil {
		stage = st.Stage
	}
	// Manual escalation hands the job to a human; automation stands down.
	if stage == jobs.StageManuallyEscalated {
		return stage, nil
	}

	if !snap.Config.Escalation.Enabled {
		return stage, nil
	}

	if desired := stageForAge(age, snap.Config.Escalation); desired > stage {
		if err := s.state.SetStage(job.ID, desired, job.Version, now); err != nil {
			return stage, err
		}
		logger.Infow("Job escalated",
			"job_id", job.ID, "from", stage, "to", desired,
			"age_minutes", int(age), "severity", severity)
		stage = desired
	}

	// Reaching a stage does not guarantee a fresh alert; the dispatcher
	// gates on cooldown and attempt budget.
	if stage > jobs.StageNew {
		s.alerts.Dispatch(snap, job, stage)
	}

	return stage, nil
}

// stageForAge maps job age onto the highest escalation stage whose duration
// has elapsed.
func stageForAge(ageMinutes float64, esc config.EscalationConfig) jobs.EscalationStage {
	switch {
	case ageMinutes >= float64(esc.AutoAssignMinutes):
		return jobs.StageAutoAssignTriggered
	case ageMinutes >= float64(esc.CustomerMinutes):
		return jobs.StageCustomerNotified
	case ageMinutes >= float64(esc.AdminMinutes):
		return jobs.StageAdminAlerted
	default:
		return jobs.StageNew
	}
}

// sweepTerminalJobs drops engine state for jobs that left the open set
// upstream (assigned manually, completed, cancelled).
func (s *Scanner) sweepTerminalJobs(open []*jobs.Job) {
	tracked, err := s.state.ListTrackedJobIDs()
	if err != nil {
		logger.Warnw("Failed to list tracked jobs for sweep", "error", err)
		return
	}

	openSet := make(map[string]struct{}, len(open))
	for _, job := range open {
		openSet[job.ID] = struct{}{}
	}

	for _, id := range tracked {
		if _, stillOpen := openSet[id]; stillOpen {
			continue
		}
		if err := s.state.DeleteJobState(id); err != nil {
			logger.Warnw("Failed to drop state for terminal job", "job_id", id, "error", err)
			continue
		}
		logger.Debugw("Dropped state for terminal job", "job_id", id)
	}
}

// checkPendingBacklog raises a cooldown-gated admin alert when the count of
// unresolved jobs reaches its critical threshold.
func (s *Scanner) checkPendingBacklog(snap *config.Snapshot, pendingCount int) {
	severity := Classify(float64(pendingCount), snap.Config.Thresholds.PendingJobs)
	if severity == SeverityNormal {
		return
	}

	logger.Warnw("Pending job backlog elevated",
		"pending_jobs", pendingCount, "severity", severity)

	if severity == SeverityCritical {
		s.alerts.Dispatch(snap, &jobs.Job{
			ID:            systemPendingJobsID,
			Status:        jobs.StatusOpen,
			PriorityClass: jobs.PriorityStandard,
			CreatedAt:     s.timeNow(),
		}, jobs.StageAdminAlerted)
	}
}
