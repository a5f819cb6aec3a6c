// Package assign runs the auto-assignment offer loop: rank candidates, offer
// the job down the list with retry and cooldown semantics, and hand the job
// to a human when automation runs out of road.
package assign

import (
	"context"
	"time"

	"github.com/openroad/roadcall/alert"
	"github.com/openroad/roadcall/config"
	"github.com/openroad/roadcall/errors"
	"github.com/openroad/roadcall/jobs"
	"github.com/openroad/roadcall/logger"
	"github.com/openroad/roadcall/scoring"
	"github.com/openroad/roadcall/store"
)

// Dispatcher drives the offer loop for jobs whose escalation reached the
// auto-assignment stage.
// EventSink receives assignment outcomes for real-time observers.
type EventSink interface {
	JobAssigned(jobID, contractorID string)
	JobEscalated(jobID, reason string)
}

type Dispatcher struct {
	adapter store.Adapter
	state   *store.StateStore
	alerts  *alert.Dispatcher
	locks   *contractorLocks
	events  EventSink

	timeNow func() time.Time
}

// NewDispatcher creates an assignment dispatcher.
func NewDispatcher(adapter store.Adapter, state *store.StateStore, alerts *alert.Dispatcher) *Dispatcher {
	return &Dispatcher{
		adapter: adapter,
		state:   state,
		alerts:  alerts,
		locks:   newContractorLocks(),
		timeNow: time.Now,
	}
}

// SetEventSink installs an observer for assignment outcomes. Must be called
// before the engine starts.
func (d *Dispatcher) SetEventSink(sink EventSink) {
	d.events = sink
}

// Run processes the pending jobs in priority order within one tick. Jobs are
// handled sequentially so a high-priority job always reaches the shared
// candidate pool first; ticks never overlap, so a long offer chain delays the
// next scan rather than racing it.
func (d *Dispatcher) Run(ctx context.Context, snap *config.Snapshot, pending []*jobs.Job) {
	for _, job := range OrderByPriority(pending, snap.Config.Priority.Weights()) {
		if ctx.Err() != nil {
			return
		}
		if err := d.ProcessJob(ctx, snap, job); err != nil {
			logger.Errorw("Assignment pass failed, will retry next tick",
				"job_id", job.ID, "error", err)
		}
	}
}

// ProcessJob walks the ranked candidate list for one job. Each rejected or
// expired offer consumes an attempt and moves to the next candidate in the
// same pass. The job escalates to manual handling when the attempt budget is
// spent or no eligible candidate remains.
func (d *Dispatcher) ProcessJob(ctx context.Context, snap *config.Snapshot, job *jobs.Job) error {
	now := d.timeNow()

	st, err := d.state.GetJobState(job.ID)
	if err != nil {
		return err
	}
	if st != nil && st.Stage.Terminal() {
		return nil
	}

	attempts := 0
	if st != nil {
		attempts = st.OfferAttempts
	}
	maxAttempts := snap.Config.Alerting.MaxAlertAttempts
	if attempts >= maxAttempts {
		return d.escalate(ctx, snap, job, "offer attempts exhausted")
	}

	candidates, err := d.adapter.GetCandidates(ctx, job.ID)
	if err != nil {
		return errors.Wrap(err, "failed to load candidates")
	}
	rejections, err := d.state.ActiveRejections(job.ID, now.Add(-snap.RejectionCooldown()))
	if err != nil {
		return err
	}

	ranked := scoring.NewRanker(snap.Config).Rank(candidates, rejections)
	if len(ranked) == 0 {
		return d.escalate(ctx, snap, job, "no eligible candidates")
	}

	for _, candidate := range ranked {
		if attempts >= maxAttempts {
			return d.escalate(ctx, snap, job, "offer attempts exhausted")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		status, err := d.offer(ctx, snap, job, candidate)
		if err != nil {
			return err
		}

		if status == jobs.OfferAccepted {
			return d.assign(ctx, job, candidate)
		}

		// Rejection and expiry both start the contractor's cooldown for
		// this job and consume one attempt.
		if err := d.adapter.RecordRejection(ctx, job.ID, candidate.ID); err != nil {
			logger.Warnw("Failed to record rejection upstream",
				"job_id", job.ID, "contractor_id", candidate.ID, "error", err)
		}
		if err := d.state.RecordRejection(job.ID, candidate.ID, d.timeNow()); err != nil {
			return err
		}
		attempts, err = d.state.IncrementOfferAttempts(job.ID, d.timeNow())
		if err != nil {
			return err
		}
		logger.Infow("Offer declined, moving to next candidate",
			"job_id", job.ID, "contractor_id", candidate.ID,
			"status", status, "attempts", attempts)
	}

	return d.escalate(ctx, snap, job, "candidate list exhausted")
}

// offer presents the job to one contractor and blocks until resolution or
// window expiry. Offers to the same contractor are serialized.
func (d *Dispatcher) offer(ctx context.Context, snap *config.Snapshot, job *jobs.Job, candidate *jobs.ContractorCandidate) (jobs.OfferStatus, error) {
	release := d.locks.acquire(candidate.ID)
	defer release()

	offer := jobs.NewOffer(job.ID, candidate.ID, d.timeNow(), snap.OfferWindow())
	if err := d.state.CreateOffer(offer); err != nil {
		return jobs.OfferPending, err
	}

	offerCtx, cancel := context.WithDeadline(ctx, offer.ExpiresAt)
	defer cancel()

	status, err := d.adapter.OfferJob(offerCtx, job.ID, candidate.ID, offer.ExpiresAt)
	if err != nil {
		// The window closing is a normal resolution, not a store failure.
		if errors.Is(err, errors.ErrOfferTimeout) || (offerCtx.Err() != nil && ctx.Err() == nil) {
			status = jobs.OfferExpired
		} else {
			return jobs.OfferPending, errors.Wrap(err, "offer failed")
		}
	}

	if err := d.state.ResolveOffer(offer.ID, status); err != nil {
		logger.Warnw("Failed to resolve offer record",
			"offer_id", offer.ID, "status", status, "error", err)
	}
	return status, nil
}

// assign commits the acceptance against the job version observed at tick
// start. A version conflict means an admin (or another actor) changed the
// job in the meantime; their write wins and the engine drops its state.
func (d *Dispatcher) assign(ctx context.Context, job *jobs.Job, candidate *jobs.ContractorCandidate) error {
	err := d.adapter.AssignJob(ctx, job.ID, candidate.ID, job.Version)
	if errors.IsVersionConflict(err) {
		logger.Warnw("Job changed during offer, yielding to manual action",
			"job_id", job.ID, "contractor_id", candidate.ID)
		return d.state.DeleteJobState(job.ID)
	}
	if err != nil {
		return errors.Wrap(err, "failed to assign job")
	}

	if err := d.state.RecordStatEvent(store.StatAutoAssigned, d.timeNow()); err != nil {
		logger.Warnw("Failed to record assignment stat", "error", err)
	}
	logger.Infow("Job auto-assigned",
		"job_id", job.ID, "contractor_id", candidate.ID,
		"priority_class", job.PriorityClass)
	if d.events != nil {
		d.events.JobAssigned(job.ID, candidate.ID)
	}

	// Assigned is terminal for the engine; all derived state goes with it.
	return d.state.DeleteJobState(job.ID)
}

// escalate hands the job to a human. The admin alert bypasses cooldowns:
// exhausted automation must never be silently stuck.
func (d *Dispatcher) escalate(ctx context.Context, snap *config.Snapshot, job *jobs.Job, reason string) error {
	if err := d.adapter.EscalateManually(ctx, job.ID); err != nil {
		return errors.Wrap(err, "failed to escalate job")
	}
	if err := d.state.SetStage(job.ID, jobs.StageManuallyEscalated, job.Version, d.timeNow()); err != nil {
		return err
	}

	d.alerts.DispatchBypass(snap, job, jobs.StageManuallyEscalated)
	logger.Warnw("Job escalated to manual assignment",
		"job_id", job.ID, "reason", reason)
	if d.events != nil {
		d.events.JobEscalated(job.ID, reason)
	}
	return nil
}
