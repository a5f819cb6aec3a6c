package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openroad/roadcall/config"
	"github.com/openroad/roadcall/jobs"
	"github.com/openroad/roadcall/logger"
	"github.com/openroad/roadcall/store"
)

// Dispatcher fans one escalation event out to every enabled channel, gated by
// per-(job, channel) cooldowns and attempt budgets.
//
// State is recorded synchronously before the send so that a failed or slow
// delivery still consumes its attempt and restarts never double-alert. The
// send itself runs on its own goroutine bounded by the configured timeout, so
// a stuck channel cannot stall the scan tick.
// EventSink receives dispatched alerts for real-time observers such as the
// websocket broadcaster. Defined here to avoid a dependency on the server.
type EventSink interface {
	AlertDispatched(a Alert)
}

type Dispatcher struct {
	registry *Registry
	state    *store.StateStore
	events   EventSink

	timeNow func() time.Time
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given registry and state store.
func NewDispatcher(registry *Registry, state *store.StateStore) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		state:    state,
		timeNow:  time.Now,
	}
}

// SetEventSink installs an observer for dispatched alerts. Must be called
// before the engine starts.
func (d *Dispatcher) SetEventSink(sink EventSink) {
	d.events = sink
}

// Dispatch sends the alert for a job's escalation stage on every enabled
// channel that passes its cooldown and attempt gate. Returns the number of
// channels the alert was recorded on.
func (d *Dispatcher) Dispatch(snap *config.Snapshot, job *jobs.Job, stage jobs.EscalationStage) int {
	return d.dispatch(snap, job, stage, false)
}

// DispatchBypass sends unconditionally, skipping cooldown and attempt gates.
// Used when auto-assignment exhausts its candidates and an admin must act
// regardless of recent alert history. State is still recorded.
func (d *Dispatcher) DispatchBypass(snap *config.Snapshot, job *jobs.Job, stage jobs.EscalationStage) int {
	return d.dispatch(snap, job, stage, true)
}

func (d *Dispatcher) dispatch(snap *config.Snapshot, job *jobs.Job, stage jobs.EscalationStage, bypass bool) int {
	now := d.timeNow()
	sent := 0

	for _, channel := range enabledChannels(snap.Config.Alerting.Channels) {
		sender := d.registry.Get(channel)
		if sender == nil {
			logger.Warnw("No sender registered for enabled alert channel",
				"channel", channel)
			continue
		}

		if !bypass {
			ok, err := d.passesGates(snap, job.ID, channel, stage, now)
			if err != nil {
				logger.Errorw("Failed to read alert state",
					"job_id", job.ID, "channel", channel, "error", err)
				continue
			}
			if !ok {
				continue
			}
		}

		if err := d.state.RecordAlert(job.ID, channel, stage, now); err != nil {
			logger.Errorw("Failed to record alert attempt",
				"job_id", job.ID, "channel", channel, "error", err)
			continue
		}
		if err := d.state.RecordStatEvent(store.StatAlertsSent, now); err != nil {
			logger.Warnw("Failed to record alert stat", "error", err)
		}
		sent++

		a := Alert{
			JobID:     job.ID,
			Stage:     stage,
			StageName: stage.String(),
			Channel:   channel,
			Message:   alertMessage(job, stage),
			CreatedAt: now,
		}
		if d.events != nil {
			d.events.AlertDispatched(a)
		}
		d.send(sender, a, snap.SendTimeout())
	}

	return sent
}

// passesGates checks the attempt budget and cooldown for one channel.
// The attempt budget is scoped to the current stage, so a stage advance
// starts a fresh budget. The cooldown clock is per channel regardless of
// stage; the stage only selects which cooldown applies.
func (d *Dispatcher) passesGates(snap *config.Snapshot, jobID, channel string, stage jobs.EscalationStage, now time.Time) (bool, error) {
	st, err := d.state.GetAlertState(jobID, channel)
	if err != nil {
		return false, err
	}
	if st == nil {
		return true, nil
	}

	if st.Stage == stage && st.Attempts >= snap.Config.Alerting.MaxNotificationAttempts {
		return false, nil
	}
	if now.Sub(st.LastAlertAt) < cooldownFor(snap, stage) {
		return false, nil
	}
	return true, nil
}

// cooldownFor maps a stage to its alert cooldown: the customer notice stage
// uses the customer cooldown, everything else is an admin-facing alert.
func cooldownFor(snap *config.Snapshot, stage jobs.EscalationStage) time.Duration {
	if stage == jobs.StageCustomerNotified {
		return snap.CustomerNoticeCooldown()
	}
	return snap.AdminAlertCooldown()
}

func (d *Dispatcher) send(sender Sender, a Alert, timeout time.Duration) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := sender.Send(ctx, a); err != nil {
			logger.Errorw("Alert delivery failed",
				"job_id", a.JobID, "channel", a.Channel, "stage", a.StageName, "error", err)
			return
		}
		logger.Debugw("Alert delivered",
			"job_id", a.JobID, "channel", a.Channel, "stage", a.StageName)
	}()
}

// Wait blocks until all in-flight sends finish. Called on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func alertMessage(job *jobs.Job, stage jobs.EscalationStage) string {
	switch stage {
	case jobs.StageAdminAlerted:
		return fmt.Sprintf("Job %s (%s) has no contractor response and needs attention", job.ID, job.PriorityClass)
	case jobs.StageCustomerNotified:
		return fmt.Sprintf("We are still working on finding a contractor for job %s", job.ID)
	case jobs.StageAutoAssignTriggered:
		return fmt.Sprintf("Automatic contractor assignment started for job %s", job.ID)
	case jobs.StageManuallyEscalated:
		return fmt.Sprintf("Job %s exhausted automatic assignment and requires manual dispatch", job.ID)
	default:
		return fmt.Sprintf("Job %s escalation update: %s", job.ID, stage)
	}
}
