package assign

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openroad/roadcall/alert"
	"github.com/openroad/roadcall/config"
	"github.com/openroad/roadcall/errors"
	roadcalltest "github.com/openroad/roadcall/internal/testing"
	"github.com/openroad/roadcall/jobs"
	"github.com/openroad/roadcall/store"
)

type fixture struct {
	dispatcher *Dispatcher
	adapter    *store.FakeAdapter
	state      *store.StateStore
	alerts     *alert.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	state := store.NewStateStore(roadcalltest.CreateTestDB(t))
	adapter := store.NewFakeAdapter()

	registry := alert.NewRegistry()
	require.NoError(t, registry.Register(alert.ChannelEmail, alert.SenderFunc(
		func(ctx context.Context, a alert.Alert) error { return nil },
	)))
	alerts := alert.NewDispatcher(registry, state)

	return &fixture{
		dispatcher: NewDispatcher(adapter, state, alerts),
		adapter:    adapter,
		state:      state,
		alerts:     alerts,
	}
}

func pendingJob(t *testing.T, f *fixture, id string, class jobs.PriorityClass) *jobs.Job {
	t.Helper()

	job := &jobs.Job{
		ID:            id,
		Status:        jobs.StatusOpen,
		PriorityClass: class,
		CreatedAt:     time.Now().Add(-time.Hour),
		Version:       1,
	}
	f.adapter.Jobs = append(f.adapter.Jobs, job)
	require.NoError(t, f.state.SetStage(id, jobs.StageAutoAssignTriggered, job.Version, time.Now()))
	return job
}

func availableCandidate(id string, distance float64) *jobs.ContractorCandidate {
	return &jobs.ContractorCandidate{
		ID:                  id,
		DistanceMiles:       distance,
		Rating:              4.5,
		Available:           true,
		SpecializationMatch: 1,
		CompletionRate:      90,
		ResponseTimeMinutes: 8,
	}
}

func TestProcessJob_AssignsFirstAcceptingCandidate(t *testing.T) {
	f := newFixture(t)
	snap := roadcalltest.Snapshot(t, nil)
	job := pendingJob(t, f, "JOB_1", jobs.PriorityStandard)
	f.adapter.Candidates["JOB_1"] = []*jobs.ContractorCandidate{
		availableCandidate("CON_near", 2),
		availableCandidate("CON_far", 20),
	}

	require.NoError(t, f.dispatcher.ProcessJob(context.Background(), snap, job))

	assert.Equal(t, "CON_near", f.adapter.Assigned["JOB_1"])
	assert.Equal(t, 1, f.adapter.OfferCount(), "stopped at the first acceptance")

	// Terminal for the engine: all derived state gone
	st, err := f.state.GetJobState("JOB_1")
	require.NoError(t, err)
	assert.Nil(t, st)

	count, err := f.state.CountStatEventsSince(store.StatAutoAssigned, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestProcessJob_WalksCandidatesOnRejection(t *testing.T) {
	f := newFixture(t)
	snap := roadcalltest.Snapshot(t, nil)
	job := pendingJob(t, f, "JOB_1", jobs.PriorityStandard)
	f.adapter.Candidates["JOB_1"] = []*jobs.ContractorCandidate{
		availableCandidate("CON_1", 2),
		availableCandidate("CON_2", 5),
	}
	f.adapter.OfferResponses["CON_1"] = jobs.OfferRejected

	require.NoError(t, f.dispatcher.ProcessJob(context.Background(), snap, job))

	assert.Equal(t, "CON_2", f.adapter.Assigned["JOB_1"])
	assert.Equal(t, 2, f.adapter.OfferCount())
	require.Len(t, f.adapter.Rejections, 1)
	assert.Equal(t, "CON_1", f.adapter.Rejections[0].ContractorID)
}

func TestProcessJob_ExhaustedAttemptsEscalate(t *testing.T) {
	f := newFixture(t)
	snap := roadcalltest.Snapshot(t, func(c *config.Config) {
		c.Alerting.MaxAlertAttempts = 3
	})
	job := pendingJob(t, f, "JOB_1", jobs.PriorityEmergency)
	f.adapter.Candidates["JOB_1"] = []*jobs.ContractorCandidate{
		availableCandidate("CON_1", 2),
		availableCandidate("CON_2", 5),
		availableCandidate("CON_3", 8),
		availableCandidate("CON_4", 11),
	}
	for _, id := range []string{"CON_1", "CON_2", "CON_3", "CON_4"} {
		f.adapter.OfferResponses[id] = jobs.OfferRejected
	}

	require.NoError(t, f.dispatcher.ProcessJob(context.Background(), snap, job))
	f.alerts.Wait()

	assert.Equal(t, 3, f.adapter.OfferCount(), "attempt budget caps the walk")
	assert.Equal(t, []string{"JOB_1"}, f.adapter.Escalated)
	assert.Empty(t, f.adapter.Assigned)

	st, err := f.state.GetJobState("JOB_1")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, jobs.StageManuallyEscalated, st.Stage)

	// Exhaustion alert bypasses cooldowns and lands immediately
	alertState, err := f.state.GetAlertState("JOB_1", alert.ChannelEmail)
	require.NoError(t, err)
	require.NotNil(t, alertState)
	assert.Equal(t, jobs.StageManuallyEscalated, alertState.Stage)
}

func TestProcessJob_NoEligibleCandidatesEscalates(t *testing.T) {
	f := newFixture(t)
	snap := roadcalltest.Snapshot(t, nil)
	job := pendingJob(t, f, "JOB_1", jobs.PriorityStandard)

	offline := availableCandidate("CON_off", 3)
	offline.Available = false
	f.adapter.Candidates["JOB_1"] = []*jobs.ContractorCandidate{offline}

	require.NoError(t, f.dispatcher.ProcessJob(context.Background(), snap, job))
	f.alerts.Wait()

	assert.Zero(t, f.adapter.OfferCount())
	assert.Equal(t, []string{"JOB_1"}, f.adapter.Escalated)
}

func TestProcessJob_RejectionCooldownBlocksReoffer(t *testing.T) {
	f := newFixture(t)
	snap := roadcalltest.Snapshot(t, nil)
	job := pendingJob(t, f, "JOB_1", jobs.PriorityStandard)
	f.adapter.Candidates["JOB_1"] = []*jobs.ContractorCandidate{
		availableCandidate("CON_recent", 2),
		availableCandidate("CON_other", 9),
	}

	// CON_recent rejected this job ten minutes ago, cooldown is 60
	require.NoError(t, f.state.RecordRejection("JOB_1", "CON_recent", time.Now().Add(-10*time.Minute)))

	require.NoError(t, f.dispatcher.ProcessJob(context.Background(), snap, job))

	assert.Equal(t, "CON_other", f.adapter.Assigned["JOB_1"])
	require.Equal(t, 1, f.adapter.OfferCount())
	assert.Equal(t, "CON_other", f.adapter.OfferCalls[0].ContractorID)
}

func TestProcessJob_VersionConflictYieldsSilently(t *testing.T) {
	f := newFixture(t)
	snap := roadcalltest.Snapshot(t, nil)
	job := pendingJob(t, f, "JOB_1", jobs.PriorityStandard)
	f.adapter.Candidates["JOB_1"] = []*jobs.ContractorCandidate{availableCandidate("CON_1", 2)}
	f.adapter.AssignErr = errors.Wrap(errors.ErrVersionConflict, "job updated by admin")

	require.NoError(t, f.dispatcher.ProcessJob(context.Background(), snap, job))

	assert.Empty(t, f.adapter.Assigned)
	assert.Empty(t, f.adapter.Escalated)

	st, err := f.state.GetJobState("JOB_1")
	require.NoError(t, err)
	assert.Nil(t, st, "engine state dropped in favor of the manual action")
}

func TestProcessJob_StoreFailurePropagates(t *testing.T) {
	f := newFixture(t)
	snap := roadcalltest.Snapshot(t, nil)
	job := pendingJob(t, f, "JOB_1", jobs.PriorityStandard)
	f.adapter.Unavailable = true

	err := f.dispatcher.ProcessJob(context.Background(), snap, job)
	require.Error(t, err)
	assert.True(t, errors.IsStoreUnavailable(err))
}

func TestRun_ProcessesInPriorityOrder(t *testing.T) {
	f := newFixture(t)
	snap := roadcalltest.Snapshot(t, nil)

	standard := pendingJob(t, f, "JOB_standard", jobs.PriorityStandard)
	standard.CreatedAt = time.Now().Add(-3 * time.Hour)
	emergency := pendingJob(t, f, "JOB_emergency", jobs.PriorityEmergency)

	// One shared contractor: the emergency job must get the offer first
	f.adapter.Candidates["JOB_standard"] = []*jobs.ContractorCandidate{availableCandidate("CON_1", 2)}
	f.adapter.Candidates["JOB_emergency"] = []*jobs.ContractorCandidate{availableCandidate("CON_1", 2)}

	f.dispatcher.Run(context.Background(), snap, []*jobs.Job{standard, emergency})

	require.GreaterOrEqual(t, f.adapter.OfferCount(), 1)
	assert.Equal(t, "JOB_emergency", f.adapter.OfferCalls[0].JobID)
	assert.Equal(t, "JOB_emergency", f.adapter.Assigned["JOB_emergency"])
}

func TestOrderByPriority(t *testing.T) {
	weights := map[string]int{"emergency": 10, "vip": 7, "standard": 3}
	old := time.Now().Add(-2 * time.Hour)
	newer := time.Now().Add(-time.Hour)

	list := []*jobs.Job{
		{ID: "JOB_c", PriorityClass: jobs.PriorityStandard, CreatedAt: old},
		{ID: "JOB_a", PriorityClass: jobs.PriorityEmergency, CreatedAt: newer},
		{ID: "JOB_b", PriorityClass: jobs.PriorityVIP, CreatedAt: old},
		{ID: "JOB_d", PriorityClass: jobs.PriorityVIP, CreatedAt: newer},
	}

	sorted := OrderByPriority(list, weights)

	got := make([]string, len(sorted))
	for i, j := range sorted {
		got[i] = j.ID
	}
	assert.Equal(t, []string{"JOB_a", "JOB_b", "JOB_d", "JOB_c"}, got)
	assert.Equal(t, "JOB_c", list[0].ID, "input order untouched")
}
