package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openroad/roadcall/config"
	"github.com/openroad/roadcall/jobs"
)

func testConfig(algorithm string) config.Config {
	var cfg config.Config
	cfg.Assignment.Algorithm = algorithm
	cfg.Selection = config.SelectionConfig{
		Distance:           25,
		Rating:             20,
		Availability:       20,
		Specialization:     15,
		CompletionRate:     10,
		ResponseTime:       10,
		ServiceRadiusMiles: 50,
		WorkloadPenalty:    5,
	}
	cfg.Thresholds.ResponseTime = config.ThresholdPair{Warning: 10, Critical: 25}
	return cfg
}

func candidate(id string, distance, rating float64) *jobs.ContractorCandidate {
	return &jobs.ContractorCandidate{
		ID:                  id,
		DistanceMiles:       distance,
		Rating:              rating,
		Available:           true,
		SpecializationMatch: 1,
		CompletionRate:      90,
		ResponseTimeMinutes: 10,
	}
}

func TestRank_NearestAvailableIgnoresRating(t *testing.T) {
	r := NewRanker(testConfig(config.AlgorithmNearestAvailable))

	ranked := r.Rank([]*jobs.ContractorCandidate{
		candidate("CON_far", 10, 4.5),
		candidate("CON_near", 2, 3.0),
		candidate("CON_mid", 5, 5.0),
	}, nil)

	require.Len(t, ranked, 3)
	assert.Equal(t, "CON_near", ranked[0].ID, "closest contractor wins despite lowest rating")
	assert.Equal(t, "CON_mid", ranked[1].ID)
	assert.Equal(t, "CON_far", ranked[2].ID)
}

func TestRank_HighestRating(t *testing.T) {
	r := NewRanker(testConfig(config.AlgorithmHighestRating))

	ranked := r.Rank([]*jobs.ContractorCandidate{
		candidate("CON_a", 2, 3.0),
		candidate("CON_b", 40, 5.0),
	}, nil)

	require.Len(t, ranked, 2)
	assert.Equal(t, "CON_b", ranked[0].ID)
}

func TestRank_SmartMatchUsesFullVector(t *testing.T) {
	r := NewRanker(testConfig(config.AlgorithmSmartMatch))

	strong := candidate("CON_strong", 5, 4.8)
	weak := candidate("CON_weak", 45, 2.5)
	weak.SpecializationMatch = 0.2
	weak.CompletionRate = 40
	weak.ResponseTimeMinutes = 24

	assert.Greater(t, r.Score(strong), r.Score(weak))

	ranked := r.Rank([]*jobs.ContractorCandidate{weak, strong}, nil)
	require.Len(t, ranked, 2)
	assert.Equal(t, "CON_strong", ranked[0].ID)
}

func TestScore_NormalizationBounds(t *testing.T) {
	r := NewRanker(testConfig(config.AlgorithmSmartMatch))

	best := candidate("CON_best", 0, 5.0)
	best.CompletionRate = 100
	best.ResponseTimeMinutes = 0
	assert.InDelta(t, 100, r.Score(best), 0.001)

	worst := candidate("CON_worst", 50, 0)
	worst.SpecializationMatch = 0
	worst.CompletionRate = 0
	worst.ResponseTimeMinutes = 60
	// Availability is the only non-zero factor left
	assert.InDelta(t, 20, r.Score(worst), 0.001)

	// Out-of-range inputs clamp instead of overflowing
	over := candidate("CON_over", 0, 7.5)
	over.CompletionRate = 180
	over.SpecializationMatch = 2
	over.ResponseTimeMinutes = -5
	assert.InDelta(t, 100, r.Score(over), 0.001)
}

func TestScore_BalancedWorkloadPenalty(t *testing.T) {
	r := NewRanker(testConfig(config.AlgorithmBalancedWorkload))

	idle := candidate("CON_idle", 5, 4.0)
	busy := candidate("CON_busy", 5, 4.0)
	busy.OpenJobs = 3

	assert.InDelta(t, 95, r.Score(idle), 0.001)
	assert.InDelta(t, 80, r.Score(busy), 0.001, "3 open jobs at penalty 5 each")

	swamped := candidate("CON_swamped", 5, 4.0)
	swamped.OpenJobs = 100
	assert.Zero(t, r.Score(swamped), "penalty clamps at zero")
}

func TestRank_RoundRobinOrdersByLastAssignment(t *testing.T) {
	r := NewRanker(testConfig(config.AlgorithmRoundRobin))
	now := time.Now()
	older := now.Add(-2 * time.Hour)
	newer := now.Add(-10 * time.Minute)

	recent := candidate("CON_recent", 5, 5.0)
	recent.LastAssignedAt = &newer
	stale := candidate("CON_stale", 40, 2.0)
	stale.LastAssignedAt = &older
	never := candidate("CON_never", 20, 3.0)

	ranked := r.Rank([]*jobs.ContractorCandidate{recent, stale, never}, nil)

	require.Len(t, ranked, 3)
	assert.Equal(t, "CON_never", ranked[0].ID, "never-assigned goes first")
	assert.Equal(t, "CON_stale", ranked[1].ID)
	assert.Equal(t, "CON_recent", ranked[2].ID)
}

func TestRank_FiltersIneligibleCandidates(t *testing.T) {
	r := NewRanker(testConfig(config.AlgorithmSmartMatch))

	unavailable := candidate("CON_off", 5, 5.0)
	unavailable.Available = false
	outOfRange := candidate("CON_far", 80, 5.0)
	rejected := candidate("CON_rejected", 5, 5.0)
	ok := candidate("CON_ok", 10, 4.0)

	ranked := r.Rank(
		[]*jobs.ContractorCandidate{unavailable, outOfRange, rejected, ok},
		map[string]time.Time{"CON_rejected": time.Now()},
	)

	require.Len(t, ranked, 1)
	assert.Equal(t, "CON_ok", ranked[0].ID)
}

func TestRank_DeterministicTieBreaks(t *testing.T) {
	r := NewRanker(testConfig(config.AlgorithmHighestRating))

	slow := candidate("CON_a", 5, 4.0)
	slow.ResponseTimeMinutes = 20
	fast := candidate("CON_b", 5, 4.0)
	fast.ResponseTimeMinutes = 5
	twinOfFast := candidate("CON_c", 5, 4.0)
	twinOfFast.ResponseTimeMinutes = 5

	ranked := r.Rank([]*jobs.ContractorCandidate{slow, twinOfFast, fast}, nil)

	require.Len(t, ranked, 3)
	assert.Equal(t, "CON_b", ranked[0].ID, "equal score, lower response time first, then ID")
	assert.Equal(t, "CON_c", ranked[1].ID)
	assert.Equal(t, "CON_a", ranked[2].ID)
}
