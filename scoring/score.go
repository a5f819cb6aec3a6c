// Package scoring filters and ranks contractor candidates for a job offer.
// Every assignment algorithm runs through the same weighted scoring path;
// switching algorithm swaps the weight vector, not the code.
package scoring

import (
	"sort"
	"time"

	"github.com/openroad/roadcall/config"
	"github.com/openroad/roadcall/jobs"
)

// factorWeights is the resolved weight vector for one ranking pass.
// Weights are 0-100 and sum to 100 for every algorithm except round_robin,
// which bypasses scoring entirely.
type factorWeights struct {
	distance       int
	rating         int
	availability   int
	specialization int
	completionRate int
	responseTime   int
}

// Ranker scores candidates against one frozen configuration. Build a new
// Ranker per tick from the active snapshot; it carries no mutable state.
type Ranker struct {
	algorithm    string
	weights      factorWeights
	radiusMiles  float64
	penalty      float64
	respCritical float64
}

// NewRanker resolves the weight vector for the configured algorithm.
func NewRanker(cfg config.Config) *Ranker {
	return &Ranker{
		algorithm:    cfg.Assignment.Algorithm,
		weights:      weightsFor(cfg.Assignment.Algorithm, cfg.Selection),
		radiusMiles:  cfg.Selection.ServiceRadiusMiles,
		penalty:      cfg.Selection.WorkloadPenalty,
		respCritical: float64(cfg.Thresholds.ResponseTime.Critical),
	}
}

func weightsFor(algorithm string, sel config.SelectionConfig) factorWeights {
	switch algorithm {
	case config.AlgorithmNearestAvailable:
		return factorWeights{distance: 100}
	case config.AlgorithmHighestRating:
		return factorWeights{rating: 100}
	case config.AlgorithmFastestResponse:
		return factorWeights{responseTime: 100}
	case config.AlgorithmBalancedWorkload:
		return factorWeights{completionRate: 50, availability: 50}
	default:
		// smart_match uses the configured vector; round_robin ignores
		// weights and orders by last assignment instead.
		return factorWeights{
			distance:       sel.Distance,
			rating:         sel.Rating,
			availability:   sel.Availability,
			specialization: sel.Specialization,
			completionRate: sel.CompletionRate,
			responseTime:   sel.ResponseTime,
		}
	}
}

// Eligible reports whether a candidate may receive an offer for this job:
// available, inside the service radius, and not inside an active rejection
// cooldown. rejections maps contractor ID to the last rejection time still
// within the cooldown window.
func (r *Ranker) Eligible(c *jobs.ContractorCandidate, rejections map[string]time.Time) bool {
	if !c.Available {
		return false
	}
	if c.DistanceMiles > r.radiusMiles {
		return false
	}
	if _, rejected := rejections[c.ID]; rejected {
		return false
	}
	return true
}

// Score computes the candidate's weighted score on a 0-100 scale.
// balanced_workload additionally subtracts an open-job penalty, clamped so
// the score never goes negative.
func (r *Ranker) Score(c *jobs.ContractorCandidate) float64 {
	w := r.weights
	sum := float64(w.distance)*r.normalizeDistance(c.DistanceMiles) +
		float64(w.rating)*normalizeRating(c.Rating) +
		float64(w.availability)*normalizeAvailability(c.Available) +
		float64(w.specialization)*normalizeSpecialization(c.SpecializationMatch) +
		float64(w.completionRate)*clamp(c.CompletionRate, 0, 100) +
		float64(w.responseTime)*r.normalizeResponseTime(c.ResponseTimeMinutes)

	score := sum / 100
	if r.algorithm == config.AlgorithmBalancedWorkload {
		score -= float64(c.OpenJobs) * r.penalty
		if score < 0 {
			score = 0
		}
	}
	return score
}

// Rank filters ineligible candidates and returns the rest in offer order.
// For scoring algorithms the order is score descending, ties broken by lower
// response time, then by contractor ID. round_robin orders by ascending
// LastAssignedAt (never-assigned first), ties by ID.
func (r *Ranker) Rank(candidates []*jobs.ContractorCandidate, rejections map[string]time.Time) []*jobs.ContractorCandidate {
	eligible := make([]*jobs.ContractorCandidate, 0, len(candidates))
	for _, c := range candidates {
		if r.Eligible(c, rejections) {
			eligible = append(eligible, c)
		}
	}

	if r.algorithm == config.AlgorithmRoundRobin {
		sort.SliceStable(eligible, func(i, j int) bool {
			return lessRoundRobin(eligible[i], eligible[j])
		})
		return eligible
	}

	scores := make(map[string]float64, len(eligible))
	for _, c := range eligible {
		scores[c.ID] = r.Score(c)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if scores[a.ID] != scores[b.ID] {
			return scores[a.ID] > scores[b.ID]
		}
		if a.ResponseTimeMinutes != b.ResponseTimeMinutes {
			return a.ResponseTimeMinutes < b.ResponseTimeMinutes
		}
		return a.ID < b.ID
	})
	return eligible
}

func lessRoundRobin(a, b *jobs.ContractorCandidate) bool {
	switch {
	case a.LastAssignedAt == nil && b.LastAssignedAt == nil:
		return a.ID < b.ID
	case a.LastAssignedAt == nil:
		return true
	case b.LastAssignedAt == nil:
		return false
	case !a.LastAssignedAt.Equal(*b.LastAssignedAt):
		return a.LastAssignedAt.Before(*b.LastAssignedAt)
	default:
		return a.ID < b.ID
	}
}

// normalizeDistance maps distance inversely onto 0-100: zero miles scores
// 100, the service radius scores 0.
func (r *Ranker) normalizeDistance(miles float64) float64 {
	if r.radiusMiles <= 0 {
		return 0
	}
	return clamp((r.radiusMiles-miles)/r.radiusMiles*100, 0, 100)
}

// normalizeResponseTime maps average response time inversely onto 0-100,
// clipped at the response-time critical threshold.
func (r *Ranker) normalizeResponseTime(minutes float64) float64 {
	if r.respCritical <= 0 {
		return 0
	}
	return clamp((r.respCritical-minutes)/r.respCritical*100, 0, 100)
}

func normalizeRating(rating float64) float64 {
	return clamp(rating/5*100, 0, 100)
}

func normalizeAvailability(available bool) float64 {
	if available {
		return 100
	}
	return 0
}

func normalizeSpecialization(match float64) float64 {
	return clamp(match*100, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
