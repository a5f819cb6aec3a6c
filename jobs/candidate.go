package jobs

import "time"

// ContractorCandidate is a contractor evaluated for an offer, as returned by
// the external store for a specific job. Distance is precomputed upstream
// (routing is not this engine's concern).
type ContractorCandidate struct {
	ID                  string     `json:"id"`
	DistanceMiles       float64    `json:"distance_miles"`
	Rating              float64    `json:"rating"`                     // 0-5
	Available           bool       `json:"available"`
	SpecializationMatch float64    `json:"specialization_match"`       // 0-1
	CompletionRate      float64    `json:"completion_rate"`            // percent
	ResponseTimeMinutes float64    `json:"response_time_minutes"`
	OpenJobs            int        `json:"open_jobs"`
	LastAssignedAt      *time.Time `json:"last_assigned_at,omitempty"`
}
