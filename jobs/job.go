// Package jobs defines the domain types shared by the monitoring,
// scoring, assignment, and alerting packages.
package jobs

import "time"

// Status represents the lifecycle state of a job in the external store.
type Status string

const (
	StatusOpen      Status = "open"
	StatusAssigned  Status = "assigned"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal returns true if a job in this status has exited monitoring.
func (s Status) IsTerminal() bool {
	return s == StatusAssigned || s == StatusCompleted || s == StatusCancelled
}

// IsValidStatus returns true if the status string is a valid Status.
func IsValidStatus(s string) bool {
	switch Status(s) {
	case StatusOpen, StatusAssigned, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// PriorityClass categorizes a job for processing order under contention.
type PriorityClass string

const (
	PriorityEmergency PriorityClass = "emergency"
	PriorityFleet     PriorityClass = "fleet"
	PriorityVIP       PriorityClass = "vip"
	PriorityScheduled PriorityClass = "scheduled"
	PriorityStandard  PriorityClass = "standard"
)

// PriorityClasses lists every class, in no significant order.
// Configuration carries the actual 1-10 weight per class.
var PriorityClasses = []PriorityClass{
	PriorityEmergency,
	PriorityFleet,
	PriorityVIP,
	PriorityScheduled,
	PriorityStandard,
}

// Job is a roadside-repair job as owned by the external store.
// The engine never mutates these fields directly; it reads them each tick
// and keeps its own derived state (escalation stage, cooldowns, offers)
// keyed by ID.
type Job struct {
	ID            string        `json:"id"`
	Status        Status        `json:"status"`
	PriorityClass PriorityClass `json:"priority_class"`
	CreatedAt     time.Time     `json:"created_at"`
	// FirstResponseAt is set by the store once any contractor responded
	// to the job. Nil while the job is still waiting for a first response.
	FirstResponseAt *time.Time `json:"first_response_at,omitempty"`
	// Version is the arbitration key for last-writer-wins checks. A manual
	// admin action bumps it; auto-assignment submits the version it observed
	// at tick start and loses on mismatch.
	Version int64 `json:"version"`
}

// AgeMinutes returns the job age at the given instant.
func (j *Job) AgeMinutes(now time.Time) float64 {
	return now.Sub(j.CreatedAt).Minutes()
}

// ResponseTimeMinutes returns the elapsed time to first contractor response,
// or (0, false) when no response was recorded yet.
func (j *Job) ResponseTimeMinutes() (float64, bool) {
	if j.FirstResponseAt == nil {
		return 0, false
	}
	return j.FirstResponseAt.Sub(j.CreatedAt).Minutes(), true
}
