// Package store defines the boundary to the platform's job/contractor store
// and persists the engine's own derived state.
package store

import (
	"context"
	"time"

	"github.com/openroad/roadcall/jobs"
)

// Adapter is the read/write surface of the external platform store. Jobs and
// contractors are owned out there; the engine only consumes and annotates
// them. Implementations wrap whatever the platform backend is (HTTP API,
// shared database) and are expected to return errors wrapping
// errors.ErrStoreUnavailable on transport failure so the engine can skip the
// tick instead of acting on uncertain state.
type Adapter interface {
	// ListOpenJobs returns every non-terminal job.
	ListOpenJobs(ctx context.Context) ([]*jobs.Job, error)

	// GetCandidates returns the contractor candidates for a job, with
	// distance precomputed upstream.
	GetCandidates(ctx context.Context, jobID string) ([]*jobs.ContractorCandidate, error)

	// OfferJob presents the job to a contractor and blocks until the
	// contractor responds or the window expires. A timeout resolves to
	// jobs.OfferExpired, not an error.
	OfferJob(ctx context.Context, jobID, contractorID string, expiresAt time.Time) (jobs.OfferStatus, error)

	// RecordRejection informs the platform that the contractor declined
	// (or sat out) the offer.
	RecordRejection(ctx context.Context, jobID, contractorID string) error

	// AssignJob assigns the job to the contractor. expectedVersion is the
	// job version observed at tick start; implementations must return an
	// error wrapping errors.ErrVersionConflict when the job record changed
	// in between (last-writer-wins arbitration for manual admin actions).
	AssignJob(ctx context.Context, jobID, contractorID string, expectedVersion int64) error

	// EscalateManually flags the job for human assignment.
	EscalateManually(ctx context.Context, jobID string) error
}
