package store

import (
	"context"
	"sync"
	"time"

	"github.com/openroad/roadcall/errors"
	"github.com/openroad/roadcall/jobs"
)

// OfferCall records one OfferJob invocation against the fake adapter.
type OfferCall struct {
	JobID        string
	ContractorID string
	ExpiresAt    time.Time
}

// FakeAdapter is an in-memory Adapter for tests. Offer outcomes are scripted
// per contractor (or per call via OfferFunc); unscripted offers resolve to
// accepted.
type FakeAdapter struct {
	mu sync.Mutex

	Jobs       []*jobs.Job
	Candidates map[string][]*jobs.ContractorCandidate

	// OfferResponses maps contractor ID to the outcome of any offer made to
	// that contractor. OfferFunc, when set, wins over OfferResponses.
	OfferResponses map[string]jobs.OfferStatus
	OfferFunc      func(jobID, contractorID string) (jobs.OfferStatus, error)

	// Unavailable, when true, makes every call fail with ErrStoreUnavailable.
	Unavailable bool

	// AssignErr, when set, is returned by AssignJob (e.g. a version conflict).
	AssignErr error

	OfferCalls []OfferCall
	Rejections []OfferCall
	Assigned   map[string]string // jobID -> contractorID
	Escalated  []string
}

// NewFakeAdapter creates an empty fake adapter.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{
		Candidates:     make(map[string][]*jobs.ContractorCandidate),
		OfferResponses: make(map[string]jobs.OfferStatus),
		Assigned:       make(map[string]string),
	}
}

func (f *FakeAdapter) ListOpenJobs(ctx context.Context) ([]*jobs.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "fake store down")
	}

	var open []*jobs.Job
	for _, j := range f.Jobs {
		if !j.Status.IsTerminal() {
			open = append(open, j)
		}
	}
	return open, nil
}

func (f *FakeAdapter) GetCandidates(ctx context.Context, jobID string) ([]*jobs.ContractorCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, "fake store down")
	}
	return f.Candidates[jobID], nil
}

func (f *FakeAdapter) OfferJob(ctx context.Context, jobID, contractorID string, expiresAt time.Time) (jobs.OfferStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return jobs.OfferExpired, errors.Wrap(errors.ErrStoreUnavailable, "fake store down")
	}

	f.OfferCalls = append(f.OfferCalls, OfferCall{JobID: jobID, ContractorID: contractorID, ExpiresAt: expiresAt})

	if f.OfferFunc != nil {
		return f.OfferFunc(jobID, contractorID)
	}
	if status, ok := f.OfferResponses[contractorID]; ok {
		return status, nil
	}
	return jobs.OfferAccepted, nil
}

func (f *FakeAdapter) RecordRejection(ctx context.Context, jobID, contractorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Rejections = append(f.Rejections, OfferCall{JobID: jobID, ContractorID: contractorID})
	return nil
}

func (f *FakeAdapter) AssignJob(ctx context.Context, jobID, contractorID string, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AssignErr != nil {
		return f.AssignErr
	}

	f.Assigned[jobID] = contractorID
	for _, j := range f.Jobs {
		if j.ID == jobID {
			j.Status = jobs.StatusAssigned
			j.Version++
		}
	}
	return nil
}

func (f *FakeAdapter) EscalateManually(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Escalated = append(f.Escalated, jobID)
	return nil
}

// OfferCount returns how many offers were made so far.
func (f *FakeAdapter) OfferCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.OfferCalls)
}

var _ Adapter = (*FakeAdapter)(nil)
