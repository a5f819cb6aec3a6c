package jobs

import (
	"time"

	"github.com/google/uuid"
)

// OfferStatus is the resolution state of a pending offer.
type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
	OfferExpired  OfferStatus = "expired"
)

// Offer is a pending proposal of one job to one contractor, resolved by
// accept, reject, or timeout.
type Offer struct {
	ID           string      `json:"id"`
	JobID        string      `json:"job_id"`
	ContractorID string      `json:"contractor_id"`
	Status       OfferStatus `json:"status"`
	OfferedAt    time.Time   `json:"offered_at"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

// NewOffer creates a pending offer with the given window.
func NewOffer(jobID, contractorID string, offeredAt time.Time, window time.Duration) *Offer {
	return &Offer{
		ID:           uuid.NewString(),
		JobID:        jobID,
		ContractorID: contractorID,
		Status:       OfferPending,
		OfferedAt:    offeredAt,
		ExpiresAt:    offeredAt.Add(window),
	}
}

// Resolve marks the offer with its final status.
func (o *Offer) Resolve(status OfferStatus) {
	o.Status = status
}
