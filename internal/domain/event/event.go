package event

import (
	"context"
	"time"
)

// Outcome records how an inbound provider event was handled.
type Outcome string

const (
	OutcomeApplied          Outcome = "applied"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeRejected         Outcome = "rejected"
)

// Record is the dedup ledger row for one provider event. The provider
// event id is the identity; recording it is what makes replay safe.
type Record struct {
	ProviderEventID string
	Provider        string
	Reference       string
	Outcome         Outcome
	Reason          *string
	CreatedAt       time.Time
}

// Repository persists webhook event records.
type Repository interface {
	// Get returns the record for a provider event id, or nil when the
	// event has not been seen.
	Get(ctx context.Context, providerEventID string) (*Record, error)

	// Record inserts the outcome for an event. Inserting the same event
	// id twice is a conflict; callers check Get first and treat the
	// conflict as already processed.
	Record(ctx context.Context, r *Record) error

	// Update rewrites the outcome of an existing record. Used when a
	// rejected event is redelivered after its intent appears.
	Update(ctx context.Context, r *Record) error
}
