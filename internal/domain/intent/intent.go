package intent

import (
	"encoding/json"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/emekaobi/shortlet-payments/internal/domain/money"
	"github.com/google/uuid"
)

// Status is the payment intent status.
type Status string

const (
	StatusInitiated Status = "initiated"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Intent is a single attempt to collect payment for a booking. Intents
// are never deleted; a failed intent stays for audit and a fresh one is
// created for retry.
type Intent struct {
	ID        uuid.UUID
	BookingID uuid.UUID
	Provider  string
	// Reference is the provider-facing payment reference, unique per
	// provider.
	Reference string
	Status    Status
	Amount    money.Amount

	VerifyAttempts  int
	NeedsReconcile  bool
	ReconcileReason *string
	// ReconcileLockedUntil is the lease expiry. A worker may act on the
	// row only while it holds an unexpired lease.
	ReconcileLockedUntil *time.Time

	// ProviderPayload is the raw provider response captured for audit.
	ProviderPayload json.RawMessage
	ProviderEventID *string
	ProviderTxID    *string
	PaidAt          *time.Time

	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastVerifiedAt *time.Time
}

// New creates an intent in the initiated state. Amount and currency are
// copied from the booking at creation time; any later divergence is a
// reconciliation failure, never silently corrected.
func New(bookingID uuid.UUID, provider string, amount money.Amount) (*Intent, error) {
	if err := amount.Validate(); err != nil {
		return nil, err
	}
	if provider == "" {
		return nil, errors.NewValidationError("provider", "cannot be empty")
	}

	now := time.Now()
	return &Intent{
		ID:        uuid.New(),
		BookingID: bookingID,
		Provider:  provider,
		Reference: money.NewReference(),
		Status:    StatusInitiated,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsTerminal reports whether the intent reached a final payment state.
func (i *Intent) IsTerminal() bool {
	return i.Status == StatusSucceeded || i.Status == StatusFailed
}

// Active reports whether the intent blocks creation of a new one for the
// same booking: anything not failed does.
func (i *Intent) Active() bool {
	return i.Status != StatusFailed
}

// LeaseHeld reports whether an unexpired reconcile lease exists at now.
func (i *Intent) LeaseHeld(now time.Time) bool {
	return i.ReconcileLockedUntil != nil && i.ReconcileLockedUntil.After(now)
}
