package providers

import (
	"context"
	"encoding/json"
	"time"
)

// InitializeRequest carries everything a provider needs to start a
// checkout session. Amounts are integer minor units.
type InitializeRequest struct {
	BookingID     string
	Reference     string
	AmountMinor   int64
	Currency      string
	CustomerEmail string
	CallbackURL   string
	Metadata      map[string]any
}

// InitializeResult is the provider's checkout handle.
type InitializeResult struct {
	CheckoutURL string
	// AccessToken is set by providers that hand out a session token
	// alongside the redirect URL.
	AccessToken string
}

// VerifyOutcome is the normalized result of asking a provider what
// happened to a reference. OK means the provider reports success; the
// engine still cross-checks amount and currency before believing it.
// Definitive reports whether Status is a final verdict: a charge that
// is not OK and not Definitive is still in flight (bank transfers and
// USSD sit in "pending"/"ongoing" for minutes) and must not be treated
// as failed.
type VerifyOutcome struct {
	OK           bool
	Status       string
	Definitive   bool
	AmountMinor  int64
	Currency     string
	PaidAt       *time.Time
	ProviderTxID *string
	Raw          json.RawMessage
}

// Provider is the uniform adapter over one payment rail. Implementations
// hold no mutable state beyond their configuration; all persistence is
// the caller's problem.
type Provider interface {
	// Name returns the provider name used in references and routing.
	Name() string

	// Initialize starts a checkout session for the reference.
	// Errors are classified: transient failures wrap ErrTransientProvider,
	// definitive rejections wrap ErrPermanentProvider.
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)

	// Verify fetches the authoritative state of a reference. Same error
	// classification as Initialize; a nil error guarantees a non-nil
	// outcome.
	Verify(ctx context.Context, reference string) (*VerifyOutcome, error)
}
