package checkout

import (
	"context"
	"errors"

	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	domainErrors "github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/emekaobi/shortlet-payments/internal/domain/intent"
	"github.com/emekaobi/shortlet-payments/internal/infrastructure/observability"
	"github.com/emekaobi/shortlet-payments/internal/providers"
	"github.com/google/uuid"
)

// InitializeCheckoutRequest holds the input for starting a checkout.
type InitializeCheckoutRequest struct {
	BookingID     uuid.UUID
	Provider      string
	CustomerEmail string
	CallbackURL   string
}

// InitializeCheckoutResponse carries the created intent and the redirect
// handle the guest completes payment with.
type InitializeCheckoutResponse struct {
	Intent      *intent.Intent
	CheckoutURL string
	AccessToken string
}

// InitializeCheckoutUseCase creates a payment intent and opens a
// provider checkout session for it.
type InitializeCheckoutUseCase struct {
	bookings booking.Repository
	intents  intent.Repository
	factory  *providers.Factory
	metrics  *observability.Metrics
}

// NewInitializeCheckoutUseCase creates a new InitializeCheckoutUseCase.
func NewInitializeCheckoutUseCase(
	bookings booking.Repository,
	intents intent.Repository,
	factory *providers.Factory,
	metrics *observability.Metrics,
) *InitializeCheckoutUseCase {
	return &InitializeCheckoutUseCase{
		bookings: bookings,
		intents:  intents,
		factory:  factory,
		metrics:  metrics,
	}
}

// Execute starts a checkout. The amount is copied from the booking, never
// taken from the caller; the provider session and the stored intent are
// created against the same reference.
func (uc *InitializeCheckoutUseCase) Execute(ctx context.Context, req InitializeCheckoutRequest) (*InitializeCheckoutResponse, error) {
	b, err := uc.bookings.Get(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != booking.StatusPendingPayment {
		return nil, domainErrors.ErrInvalidEdge
	}

	if existing, err := uc.intents.GetActiveByBooking(ctx, b.ID); err == nil && existing != nil {
		return nil, domainErrors.ErrDuplicateActiveIntent
	} else if err != nil && !errors.Is(err, domainErrors.ErrPaymentNotFound) {
		return nil, err
	}

	provider, err := uc.factory.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	i, err := intent.New(b.ID, provider.Name(), b.Total)
	if err != nil {
		return nil, err
	}

	result, err := provider.Initialize(ctx, providers.InitializeRequest{
		BookingID:     b.ID.String(),
		Reference:     i.Reference,
		AmountMinor:   i.Amount.Minor,
		Currency:      i.Amount.Currency,
		CustomerEmail: req.CustomerEmail,
		CallbackURL:   req.CallbackURL,
		Metadata: map[string]any{
			"booking_id": b.ID.String(),
			"guest_id":   b.GuestID.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	// Persist only after the session exists. A session without a stored
	// intent is inert; a stored intent without a session would sit in
	// initiated until the reconciler declares it failed.
	if err := uc.intents.Create(ctx, i); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.IntentsCreated.WithLabelValues(i.Provider).Inc()
	}

	return &InitializeCheckoutResponse{
		Intent:      i,
		CheckoutURL: result.CheckoutURL,
		AccessToken: result.AccessToken,
	}, nil
}
