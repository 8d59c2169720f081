package controller

import (
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	"github.com/emekaobi/shortlet-payments/internal/domain/intent"
)

// --- Request DTOs ---
// DTOs carry HTTP/JSON concerns (string IDs, validation tags). Amounts
// are integer minor units on the wire as well; floats never touch money.

// CreateBookingRequest holds the input for booking intake.
type CreateBookingRequest struct {
	PropertyID string `json:"property_id" validate:"required,uuid"`
	GuestID    string `json:"guest_id" validate:"required,uuid"`
	HostID     string `json:"host_id" validate:"required,uuid"`
	CheckIn    string `json:"check_in" validate:"required"`
	CheckOut   string `json:"check_out" validate:"required"`
	TotalMinor int64  `json:"total_minor" validate:"required,gt=0"`
	Currency   string `json:"currency" validate:"required,len=3"`
	Mode       string `json:"mode" validate:"required,oneof=instant request"`
}

// CheckoutRequest holds the input for starting a checkout session.
type CheckoutRequest struct {
	Provider      string `json:"provider" validate:"required,alphanum"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	CallbackURL   string `json:"callback_url,omitempty" validate:"omitempty,url"`
}

// HostDecisionRequest holds a host's approve or decline.
type HostDecisionRequest struct {
	HostID   string `json:"host_id" validate:"required,uuid"`
	Decision string `json:"decision" validate:"required,oneof=approve decline"`
}

// --- Response DTOs ---

// BookingResponse represents a booking in API responses.
type BookingResponse struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	GuestID    string    `json:"guest_id"`
	HostID     string    `json:"host_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Nights     int       `json:"nights"`
	TotalMinor int64     `json:"total_minor"`
	Currency   string    `json:"currency"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PaymentIntentResponse represents a payment intent in API responses.
type PaymentIntentResponse struct {
	ID             string     `json:"id"`
	BookingID      string     `json:"booking_id"`
	Provider       string     `json:"provider"`
	Reference      string     `json:"reference"`
	Status         string     `json:"status"`
	AmountMinor    int64      `json:"amount_minor"`
	Currency       string     `json:"currency"`
	VerifyAttempts int        `json:"verify_attempts"`
	NeedsReconcile bool       `json:"needs_reconcile"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CheckoutResponse is the handle the guest completes payment with.
type CheckoutResponse struct {
	Intent      *PaymentIntentResponse `json:"intent"`
	CheckoutURL string                 `json:"checkout_url"`
	AccessToken string                 `json:"access_token,omitempty"`
}

// StatusResponse is the combined booking and payment view.
type StatusResponse struct {
	Booking *BookingResponse       `json:"booking"`
	Payment *PaymentIntentResponse `json:"payment,omitempty"`
	State   string                 `json:"state"`
}

// WebhookAck acknowledges a provider event.
type WebhookAck struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// ReplayResponse reports an admin replay result.
type ReplayResponse struct {
	RecordedOutcome string `json:"recorded_outcome"`
	Applied         bool   `json:"applied"`
	PaymentStatus   string `json:"payment_status"`
	BookingStatus   string `json:"booking_status"`
}

// ReconcileSummaryResponse reports a triggered reconciliation pass.
type ReconcileSummaryResponse struct {
	Scanned         int `json:"scanned"`
	Locked          int `json:"locked"`
	SkippedTerminal int `json:"skipped_terminal"`
	Reconciled      int `json:"reconciled"`
	StillPending    int `json:"still_pending"`
	Errors          int `json:"errors"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromBooking converts a domain booking to an API response.
func FromBooking(b *booking.Booking) *BookingResponse {
	return &BookingResponse{
		ID:         b.ID.String(),
		PropertyID: b.PropertyID.String(),
		GuestID:    b.GuestID.String(),
		HostID:     b.HostID.String(),
		CheckIn:    b.CheckIn,
		CheckOut:   b.CheckOut,
		Nights:     b.Nights,
		TotalMinor: b.Total.Minor,
		Currency:   b.Total.Currency,
		Mode:       string(b.Mode),
		Status:     string(b.Status),
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

// FromIntent converts a domain payment intent to an API response.
func FromIntent(i *intent.Intent) *PaymentIntentResponse {
	return &PaymentIntentResponse{
		ID:             i.ID.String(),
		BookingID:      i.BookingID.String(),
		Provider:       i.Provider,
		Reference:      i.Reference,
		Status:         string(i.Status),
		AmountMinor:    i.Amount.Minor,
		Currency:       i.Amount.Currency,
		VerifyAttempts: i.VerifyAttempts,
		NeedsReconcile: i.NeedsReconcile,
		PaidAt:         i.PaidAt,
		CreatedAt:      i.CreatedAt,
	}
}
