package testutil

import (
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	"github.com/emekaobi/shortlet-payments/internal/domain/intent"
	"github.com/emekaobi/shortlet-payments/internal/domain/money"
	"github.com/google/uuid"
)

// NGN amounts in kobo.
const (
	TwoNightsLagos int64 = 120_000_00
	OneNightAbuja  int64 = 45_000_00
)

func NewTestBooking(mode booking.Mode, status booking.Status) *booking.Booking {
	now := time.Now()
	return &booking.Booking{
		ID:         uuid.New(),
		PropertyID: uuid.New(),
		GuestID:    uuid.New(),
		HostID:     uuid.New(),
		CheckIn:    now.Add(7 * 24 * time.Hour),
		CheckOut:   now.Add(9 * 24 * time.Hour),
		Nights:     2,
		Total:      money.Amount{Minor: TwoNightsLagos, Currency: "NGN"},
		Mode:       mode,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func NewTestIntent(bookingID uuid.UUID, provider string, amountMinor int64) *intent.Intent {
	now := time.Now()
	return &intent.Intent{
		ID:        uuid.New(),
		BookingID: bookingID,
		Provider:  provider,
		Reference: money.NewReference(),
		Status:    intent.StatusInitiated,
		Amount:    money.Amount{Minor: amountMinor, Currency: "NGN"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
