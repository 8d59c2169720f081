package booking

import (
	"testing"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/money"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTotal() money.Amount {
	return money.Amount{Minor: 120_000_00, Currency: "NGN"}
}

func TestNewBooking(t *testing.T) {
	checkIn := time.Now().Add(7 * 24 * time.Hour)
	checkOut := checkIn.Add(2 * 24 * time.Hour)

	b, err := NewBooking(uuid.New(), uuid.New(), uuid.New(), checkIn, checkOut, validTotal(), ModeInstant)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, StatusPendingPayment, b.Status)
	assert.Equal(t, 2, b.Nights)
	assert.Equal(t, ModeInstant, b.Mode)
}

func TestNewBooking_Validation(t *testing.T) {
	checkIn := time.Now().Add(24 * time.Hour)

	t.Run("invalid mode", func(t *testing.T) {
		_, err := NewBooking(uuid.New(), uuid.New(), uuid.New(),
			checkIn, checkIn.Add(24*time.Hour), validTotal(), Mode("weekly"))
		assert.Error(t, err)
	})

	t.Run("checkout before checkin", func(t *testing.T) {
		_, err := NewBooking(uuid.New(), uuid.New(), uuid.New(),
			checkIn, checkIn.Add(-24*time.Hour), validTotal(), ModeInstant)
		assert.Error(t, err)
	})

	t.Run("zero nights", func(t *testing.T) {
		_, err := NewBooking(uuid.New(), uuid.New(), uuid.New(),
			checkIn, checkIn.Add(6*time.Hour), validTotal(), ModeInstant)
		assert.Error(t, err)
	})

	t.Run("invalid amount", func(t *testing.T) {
		_, err := NewBooking(uuid.New(), uuid.New(), uuid.New(),
			checkIn, checkIn.Add(24*time.Hour), money.Amount{Minor: 0, Currency: "NGN"}, ModeInstant)
		assert.Error(t, err)
	})
}

func TestEdgeAllowed(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPendingPayment, StatusConfirmed, true},
		{StatusPendingPayment, StatusPending, true},
		{StatusPendingPayment, StatusCancelled, true},
		{StatusPendingPayment, StatusExpired, true},
		{StatusPendingPayment, StatusDeclined, false},
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusDeclined, true},
		{StatusPending, StatusExpired, true},
		{StatusPending, StatusCancelled, false},
		{StatusPending, StatusPendingPayment, false},
		// terminal statuses admit nothing
		{StatusConfirmed, StatusCancelled, false},
		{StatusConfirmed, StatusExpired, false},
		{StatusDeclined, StatusConfirmed, false},
		{StatusExpired, StatusConfirmed, false},
		{StatusCancelled, StatusPendingPayment, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, EdgeAllowed(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(StatusPending))
	assert.False(t, IsTerminal(StatusPendingPayment))
	assert.True(t, IsTerminal(StatusConfirmed))
	assert.True(t, IsTerminal(StatusDeclined))
	assert.True(t, IsTerminal(StatusCancelled))
	assert.True(t, IsTerminal(StatusExpired))
	assert.True(t, IsTerminal(StatusCompleted))
}

func TestEffectiveStatus(t *testing.T) {
	b := &Booking{Status: StatusConfirmed, CheckOut: time.Now().Add(-time.Hour)}
	assert.Equal(t, StatusCompleted, b.EffectiveStatus(time.Now()))

	b.CheckOut = time.Now().Add(time.Hour)
	assert.Equal(t, StatusConfirmed, b.EffectiveStatus(time.Now()))

	// completed is a read-time projection only for confirmed bookings
	b.Status = StatusPendingPayment
	b.CheckOut = time.Now().Add(-time.Hour)
	assert.Equal(t, StatusPendingPayment, b.EffectiveStatus(time.Now()))
}

func TestSuccessEdge(t *testing.T) {
	instant := &Booking{Mode: ModeInstant}
	assert.Equal(t, StatusConfirmed, instant.SuccessEdge())

	request := &Booking{Mode: ModeRequest}
	assert.Equal(t, StatusPending, request.SuccessEdge())
}
