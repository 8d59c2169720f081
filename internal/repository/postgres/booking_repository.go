package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	domainErrors "github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"time"
)

// BookingRepository implements booking.Repository using PostgreSQL.
type BookingRepository struct {
	pool *pgxpool.Pool
}

// NewBookingRepository creates a new BookingRepository.
func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const bookingColumns = `id, property_id, guest_id, host_id, check_in, check_out, nights,
	total_minor, currency, mode, status, created_at, updated_at`

// Create inserts a new booking.
func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO bookings
		 (id, property_id, guest_id, host_id, check_in, check_out, nights,
		  total_minor, currency, mode, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		b.ID, b.PropertyID, b.GuestID, b.HostID, b.CheckIn, b.CheckOut, b.Nights,
		b.Total.Minor, b.Total.Currency, string(b.Mode), string(b.Status), b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// Get retrieves a booking by ID.
func (r *BookingRepository) Get(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return r.scanBooking(r.db(ctx).QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
}

// Transition moves the booking from expected to next as a single
// conditional update. The WHERE clause on the current status is what
// makes concurrent reconciliation safe: of two racing writers, exactly
// one matches the row.
func (r *BookingRepository) Transition(ctx context.Context, id uuid.UUID, expected, next booking.Status) error {
	if !booking.EdgeAllowed(expected, next) {
		return domainErrors.ErrInvalidEdge
	}

	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE bookings SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status = $3`,
		string(next), id, string(expected),
	)
	if err != nil {
		return fmt.Errorf("transition booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the booking is missing or its status moved under us.
		var exists bool
		if err := r.db(ctx).QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check booking exists: %w", err)
		}
		if !exists {
			return domainErrors.ErrBookingNotFound
		}
		return domainErrors.ErrStaleTransition
	}
	return nil
}

// ListDecisionOverdue returns pending bookings whose host never answered
// before the cutoff.
func (r *BookingRepository) ListDecisionOverdue(ctx context.Context, cutoff time.Time, limit int) ([]*booking.Booking, error) {
	return r.listByStatusBefore(ctx, booking.StatusPending, cutoff, limit)
}

// ListPaymentOverdue returns pending_payment bookings whose checkout was
// never completed before the cutoff.
func (r *BookingRepository) ListPaymentOverdue(ctx context.Context, cutoff time.Time, limit int) ([]*booking.Booking, error) {
	return r.listByStatusBefore(ctx, booking.StatusPendingPayment, cutoff, limit)
}

func (r *BookingRepository) listByStatusBefore(ctx context.Context, status booking.Status, cutoff time.Time, limit int) ([]*booking.Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE status = $1 AND updated_at < $2
		 ORDER BY updated_at ASC
		 LIMIT $3`,
		string(status), cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*booking.Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *BookingRepository) scanBooking(s scanner) (*booking.Booking, error) {
	b := &booking.Booking{}
	var mode, status string
	err := s.Scan(
		&b.ID, &b.PropertyID, &b.GuestID, &b.HostID, &b.CheckIn, &b.CheckOut, &b.Nights,
		&b.Total.Minor, &b.Total.Currency, &mode, &status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrBookingNotFound
		}
		return nil, fmt.Errorf("scan booking: %w", err)
	}
	b.Mode = booking.Mode(mode)
	b.Status = booking.Status(status)
	return b, nil
}
