package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/emekaobi/shortlet-payments/internal/domain/intent"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IntentRepository implements intent.Repository using PostgreSQL.
type IntentRepository struct {
	pool *pgxpool.Pool
}

// NewIntentRepository creates a new IntentRepository.
func NewIntentRepository(pool *pgxpool.Pool) *IntentRepository {
	return &IntentRepository{pool: pool}
}

func (r *IntentRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

const intentColumns = `id, booking_id, provider, reference, status, amount_minor, currency,
	verify_attempts, needs_reconcile, reconcile_reason, reconcile_locked_until,
	provider_payload, provider_event_id, provider_tx_id, paid_at,
	created_at, updated_at, last_verified_at`

// Create inserts a new intent. A partial unique index on booking_id for
// non-failed rows enforces the one-active-intent rule at the database,
// surfaced as ErrDuplicateActiveIntent.
func (r *IntentRepository) Create(ctx context.Context, i *intent.Intent) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO payment_intents
		 (id, booking_id, provider, reference, status, amount_minor, currency,
		  verify_attempts, needs_reconcile, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		i.ID, i.BookingID, i.Provider, i.Reference, string(i.Status),
		i.Amount.Minor, i.Amount.Currency, i.VerifyAttempts, i.NeedsReconcile,
		i.CreatedAt, i.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicateActiveIntent
		}
		return fmt.Errorf("insert payment intent: %w", err)
	}
	return nil
}

// GetByID retrieves an intent by its internal id.
func (r *IntentRepository) GetByID(ctx context.Context, id uuid.UUID) (*intent.Intent, error) {
	return r.scanIntent(r.db(ctx).QueryRow(ctx,
		`SELECT `+intentColumns+` FROM payment_intents WHERE id = $1`, id))
}

// GetByReference retrieves an intent by provider name and reference.
func (r *IntentRepository) GetByReference(ctx context.Context, provider, reference string) (*intent.Intent, error) {
	return r.scanIntent(r.db(ctx).QueryRow(ctx,
		`SELECT `+intentColumns+`
		 FROM payment_intents WHERE provider = $1 AND reference = $2`,
		provider, reference))
}

// GetActiveByBooking returns the non-failed intent for a booking, if any.
func (r *IntentRepository) GetActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*intent.Intent, error) {
	return r.scanIntent(r.db(ctx).QueryRow(ctx,
		`SELECT `+intentColumns+`
		 FROM payment_intents
		 WHERE booking_id = $1 AND status <> 'failed'
		 ORDER BY created_at DESC
		 LIMIT 1`, bookingID))
}

// ListNeedingReconcile returns initiated intents that are stale or
// explicitly flagged, oldest first.
func (r *IntentRepository) ListNeedingReconcile(ctx context.Context, olderThan time.Time, limit int) ([]*intent.Intent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+intentColumns+`
		 FROM payment_intents
		 WHERE status = 'initiated' AND (updated_at < $1 OR needs_reconcile)
		 ORDER BY updated_at ASC
		 LIMIT $2`,
		olderThan, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list intents needing reconcile: %w", err)
	}
	defer rows.Close()

	var intents []*intent.Intent
	for rows.Next() {
		i, err := r.scanIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, i)
	}
	return intents, rows.Err()
}

// AcquireLock claims the reconcile lease in a single conditional update.
// The WHERE clause only matches rows whose lease is absent or expired,
// so of N racing workers exactly one gets RowsAffected == 1.
func (r *IntentRepository) AcquireLock(ctx context.Context, id uuid.UUID, leaseDuration time.Duration) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payment_intents
		 SET reconcile_locked_until = NOW() + $1, updated_at = NOW()
		 WHERE id = $2
		   AND (reconcile_locked_until IS NULL OR reconcile_locked_until < NOW())`,
		leaseDuration, id,
	)
	if err != nil {
		return false, fmt.Errorf("acquire reconcile lease: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseLock clears the lease without touching anything else.
func (r *IntentRepository) ReleaseLock(ctx context.Context, id uuid.UUID) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE payment_intents SET reconcile_locked_until = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("release reconcile lease: %w", err)
	}
	return nil
}

// MarkSucceeded records terminal success plus the provider evidence and
// clears all reconcile bookkeeping.
func (r *IntentRepository) MarkSucceeded(ctx context.Context, id uuid.UUID, providerTxID string, paidAt time.Time, payload json.RawMessage) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payment_intents
		 SET status = 'succeeded', provider_tx_id = $1, paid_at = $2, provider_payload = $3,
		     needs_reconcile = FALSE, reconcile_reason = NULL, reconcile_locked_until = NULL,
		     updated_at = NOW()
		 WHERE id = $4`,
		providerTxID, paidAt, payload, id,
	)
	if err != nil {
		return fmt.Errorf("mark intent succeeded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrPaymentNotFound
	}
	return nil
}

// MarkFailed records terminal failure.
func (r *IntentRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payment_intents
		 SET status = 'failed', reconcile_reason = $1,
		     needs_reconcile = FALSE, reconcile_locked_until = NULL,
		     updated_at = NOW()
		 WHERE id = $2`,
		reason, id,
	)
	if err != nil {
		return fmt.Errorf("mark intent failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrPaymentNotFound
	}
	return nil
}

// MarkNeedsReconcile flags the intent for manual review.
func (r *IntentRepository) MarkNeedsReconcile(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payment_intents
		 SET needs_reconcile = TRUE, reconcile_reason = $1, updated_at = NOW()
		 WHERE id = $2`,
		reason, id,
	)
	if err != nil {
		return fmt.Errorf("mark intent needs reconcile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrPaymentNotFound
	}
	return nil
}

// IncrementVerifyAttempts bumps the attempt counter and the verification
// timestamp.
func (r *IntentRepository) IncrementVerifyAttempts(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payment_intents
		 SET verify_attempts = verify_attempts + 1, last_verified_at = NOW(), updated_at = NOW()
		 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment verify attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrPaymentNotFound
	}
	return nil
}

// ClearReconcileState removes the flag, reason and lease. Idempotent.
func (r *IntentRepository) ClearReconcileState(ctx context.Context, id uuid.UUID) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE payment_intents
		 SET needs_reconcile = FALSE, reconcile_reason = NULL, reconcile_locked_until = NULL,
		     updated_at = NOW()
		 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clear reconcile state: %w", err)
	}
	return nil
}

func (r *IntentRepository) scanIntent(s scanner) (*intent.Intent, error) {
	i := &intent.Intent{}
	var status string
	var payload []byte
	err := s.Scan(
		&i.ID, &i.BookingID, &i.Provider, &i.Reference, &status, &i.Amount.Minor, &i.Amount.Currency,
		&i.VerifyAttempts, &i.NeedsReconcile, &i.ReconcileReason, &i.ReconcileLockedUntil,
		&payload, &i.ProviderEventID, &i.ProviderTxID, &i.PaidAt,
		&i.CreatedAt, &i.UpdatedAt, &i.LastVerifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("scan payment intent: %w", err)
	}
	i.Status = intent.Status(status)
	if len(payload) > 0 {
		i.ProviderPayload = json.RawMessage(payload)
	}
	return i, nil
}
