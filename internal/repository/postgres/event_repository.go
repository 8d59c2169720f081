package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/emekaobi/shortlet-payments/internal/domain/event"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository implements event.Repository using PostgreSQL. The
// webhook_events table is the dedup ledger: the primary key on the
// provider event id is what makes replays observable.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Get returns the record for a provider event id, or nil when unseen.
func (r *EventRepository) Get(ctx context.Context, providerEventID string) (*event.Record, error) {
	rec := &event.Record{}
	var outcome string
	err := r.db(ctx).QueryRow(ctx,
		`SELECT provider_event_id, provider, reference, outcome, reason, created_at
		 FROM webhook_events WHERE provider_event_id = $1`,
		providerEventID,
	).Scan(&rec.ProviderEventID, &rec.Provider, &rec.Reference, &outcome, &rec.Reason, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook event: %w", err)
	}
	rec.Outcome = event.Outcome(outcome)
	return rec, nil
}

// Record inserts the outcome for an event. A duplicate insert surfaces
// as ErrDuplicateEvent so the caller can treat it as already processed.
func (r *EventRepository) Record(ctx context.Context, rec *event.Record) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO webhook_events (provider_event_id, provider, reference, outcome, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		rec.ProviderEventID, rec.Provider, rec.Reference, string(rec.Outcome), rec.Reason,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicateEvent
		}
		return fmt.Errorf("insert webhook event: %w", err)
	}
	return nil
}

// Update rewrites the outcome of an existing record.
func (r *EventRepository) Update(ctx context.Context, rec *event.Record) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE webhook_events SET outcome = $2, reason = $3 WHERE provider_event_id = $1`,
		rec.ProviderEventID, string(rec.Outcome), rec.Reason,
	)
	if err != nil {
		return fmt.Errorf("update webhook event: %w", err)
	}
	return nil
}
