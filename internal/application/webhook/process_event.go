package webhook

import (
	"context"
	"errors"

	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	domainErrors "github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/emekaobi/shortlet-payments/internal/domain/event"
	"github.com/emekaobi/shortlet-payments/internal/domain/intent"
	"github.com/emekaobi/shortlet-payments/internal/engine"
	"github.com/emekaobi/shortlet-payments/internal/infrastructure/observability"
	"github.com/emekaobi/shortlet-payments/internal/providers"
	"github.com/rs/zerolog"
)

// ProcessEventRequest is one inbound provider event, already
// authenticated and normalized by the transport layer.
type ProcessEventRequest struct {
	Provider        string
	ProviderEventID string
	Reference       string
	Outcome         *providers.VerifyOutcome
}

// ProcessEventResponse reports how the event was handled.
type ProcessEventResponse struct {
	Outcome event.Outcome
	Reason  string
}

// TxRunner runs a function inside one database transaction. A nil
// runner applies each write on its own connection.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Processor applies inbound provider events exactly once. The dedup
// ledger keyed on the provider event id makes webhook delivery
// at-least-once safe: a replay answers from the recorded outcome without
// touching the stores again. Rejected records are the exception: the
// event may have raced the intent insert, so its redelivery gets a full
// second look.
type Processor struct {
	bookings          booking.Repository
	intents           intent.Repository
	events            event.Repository
	applier           *Applier
	tx                TxRunner
	maxVerifyAttempts int
	metrics           *observability.Metrics
	logger            zerolog.Logger
}

// NewProcessor creates a new Processor. tx may be nil.
func NewProcessor(
	bookings booking.Repository,
	intents intent.Repository,
	events event.Repository,
	applier *Applier,
	tx TxRunner,
	maxVerifyAttempts int,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Processor {
	return &Processor{
		bookings:          bookings,
		intents:           intents,
		events:            events,
		applier:           applier,
		tx:                tx,
		maxVerifyAttempts: maxVerifyAttempts,
		metrics:           metrics,
		logger:            logger,
	}
}

// Execute processes one provider event end to end.
func (p *Processor) Execute(ctx context.Context, req ProcessEventRequest) (*ProcessEventResponse, error) {
	// Replays of applied events answer from the ledger. A rejected
	// record means the event beat the intent insert (checkout opens the
	// provider session before persisting the row); its redelivery is
	// reprocessed so the evidence is not lost.
	rec, err := p.events.Get(ctx, req.ProviderEventID)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.Outcome != event.OutcomeRejected {
		p.logger.Debug().
			Str("provider_event_id", req.ProviderEventID).
			Str("recorded_outcome", string(rec.Outcome)).
			Msg("Duplicate provider event")
		return p.respond(req, event.OutcomeAlreadyProcessed, "duplicate event"), nil
	}
	rerun := rec != nil

	in, err := p.intents.GetByReference(ctx, req.Provider, req.Reference)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPaymentNotFound) {
			return p.reject(ctx, req, "payment_not_found", rerun)
		}
		return nil, err
	}

	b, err := p.bookings.Get(ctx, in.BookingID)
	if err != nil {
		return nil, err
	}

	decision := engine.Decide(engine.Input{
		BookingStatus:     b.Status,
		BookingMode:       b.Mode,
		IntentStatus:      in.Status,
		IntentAmount:      in.Amount,
		VerifyAttempts:    in.VerifyAttempts,
		Outcome:           req.Outcome,
		MaxVerifyAttempts: p.maxVerifyAttempts,
	})

	outcome := event.OutcomeApplied
	reason := ""
	if !movedState(decision) {
		outcome = event.OutcomeAlreadyProcessed
		reason = "state already converged"
	}
	if decision.HasEffect(engine.EffectMarkNeedsReconcile) {
		reason = reconcileReason(decision)
	}

	// The intent writes and the ledger row commit together: a recorded
	// event whose effects never landed cannot exist. The booking edge
	// and notifications run after the commit, keeping the fixed effect
	// order and the single conditional update per ledger.
	if err := p.inTx(ctx, func(txCtx context.Context) error {
		if err := p.applier.applyPaymentEffects(txCtx, in, req.Outcome, decision); err != nil {
			return err
		}
		return p.record(txCtx, req, outcome, reason, rerun)
	}); err != nil {
		return nil, err
	}

	if err := p.applier.applyBookingEffects(ctx, b, in, decision); err != nil {
		return nil, err
	}
	return p.respond(req, outcome, reason), nil
}

func (p *Processor) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.tx == nil {
		return fn(ctx)
	}
	return p.tx.WithTransaction(ctx, fn)
}

// reject records a rejected event so its replay is also deduplicated.
func (p *Processor) reject(ctx context.Context, req ProcessEventRequest, reason string, rerun bool) (*ProcessEventResponse, error) {
	p.logger.Warn().
		Str("provider", req.Provider).
		Str("reference", req.Reference).
		Str("reason", reason).
		Msg("Rejected provider event")
	if err := p.record(ctx, req, event.OutcomeRejected, reason, rerun); err != nil {
		return nil, err
	}
	return p.respond(req, event.OutcomeRejected, reason), nil
}

func (p *Processor) record(ctx context.Context, req ProcessEventRequest, outcome event.Outcome, reason string, rerun bool) error {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	rec := &event.Record{
		ProviderEventID: req.ProviderEventID,
		Provider:        req.Provider,
		Reference:       req.Reference,
		Outcome:         outcome,
		Reason:          reasonPtr,
	}
	if rerun {
		return p.events.Update(ctx, rec)
	}
	err := p.events.Record(ctx, rec)
	// A concurrent delivery of the same event recorded first. Its write
	// stands; ours becomes a duplicate.
	if errors.Is(err, domainErrors.ErrDuplicateEvent) {
		return nil
	}
	return err
}

func (p *Processor) respond(req ProcessEventRequest, outcome event.Outcome, reason string) *ProcessEventResponse {
	if p.metrics != nil {
		p.metrics.EventsApplied.WithLabelValues(req.Provider, string(outcome)).Inc()
	}
	return &ProcessEventResponse{Outcome: outcome, Reason: reason}
}

// movedState reports whether the decision changed anything beyond
// lease cleanup.
func movedState(d engine.Decision) bool {
	return d.HasEffect(engine.EffectMarkPaymentSucceeded) ||
		d.HasEffect(engine.EffectMarkPaymentFailed) ||
		d.HasEffect(engine.EffectMarkNeedsReconcile) ||
		d.HasEffect(engine.EffectIncrementVerifyAttempts) ||
		d.HasEffect(engine.EffectTransitionBooking)
}

func reconcileReason(d engine.Decision) string {
	for _, e := range d.Effects {
		if e.Kind == engine.EffectMarkNeedsReconcile {
			return e.Reason
		}
	}
	return ""
}
