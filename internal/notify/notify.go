// Package notify dispatches notification intents. Delivery is owned by
// an external collaborator; this package only queues intents and must
// never fail a ledger transition. Everything here is best-effort.
package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Kind names a notification intent.
type Kind string

const (
	KindGuestConfirmed Kind = "guest_confirmed"
	KindHostNewBooking Kind = "host_new_booking"
)

// Dispatcher queues a notification intent. Implementations swallow and
// log their own errors; callers fire and forget.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind Kind, bookingID uuid.UUID)
}

// Noop drops every intent. Used by tests that only count effects.
type Noop struct{}

func (Noop) Dispatch(context.Context, Kind, uuid.UUID) {}

// Recorder captures dispatched intents for assertions. Safe for
// concurrent use.
type Recorder struct {
	mu         sync.Mutex
	dispatched []DispatchedIntent
}

type DispatchedIntent struct {
	Kind      Kind
	BookingID uuid.UUID
}

func (r *Recorder) Dispatch(_ context.Context, kind Kind, bookingID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatched = append(r.dispatched, DispatchedIntent{Kind: kind, BookingID: bookingID})
}

// All returns a copy of everything dispatched so far.
func (r *Recorder) All() []DispatchedIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DispatchedIntent, len(r.dispatched))
	copy(out, r.dispatched)
	return out
}

// Count returns how many intents of the given kind were dispatched.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.dispatched {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
