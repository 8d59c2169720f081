package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/booking"
	"github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/emekaobi/shortlet-payments/internal/domain/event"
	"github.com/emekaobi/shortlet-payments/internal/domain/intent"
	"github.com/emekaobi/shortlet-payments/internal/providers"
	"github.com/google/uuid"
)

// --- Booking Repository Mock ---

// MockBookingRepository is an in-memory booking.Repository. Transition is
// mutex-atomic and enforces the same compare-and-set contract as the SQL
// implementation, so concurrency tests exercise real contention.
type MockBookingRepository struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*booking.Booking

	// TransitionFn, when set, replaces the default behavior.
	TransitionFn func(ctx context.Context, id uuid.UUID, expected, next booking.Status) error
	// GetErr, when set, is returned by Get.
	GetErr error
}

func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{bookings: make(map[uuid.UUID]*booking.Booking)}
}

func (m *MockBookingRepository) Create(_ context.Context, b *booking.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *MockBookingRepository) Get(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, errors.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MockBookingRepository) Transition(ctx context.Context, id uuid.UUID, expected, next booking.Status) error {
	if m.TransitionFn != nil {
		return m.TransitionFn(ctx, id, expected, next)
	}
	if !booking.EdgeAllowed(expected, next) {
		return errors.ErrInvalidEdge
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return errors.ErrBookingNotFound
	}
	if b.Status != expected {
		return errors.ErrStaleTransition
	}
	b.Status = next
	b.UpdatedAt = time.Now()
	return nil
}

func (m *MockBookingRepository) ListDecisionOverdue(_ context.Context, cutoff time.Time, limit int) ([]*booking.Booking, error) {
	return m.listByStatusBefore(booking.StatusPending, cutoff, limit), nil
}

func (m *MockBookingRepository) ListPaymentOverdue(_ context.Context, cutoff time.Time, limit int) ([]*booking.Booking, error) {
	return m.listByStatusBefore(booking.StatusPendingPayment, cutoff, limit), nil
}

func (m *MockBookingRepository) listByStatusBefore(status booking.Status, cutoff time.Time, limit int) []*booking.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*booking.Booking
	for _, b := range m.bookings {
		if b.Status == status && b.UpdatedAt.Before(cutoff) {
			cp := *b
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// Status returns the current stored status, for assertions.
func (m *MockBookingRepository) Status(id uuid.UUID) booking.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id].Status
}

// --- Intent Repository Mock ---

// MockIntentRepository is an in-memory intent.Repository. AcquireLock is
// mutex-atomic over the stored lease, mirroring the conditional UPDATE.
type MockIntentRepository struct {
	mu      sync.Mutex
	intents map[uuid.UUID]*intent.Intent

	// CreateErr, when set, is returned by Create.
	CreateErr error
	// AcquireLockFn, when set, replaces the default behavior.
	AcquireLockFn func(ctx context.Context, id uuid.UUID, leaseDuration time.Duration) (bool, error)
}

func NewMockIntentRepository() *MockIntentRepository {
	return &MockIntentRepository{intents: make(map[uuid.UUID]*intent.Intent)}
}

func (m *MockIntentRepository) Create(_ context.Context, i *intent.Intent) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.intents {
		if existing.BookingID == i.BookingID && existing.Active() {
			return errors.ErrDuplicateActiveIntent
		}
	}
	cp := *i
	m.intents[i.ID] = &cp
	return nil
}

func (m *MockIntentRepository) GetByID(_ context.Context, id uuid.UUID) (*intent.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.intents[id]
	if !ok {
		return nil, errors.ErrPaymentNotFound
	}
	cp := *i
	return &cp, nil
}

func (m *MockIntentRepository) GetByReference(_ context.Context, provider, reference string) (*intent.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.intents {
		if i.Provider == provider && i.Reference == reference {
			cp := *i
			return &cp, nil
		}
	}
	return nil, errors.ErrPaymentNotFound
}

func (m *MockIntentRepository) GetActiveByBooking(_ context.Context, bookingID uuid.UUID) (*intent.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.intents {
		if i.BookingID == bookingID && i.Active() {
			cp := *i
			return &cp, nil
		}
	}
	return nil, errors.ErrPaymentNotFound
}

func (m *MockIntentRepository) ListNeedingReconcile(_ context.Context, olderThan time.Time, limit int) ([]*intent.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*intent.Intent
	for _, i := range m.intents {
		if i.Status != intent.StatusInitiated {
			continue
		}
		if i.UpdatedAt.Before(olderThan) || i.NeedsReconcile {
			cp := *i
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockIntentRepository) AcquireLock(ctx context.Context, id uuid.UUID, leaseDuration time.Duration) (bool, error) {
	if m.AcquireLockFn != nil {
		return m.AcquireLockFn(ctx, id, leaseDuration)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.intents[id]
	if !ok {
		return false, nil
	}
	now := time.Now()
	if i.ReconcileLockedUntil != nil && i.ReconcileLockedUntil.After(now) {
		return false, nil
	}
	until := now.Add(leaseDuration)
	i.ReconcileLockedUntil = &until
	i.UpdatedAt = now
	return true, nil
}

func (m *MockIntentRepository) ReleaseLock(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.intents[id]; ok {
		i.ReconcileLockedUntil = nil
	}
	return nil
}

func (m *MockIntentRepository) MarkSucceeded(_ context.Context, id uuid.UUID, providerTxID string, paidAt time.Time, payload json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.intents[id]
	if !ok {
		return errors.ErrPaymentNotFound
	}
	i.Status = intent.StatusSucceeded
	i.ProviderTxID = &providerTxID
	i.PaidAt = &paidAt
	i.ProviderPayload = payload
	i.NeedsReconcile = false
	i.ReconcileReason = nil
	i.ReconcileLockedUntil = nil
	i.UpdatedAt = time.Now()
	return nil
}

func (m *MockIntentRepository) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.intents[id]
	if !ok {
		return errors.ErrPaymentNotFound
	}
	i.Status = intent.StatusFailed
	i.ReconcileReason = &reason
	i.NeedsReconcile = false
	i.ReconcileLockedUntil = nil
	i.UpdatedAt = time.Now()
	return nil
}

func (m *MockIntentRepository) MarkNeedsReconcile(_ context.Context, id uuid.UUID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.intents[id]
	if !ok {
		return errors.ErrPaymentNotFound
	}
	i.NeedsReconcile = true
	i.ReconcileReason = &reason
	i.UpdatedAt = time.Now()
	return nil
}

func (m *MockIntentRepository) IncrementVerifyAttempts(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.intents[id]
	if !ok {
		return errors.ErrPaymentNotFound
	}
	now := time.Now()
	i.VerifyAttempts++
	i.LastVerifiedAt = &now
	i.UpdatedAt = now
	return nil
}

func (m *MockIntentRepository) ClearReconcileState(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.intents[id]
	if !ok {
		return errors.ErrPaymentNotFound
	}
	i.NeedsReconcile = false
	i.ReconcileReason = nil
	i.ReconcileLockedUntil = nil
	i.UpdatedAt = time.Now()
	return nil
}

// Stored returns the current stored intent, for assertions.
func (m *MockIntentRepository) Stored(id uuid.UUID) *intent.Intent {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.intents[id]
	return &cp
}

// --- Event Repository Mock ---

// MockEventRepository is an in-memory event.Repository keyed on the
// provider event id.
type MockEventRepository struct {
	mu      sync.Mutex
	records map[string]*event.Record
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{records: make(map[string]*event.Record)}
}

func (m *MockEventRepository) Get(_ context.Context, providerEventID string) (*event.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[providerEventID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *MockEventRepository) Record(_ context.Context, r *event.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.ProviderEventID]; ok {
		return errors.ErrDuplicateEvent
	}
	cp := *r
	m.records[r.ProviderEventID] = &cp
	return nil
}

func (m *MockEventRepository) Update(_ context.Context, r *event.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.records[r.ProviderEventID] = &cp
	return nil
}

// Count returns how many events are recorded.
func (m *MockEventRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Outcome returns the recorded outcome for an event id, for assertions.
func (m *MockEventRepository) Outcome(providerEventID string) event.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[providerEventID].Outcome
}

// --- Transaction Runner ---

// TxPassthrough runs the function without a surrounding transaction.
type TxPassthrough struct{}

func (TxPassthrough) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// --- Fake Provider ---

// FakeProvider implements providers.Provider with overridable funcs.
type FakeProvider struct {
	ProviderName string
	InitializeFn func(ctx context.Context, req providers.InitializeRequest) (*providers.InitializeResult, error)
	VerifyFn     func(ctx context.Context, reference string) (*providers.VerifyOutcome, error)

	mu          sync.Mutex
	verifyCalls int
}

func (f *FakeProvider) Name() string {
	if f.ProviderName == "" {
		return "fake"
	}
	return f.ProviderName
}

func (f *FakeProvider) Initialize(ctx context.Context, req providers.InitializeRequest) (*providers.InitializeResult, error) {
	if f.InitializeFn != nil {
		return f.InitializeFn(ctx, req)
	}
	return &providers.InitializeResult{CheckoutURL: "https://checkout.example/" + req.Reference}, nil
}

func (f *FakeProvider) Verify(ctx context.Context, reference string) (*providers.VerifyOutcome, error) {
	f.mu.Lock()
	f.verifyCalls++
	f.mu.Unlock()
	if f.VerifyFn != nil {
		return f.VerifyFn(ctx, reference)
	}
	return &providers.VerifyOutcome{Status: "pending"}, nil
}

// VerifyCalls returns how many times Verify was invoked.
func (f *FakeProvider) VerifyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls
}

// SuccessOutcome builds a definitive success outcome for an amount.
func SuccessOutcome(amountMinor int64, currency, txID string) *providers.VerifyOutcome {
	paidAt := time.Now()
	return &providers.VerifyOutcome{
		OK:           true,
		Status:       "success",
		Definitive:   true,
		AmountMinor:  amountMinor,
		Currency:     currency,
		PaidAt:       &paidAt,
		ProviderTxID: &txID,
		Raw:          json.RawMessage(`{"status":"success"}`),
	}
}
