package providers

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/google/uuid"
)

// MockProvider simulates a payment rail for tests and local dev.
type MockProvider struct {
	name        string
	failureRate float64 // 0.0 to 1.0
	timeoutRate float64 // 0.0 to 1.0
	latency     time.Duration

	mu       sync.Mutex
	sessions map[string]mockSession
}

type mockSession struct {
	amountMinor int64
	currency    string
	startedAt   time.Time
}

type MockProviderOption func(*MockProvider)

func WithFailureRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.failureRate = rate }
}

func WithTimeoutRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.timeoutRate = rate }
}

func WithLatency(d time.Duration) MockProviderOption {
	return func(p *MockProvider) { p.latency = d }
}

func NewMockProvider(name string, opts ...MockProviderOption) *MockProvider {
	p := &MockProvider{
		name:     name,
		latency:  50 * time.Millisecond,
		sessions: make(map[string]mockSession),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *MockProvider) Name() string { return p.name }

func (p *MockProvider) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if err := p.sleep(ctx); err != nil {
		return nil, err
	}
	if rand.Float64() < p.timeoutRate {
		return nil, errors.NewDomainError("provider_timeout",
			p.name+": simulated timeout", errors.ErrTransientProvider)
	}

	p.mu.Lock()
	p.sessions[req.Reference] = mockSession{
		amountMinor: req.AmountMinor,
		currency:    req.Currency,
		startedAt:   time.Now(),
	}
	p.mu.Unlock()

	return &InitializeResult{
		CheckoutURL: fmt.Sprintf("https://checkout.%s.example/%s", p.name, req.Reference),
	}, nil
}

func (p *MockProvider) Verify(ctx context.Context, reference string) (*VerifyOutcome, error) {
	if err := p.sleep(ctx); err != nil {
		return nil, err
	}
	if rand.Float64() < p.timeoutRate {
		return nil, errors.NewDomainError("provider_timeout",
			p.name+": simulated timeout", errors.ErrTransientProvider)
	}

	p.mu.Lock()
	session, ok := p.sessions[reference]
	p.mu.Unlock()
	if !ok {
		return nil, errors.NewDomainError("provider_rejected",
			p.name+": unknown reference "+reference, errors.ErrPermanentProvider)
	}

	if rand.Float64() < p.failureRate {
		return &VerifyOutcome{
			OK:          false,
			Status:      "failed",
			Definitive:  true,
			AmountMinor: session.amountMinor,
			Currency:    session.currency,
			Raw:         []byte(`{"status":"failed","source":"mock"}`),
		}, nil
	}

	paidAt := time.Now()
	txID := fmt.Sprintf("%s_txn_%s", p.name, uuid.New().String()[:8])
	return &VerifyOutcome{
		OK:           true,
		Status:       "success",
		Definitive:   true,
		AmountMinor:  session.amountMinor,
		Currency:     session.currency,
		PaidAt:       &paidAt,
		ProviderTxID: &txID,
		Raw:          []byte(`{"status":"success","source":"mock"}`),
	}, nil
}

func (p *MockProvider) sleep(ctx context.Context) error {
	if p.latency <= 0 {
		return nil
	}
	select {
	case <-time.After(p.latency):
		return nil
	case <-ctx.Done():
		return classifyTransport(p.name, ctx.Err())
	}
}
