package providers

import (
	"context"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/sony/gobreaker/v2"
)

// Factory holds the configured provider adapters, each behind its own
// circuit breaker. A tripped breaker surfaces as a transient error so
// the attempt-counter path handles it like any other outage.
type Factory struct {
	providers map[string]Provider
}

func NewFactory(providersList ...Provider) *Factory {
	f := &Factory{providers: make(map[string]Provider)}
	for _, p := range providersList {
		f.Register(p)
	}
	return f
}

func (f *Factory) Register(p Provider) {
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			// Permanent rejections are valid provider answers; only
			// transient failures count against the breaker.
			return err == nil || !errors.IsTransient(err)
		},
	})
	f.providers[p.Name()] = &breakerProvider{inner: p, cb: cb}
}

// Get returns the breaker-wrapped adapter for a provider name.
func (f *Factory) Get(name string) (Provider, error) {
	p, ok := f.providers[name]
	if !ok {
		return nil, errors.NewDomainError("provider_unknown",
			"no adapter registered for provider "+name, errors.ErrProviderNotFound)
	}
	return p, nil
}

// Names lists the registered provider names.
func (f *Factory) Names() []string {
	names := make([]string, 0, len(f.providers))
	for n := range f.providers {
		names = append(names, n)
	}
	return names
}

// breakerProvider decorates a Provider with a shared circuit breaker.
type breakerProvider struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker[any]
}

func (b *breakerProvider) Name() string { return b.inner.Name() }

func (b *breakerProvider) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.inner.Initialize(ctx, req)
	})
	if err != nil {
		return nil, b.mapBreakerErr(err)
	}
	return res.(*InitializeResult), nil
}

func (b *breakerProvider) Verify(ctx context.Context, reference string) (*VerifyOutcome, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.inner.Verify(ctx, reference)
	})
	if err != nil {
		return nil, b.mapBreakerErr(err)
	}
	return res.(*VerifyOutcome), nil
}

func (b *breakerProvider) mapBreakerErr(err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return errors.NewDomainError("provider_circuit_open",
			b.inner.Name()+": circuit breaker open", errors.ErrTransientProvider)
	}
	return err
}
