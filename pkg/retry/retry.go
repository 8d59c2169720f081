package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// Config holds backoff settings for provider calls.
type Config struct {
	Attempts     uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// RetryIf filters which errors are worth re-attempting; nil retries
	// everything.
	RetryIf func(error) bool
	// OnRetry is invoked before each re-attempt; nil is fine.
	OnRetry func(attempt uint, err error)
}

// ProviderDefaults returns the backoff used for provider HTTP calls.
// Short and bounded: the reconcile lease must outlive the whole call.
func ProviderDefaults() Config {
	return Config{
		Attempts:     3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

// Do runs fn with exponential backoff, honoring ctx cancellation.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(cfg.Attempts),
		retry.Delay(cfg.InitialDelay),
		retry.MaxDelay(cfg.MaxDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
	}
	if cfg.RetryIf != nil {
		opts = append(opts, retry.RetryIf(cfg.RetryIf))
	}
	if cfg.OnRetry != nil {
		opts = append(opts, retry.OnRetry(func(n uint, err error) { cfg.OnRetry(n, err) }))
	}
	return retry.Do(fn, opts...)
}

// DoWithResult is Do for functions returning a value.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}
