package providers

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"

	"github.com/emekaobi/shortlet-payments/internal/domain/errors"
)

// classifyHTTP maps an HTTP status from a provider API to the error
// taxonomy. 5xx and 429 are retryable; 4xx means the provider understood
// us and said no.
func classifyHTTP(provider string, status int, body []byte) error {
	msg := fmt.Sprintf("%s returned %d: %s", provider, status, truncate(body, 200))
	if status >= 500 || status == http.StatusTooManyRequests {
		return errors.NewDomainError("provider_unavailable", msg, errors.ErrTransientProvider)
	}
	return errors.NewDomainError("provider_rejected", msg, errors.ErrPermanentProvider)
}

// classifyTransport maps network-level failures. Everything that could
// succeed on retry is transient.
func classifyTransport(provider string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.NewDomainError("provider_timeout",
			fmt.Sprintf("%s request timed out", provider), errors.ErrTransientProvider)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return errors.NewDomainError("provider_network",
			fmt.Sprintf("%s network error: %v", provider, err), errors.ErrTransientProvider)
	}
	return errors.NewDomainError("provider_transport",
		fmt.Sprintf("%s request failed: %v", provider, err), errors.ErrTransientProvider)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
