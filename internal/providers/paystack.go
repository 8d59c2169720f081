package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/emekaobi/shortlet-payments/pkg/retry"
)

const PaystackName = "paystack"

// Paystack is the card-rail adapter. Paystack already speaks minor units
// (kobo), so amounts pass through untouched.
type Paystack struct {
	baseURL   string
	secretKey string
	client    *http.Client
	retryCfg  retry.Config
}

// NewPaystack builds a Paystack adapter. timeout bounds every outbound
// call; the reconcile lease is sized against it.
func NewPaystack(baseURL, secretKey string, timeout time.Duration) *Paystack {
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &Paystack{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
		retryCfg:  providerRetryConfig(),
	}
}

func (p *Paystack) Name() string { return PaystackName }

type paystackInitRequest struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type paystackInitResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// Initialize starts a Paystack transaction and returns the redirect URL.
func (p *Paystack) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	body := paystackInitRequest{
		Email:       req.CustomerEmail,
		Amount:      req.AmountMinor,
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	}

	raw, err := p.do(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}

	var resp paystackInitResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.NewDomainError("provider_decode",
			fmt.Sprintf("paystack initialize: bad response body: %v", err), errors.ErrTransientProvider)
	}
	if !resp.Status {
		return nil, errors.NewDomainError("provider_rejected",
			"paystack initialize: "+resp.Message, errors.ErrPermanentProvider)
	}

	return &InitializeResult{
		CheckoutURL: resp.Data.AuthorizationURL,
		AccessToken: resp.Data.AccessCode,
	}, nil
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID       int64      `json:"id"`
		Status   string     `json:"status"`
		Amount   int64      `json:"amount"`
		Currency string     `json:"currency"`
		PaidAt   *time.Time `json:"paid_at"`
	} `json:"data"`
}

// Verify fetches the authoritative transaction state by reference.
func (p *Paystack) Verify(ctx context.Context, reference string) (*VerifyOutcome, error) {
	raw, err := p.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}

	var resp paystackVerifyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.NewDomainError("provider_decode",
			fmt.Sprintf("paystack verify: bad response body: %v", err), errors.ErrTransientProvider)
	}
	if !resp.Status {
		// "Transaction reference not found" and friends.
		return nil, errors.NewDomainError("provider_rejected",
			"paystack verify: "+resp.Message, errors.ErrPermanentProvider)
	}

	outcome := &VerifyOutcome{
		OK:          resp.Data.Status == "success",
		Status:      resp.Data.Status,
		Definitive:  paystackFinal(resp.Data.Status),
		AmountMinor: resp.Data.Amount,
		Currency:    resp.Data.Currency,
		PaidAt:      resp.Data.PaidAt,
		Raw:         raw,
	}
	if resp.Data.ID != 0 {
		txID := fmt.Sprintf("%d", resp.Data.ID)
		outcome.ProviderTxID = &txID
	}
	return outcome, nil
}

// paystackFinal reports whether a transaction status can no longer
// change. "pending", "ongoing", "processing" and "queued" mean the
// charge is still moving through the rail.
func paystackFinal(status string) bool {
	switch status {
	case "success", "failed", "abandoned", "reversed":
		return true
	}
	return false
}

// do issues one authenticated request with bounded retries on transient
// failures.
func (p *Paystack) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	cfg := p.retryCfg
	cfg.RetryIf = errors.IsTransient

	return retry.DoWithResult(ctx, cfg, func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("marshal request: %w", err)
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+p.secretKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, classifyTransport(PaystackName, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, classifyTransport(PaystackName, err)
		}
		if resp.StatusCode >= 400 {
			return nil, classifyHTTP(PaystackName, resp.StatusCode, raw)
		}
		return raw, nil
	})
}

func providerRetryConfig() retry.Config {
	cfg := retry.ProviderDefaults()
	cfg.RetryIf = errors.IsTransient
	return cfg
}
