package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/emekaobi/shortlet-payments/pkg/retry"
)

const FlutterwaveName = "flutterwave"

// Flutterwave is the regional-rail adapter (bank transfer, USSD, mobile
// money). Its API speaks major units, so amounts are converted at this
// boundary and the rest of the engine only ever sees minor units.
type Flutterwave struct {
	baseURL   string
	secretKey string
	client    *http.Client
	retryCfg  retry.Config
}

func NewFlutterwave(baseURL, secretKey string, timeout time.Duration) *Flutterwave {
	if baseURL == "" {
		baseURL = "https://api.flutterwave.com/v3"
	}
	return &Flutterwave{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
		retryCfg:  providerRetryConfig(),
	}
}

func (f *Flutterwave) Name() string { return FlutterwaveName }

type flutterwaveInitRequest struct {
	TxRef       string         `json:"tx_ref"`
	Amount      string         `json:"amount"`
	Currency    string         `json:"currency"`
	RedirectURL string         `json:"redirect_url,omitempty"`
	Customer    map[string]any `json:"customer"`
	Meta        map[string]any `json:"meta,omitempty"`
}

type flutterwaveInitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

// Initialize starts a hosted payment session and returns the link.
func (f *Flutterwave) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	body := flutterwaveInitRequest{
		TxRef:       req.Reference,
		Amount:      minorToMajorString(req.AmountMinor),
		Currency:    req.Currency,
		RedirectURL: req.CallbackURL,
		Customer:    map[string]any{"email": req.CustomerEmail},
		Meta:        req.Metadata,
	}

	raw, err := f.do(ctx, http.MethodPost, "/payments", body)
	if err != nil {
		return nil, err
	}

	var resp flutterwaveInitResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.NewDomainError("provider_decode",
			fmt.Sprintf("flutterwave initialize: bad response body: %v", err), errors.ErrTransientProvider)
	}
	if resp.Status != "success" {
		return nil, errors.NewDomainError("provider_rejected",
			"flutterwave initialize: "+resp.Message, errors.ErrPermanentProvider)
	}

	return &InitializeResult{CheckoutURL: resp.Data.Link}, nil
}

type flutterwaveVerifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID        int64      `json:"id"`
		TxRef     string     `json:"tx_ref"`
		Status    string     `json:"status"`
		Amount    float64    `json:"amount"`
		Currency  string     `json:"currency"`
		CreatedAt *time.Time `json:"created_at"`
	} `json:"data"`
}

// Verify fetches the authoritative transaction state by tx_ref.
func (f *Flutterwave) Verify(ctx context.Context, reference string) (*VerifyOutcome, error) {
	path := "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(reference)
	raw, err := f.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp flutterwaveVerifyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.NewDomainError("provider_decode",
			fmt.Sprintf("flutterwave verify: bad response body: %v", err), errors.ErrTransientProvider)
	}
	if resp.Status != "success" {
		return nil, errors.NewDomainError("provider_rejected",
			"flutterwave verify: "+resp.Message, errors.ErrPermanentProvider)
	}

	outcome := &VerifyOutcome{
		OK:          resp.Data.Status == "successful",
		Status:      resp.Data.Status,
		Definitive:  flutterwaveFinal(resp.Data.Status),
		AmountMinor: majorFloatToMinor(resp.Data.Amount),
		Currency:    resp.Data.Currency,
		PaidAt:      resp.Data.CreatedAt,
		Raw:         raw,
	}
	if resp.Data.ID != 0 {
		txID := fmt.Sprintf("%d", resp.Data.ID)
		outcome.ProviderTxID = &txID
	}
	return outcome, nil
}

// flutterwaveFinal reports whether a transaction status can no longer
// change. Bank transfer and USSD charges sit in "pending" until the
// customer completes them.
func flutterwaveFinal(status string) bool {
	switch status {
	case "successful", "failed", "cancelled":
		return true
	}
	return false
}

func (f *Flutterwave) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	return retry.DoWithResult(ctx, f.retryCfg, func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("marshal request: %w", err)
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, f.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+f.secretKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, classifyTransport(FlutterwaveName, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, classifyTransport(FlutterwaveName, err)
		}
		if resp.StatusCode >= 400 {
			return nil, classifyHTTP(FlutterwaveName, resp.StatusCode, raw)
		}
		return raw, nil
	})
}

// minorToMajorString renders minor units as the decimal string the API
// expects, without going through a float.
func minorToMajorString(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// majorFloatToMinor converts the API's float amount back to minor units.
// Rounding to the nearest unit keeps 0.1+0.2 style float noise out of
// the comparison path.
func majorFloatToMinor(major float64) int64 {
	if major >= 0 {
		return int64(major*100 + 0.5)
	}
	return int64(major*100 - 0.5)
}
