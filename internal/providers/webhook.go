package providers

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/errors"
)

// WebhookEvent is a provider webhook normalized into the shapes the
// processor consumes. ProviderEventID is stable across redeliveries of
// the same event.
type WebhookEvent struct {
	ProviderEventID string
	Reference       string
	Outcome         *VerifyOutcome
}

// VerifyPaystackSignature checks the x-paystack-signature header: an
// HMAC-SHA512 of the raw body keyed with the webhook secret.
func VerifyPaystackSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

type paystackWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64      `json:"id"`
		Reference string     `json:"reference"`
		Amount    int64      `json:"amount"`
		Currency  string     `json:"currency"`
		Status    string     `json:"status"`
		PaidAt    *time.Time `json:"paid_at"`
	} `json:"data"`
}

// ParsePaystackWebhook normalizes a Paystack event body. Paystack does
// not ship a dedicated event id, so redeliveries are keyed on the event
// name plus the transaction id.
func ParsePaystackWebhook(body []byte) (*WebhookEvent, error) {
	var p paystackWebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, errors.NewValidationError("body", "invalid paystack webhook payload: "+err.Error())
	}
	if p.Data.Reference == "" {
		return nil, errors.NewValidationError("data.reference", "cannot be empty")
	}

	outcome := &VerifyOutcome{
		OK:          p.Event == "charge.success" && p.Data.Status == "success",
		Status:      p.Data.Status,
		Definitive:  paystackFinal(p.Data.Status),
		AmountMinor: p.Data.Amount,
		Currency:    p.Data.Currency,
		PaidAt:      p.Data.PaidAt,
		Raw:         body,
	}
	if p.Data.ID != 0 {
		txID := fmt.Sprintf("%d", p.Data.ID)
		outcome.ProviderTxID = &txID
	}

	return &WebhookEvent{
		ProviderEventID: fmt.Sprintf("%s:%s:%d", PaystackName, p.Event, p.Data.ID),
		Reference:       p.Data.Reference,
		Outcome:         outcome,
	}, nil
}

// VerifyFlutterwaveSignature checks the verif-hash header, which carries
// the configured secret hash verbatim.
func VerifyFlutterwaveSignature(secret, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(header)) == 1
}

type flutterwaveWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64      `json:"id"`
		TxRef     string     `json:"tx_ref"`
		Amount    float64    `json:"amount"`
		Currency  string     `json:"currency"`
		Status    string     `json:"status"`
		CreatedAt *time.Time `json:"created_at"`
	} `json:"data"`
}

// ParseFlutterwaveWebhook normalizes a Flutterwave event body. Amounts
// arrive in major units and are converted here, same as Verify.
func ParseFlutterwaveWebhook(body []byte) (*WebhookEvent, error) {
	var p flutterwaveWebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, errors.NewValidationError("body", "invalid flutterwave webhook payload: "+err.Error())
	}
	if p.Data.TxRef == "" {
		return nil, errors.NewValidationError("data.tx_ref", "cannot be empty")
	}

	outcome := &VerifyOutcome{
		OK:          p.Data.Status == "successful",
		Status:      p.Data.Status,
		Definitive:  flutterwaveFinal(p.Data.Status),
		AmountMinor: majorFloatToMinor(p.Data.Amount),
		Currency:    p.Data.Currency,
		PaidAt:      p.Data.CreatedAt,
		Raw:         body,
	}
	if p.Data.ID != 0 {
		txID := fmt.Sprintf("%d", p.Data.ID)
		outcome.ProviderTxID = &txID
	}

	return &WebhookEvent{
		ProviderEventID: fmt.Sprintf("%s:%s:%d", FlutterwaveName, p.Event, p.Data.ID),
		Reference:       p.Data.TxRef,
		Outcome:         outcome,
	}, nil
}
