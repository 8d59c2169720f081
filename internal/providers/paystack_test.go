package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emekaobi/shortlet-payments/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaystack_Initialize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(12000000), body["amount"], "kobo passes through untouched")
		assert.Equal(t, "NGN", body["currency"])
		assert.Equal(t, "slt_ref1", body["reference"])

		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc",
				"access_code":       "abc",
				"reference":         "slt_ref1",
			},
		})
	}))
	defer srv.Close()

	p := NewPaystack(srv.URL, "sk_test_key", 5*time.Second)
	res, err := p.Initialize(context.Background(), InitializeRequest{
		Reference:     "slt_ref1",
		AmountMinor:   12000000,
		Currency:      "NGN",
		CustomerEmail: "guest@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc", res.CheckoutURL)
	assert.Equal(t, "abc", res.AccessToken)
}

func TestPaystack_Initialize_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Invalid key"})
	}))
	defer srv.Close()

	p := NewPaystack(srv.URL, "bad_key", 5*time.Second)
	_, err := p.Initialize(context.Background(), InitializeRequest{Reference: "slt_r", AmountMinor: 100, Currency: "NGN"})

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPermanentProvider)
}

func TestPaystack_Verify_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/slt_ref2", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"id":       302961,
				"status":   "success",
				"amount":   12000000,
				"currency": "NGN",
			},
		})
	}))
	defer srv.Close()

	p := NewPaystack(srv.URL, "sk_test_key", 5*time.Second)
	outcome, err := p.Verify(context.Background(), "slt_ref2")

	require.NoError(t, err)
	assert.True(t, outcome.OK)
	assert.True(t, outcome.Definitive)
	assert.Equal(t, int64(12000000), outcome.AmountMinor)
	assert.Equal(t, "NGN", outcome.Currency)
	require.NotNil(t, outcome.ProviderTxID)
	assert.Equal(t, "302961", *outcome.ProviderTxID)
	assert.NotEmpty(t, outcome.Raw)
}

func TestPaystack_Verify_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   map[string]any{"id": 1, "status": "abandoned", "amount": 100, "currency": "NGN"},
		})
	}))
	defer srv.Close()

	p := NewPaystack(srv.URL, "sk_test_key", 5*time.Second)
	outcome, err := p.Verify(context.Background(), "slt_ref3")

	require.NoError(t, err)
	assert.False(t, outcome.OK)
	assert.Equal(t, "abandoned", outcome.Status)
	assert.True(t, outcome.Definitive, "abandoned checkouts are final")
}

func TestPaystack_Verify_InFlightStatus_NotDefinitive(t *testing.T) {
	// "pending" and "ongoing" are routine for transfers mid-flight; the
	// outcome must say so, or the engine would fail a live charge.
	for _, status := range []string{"pending", "ongoing"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"status": true,
				"data":   map[string]any{"id": 2, "status": status, "amount": 100, "currency": "NGN"},
			})
		}))

		p := NewPaystack(srv.URL, "sk_test_key", 5*time.Second)
		outcome, err := p.Verify(context.Background(), "slt_ref3b")
		srv.Close()

		require.NoError(t, err)
		assert.False(t, outcome.OK, "status %s", status)
		assert.False(t, outcome.Definitive, "status %s is still in flight", status)
	}
}

func TestPaystack_Verify_UnknownReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Transaction reference not found"})
	}))
	defer srv.Close()

	p := NewPaystack(srv.URL, "sk_test_key", 5*time.Second)
	_, err := p.Verify(context.Background(), "slt_missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPermanentProvider)
}

func TestPaystack_Verify_ServerError_Transient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewPaystack(srv.URL, "sk_test_key", 5*time.Second)
	p.retryCfg.Attempts = 1
	p.retryCfg.InitialDelay = time.Millisecond

	_, err := p.Verify(context.Background(), "slt_ref4")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTransientProvider)
}

func TestPaystack_Verify_ClientError_Permanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewPaystack(srv.URL, "sk_test_key", 5*time.Second)
	_, err := p.Verify(context.Background(), "slt_ref5")

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrPermanentProvider)
}

func TestPaystack_Verify_RetriesTransient(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   map[string]any{"id": 7, "status": "success", "amount": 4500000, "currency": "NGN"},
		})
	}))
	defer srv.Close()

	p := NewPaystack(srv.URL, "sk_test_key", 5*time.Second)
	p.retryCfg.InitialDelay = time.Millisecond
	p.retryCfg.MaxDelay = 5 * time.Millisecond

	outcome, err := p.Verify(context.Background(), "slt_ref6")
	require.NoError(t, err)
	assert.True(t, outcome.OK)
	assert.Equal(t, 3, calls)
}
