package providers

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPaystack(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaystackSignature(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success"}`)

	assert.True(t, VerifyPaystackSignature(secret, body, signPaystack(secret, body)))
	assert.False(t, VerifyPaystackSignature(secret, body, signPaystack("wrong", body)))
	assert.False(t, VerifyPaystackSignature(secret, []byte(`tampered`), signPaystack(secret, body)))
	assert.False(t, VerifyPaystackSignature(secret, body, ""))
}

func TestParsePaystackWebhook_ChargeSuccess(t *testing.T) {
	body := []byte(`{
		"event": "charge.success",
		"data": {
			"id": 302961,
			"reference": "slt_abc123",
			"amount": 12000000,
			"currency": "NGN",
			"status": "success"
		}
	}`)

	evt, err := ParsePaystackWebhook(body)
	require.NoError(t, err)

	assert.Equal(t, "paystack:charge.success:302961", evt.ProviderEventID)
	assert.Equal(t, "slt_abc123", evt.Reference)
	assert.True(t, evt.Outcome.OK)
	assert.Equal(t, int64(12000000), evt.Outcome.AmountMinor, "paystack amounts are already kobo")
	assert.Equal(t, "NGN", evt.Outcome.Currency)
	require.NotNil(t, evt.Outcome.ProviderTxID)
	assert.Equal(t, "302961", *evt.Outcome.ProviderTxID)
}

func TestParsePaystackWebhook_FailedCharge(t *testing.T) {
	body := []byte(`{
		"event": "charge.failed",
		"data": {
			"id": 302962,
			"reference": "slt_abc124",
			"amount": 12000000,
			"currency": "NGN",
			"status": "failed"
		}
	}`)

	evt, err := ParsePaystackWebhook(body)
	require.NoError(t, err)
	assert.False(t, evt.Outcome.OK)
	assert.Equal(t, "failed", evt.Outcome.Status)
	assert.True(t, evt.Outcome.Definitive)
}

func TestParsePaystackWebhook_PendingCharge_NotDefinitive(t *testing.T) {
	body := []byte(`{
		"event": "charge.pending",
		"data": {"id": 302963, "reference": "slt_abc125", "amount": 12000000, "currency": "NGN", "status": "pending"}
	}`)

	evt, err := ParsePaystackWebhook(body)
	require.NoError(t, err)
	assert.False(t, evt.Outcome.OK)
	assert.False(t, evt.Outcome.Definitive, "the charge is still in flight")
}

func TestParsePaystackWebhook_SuccessEventNonSuccessStatus(t *testing.T) {
	// Event name and data status must agree before OK is granted.
	body := []byte(`{
		"event": "charge.success",
		"data": {"id": 1, "reference": "slt_x", "amount": 100, "currency": "NGN", "status": "pending"}
	}`)

	evt, err := ParsePaystackWebhook(body)
	require.NoError(t, err)
	assert.False(t, evt.Outcome.OK)
}

func TestParsePaystackWebhook_Invalid(t *testing.T) {
	_, err := ParsePaystackWebhook([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParsePaystackWebhook([]byte(`{"event":"charge.success","data":{"id":1}}`))
	assert.Error(t, err, "missing reference")
}

func TestVerifyFlutterwaveSignature(t *testing.T) {
	assert.True(t, VerifyFlutterwaveSignature("hash_value", "hash_value"))
	assert.False(t, VerifyFlutterwaveSignature("hash_value", "other"))
	assert.False(t, VerifyFlutterwaveSignature("", ""), "empty secret never verifies")
	assert.False(t, VerifyFlutterwaveSignature("hash_value", ""))
}

func TestParseFlutterwaveWebhook_Successful(t *testing.T) {
	body := []byte(`{
		"event": "charge.completed",
		"data": {
			"id": 9130025,
			"tx_ref": "slt_def456",
			"amount": 120000,
			"currency": "NGN",
			"status": "successful"
		}
	}`)

	evt, err := ParseFlutterwaveWebhook(body)
	require.NoError(t, err)

	assert.Equal(t, "flutterwave:charge.completed:9130025", evt.ProviderEventID)
	assert.Equal(t, "slt_def456", evt.Reference)
	assert.True(t, evt.Outcome.OK)
	assert.Equal(t, int64(12000000), evt.Outcome.AmountMinor, "major naira converted to kobo")
}

func TestParseFlutterwaveWebhook_FractionalAmount(t *testing.T) {
	body := []byte(`{
		"event": "charge.completed",
		"data": {"id": 2, "tx_ref": "slt_y", "amount": 450.55, "currency": "NGN", "status": "successful"}
	}`)

	evt, err := ParseFlutterwaveWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, int64(45055), evt.Outcome.AmountMinor)
}

func TestParseFlutterwaveWebhook_Failed(t *testing.T) {
	body := []byte(`{
		"event": "charge.completed",
		"data": {"id": 3, "tx_ref": "slt_z", "amount": 100, "currency": "NGN", "status": "failed"}
	}`)

	evt, err := ParseFlutterwaveWebhook(body)
	require.NoError(t, err)
	assert.False(t, evt.Outcome.OK)
	assert.True(t, evt.Outcome.Definitive)
}

func TestParseFlutterwaveWebhook_PendingTransfer_NotDefinitive(t *testing.T) {
	body := []byte(`{
		"event": "charge.completed",
		"data": {"id": 5, "tx_ref": "slt_p", "amount": 100, "currency": "NGN", "status": "pending"}
	}`)

	evt, err := ParseFlutterwaveWebhook(body)
	require.NoError(t, err)
	assert.False(t, evt.Outcome.OK)
	assert.False(t, evt.Outcome.Definitive)
}

func TestParseFlutterwaveWebhook_Invalid(t *testing.T) {
	_, err := ParseFlutterwaveWebhook([]byte(`{`))
	assert.Error(t, err)

	_, err = ParseFlutterwaveWebhook([]byte(`{"event":"charge.completed","data":{"id":4}}`))
	assert.Error(t, err, "missing tx_ref")
}
