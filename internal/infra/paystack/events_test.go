package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hexSign(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestKobo(t *testing.T) {
	assert.Equal(t, int64(100000), Kobo(1000))
	assert.Equal(t, int64(113), Kobo(1.13))
	assert.Equal(t, int64(29), Kobo(0.29))
	assert.Equal(t, int64(58), Kobo(0.58))
	assert.Equal(t, int64(12350), Kobo(123.50))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"REF_1"}}`)
	secret := "sk_test_abc"

	assert.True(t, VerifySignature(body, hexSign(body, secret), secret))
	assert.False(t, VerifySignature(body, hexSign(body, "sk_other"), secret))
	assert.False(t, VerifySignature([]byte(`{"event":"charge.success"}`), hexSign(body, secret), secret))
	assert.False(t, VerifySignature(body, "", secret))
}

func TestParseEventChargeSuccess(t *testing.T) {
	body := []byte(`{
		"event": "charge.success",
		"data": {
			"reference": "REF_abc",
			"channel": "card",
			"paid_at": "2026-03-18T12:30:00Z",
			"metadata": {"category": "rent", "message": "march"}
		}
	}`)

	event, err := ParseEvent(body)
	require.NoError(t, err)
	assert.Equal(t, EventChargeSuccess, event.Kind)
	require.NotNil(t, event.Charge)
	assert.Equal(t, "REF_abc", event.Charge.Reference)
	assert.Equal(t, "card", event.Charge.Channel)
	require.NotNil(t, event.Charge.PaidAt)
	assert.Equal(t, time.Date(2026, time.March, 18, 12, 30, 0, 0, time.UTC), event.Charge.PaidAt.UTC())
	assert.Equal(t, "rent", event.Charge.Metadata["category"])
	assert.NotEmpty(t, event.Charge.Raw)
}

func TestParseEventChargeFailedWithoutPaidAt(t *testing.T) {
	body := []byte(`{"event":"charge.failed","data":{"reference":"REF_abc"}}`)

	event, err := ParseEvent(body)
	require.NoError(t, err)
	assert.Equal(t, EventChargeFailed, event.Kind)
	require.NotNil(t, event.Charge)
	assert.Nil(t, event.Charge.PaidAt)
}

func TestParseEventTransferOutcome(t *testing.T) {
	body := []byte(`{
		"event": "transfer.failed",
		"data": {
			"transfer_code": "TRF_code",
			"recipient": {"recipient_code": "RCP_code"}
		}
	}`)

	event, err := ParseEvent(body)
	require.NoError(t, err)
	assert.Equal(t, EventTransferFailed, event.Kind)
	require.NotNil(t, event.Transfer)
	assert.Equal(t, "RCP_code", event.Transfer.RecipientCode)
	assert.Equal(t, "TRF_code", event.Transfer.TransferCode)
}

func TestParseEventUnknownKind(t *testing.T) {
	event, err := ParseEvent([]byte(`{"event":"invoice.create","data":{}}`))
	require.NoError(t, err)
	assert.Equal(t, EventUnknown, event.Kind)
}

func TestParseEventMalformed(t *testing.T) {
	_, err := ParseEvent([]byte(`{"event":`))
	assert.Error(t, err)
}
