package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"time"
)

// VerifySignature checks the x-paystack-signature header: an HMAC-SHA512
// hex digest of the raw request body under the shared secret. The raw
// bytes must be used as received; re-serializing the JSON breaks the
// digest.
func VerifySignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

type EventKind string

const (
	EventChargeSuccess   EventKind = "charge.success"
	EventChargeFailed    EventKind = "charge.failed"
	EventTransferSuccess EventKind = "transfer.success"
	EventTransferFailed  EventKind = "transfer.failed"
	EventUnknown         EventKind = "unknown"
)

// ChargeData is the subset of a charge event this system acts on.
type ChargeData struct {
	Reference string
	Channel   string
	PaidAt    *time.Time
	Metadata  map[string]interface{}
	Raw       json.RawMessage
}

// TransferData carries the recipient and transfer codes from a transfer
// outcome event.
type TransferData struct {
	RecipientCode string
	TransferCode  string
	Raw           json.RawMessage
}

// Event is the strict internal form of a webhook payload. The provider
// body is untrusted and loosely typed; anything that doesn't parse into
// one of the known kinds comes back as EventUnknown and is ignored
// upstream.
type Event struct {
	Kind     EventKind
	Charge   *ChargeData
	Transfer *TransferData
}

type rawEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string                 `json:"reference"`
		Channel   string                 `json:"channel"`
		PaidAt    string                 `json:"paid_at"`
		Metadata  map[string]interface{} `json:"metadata"`
		Recipient struct {
			RecipientCode string `json:"recipient_code"`
		} `json:"recipient"`
		TransferCode string `json:"transfer_code"`
	} `json:"data"`
}

// ParseEvent maps a raw webhook body onto the tagged Event type.
func ParseEvent(body []byte) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	var dataRaw json.RawMessage
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		dataRaw = envelope.Data
	}

	switch EventKind(raw.Event) {
	case EventChargeSuccess, EventChargeFailed:
		charge := &ChargeData{
			Reference: raw.Data.Reference,
			Channel:   raw.Data.Channel,
			Metadata:  raw.Data.Metadata,
			Raw:       dataRaw,
		}
		if raw.Data.PaidAt != "" {
			if t, err := time.Parse(time.RFC3339, raw.Data.PaidAt); err == nil {
				charge.PaidAt = &t
			}
		}
		return &Event{Kind: EventKind(raw.Event), Charge: charge}, nil
	case EventTransferSuccess, EventTransferFailed:
		return &Event{
			Kind: EventKind(raw.Event),
			Transfer: &TransferData{
				RecipientCode: raw.Data.Recipient.RecipientCode,
				TransferCode:  raw.Data.TransferCode,
				Raw:           dataRaw,
			},
		}, nil
	default:
		return &Event{Kind: EventUnknown}, nil
	}
}
