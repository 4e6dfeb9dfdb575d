package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billsponsor-app/internal/domain/apperr"
	"billsponsor-app/internal/domain/bundles"
	"billsponsor-app/internal/domain/notifications"
	"billsponsor-app/internal/domain/payments"
	"billsponsor-app/internal/domain/relationships"
)

const testSecret = "sk_test_secret"

func sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type fakePaymentStore struct {
	payments   map[string]*payments.Payment
	recipients map[string]payments.RecipientStatus
	billsPaid  []uint
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{
		payments:   map[string]*payments.Payment{},
		recipients: map[string]payments.RecipientStatus{},
	}
}

func (s *fakePaymentStore) MarkChargeSucceeded(_ context.Context, reference string, paidAt *time.Time, channel string, metadata []byte) (*payments.Payment, bool, error) {
	p, ok := s.payments[reference]
	if !ok {
		return nil, false, nil
	}
	if p.Status != payments.StatusPending {
		copied := *p
		return &copied, false, nil
	}
	p.Status = payments.StatusSuccessful
	p.PaidAt = paidAt
	p.Channel = channel
	p.Metadata = string(metadata)
	copied := *p
	return &copied, true, nil
}

func (s *fakePaymentStore) MarkChargeFailed(_ context.Context, reference string, metadata []byte) (*payments.Payment, bool, error) {
	p, ok := s.payments[reference]
	if !ok {
		return nil, false, nil
	}
	if p.Status != payments.StatusPending {
		copied := *p
		return &copied, false, nil
	}
	p.Status = payments.StatusFailed
	p.Metadata = string(metadata)
	copied := *p
	return &copied, true, nil
}

func (s *fakePaymentStore) MarkBillPaid(_ context.Context, billID uint) error {
	s.billsPaid = append(s.billsPaid, billID)
	return nil
}

func (s *fakePaymentStore) UpdateRecipientOutcome(_ context.Context, recipientCode string, status payments.RecipientStatus, _ string) (bool, error) {
	if _, ok := s.recipients[recipientCode]; !ok {
		return false, nil
	}
	s.recipients[recipientCode] = status
	return true, nil
}

type fakeTracker struct {
	recomputed []uint
}

func (t *fakeTracker) Recompute(_ context.Context, bundleID uint) (bundles.BundleStatus, error) {
	t.recomputed = append(t.recomputed, bundleID)
	return bundles.StatusPartiallyFunded, nil
}

type fakeLedger struct {
	records []relationships.Contribution
}

func (l *fakeLedger) Record(_ context.Context, relationshipID uint, amount float64, sourceID uint, category, message string) (*relationships.Contribution, error) {
	c := relationships.Contribution{
		RelationshipID: relationshipID,
		Amount:         amount,
		SourceID:       sourceID,
		Category:       category,
		Message:        message,
	}
	l.records = append(l.records, c)
	return &c, nil
}

type fakeNotifier struct {
	notices []notifications.NotificationKind
}

func (n *fakeNotifier) Notify(_ context.Context, _ uint, kind notifications.NotificationKind, _, _ string) {
	n.notices = append(n.notices, kind)
}

func newProcessorForTest() (*Processor, *fakePaymentStore, *fakeTracker, *fakeLedger, *fakeNotifier) {
	store := newFakePaymentStore()
	tracker := &fakeTracker{}
	ledger := &fakeLedger{}
	notifier := &fakeNotifier{}
	return NewProcessor(testSecret, store, tracker, ledger, notifier), store, tracker, ledger, notifier
}

func pendingPayment(reference string, amount float64) *payments.Payment {
	return &payments.Payment{Reference: reference, Amount: amount, Status: payments.StatusPending, PayerID: 1}
}

func TestHandleRejectsTamperedSignature(t *testing.T) {
	p, store, tracker, _ := newFakePipeline(t)
	body := []byte(`{"event":"charge.success","data":{"reference":"REF_1"}}`)

	err := p.Handle(context.Background(), body, sign([]byte("other body")))
	require.Error(t, err)
	assert.True(t, apperr.IsAuthentication(err))

	// Nothing was touched.
	assert.Empty(t, store.billsPaid)
	assert.Empty(t, tracker.recomputed)
}

// newFakePipeline keeps the signature short at call sites that only need
// a subset of the fakes.
func newFakePipeline(t *testing.T) (*Processor, *fakePaymentStore, *fakeTracker, *fakeLedger) {
	t.Helper()
	p, store, tracker, ledger, _ := newProcessorForTest()
	return p, store, tracker, ledger
}

func TestHandleRejectsMalformedBody(t *testing.T) {
	p, _, _, _ := newFakePipeline(t)
	body := []byte(`{"event":`)

	err := p.Handle(context.Background(), body, sign(body))
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestHandleIgnoresUnknownEventKind(t *testing.T) {
	p, _, _, _ := newFakePipeline(t)
	body := []byte(`{"event":"subscription.create","data":{}}`)

	assert.NoError(t, p.Handle(context.Background(), body, sign(body)))
}

func TestChargeSuccessMarksBillPaid(t *testing.T) {
	p, store, _, _ := newFakePipeline(t)
	billID := uint(3)
	payment := pendingPayment("REF_bill", 500)
	payment.BillID = &billID
	store.payments["REF_bill"] = payment

	body := []byte(`{"event":"charge.success","data":{"reference":"REF_bill","channel":"card","paid_at":"2026-03-18T12:00:00Z"}}`)
	require.NoError(t, p.Handle(context.Background(), body, sign(body)))

	assert.Equal(t, payments.StatusSuccessful, store.payments["REF_bill"].Status)
	assert.Equal(t, []uint{3}, store.billsPaid)
	require.NotNil(t, store.payments["REF_bill"].PaidAt)
}

func TestChargeSuccessRecomputesBundle(t *testing.T) {
	p, store, tracker, _ := newFakePipeline(t)
	bundleID := uint(7)
	payment := pendingPayment("REF_bundle", 2000)
	payment.BundleID = &bundleID
	store.payments["REF_bundle"] = payment

	body := []byte(`{"event":"charge.success","data":{"reference":"REF_bundle"}}`)
	require.NoError(t, p.Handle(context.Background(), body, sign(body)))

	assert.Equal(t, []uint{7}, tracker.recomputed)
}

func TestChargeSuccessReplayIsNoOp(t *testing.T) {
	p, store, tracker, _ := newFakePipeline(t)
	bundleID := uint(7)
	payment := pendingPayment("REF_replay", 2000)
	payment.BundleID = &bundleID
	store.payments["REF_replay"] = payment

	body := []byte(`{"event":"charge.success","data":{"reference":"REF_replay"}}`)
	require.NoError(t, p.Handle(context.Background(), body, sign(body)))
	require.NoError(t, p.Handle(context.Background(), body, sign(body)))
	require.NoError(t, p.Handle(context.Background(), body, sign(body)))

	// The side effects of the first delivery fire once.
	assert.Equal(t, []uint{7}, tracker.recomputed)
}

func TestChargeSuccessUnknownReferenceAcknowledged(t *testing.T) {
	p, store, tracker, _ := newFakePipeline(t)

	body := []byte(`{"event":"charge.success","data":{"reference":"REF_ghost"}}`)
	assert.NoError(t, p.Handle(context.Background(), body, sign(body)))
	assert.Empty(t, store.billsPaid)
	assert.Empty(t, tracker.recomputed)
}

func TestChargeSuccessRecordsSponsoredContribution(t *testing.T) {
	p, store, _, ledger := newFakePipeline(t)
	bundleID := uint(7)
	relID := uint(12)
	payment := pendingPayment("REF_sponsor", 800)
	payment.BundleID = &bundleID
	payment.RelationshipID = &relID
	store.payments["REF_sponsor"] = payment

	body := []byte(`{"event":"charge.success","data":{"reference":"REF_sponsor","metadata":{"category":"education","message":"for the twins"}}}`)
	require.NoError(t, p.Handle(context.Background(), body, sign(body)))

	require.Len(t, ledger.records, 1)
	rec := ledger.records[0]
	assert.Equal(t, uint(12), rec.RelationshipID)
	assert.Equal(t, 800.0, rec.Amount)
	assert.Equal(t, uint(7), rec.SourceID)
	assert.Equal(t, "education", rec.Category)
	assert.Equal(t, "for the twins", rec.Message)
}

func TestConfirmChargeKeepsContributionAttribution(t *testing.T) {
	p, store, _, ledger := newFakePipeline(t)
	bundleID := uint(7)
	relID := uint(12)
	payment := pendingPayment("REF_direct", 650)
	payment.BundleID = &bundleID
	payment.RelationshipID = &relID
	payment.Category = "education"
	payment.Message = "term two"
	store.payments["REF_direct"] = payment

	// The verify path carries no provider metadata; category and message
	// come from the payment row captured at initiation.
	require.NoError(t, p.ConfirmCharge(context.Background(), "REF_direct", "card", nil))

	require.Len(t, ledger.records, 1)
	assert.Equal(t, "education", ledger.records[0].Category)
	assert.Equal(t, "term two", ledger.records[0].Message)
}

func TestChargeFailedMarksPayment(t *testing.T) {
	p, store, _, _ := newFakePipeline(t)
	store.payments["REF_fail"] = pendingPayment("REF_fail", 500)

	body := []byte(`{"event":"charge.failed","data":{"reference":"REF_fail"}}`)
	require.NoError(t, p.Handle(context.Background(), body, sign(body)))

	assert.Equal(t, payments.StatusFailed, store.payments["REF_fail"].Status)
}

func TestTransferOutcomeUpdatesRecipient(t *testing.T) {
	p, store, _, _ := newFakePipeline(t)
	store.recipients["RCP_1"] = payments.RecipientPending

	body := []byte(`{"event":"transfer.success","data":{"transfer_code":"TC_1","recipient":{"recipient_code":"RCP_1"}}}`)
	require.NoError(t, p.Handle(context.Background(), body, sign(body)))
	assert.Equal(t, payments.RecipientSuccess, store.recipients["RCP_1"])

	body = []byte(`{"event":"transfer.failed","data":{"transfer_code":"TC_1","recipient":{"recipient_code":"RCP_1"}}}`)
	require.NoError(t, p.Handle(context.Background(), body, sign(body)))
	assert.Equal(t, payments.RecipientFailed, store.recipients["RCP_1"])
}

func TestTransferOutcomeUnknownRecipientAcknowledged(t *testing.T) {
	p, _, _, _ := newFakePipeline(t)

	body := []byte(`{"event":"transfer.success","data":{"transfer_code":"TC_x","recipient":{"recipient_code":"RCP_unknown"}}}`)
	assert.NoError(t, p.Handle(context.Background(), body, sign(body)))
}

func TestConfirmChargeMatchesWebhookTransition(t *testing.T) {
	p, store, tracker, _ := newFakePipeline(t)
	bundleID := uint(7)
	payment := pendingPayment("REF_verify", 2000)
	payment.BundleID = &bundleID
	store.payments["REF_verify"] = payment

	paidAt := time.Date(2026, time.March, 18, 12, 0, 0, 0, time.UTC)
	require.NoError(t, p.ConfirmCharge(context.Background(), "REF_verify", "card", &paidAt))

	assert.Equal(t, payments.StatusSuccessful, store.payments["REF_verify"].Status)
	assert.Equal(t, []uint{7}, tracker.recomputed)

	// The verify endpoint racing the webhook still processes once.
	body := []byte(`{"event":"charge.success","data":{"reference":"REF_verify"}}`)
	require.NoError(t, p.Handle(context.Background(), body, sign(body)))
	assert.Equal(t, []uint{7}, tracker.recomputed)
}

func TestNotificationsOnChargeOutcomes(t *testing.T) {
	p, store, _, _, notifier := newProcessorForTest()
	store.payments["REF_ok"] = pendingPayment("REF_ok", 100)
	store.payments["REF_bad"] = pendingPayment("REF_bad", 100)

	body := []byte(`{"event":"charge.success","data":{"reference":"REF_ok"}}`)
	require.NoError(t, p.Handle(context.Background(), body, sign(body)))
	body = []byte(`{"event":"charge.failed","data":{"reference":"REF_bad"}}`)
	require.NoError(t, p.Handle(context.Background(), body, sign(body)))

	assert.Equal(t, []notifications.NotificationKind{notifications.KindPayment, notifications.KindPayment}, notifier.notices)
}
