package settlement

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billsponsor-app/internal/domain/apperr"
	"billsponsor-app/internal/domain/bundles"
	"billsponsor-app/internal/domain/payments"
	"billsponsor-app/internal/infra/paystack"
)

type fakeTransferAPI struct {
	created     []string
	batches     [][]paystack.BulkTransferEntry
	createErr   error
	transferErr error
}

func (a *fakeTransferAPI) CreateRecipient(_ context.Context, name, accountNumber, bankCode string) (string, error) {
	if a.createErr != nil {
		return "", a.createErr
	}
	a.created = append(a.created, accountNumber)
	return fmt.Sprintf("RCP_%s", accountNumber), nil
}

func (a *fakeTransferAPI) BulkTransfer(_ context.Context, source, currency string, entries []paystack.BulkTransferEntry) (*paystack.BulkTransferResult, error) {
	if a.transferErr != nil {
		return nil, a.transferErr
	}
	a.batches = append(a.batches, entries)
	result := &paystack.BulkTransferResult{BatchID: entries[0].Reference}
	for i, e := range entries {
		result.Transfers = append(result.Transfers, struct {
			Recipient    string `json:"recipient"`
			TransferCode string `json:"transfer_code"`
			Reference    string `json:"reference"`
		}{Recipient: e.Recipient, TransferCode: fmt.Sprintf("TC_%d", i), Reference: e.Reference})
	}
	return result, nil
}

type fakeRecipientStore struct {
	byAccount map[string]*payments.TransferRecipient
	saves     int
}

func newFakeRecipientStore() *fakeRecipientStore {
	return &fakeRecipientStore{byAccount: map[string]*payments.TransferRecipient{}}
}

func (s *fakeRecipientStore) FindRecipientByAccount(_ context.Context, accountNumber string) (*payments.TransferRecipient, error) {
	if r, ok := s.byAccount[accountNumber]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeRecipientStore) SaveRecipient(_ context.Context, r *payments.TransferRecipient) error {
	s.saves++
	copied := *r
	s.byAccount[r.AccountNumber] = &copied
	return nil
}

func fundedBundle() *bundles.BillBundle {
	return &bundles.BillBundle{
		ID:          5,
		OwnerID:     10,
		Title:       "March bills",
		TotalAmount: 3500,
		Status:      bundles.StatusFullyFunded,
		MerchantDetails: []bundles.MerchantDetail{
			{BundleID: 5, BillID: 1, AccountName: "Lagos Power", AccountNumber: "0011223344", BankCode: "058", Amount: 2000, Category: "utility"},
			{BundleID: 5, BillID: 2, AccountName: "Crest Schools", AccountNumber: "0099887766", BankCode: "044", Amount: 1500, Category: "education"},
		},
	}
}

func TestDispatchSubmitsOneLinePerMerchantDetail(t *testing.T) {
	api := &fakeTransferAPI{}
	store := newFakeRecipientStore()
	d := NewDispatcher(api, store, "", "")

	result, err := d.DispatchWithResult(context.Background(), fundedBundle())
	require.NoError(t, err)

	require.Len(t, api.batches, 1, "one batch per dispatch")
	batch := api.batches[0]
	require.Len(t, batch, 2)

	// Amounts cross the wire in kobo.
	assert.Equal(t, int64(200000), batch[0].Amount)
	assert.Equal(t, int64(150000), batch[1].Amount)
	assert.Contains(t, batch[0].Reference, "TRF_")
	assert.NotEqual(t, batch[0].Reference, batch[1].Reference)

	assert.Equal(t, uint(5), result.BundleID)
	assert.NotEmpty(t, result.BatchID)
	require.Len(t, result.Recipients, 2)
	for _, r := range result.Recipients {
		assert.Equal(t, result.BatchID, r.BatchID)
		assert.NotEmpty(t, r.TransferCode)
		assert.Equal(t, payments.RecipientPending, r.Status)
		require.NotNil(t, r.BundleID)
		assert.Equal(t, uint(5), *r.BundleID)
	}
}

func TestDispatchReusesKnownRecipients(t *testing.T) {
	api := &fakeTransferAPI{}
	store := newFakeRecipientStore()
	store.byAccount["0011223344"] = &payments.TransferRecipient{
		ID:            9,
		Name:          "Lagos Power",
		AccountNumber: "0011223344",
		BankCode:      "058",
		RecipientCode: "RCP_existing",
	}
	d := NewDispatcher(api, store, "balance", "NGN")

	_, err := d.DispatchWithResult(context.Background(), fundedBundle())
	require.NoError(t, err)

	// Only the unseen merchant is registered with the provider.
	require.Len(t, api.created, 1)
	assert.Equal(t, "0099887766", api.created[0])
	assert.Equal(t, "RCP_existing", api.batches[0][0].Recipient)
}

func TestDispatchDeduplicatesWithinBatch(t *testing.T) {
	api := &fakeTransferAPI{}
	store := newFakeRecipientStore()
	d := NewDispatcher(api, store, "balance", "NGN")

	bundle := fundedBundle()
	// Two bills settled to the same merchant account.
	bundle.MerchantDetails[1].AccountNumber = "0011223344"
	bundle.MerchantDetails[1].AccountName = "Lagos Power"
	bundle.MerchantDetails[1].BankCode = "058"

	result, err := d.DispatchWithResult(context.Background(), bundle)
	require.NoError(t, err)

	// One provider registration, still one transfer line per bill.
	assert.Len(t, api.created, 1)
	require.Len(t, api.batches, 1)
	assert.Len(t, api.batches[0], 2)

	// The single recipient row carries the summed payout.
	require.Len(t, result.Recipients, 1)
	assert.Equal(t, 3500.0, result.Recipients[0].Amount)
	require.NotNil(t, store.byAccount["0011223344"])
	assert.Equal(t, 3500.0, store.byAccount["0011223344"].Amount)
}

func TestDispatchRoundsKoboAmounts(t *testing.T) {
	api := &fakeTransferAPI{}
	d := NewDispatcher(api, newFakeRecipientStore(), "balance", "NGN")

	bundle := fundedBundle()
	bundle.MerchantDetails[0].Amount = 1.13
	bundle.MerchantDetails[1].Amount = 0.29

	_, err := d.DispatchWithResult(context.Background(), bundle)
	require.NoError(t, err)

	require.Len(t, api.batches, 1)
	assert.Equal(t, int64(113), api.batches[0][0].Amount)
	assert.Equal(t, int64(29), api.batches[0][1].Amount)
}

func TestDispatchEmptyBundleRejected(t *testing.T) {
	d := NewDispatcher(&fakeTransferAPI{}, newFakeRecipientStore(), "balance", "NGN")

	_, err := d.DispatchWithResult(context.Background(), &bundles.BillBundle{ID: 5})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestDispatchBatchFailureSurfacesSubmissionError(t *testing.T) {
	api := &fakeTransferAPI{transferErr: errors.New("provider unavailable")}
	store := newFakeRecipientStore()
	d := NewDispatcher(api, store, "balance", "NGN")

	_, err := d.DispatchWithResult(context.Background(), fundedBundle())
	require.Error(t, err)

	var submission *apperr.DisbursementSubmissionError
	require.ErrorAs(t, err, &submission)
	assert.Equal(t, uint(5), submission.BundleID)

	// Recipient registrations made before the failed batch survive for
	// the retry.
	assert.Len(t, api.created, 2)
	assert.NotNil(t, store.byAccount["0011223344"])
	assert.NotNil(t, store.byAccount["0099887766"])
}

func TestDispatchRecipientRegistrationFailure(t *testing.T) {
	api := &fakeTransferAPI{createErr: errors.New("invalid bank code")}
	d := NewDispatcher(api, newFakeRecipientStore(), "balance", "NGN")

	_, err := d.DispatchWithResult(context.Background(), fundedBundle())
	require.Error(t, err)

	var submission *apperr.DisbursementSubmissionError
	require.ErrorAs(t, err, &submission)
	assert.Len(t, api.batches, 0, "no batch is submitted when registration fails")
}
