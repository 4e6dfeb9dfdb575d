package settlement

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"billsponsor-app/internal/domain/apperr"
	"billsponsor-app/internal/domain/bundles"
	"billsponsor-app/internal/domain/payments"
	"billsponsor-app/internal/infra/paystack"
)

// TransferAPI is the slice of the provider the dispatcher uses.
type TransferAPI interface {
	CreateRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error)
	BulkTransfer(ctx context.Context, source, currency string, entries []paystack.BulkTransferEntry) (*paystack.BulkTransferResult, error)
}

// RecipientStore persists TransferRecipient rows. FindByAccount returns
// nil (not an error) when no row exists for the account number.
type RecipientStore interface {
	FindRecipientByAccount(ctx context.Context, accountNumber string) (*payments.TransferRecipient, error)
	SaveRecipient(ctx context.Context, r *payments.TransferRecipient) error
}

// Result reports what was submitted in the batch. Per-recipient success
// or failure only arrives later through transfer-outcome webhooks.
type Result struct {
	BundleID   uint                         `json:"bundle_id"`
	BatchID    string                       `json:"batch_id"`
	Recipients []payments.TransferRecipient `json:"recipients"`
}

// Dispatcher turns a fully funded bundle into one disbursement batch.
// The funding tracker guarantees at most one Dispatch call per bundle.
type Dispatcher struct {
	api           TransferAPI
	store         RecipientStore
	sourceAccount string
	currency      string
}

func NewDispatcher(api TransferAPI, store RecipientStore, sourceAccount, currency string) *Dispatcher {
	if sourceAccount == "" {
		sourceAccount = "balance"
	}
	if currency == "" {
		currency = "NGN"
	}
	return &Dispatcher{api: api, store: store, sourceAccount: sourceAccount, currency: currency}
}

// Dispatch builds one transfer line per merchant bank-detail entry
// snapshotted on the bundle and submits them as a single batch. Whole
// batch failure leaves the bundle fully-funded and is surfaced as a
// DisbursementSubmissionError for an operator to retry; nothing retries
// automatically here, since a transient partial failure retried blind
// would double-pay merchants.
func (d *Dispatcher) Dispatch(ctx context.Context, bundle *bundles.BillBundle) error {
	_, err := d.DispatchWithResult(ctx, bundle)
	return err
}

func (d *Dispatcher) DispatchWithResult(ctx context.Context, bundle *bundles.BillBundle) (*Result, error) {
	if len(bundle.MerchantDetails) == 0 {
		return nil, apperr.Validation("bundle has no merchant bank details to disburse to")
	}

	// Recipient registration is deduplicated by account number, both
	// against stored rows and within this batch.
	recipients := make([]*payments.TransferRecipient, 0, len(bundle.MerchantDetails))
	seen := map[string]*payments.TransferRecipient{}
	entries := make([]paystack.BulkTransferEntry, 0, len(bundle.MerchantDetails))

	for _, detail := range bundle.MerchantDetails {
		recipient := seen[detail.AccountNumber]
		if recipient == nil {
			existing, err := d.store.FindRecipientByAccount(ctx, detail.AccountNumber)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				recipient = existing
			} else {
				code, err := d.api.CreateRecipient(ctx, detail.AccountName, detail.AccountNumber, detail.BankCode)
				if err != nil {
					return nil, &apperr.DisbursementSubmissionError{BundleID: bundle.ID, Err: err}
				}
				recipient = &payments.TransferRecipient{
					Name:          detail.AccountName,
					AccountNumber: detail.AccountNumber,
					BankCode:      detail.BankCode,
					RecipientCode: code,
					Status:        payments.RecipientPending,
				}
				// Persist straight away so a later batch failure still
				// leaves the provider registration reusable.
				if err := d.store.SaveRecipient(ctx, recipient); err != nil {
					return nil, err
				}
			}
			recipient.Amount = 0
			recipient.Reason = fmt.Sprintf("Payout for bundle %d", bundle.ID)
			recipient.Status = payments.RecipientPending
			bundleID := bundle.ID
			recipient.BundleID = &bundleID
			seen[detail.AccountNumber] = recipient
			recipients = append(recipients, recipient)
		}

		// A merchant paid by several bills gets one recipient row carrying
		// the summed payout, but still one transfer line per bill.
		recipient.Amount += detail.Amount

		entries = append(entries, paystack.BulkTransferEntry{
			Amount:    paystack.Kobo(detail.Amount),
			Reference: fmt.Sprintf("TRF_%s", uuid.NewString()),
			Reason:    fmt.Sprintf("Payout for bill %d", detail.BillID),
			Recipient: recipient.RecipientCode,
		})
	}

	batch, err := d.api.BulkTransfer(ctx, d.sourceAccount, d.currency, entries)
	if err != nil {
		return nil, &apperr.DisbursementSubmissionError{BundleID: bundle.ID, Err: err}
	}

	transferCodes := map[string]string{}
	for _, t := range batch.Transfers {
		transferCodes[t.Recipient] = t.TransferCode
	}

	result := &Result{BundleID: bundle.ID, BatchID: batch.BatchID}
	for _, recipient := range recipients {
		recipient.BatchID = batch.BatchID
		if code, ok := transferCodes[recipient.RecipientCode]; ok {
			recipient.TransferCode = code
		}
		if err := d.store.SaveRecipient(ctx, recipient); err != nil {
			// The batch is already with the provider; a failed local
			// write must not fail the dispatch.
			log.Printf("⚠️ failed to persist transfer recipient %s: %v", recipient.AccountNumber, err)
		}
		result.Recipients = append(result.Recipients, *recipient)
	}

	log.Printf("✅ dispatched settlement batch %s for bundle %d (%d transfers)", batch.BatchID, bundle.ID, len(entries))
	return result, nil
}
