package webhooks

import (
	"context"
	"fmt"
	"log"
	"time"

	"billsponsor-app/internal/domain/apperr"
	"billsponsor-app/internal/domain/bundles"
	"billsponsor-app/internal/domain/notifications"
	"billsponsor-app/internal/domain/payments"
	"billsponsor-app/internal/domain/relationships"
	"billsponsor-app/internal/infra/paystack"
)

// PaymentStore is the mutation surface the processor needs. The charge
// transitions must be single conditional updates keyed on the provider
// reference and the current pending status, so a replayed webhook is a
// no-op rather than a double-processing.
type PaymentStore interface {
	// MarkChargeSucceeded flips pending -> successful. Returns the
	// payment (nil when the reference is unknown) and whether this call
	// performed the transition.
	MarkChargeSucceeded(ctx context.Context, reference string, paidAt *time.Time, channel string, metadata []byte) (*payments.Payment, bool, error)
	// MarkChargeFailed flips pending -> failed under the same contract.
	MarkChargeFailed(ctx context.Context, reference string, metadata []byte) (*payments.Payment, bool, error)
	MarkBillPaid(ctx context.Context, billID uint) error
	// UpdateRecipientOutcome sets a transfer recipient's status by
	// provider recipient code; returns false when no such recipient.
	UpdateRecipientOutcome(ctx context.Context, recipientCode string, status payments.RecipientStatus, transferCode string) (bool, error)
}

// Tracker re-derives a bundle's funding status after a successful
// payment.
type Tracker interface {
	Recompute(ctx context.Context, bundleID uint) (bundles.BundleStatus, error)
}

// Ledger records the contribution a successful sponsored charge
// represents.
type Ledger interface {
	Record(ctx context.Context, relationshipID uint, amount float64, sourceID uint, category, message string) (*relationships.Contribution, error)
}

type Notifier interface {
	Notify(ctx context.Context, recipientID uint, kind notifications.NotificationKind, title, message string)
}

// Processor is the single entry point for provider callbacks. Webhooks
// arrive at least once and in any order; every path through Handle is
// idempotent.
type Processor struct {
	secret   string
	store    PaymentStore
	tracker  Tracker
	ledger   Ledger
	notifier Notifier
}

func NewProcessor(secret string, store PaymentStore, tracker Tracker, ledger Ledger, notifier Notifier) *Processor {
	return &Processor{secret: secret, store: store, tracker: tracker, ledger: ledger, notifier: notifier}
}

// Handle verifies and applies one raw webhook delivery.
func (p *Processor) Handle(ctx context.Context, body []byte, signature string) error {
	if !paystack.VerifySignature(body, signature, p.secret) {
		log.Println("🚨 webhook rejected: invalid signature")
		return apperr.Authentication("invalid webhook signature")
	}

	event, err := paystack.ParseEvent(body)
	if err != nil {
		log.Println("⚠️ webhook rejected: unparseable body:", err)
		return apperr.Validation("malformed webhook payload")
	}

	switch event.Kind {
	case paystack.EventChargeSuccess:
		return p.handleChargeSuccess(ctx, event.Charge)
	case paystack.EventChargeFailed:
		return p.handleChargeFailed(ctx, event.Charge)
	case paystack.EventTransferSuccess:
		return p.handleTransferOutcome(ctx, event.Transfer, payments.RecipientSuccess)
	case paystack.EventTransferFailed:
		return p.handleTransferOutcome(ctx, event.Transfer, payments.RecipientFailed)
	default:
		// Unknown kinds are acknowledged, not errors, so the provider
		// stops redelivering them.
		log.Println("ℹ️ ignoring unhandled webhook event kind")
		return nil
	}
}

// ConfirmCharge applies a successful charge outside the webhook path
// (the synchronous verify endpoint). Same idempotent transition as a
// charge.success delivery.
func (p *Processor) ConfirmCharge(ctx context.Context, reference, channel string, paidAt *time.Time) error {
	return p.handleChargeSuccess(ctx, &paystack.ChargeData{
		Reference: reference,
		Channel:   channel,
		PaidAt:    paidAt,
	})
}

func (p *Processor) handleChargeSuccess(ctx context.Context, charge *paystack.ChargeData) error {
	payment, updated, err := p.store.MarkChargeSucceeded(ctx, charge.Reference, charge.PaidAt, charge.Channel, charge.Raw)
	if err != nil {
		return err
	}
	if payment == nil {
		log.Printf("⚠️ payment not found for reference: %s", charge.Reference)
		return nil
	}
	if !updated {
		// Replayed delivery for an already-successful payment.
		return nil
	}

	if payment.BillID != nil {
		if err := p.store.MarkBillPaid(ctx, *payment.BillID); err != nil {
			return err
		}
	}

	if payment.BundleID != nil {
		if _, err := p.tracker.Recompute(ctx, *payment.BundleID); err != nil {
			return err
		}
	}

	if payment.RelationshipID != nil && p.ledger != nil {
		p.recordContribution(ctx, payment, charge)
	}

	if p.notifier != nil {
		p.notifier.Notify(ctx, payment.PayerID, notifications.KindPayment,
			"Payment confirmed",
			fmt.Sprintf("Your payment of %.2f (ref %s) was successful.", payment.Amount, payment.Reference))
	}
	return nil
}

func (p *Processor) handleChargeFailed(ctx context.Context, charge *paystack.ChargeData) error {
	payment, updated, err := p.store.MarkChargeFailed(ctx, charge.Reference, charge.Raw)
	if err != nil {
		return err
	}
	if payment == nil {
		log.Printf("⚠️ payment not found for reference: %s", charge.Reference)
		return nil
	}
	if updated && p.notifier != nil {
		p.notifier.Notify(ctx, payment.PayerID, notifications.KindPayment,
			"Payment failed",
			fmt.Sprintf("Your payment (ref %s) did not go through.", payment.Reference))
	}
	return nil
}

// recordContribution appends the sponsored charge to the relationship's
// ledger. The limit check happened when the charge was initiated; the
// ledger write here is what future checks aggregate over. Attribution
// comes from the payment row first: the verify path confirms charges
// without provider metadata.
func (p *Processor) recordContribution(ctx context.Context, payment *payments.Payment, charge *paystack.ChargeData) {
	sourceID := payment.Target().ID
	category := payment.Category
	if category == "" {
		if c, ok := charge.Metadata["category"].(string); ok {
			category = c
		}
	}
	if category == "" {
		category = "other"
	}
	message := payment.Message
	if message == "" {
		if m, ok := charge.Metadata["message"].(string); ok {
			message = m
		}
	}
	if _, err := p.ledger.Record(ctx, *payment.RelationshipID, payment.Amount, sourceID, category, message); err != nil {
		log.Printf("⚠️ failed to record contribution for payment %s: %v", payment.Reference, err)
	}
}

func (p *Processor) handleTransferOutcome(ctx context.Context, transfer *paystack.TransferData, status payments.RecipientStatus) error {
	found, err := p.store.UpdateRecipientOutcome(ctx, transfer.RecipientCode, status, transfer.TransferCode)
	if err != nil {
		return err
	}
	if !found {
		// The provider can reference recipients this system didn't
		// create.
		log.Printf("⚠️ transfer outcome for unknown recipient code: %s", transfer.RecipientCode)
	}
	return nil
}
