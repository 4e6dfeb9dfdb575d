package funding

import (
	"context"
	"fmt"
	"log"
	"time"

	"billsponsor-app/internal/domain/apperr"
	"billsponsor-app/internal/domain/bundles"
	"billsponsor-app/internal/domain/notifications"
)

// Store is the persistence surface the tracker needs. SetStatus must be
// a single conditional statement: it writes the new status only while
// the current status is not final (fully-funded / paid) and reports
// whether this call's write took effect. That report is what makes the
// fully-funded side effect fire exactly once under concurrent
// recomputes.
type Store interface {
	GetBundle(ctx context.Context, bundleID uint) (*bundles.BillBundle, error)
	SumSuccessfulPayments(ctx context.Context, bundleID uint) (float64, error)
	SetStatus(ctx context.Context, bundleID uint, status bundles.BundleStatus) (bool, error)
	ListOpenExpired(ctx context.Context, now time.Time) ([]bundles.BillBundle, error)
}

// Dispatcher fires the disbursement batch for a fully funded bundle.
type Dispatcher interface {
	Dispatch(ctx context.Context, bundle *bundles.BillBundle) error
}

type Notifier interface {
	Notify(ctx context.Context, recipientID uint, kind notifications.NotificationKind, title, message string)
}

// Tracker owns a bundle's funding lifecycle. Status is always derived
// from the payment set, never from a running total; the stored status
// column is only the cached value that gates settlement dispatch.
type Tracker struct {
	store      Store
	dispatcher Dispatcher
	notifier   Notifier
}

func NewTracker(store Store, dispatcher Dispatcher, notifier Notifier) *Tracker {
	return &Tracker{store: store, dispatcher: dispatcher, notifier: notifier}
}

// statusFor maps a paid total onto the funding state machine.
func statusFor(totalPaid, totalAmount float64) bundles.BundleStatus {
	switch {
	case totalPaid <= 0:
		return bundles.StatusPending
	case totalPaid < totalAmount:
		return bundles.StatusPartiallyFunded
	default:
		return bundles.StatusFullyFunded
	}
}

// Recompute re-derives the bundle's funding status from its successful
// payments and applies it. Invoked once per successful-payment event,
// but safe under replays and concurrent invocations for the same
// bundle: the conditional status write never regresses a final state,
// and settlement dispatches only from the single invocation whose write
// performed the fully-funded transition.
func (t *Tracker) Recompute(ctx context.Context, bundleID uint) (bundles.BundleStatus, error) {
	bundle, err := t.store.GetBundle(ctx, bundleID)
	if err != nil {
		return "", err
	}
	if bundle == nil {
		return "", apperr.NotFound("bundle")
	}

	if bundle.Status.Final() {
		// fully-funded and paid never regress, even if a payment is
		// later reversed upstream.
		return bundle.Status, nil
	}

	totalPaid, err := t.store.SumSuccessfulPayments(ctx, bundleID)
	if err != nil {
		return "", err
	}

	next := statusFor(totalPaid, bundle.TotalAmount)
	if totalPaid > bundle.TotalAmount {
		// Over-funding is accepted; the surplus is reconciled by an
		// operator, not refunded here.
		log.Printf("⚠️ bundle %d over-funded: paid %.2f of %.2f", bundleID, totalPaid, bundle.TotalAmount)
	}

	if next == bundle.Status {
		return next, nil
	}

	won, err := t.store.SetStatus(ctx, bundleID, next)
	if err != nil {
		return "", err
	}

	if won && next == bundles.StatusFullyFunded {
		t.onFullyFunded(ctx, bundle)
	}

	if !won {
		// A concurrent recompute got there first; report what the
		// store now holds.
		current, err := t.store.GetBundle(ctx, bundleID)
		if err != nil || current == nil {
			return next, nil
		}
		return current.Status, nil
	}

	return next, nil
}

// onFullyFunded runs the transition side effects for the one caller
// that performed the winning status write.
func (t *Tracker) onFullyFunded(ctx context.Context, bundle *bundles.BillBundle) {
	if t.notifier != nil {
		t.notifier.Notify(ctx, bundle.OwnerID, notifications.KindPayment,
			"Bundle fully funded",
			fmt.Sprintf("Your bundle %q is fully funded. Merchant payouts are on the way.", bundle.Title))
	}

	if t.dispatcher == nil {
		return
	}
	if err := t.dispatcher.Dispatch(ctx, bundle); err != nil {
		// The bundle stays fully-funded; the batch is retried by an
		// operator, never automatically from here.
		log.Printf("❌ settlement dispatch failed for bundle %d: %v", bundle.ID, err)
	}
}

// Expired reports whether a bundle should be expired: the share link has
// lapsed while funding never completed.
func Expired(bundle *bundles.BillBundle, now time.Time) bool {
	if bundle.Status != bundles.StatusPending && bundle.Status != bundles.StatusPartiallyFunded {
		return false
	}
	return bundle.LinkExpired(now)
}

// ExpireStale marks lapsed, under-funded bundles expired. Driven by the
// periodic sweep in main.
func (t *Tracker) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := t.store.ListOpenExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range stale {
		bundle := &stale[i]
		if !Expired(bundle, now) {
			continue
		}
		won, err := t.store.SetStatus(ctx, bundle.ID, bundles.StatusExpired)
		if err != nil {
			log.Printf("⚠️ failed to expire bundle %d: %v", bundle.ID, err)
			continue
		}
		if won {
			expired++
			if t.notifier != nil {
				t.notifier.Notify(ctx, bundle.OwnerID, notifications.KindReminder,
					"Bundle expired",
					fmt.Sprintf("The share link for %q expired before it was fully funded.", bundle.Title))
			}
		}
	}
	return expired, nil
}
