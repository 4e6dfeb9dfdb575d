package payments

import (
	"context"

	"billsponsor-app/internal/domain/apperr"
)

// TargetStore answers whether a charge target exists.
type TargetStore interface {
	BillExists(ctx context.Context, billID uint) (bool, error)
	BundleExists(ctx context.Context, bundleID uint) (bool, error)
}

// CheckTarget verifies the bill or bundle a payment is about to be
// charged against exists, before the pending row goes in. A charge
// against a ghost target would finalize into a successful payment whose
// side effects can never apply, and the idempotent webhook path means
// redelivery never recovers it.
func CheckTarget(ctx context.Context, store TargetStore, target Target) error {
	switch target.Kind {
	case TargetBill:
		ok, err := store.BillExists(ctx, target.ID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("bill")
		}
	case TargetBundle:
		ok, err := store.BundleExists(ctx, target.ID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("bundle")
		}
	default:
		return apperr.Validation("payment must target a bill or a bundle")
	}
	return nil
}
