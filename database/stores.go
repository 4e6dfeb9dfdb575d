package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"billsponsor-app/internal/domain/bills"
	"billsponsor-app/internal/domain/bundles"
	"billsponsor-app/internal/domain/payments"
	"billsponsor-app/internal/domain/relationships"
)

// Gorm-backed stores for the funding, settlement, webhook and ledger
// subsystems. The conditional updates here are single statements guarded
// by the current status, so concurrent webhook deliveries cannot
// double-apply a transition (the database decides which caller wins).

type BundleStore struct {
	db *gorm.DB
}

func NewBundleStore(db *gorm.DB) *BundleStore { return &BundleStore{db: db} }

func (s *BundleStore) GetBundle(ctx context.Context, bundleID uint) (*bundles.BillBundle, error) {
	var bundle bundles.BillBundle
	err := s.db.WithContext(ctx).
		Preload("MerchantDetails").
		Preload("Sponsors").
		Where("id = ?", bundleID).
		First(&bundle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (s *BundleStore) SumSuccessfulPayments(ctx context.Context, bundleID uint) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).
		Model(&payments.Payment{}).
		Where("bundle_id = ? AND status = ?", bundleID, payments.StatusSuccessful).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// SetStatus writes the new funding status unless the bundle has already
// reached a final state. RowsAffected tells the caller whether its
// write won.
func (s *BundleStore) SetStatus(ctx context.Context, bundleID uint, status bundles.BundleStatus) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&bundles.BillBundle{}).
		Where("id = ? AND status NOT IN ?", bundleID, []bundles.BundleStatus{bundles.StatusFullyFunded, bundles.StatusPaid}).
		Where("status <> ?", status).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *BundleStore) ListOpenExpired(ctx context.Context, now time.Time) ([]bundles.BillBundle, error) {
	var stale []bundles.BillBundle
	err := s.db.WithContext(ctx).
		Where("status IN ?", []bundles.BundleStatus{bundles.StatusPending, bundles.StatusPartiallyFunded}).
		Where("link_expires_at < ?", now).
		Find(&stale).Error
	return stale, err
}

type PaymentStore struct {
	db *gorm.DB
}

func NewPaymentStore(db *gorm.DB) *PaymentStore { return &PaymentStore{db: db} }

func (s *PaymentStore) markCharge(ctx context.Context, reference string, status payments.PaymentStatus, updates map[string]interface{}) (*payments.Payment, bool, error) {
	updates["status"] = status
	res := s.db.WithContext(ctx).
		Model(&payments.Payment{}).
		Where("reference = ? AND status = ?", reference, payments.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, false, res.Error
	}

	var payment payments.Payment
	err := s.db.WithContext(ctx).Where("reference = ?", reference).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &payment, res.RowsAffected > 0, nil
}

func (s *PaymentStore) MarkChargeSucceeded(ctx context.Context, reference string, paidAt *time.Time, channel string, metadata []byte) (*payments.Payment, bool, error) {
	updates := map[string]interface{}{
		"channel":  channel,
		"metadata": string(metadata),
	}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	} else {
		updates["paid_at"] = time.Now().UTC()
	}
	return s.markCharge(ctx, reference, payments.StatusSuccessful, updates)
}

func (s *PaymentStore) MarkChargeFailed(ctx context.Context, reference string, metadata []byte) (*payments.Payment, bool, error) {
	return s.markCharge(ctx, reference, payments.StatusFailed, map[string]interface{}{
		"metadata": string(metadata),
	})
}

func (s *PaymentStore) MarkBillPaid(ctx context.Context, billID uint) error {
	return s.db.WithContext(ctx).
		Model(&bills.Bill{}).
		Where("id = ?", billID).
		Update("status", bills.BillStatusPaid).Error
}

func (s *PaymentStore) UpdateRecipientOutcome(ctx context.Context, recipientCode string, status payments.RecipientStatus, transferCode string) (bool, error) {
	updates := map[string]interface{}{"status": status}
	if transferCode != "" {
		updates["transfer_code"] = transferCode
	}
	res := s.db.WithContext(ctx).
		Model(&payments.TransferRecipient{}).
		Where("recipient_code = ?", recipientCode).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

type RecipientStore struct {
	db *gorm.DB
}

func NewRecipientStore(db *gorm.DB) *RecipientStore { return &RecipientStore{db: db} }

func (s *RecipientStore) FindRecipientByAccount(ctx context.Context, accountNumber string) (*payments.TransferRecipient, error) {
	var recipient payments.TransferRecipient
	err := s.db.WithContext(ctx).Where("account_number = ?", accountNumber).First(&recipient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &recipient, nil
}

func (s *RecipientStore) SaveRecipient(ctx context.Context, r *payments.TransferRecipient) error {
	return s.db.WithContext(ctx).Save(r).Error
}

type TargetStore struct {
	db *gorm.DB
}

func NewTargetStore(db *gorm.DB) *TargetStore { return &TargetStore{db: db} }

func (s *TargetStore) BillExists(ctx context.Context, billID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&bills.Bill{}).Where("id = ?", billID).Count(&n).Error
	return n > 0, err
}

func (s *TargetStore) BundleExists(ctx context.Context, bundleID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&bundles.BillBundle{}).Where("id = ?", bundleID).Count(&n).Error
	return n > 0, err
}

type ContributionStore struct {
	db *gorm.DB
}

func NewContributionStore(db *gorm.DB) *ContributionStore { return &ContributionStore{db: db} }

func (s *ContributionStore) CreateContribution(ctx context.Context, c *relationships.Contribution) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *ContributionStore) ContributionsByRelationship(ctx context.Context, relationshipID uint, since time.Time) ([]relationships.Contribution, error) {
	q := s.db.WithContext(ctx).Where("relationship_id = ?", relationshipID)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	var contributions []relationships.Contribution
	err := q.Order("created_at DESC").Find(&contributions).Error
	return contributions, err
}

func (s *ContributionStore) SetContributionThanked(ctx context.Context, contributionID uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&relationships.Contribution{}).
		Where("id = ?", contributionID).
		Update("thanked", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
