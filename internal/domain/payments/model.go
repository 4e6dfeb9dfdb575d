package payments

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"billsponsor-app/internal/domain/apperr"
	"billsponsor-app/internal/domain/users"
)

type PaymentStatus string

const (
	StatusPending    PaymentStatus = "pending"
	StatusSuccessful PaymentStatus = "successful"
	StatusFailed     PaymentStatus = "failed"
)

// TargetKind says what a payment funds: exactly one of a bill or a
// bundle.
type TargetKind string

const (
	TargetBill   TargetKind = "bill"
	TargetBundle TargetKind = "bundle"
)

// Target is the bill-or-bundle a payment is charged against, made
// explicit so the "exactly one" invariant is checked at construction
// instead of being implied by two nullable columns.
type Target struct {
	Kind TargetKind
	ID   uint
}

func BillTarget(id uint) Target   { return Target{Kind: TargetBill, ID: id} }
func BundleTarget(id uint) Target { return Target{Kind: TargetBundle, ID: id} }

// Payment is created pending before the provider redirect and finalized
// only by the webhook/verify path. The provider reference is the
// idempotency key: a reference is processed at most once.
type Payment struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	Reference string        `gorm:"not null;uniqueIndex:idx_payments_reference" json:"reference"`
	Amount    float64       `gorm:"not null" json:"amount"`
	Status    PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Channel   string        `json:"channel,omitempty"`
	Currency  string        `gorm:"type:varchar(10);not null;default:'NGN'" json:"currency"`

	BillID   *uint `gorm:"index" json:"bill_id,omitempty"`
	BundleID *uint `gorm:"index" json:"bundle_id,omitempty"`

	PayerID uint       `gorm:"not null;index" json:"payer_id"`
	Payer   users.User `json:"-"`

	// Relationship the contribution is attributed to, when the charge
	// was initiated through a sponsorship. Category and message are
	// captured at initiation: the synchronous verify path confirms a
	// charge without provider metadata, so the ledger entry reads them
	// from here.
	RelationshipID *uint  `json:"relationship_id,omitempty"`
	Category       string `json:"category,omitempty"`
	Message        string `json:"message,omitempty"`

	// Raw provider payload from the final charge event.
	Metadata string     `gorm:"type:text" json:"-"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPayment builds a pending payment against exactly one target.
func NewPayment(payerID uint, amount float64, target Target, relationshipID *uint) (*Payment, error) {
	if amount <= 0 {
		return nil, apperr.Validation("payment amount must be greater than zero")
	}
	p := &Payment{
		Reference:      NewReference(),
		Amount:         amount,
		Status:         StatusPending,
		PayerID:        payerID,
		RelationshipID: relationshipID,
	}
	switch target.Kind {
	case TargetBill:
		if target.ID == 0 {
			return nil, apperr.Validation("bill target requires a bill id")
		}
		id := target.ID
		p.BillID = &id
	case TargetBundle:
		if target.ID == 0 {
			return nil, apperr.Validation("bundle target requires a bundle id")
		}
		id := target.ID
		p.BundleID = &id
	default:
		return nil, apperr.Validation("payment must target a bill or a bundle")
	}
	return p, nil
}

// Target reconstructs the tagged target from the stored columns.
func (p *Payment) Target() Target {
	if p.BillID != nil {
		return BillTarget(*p.BillID)
	}
	if p.BundleID != nil {
		return BundleTarget(*p.BundleID)
	}
	return Target{}
}

// NewReference mints a provider-facing charge reference.
func NewReference() string {
	return fmt.Sprintf("REF_%s", uuid.NewString())
}

type RecipientStatus string

const (
	RecipientPending RecipientStatus = "pending"
	RecipientSuccess RecipientStatus = "success"
	RecipientFailed  RecipientStatus = "failed"
)

// TransferRecipient is a per-merchant payout record. Account number is
// the dedup key: settlement reuses an existing row instead of
// re-registering the recipient with the provider.
type TransferRecipient struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	Name          string  `gorm:"not null" json:"name"`
	AccountNumber string  `gorm:"not null;uniqueIndex:idx_recipients_account" json:"account_number"`
	BankCode      string  `gorm:"not null" json:"bank_code"`
	Amount        float64 `gorm:"not null" json:"amount"`
	Reason        string  `gorm:"default:'Payout'" json:"reason"`

	RecipientCode string          `gorm:"uniqueIndex:idx_recipients_code" json:"recipient_code"`
	TransferCode  string          `json:"transfer_code,omitempty"`
	BatchID       string          `json:"batch_id,omitempty"`
	BundleID      *uint           `gorm:"index" json:"bundle_id,omitempty"`
	Status        RecipientStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
