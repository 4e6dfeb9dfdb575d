package bundles

import (
	"time"

	"github.com/google/uuid"

	"billsponsor-app/internal/domain/bills"
	"billsponsor-app/internal/domain/users"
)

type BundleStatus string

const (
	StatusPending         BundleStatus = "pending"
	StatusPartiallyFunded BundleStatus = "partially-funded"
	StatusFullyFunded     BundleStatus = "fully-funded"
	StatusPaid            BundleStatus = "paid"
	StatusExpired         BundleStatus = "expired"
)

// Final reports whether a status may never be overwritten by a funding
// recompute. fully-funded and paid only ever move forward.
func (s BundleStatus) Final() bool {
	return s == StatusFullyFunded || s == StatusPaid
}

type SponsorStatus string

const (
	SponsorPending  SponsorStatus = "pending"
	SponsorAccepted SponsorStatus = "accepted"
	SponsorDeclined SponsorStatus = "declined"
	SponsorPaid     SponsorStatus = "paid"
)

// Sponsor is one invited funder on a bundle.
type Sponsor struct {
	ID       uint          `gorm:"primaryKey" json:"id"`
	BundleID uint          `gorm:"not null;index" json:"bundle_id"`
	UserID   uint          `gorm:"not null" json:"user_id"`
	User     users.User    `json:"-"`
	Amount   float64       `gorm:"not null;default:0" json:"amount"`
	Status   SponsorStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MerchantDetail is a per-bill payout line snapshotted onto the bundle at
// creation. Settlement reads these, never the live bill or merchant
// profile.
type MerchantDetail struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	BundleID      uint    `gorm:"not null;index" json:"bundle_id"`
	BillID        uint    `gorm:"not null" json:"bill_id"`
	AccountName   string  `gorm:"not null" json:"account_name"`
	AccountNumber string  `gorm:"not null" json:"account_number"`
	BankCode      string  `gorm:"not null" json:"bank_code"`
	Amount        float64 `gorm:"not null" json:"amount"`
	Category      string  `json:"category"`
}

type BillBundle struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	OwnerID     uint       `gorm:"not null;index" json:"owner_id"`
	Owner       users.User `json:"-"`

	Bills           []bills.Bill     `gorm:"many2many:bundle_bills;" json:"bills,omitempty"`
	Sponsors        []Sponsor        `gorm:"foreignKey:BundleID" json:"sponsors,omitempty"`
	MerchantDetails []MerchantDetail `gorm:"foreignKey:BundleID" json:"merchant_details,omitempty"`

	// Fixed at creation: sum of the constituent bill amounts.
	TotalAmount float64      `gorm:"not null" json:"total_amount"`
	Status      BundleStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	ShareableLink string    `gorm:"not null;uniqueIndex:idx_bundles_link" json:"shareable_link"`
	LinkExpiresAt time.Time `gorm:"not null" json:"link_expires_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLinkToken mints the unique, URL-safe token embedded in a bundle's
// shareable link.
func NewLinkToken() string {
	return uuid.NewString()
}

// LinkExpired reports whether the shareable link has lapsed. The periodic
// sweep uses this together with the funding state to expire stale bundles.
func (b *BillBundle) LinkExpired(now time.Time) bool {
	return now.After(b.LinkExpiresAt)
}

func (b *BillBundle) HasSponsor(userID uint) bool {
	for _, s := range b.Sponsors {
		if s.UserID == userID {
			return true
		}
	}
	return false
}
