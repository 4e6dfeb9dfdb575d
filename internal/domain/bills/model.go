package bills

import (
	"time"

	"billsponsor-app/internal/domain/users"
)

type BillStatus string

const (
	BillStatusPending       BillStatus = "pending"
	BillStatusPartiallyPaid BillStatus = "partially-paid"
	BillStatusPaid          BillStatus = "paid"
	BillStatusOverdue       BillStatus = "overdue"
)

type BillCategory string

const (
	CategoryEducation BillCategory = "education"
	CategoryUtility   BillCategory = "utility"
	CategoryRent      BillCategory = "rent"
	CategoryHealth    BillCategory = "health"
	CategoryOther     BillCategory = "other"
)

func ValidCategory(c BillCategory) bool {
	switch c {
	case CategoryEducation, CategoryUtility, CategoryRent, CategoryHealth, CategoryOther:
		return true
	}
	return false
}

// MerchantBankDetails is the payout destination for a bill's merchant.
// Bundles snapshot these values at creation time so later profile edits
// never change where an in-flight disbursement goes.
type MerchantBankDetails struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
}

type Bill struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	OwnerID     uint       `gorm:"not null;index" json:"owner_id"`
	Owner       users.User `json:"-"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	Amount      float64    `gorm:"not null" json:"amount"`
	DueDate     time.Time  `json:"due_date"`
	Status      BillStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	MerchantID *uint        `json:"merchant_id"`
	Merchant   *users.User  `json:"-"`
	Category   BillCategory `gorm:"type:varchar(20);not null" json:"category"`

	MerchantAccountName   string `json:"merchant_account_name"`
	MerchantAccountNumber string `json:"merchant_account_number"`
	MerchantBankCode      string `json:"merchant_bank_code"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal returns true when the bill can no longer be edited. A paid
// bill is immutable.
func (b *Bill) Terminal() bool {
	return b.Status == BillStatusPaid
}

func (b *Bill) BankDetails() MerchantBankDetails {
	return MerchantBankDetails{
		AccountName:   b.MerchantAccountName,
		AccountNumber: b.MerchantAccountNumber,
		BankCode:      b.MerchantBankCode,
	}
}
