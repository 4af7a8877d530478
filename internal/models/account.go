package models

import (
	"time"
)

// Account mirrors the CRM-owned customer record. The core only reads the
// ledger balance, billing preferences and the autopay method reference; it
// never writes back to the CRM.
type Account struct {
	ID                    uint      `gorm:"primarykey" json:"id"`
	AreaID                int       `gorm:"index;not null" json:"area_id"`
	ExternalRefID         *string   `gorm:"index" json:"external_ref_id"`
	Name                  string    `json:"name"`
	Email                 string    `json:"email"`
	LedgerBalance         Amount    `gorm:"not null;default:0" json:"ledger_balance"` // minor units
	PreferredBillingDay   *int      `json:"preferred_billing_day"`                    // 1..31, clamped for short months
	AutopayMethodID       *uint     `gorm:"index" json:"autopay_method_id"`
	CurrencyCode          string    `gorm:"size:3" json:"currency_code"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`

	PaymentMethods []PaymentMethod `gorm:"foreignKey:AccountID" json:"payment_methods,omitempty"`
}

// TableName sets the table name.
func (Account) TableName() string {
	return "accounts"
}
