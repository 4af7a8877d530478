package models

import (
	"time"
)

// Payment is the unit of money movement. Rows are append-only once a
// terminal status is set; refunds, ACH returns and duplicate suspensions are
// new rows pointing back through OriginalPaymentID.
type Payment struct {
	ID                uint       `gorm:"primarykey" json:"id"`
	PaymentRef        string     `gorm:"uniqueIndex;size:36;not null" json:"payment_ref"`     // uuid sent to gateways as our reference
	ExternalRefID     *string    `gorm:"index" json:"external_ref_id"`                        // optional legacy/CRM record link
	AccountID         uint       `gorm:"index;not null" json:"account_id"`
	PaymentMethodID   *uint      `gorm:"index" json:"payment_method_id"`                      // nullable once the method is deleted
	PaymentType       string     `gorm:"not null" json:"payment_type"`                        // cc / ach / check
	PaymentGateway    string     `gorm:"not null" json:"payment_gateway"`
	Amount            Amount     `gorm:"not null" json:"amount"`                              // minor units
	AppliedAmount     Amount     `gorm:"not null;default:0" json:"applied_amount"`            // minor units applied to invoices
	CurrencyCode      string     `gorm:"size:3;not null" json:"currency_code"`
	Status            string     `gorm:"index;not null" json:"status"`
	OriginalPaymentID *uint      `gorm:"index" json:"original_payment_id"`                    // refund origin / settled ACH superseded / duplicated payment
	SuspendReason     string     `json:"suspend_reason"`
	SuspendedAt       *time.Time `json:"suspended_at"`
	TerminatedAt      *time.Time `json:"terminated_at"`
	TerminatedBy      string     `json:"terminated_by"`
	ProcessedAt       *time.Time `gorm:"index" json:"processed_at"`
	CreatedBy         string     `json:"created_by"`
	UpdatedBy         string     `json:"updated_by"`
	Notes             string     `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Transactions []Transaction    `gorm:"foreignKey:PaymentID" json:"transactions,omitempty"`
	Invoices     []PaymentInvoice `gorm:"foreignKey:PaymentID" json:"invoices,omitempty"`
}

// TableName sets the table name.
func (Payment) TableName() string {
	return "payments"
}

// PaymentInvoice links a payment to the invoices it pays down.
type PaymentInvoice struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	PaymentID     uint      `gorm:"index;not null" json:"payment_id"`
	InvoiceID     uint      `gorm:"index;not null" json:"invoice_id"`
	AppliedAmount Amount    `gorm:"not null" json:"applied_amount"` // minor units
	CreatedAt     time.Time `json:"created_at"`
}

// TableName sets the table name.
func (PaymentInvoice) TableName() string {
	return "payment_invoices"
}
