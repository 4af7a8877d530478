package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentMethod is a stored charge instrument owned by an account. Methods
// are soft-deleted only; the handler layer refuses to delete the primary
// method.
type PaymentMethod struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	AccountID       uint           `gorm:"index;not null" json:"account_id"`
	Type            string         `gorm:"not null" json:"type"` // cc / ach
	Gateway         string         `gorm:"not null" json:"gateway"`
	GatewayToken    string         `gorm:"index" json:"gateway_token"`     // processor-issued account token
	AchAccountLast4 string         `gorm:"size:4" json:"ach_account_last4"`
	AchRoutingNo    string         `gorm:"size:9" json:"ach_routing_no"`
	AchAccountNo    string         `json:"-"` // only populated for gateways without tokenized ACH
	CardLast4       string         `gorm:"size:4" json:"card_last4"`
	CardExpMonth    int            `json:"card_exp_month"`
	CardExpYear     int            `json:"card_exp_year"`
	BillingName     string         `json:"billing_name"`
	BillingStreet   string         `json:"billing_street"`
	BillingCity     string         `json:"billing_city"`
	BillingState    string         `json:"billing_state"`
	BillingZip      string         `json:"billing_zip"`
	IsPrimary       bool           `gorm:"index" json:"is_primary"`
	PaymentHoldDate *time.Time     `json:"payment_hold_date"` // future-dated block on charging
	ExternalStatus  string         `json:"external_status"`   // CRM lifecycle flag; non-active disallows charging
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the table name.
func (PaymentMethod) TableName() string {
	return "payment_methods"
}

// Chargeable reports whether the CRM lifecycle flag allows charging.
func (m *PaymentMethod) Chargeable() bool {
	return m.ExternalStatus == "active"
}
