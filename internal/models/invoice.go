package models

import (
	"time"
)

// Invoice mirrors the CRM-owned invoice record; the core reads balances and
// links payments to invoice sets, nothing else.
type Invoice struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	AccountID     uint      `gorm:"index;not null" json:"account_id"`
	AreaID        int       `gorm:"index;not null" json:"area_id"`
	ExternalRefID *string   `gorm:"index" json:"external_ref_id"`
	Balance       Amount    `gorm:"not null;default:0" json:"balance"` // minor units outstanding
	Total         Amount    `gorm:"not null;default:0" json:"total"`
	Active        bool      `gorm:"index;not null;default:true" json:"active"`
	InvoicedAt    *time.Time `json:"invoiced_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName sets the table name.
func (Invoice) TableName() string {
	return "invoices"
}
