package models

import (
	"time"
)

// Transaction records one gateway call outcome, always as a child of a
// payment. Capture, cancel and status operations require a prior
// authorize-type transaction on the same payment; its absence is a data
// inconsistency, never a retryable miss.
type Transaction struct {
	ID                   uint       `gorm:"primarykey" json:"id"`
	PaymentID            uint       `gorm:"index;not null" json:"payment_id"`
	TransactionType      string     `gorm:"index;not null" json:"transaction_type"` // authorize / capture / cancel / sale / refund / status_check
	GatewayTransactionID string     `gorm:"index" json:"gateway_transaction_id"`
	GatewayResponseCode  string     `json:"gateway_response_code"`
	GatewayMessage       string     `json:"gateway_message"`
	RawResponse          JSON       `gorm:"type:json" json:"raw_response"`
	Success              bool       `json:"success"`
	ProcessedAt          *time.Time `gorm:"index" json:"processed_at"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TableName sets the table name.
func (Transaction) TableName() string {
	return "transactions"
}
