package repository

import "time"

// PaymentListFilter narrows admin payment listings.
type PaymentListFilter struct {
	AccountID       uint
	PaymentMethodID uint
	Gateway         string
	PaymentType     string
	Status          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Page            int
	PageSize        int
}
