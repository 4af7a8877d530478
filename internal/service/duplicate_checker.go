package service

import (
	"github.com/paycore/internal/constants"
	"github.com/paycore/internal/models"
	"github.com/paycore/internal/repository"

	"gorm.io/gorm"
)

// DuplicatePaymentChecker decides whether a pending charge duplicates an
// existing suspended or terminated payment for the same invoices. A match
// means the new attempt must be suspended instead of charged. The check runs
// inside the charge's transaction, so tx carries the caller's binding.
type DuplicatePaymentChecker interface {
	IsDuplicatePayment(tx *gorm.DB, invoiceIDs []uint, amount models.Amount, accountID uint, methodID *uint) (bool, error)
	OriginalPayment() *models.Payment
}

// InvoiceSetDuplicateChecker matches on account + invoice set + amount over
// recent suspended/terminated rows.
type InvoiceSetDuplicateChecker struct {
	paymentRepo repository.PaymentRepository
	original    *models.Payment
}

// NewDuplicateChecker creates the default checker.
func NewDuplicateChecker(paymentRepo repository.PaymentRepository) *InvoiceSetDuplicateChecker {
	return &InvoiceSetDuplicateChecker{paymentRepo: paymentRepo}
}

// IsDuplicatePayment reports whether the pending charge matches a suspended
// or terminated payment covering any of the same invoices. Terminated
// matches do not count as duplicates here; the terminated-invoice gate
// upstream treats those as fatal before this runs.
func (c *InvoiceSetDuplicateChecker) IsDuplicatePayment(tx *gorm.DB, invoiceIDs []uint, amount models.Amount, accountID uint, methodID *uint) (bool, error) {
	c.original = nil
	if len(invoiceIDs) == 0 {
		return false, nil
	}
	repo := c.paymentRepo
	if tx != nil {
		repo = c.paymentRepo.(*repository.GormPaymentRepository).WithTx(tx)
	}
	candidates, err := repo.GetSuspendedOrTerminatedByInvoiceIDs(invoiceIDs, accountID)
	if err != nil {
		return false, err
	}
	for i := range candidates {
		candidate := &candidates[i]
		if candidate.Status != constants.PaymentStatusSuspended {
			continue
		}
		if candidate.Amount != amount {
			continue
		}
		if methodID != nil && candidate.PaymentMethodID != nil && *candidate.PaymentMethodID != *methodID {
			continue
		}
		c.original = candidate
		return true, nil
	}
	return false, nil
}

// OriginalPayment returns the payment matched by the last check, nil when
// the last check found none.
func (c *InvoiceSetDuplicateChecker) OriginalPayment() *models.Payment {
	return c.original
}
