package repository

import (
	"errors"

	"github.com/paycore/internal/models"

	"gorm.io/gorm"
)

// InvoiceRepository reads CRM-mirrored invoice records.
type InvoiceRepository interface {
	GetByID(id uint) (*models.Invoice, error)
	GetByIDs(ids []uint) ([]models.Invoice, error)
	ListUnpaidForAccount(accountID uint) ([]models.Invoice, error)
	WithTx(tx *gorm.DB) *GormInvoiceRepository
}

// GormInvoiceRepository is the GORM implementation.
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates an invoice repository.
func NewInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// WithTx rebinds the repository to a transaction.
func (r *GormInvoiceRepository) WithTx(tx *gorm.DB) *GormInvoiceRepository {
	if tx == nil {
		return r
	}
	return &GormInvoiceRepository{db: tx}
}

// GetByID fetches one invoice, nil on miss.
func (r *GormInvoiceRepository) GetByID(id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.First(&invoice, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// GetByIDs fetches invoices by id list.
func (r *GormInvoiceRepository) GetByIDs(ids []uint) ([]models.Invoice, error) {
	if len(ids) == 0 {
		return []models.Invoice{}, nil
	}
	var invoices []models.Invoice
	if err := r.db.Where("id IN ?", ids).Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// ListUnpaidForAccount returns the account's active invoices with an
// outstanding balance, oldest first.
func (r *GormInvoiceRepository) ListUnpaidForAccount(accountID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Where("account_id = ? AND active = ? AND balance > 0", accountID, true).
		Order("id asc").Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}
