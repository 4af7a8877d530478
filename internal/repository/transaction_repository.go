package repository

import (
	"errors"

	"github.com/paycore/internal/models"

	"gorm.io/gorm"
)

// TransactionRepository is the gateway-transaction data-access interface.
type TransactionRepository interface {
	Create(txn *models.Transaction) error
	Update(txn *models.Transaction) error
	GetByID(id uint) (*models.Transaction, error)
	GetLatestOfTypeForPayment(paymentID uint, txnType string) (*models.Transaction, error)
	GetLatestForPayment(paymentID uint) (*models.Transaction, error)
	CountForPayment(paymentID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormTransactionRepository
}

// GormTransactionRepository is the GORM implementation.
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a transaction repository.
func NewTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// WithTx rebinds the repository to a transaction.
func (r *GormTransactionRepository) WithTx(tx *gorm.DB) *GormTransactionRepository {
	if tx == nil {
		return r
	}
	return &GormTransactionRepository{db: tx}
}

// Create inserts a transaction row.
func (r *GormTransactionRepository) Create(txn *models.Transaction) error {
	return r.db.Create(txn).Error
}

// Update saves the full transaction row.
func (r *GormTransactionRepository) Update(txn *models.Transaction) error {
	return r.db.Save(txn).Error
}

// GetByID fetches one transaction, nil on miss.
func (r *GormTransactionRepository) GetByID(id uint) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.First(&txn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// GetLatestOfTypeForPayment returns the newest transaction of the given
// type for a payment, nil on miss.
func (r *GormTransactionRepository) GetLatestOfTypeForPayment(paymentID uint, txnType string) (*models.Transaction, error) {
	var txn models.Transaction
	result := r.db.Where("payment_id = ? AND transaction_type = ?", paymentID, txnType).
		Order("id desc").Limit(1).Find(&txn)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &txn, nil
}

// GetLatestForPayment returns the newest transaction of any type for a
// payment, nil on miss.
func (r *GormTransactionRepository) GetLatestForPayment(paymentID uint) (*models.Transaction, error) {
	var txn models.Transaction
	result := r.db.Where("payment_id = ?", paymentID).Order("id desc").Limit(1).Find(&txn)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &txn, nil
}

// CountForPayment counts transactions on a payment.
func (r *GormTransactionRepository) CountForPayment(paymentID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Transaction{}).Where("payment_id = ?", paymentID).Count(&count).Error
	return count, err
}
