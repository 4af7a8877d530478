package repository

import (
	"errors"

	"github.com/paycore/internal/models"

	"gorm.io/gorm"
)

// PaymentMethodRepository is the stored-instrument data-access interface.
type PaymentMethodRepository interface {
	Create(method *models.PaymentMethod) error
	Update(method *models.PaymentMethod) error
	SoftDelete(id uint) error
	GetByID(id uint) (*models.PaymentMethod, error)
	ListForAccount(accountID uint) ([]models.PaymentMethod, error)
	CountForAccount(accountID uint) (int64, error)
	GetPrimaryForAccount(accountID uint) (*models.PaymentMethod, error)
	ClearPrimaryForAccount(accountID uint) error
	FindAutopayMethodForAccount(account *models.Account) (*models.PaymentMethod, error)
	WithTx(tx *gorm.DB) *GormPaymentMethodRepository
}

// GormPaymentMethodRepository is the GORM implementation.
type GormPaymentMethodRepository struct {
	db *gorm.DB
}

// NewPaymentMethodRepository creates a payment-method repository.
func NewPaymentMethodRepository(db *gorm.DB) *GormPaymentMethodRepository {
	return &GormPaymentMethodRepository{db: db}
}

// WithTx rebinds the repository to a transaction.
func (r *GormPaymentMethodRepository) WithTx(tx *gorm.DB) *GormPaymentMethodRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentMethodRepository{db: tx}
}

// Create inserts a payment method.
func (r *GormPaymentMethodRepository) Create(method *models.PaymentMethod) error {
	return r.db.Create(method).Error
}

// Update saves the full method row.
func (r *GormPaymentMethodRepository) Update(method *models.PaymentMethod) error {
	return r.db.Save(method).Error
}

// SoftDelete marks a method deleted. Primary-method protection lives in the
// handler layer, not here.
func (r *GormPaymentMethodRepository) SoftDelete(id uint) error {
	return r.db.Delete(&models.PaymentMethod{}, id).Error
}

// GetByID fetches one method, nil on miss.
func (r *GormPaymentMethodRepository) GetByID(id uint) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := r.db.First(&method, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &method, nil
}

// ListForAccount returns the live methods of an account.
func (r *GormPaymentMethodRepository) ListForAccount(accountID uint) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	if err := r.db.Where("account_id = ?", accountID).Order("is_primary desc, id asc").Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}

// CountForAccount counts the live methods of an account.
func (r *GormPaymentMethodRepository) CountForAccount(accountID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.PaymentMethod{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}

// GetPrimaryForAccount returns the account's primary method, nil on miss.
func (r *GormPaymentMethodRepository) GetPrimaryForAccount(accountID uint) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	result := r.db.Where("account_id = ? AND is_primary = ?", accountID, true).
		Order("id desc").Limit(1).Find(&method)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &method, nil
}

// ClearPrimaryForAccount drops the primary flag from every method of an
// account.
func (r *GormPaymentMethodRepository) ClearPrimaryForAccount(accountID uint) error {
	return r.db.Model(&models.PaymentMethod{}).
		Where("account_id = ? AND is_primary = ?", accountID, true).
		Update("is_primary", false).Error
}

// FindAutopayMethodForAccount resolves the account's autopay instrument:
// the explicitly referenced method when set, the primary method otherwise.
func (r *GormPaymentMethodRepository) FindAutopayMethodForAccount(account *models.Account) (*models.PaymentMethod, error) {
	if account == nil {
		return nil, nil
	}
	if account.AutopayMethodID != nil {
		method, err := r.GetByID(*account.AutopayMethodID)
		if err != nil {
			return nil, err
		}
		if method != nil && method.AccountID == account.ID {
			return method, nil
		}
		return nil, nil
	}
	return r.GetPrimaryForAccount(account.ID)
}
