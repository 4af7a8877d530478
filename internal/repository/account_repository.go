package repository

import (
	"errors"

	"github.com/paycore/internal/models"

	"gorm.io/gorm"
)

// AccountRepository reads CRM-mirrored account records.
type AccountRepository interface {
	GetByID(id uint) (*models.Account, error)
	ListWithUnpaidBalanceForArea(areaID int, page, pageSize int) ([]models.Account, error)
	WithTx(tx *gorm.DB) *GormAccountRepository
}

// GormAccountRepository is the GORM implementation.
type GormAccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates an account repository.
func NewAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// WithTx rebinds the repository to a transaction.
func (r *GormAccountRepository) WithTx(tx *gorm.DB) *GormAccountRepository {
	if tx == nil {
		return r
	}
	return &GormAccountRepository{db: tx}
}

// GetByID fetches one account, nil on miss.
func (r *GormAccountRepository) GetByID(id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// ListWithUnpaidBalanceForArea pages over accounts in an area carrying a
// positive ledger balance, oldest id first so pagination is stable.
func (r *GormAccountRepository) ListWithUnpaidBalanceForArea(areaID int, page, pageSize int) ([]models.Account, error) {
	query := r.db.Where("area_id = ? AND ledger_balance > 0", areaID).Order("id asc")
	query = applyPagination(query, page, pageSize)
	var accounts []models.Account
	if err := query.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}
