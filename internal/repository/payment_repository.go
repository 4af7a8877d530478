package repository

import (
	"errors"
	"time"

	"github.com/paycore/internal/constants"
	"github.com/paycore/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRepository is the payment data-access interface.
type PaymentRepository interface {
	Create(payment *models.Payment) error
	Update(payment *models.Payment) error
	UpdateStatus(id uint, status string, updates map[string]interface{}) error
	GetByID(id uint) (*models.Payment, error)
	GetByIDs(ids []uint) ([]models.Payment, error)
	GetByPaymentRef(ref string) (*models.Payment, error)
	List(filter PaymentListFilter) ([]models.Payment, int64, error)
	GetLatestForPaymentMethod(methodID uint, limit int) ([]models.Payment, error)
	GetDeclinedForPaymentMethodCount(methodID uint, since time.Time) (int64, error)
	GetNotFullySettledAchPayments(page, pageSize int) ([]models.Payment, error)
	GetExternalRefundsWithoutTransactionsForArea(areaID int, from, to time.Time, page, pageSize int) ([]models.Payment, error)
	GetSuspendedOrTerminatedByInvoiceIDs(invoiceIDs []uint, accountID uint) ([]models.Payment, error)
	LinkInvoices(paymentID uint, links []models.PaymentInvoice) error
	GetInvoiceLinks(paymentID uint) ([]models.PaymentInvoice, error)
	CloneAndCreateFromExistingPayment(original *models.Payment, status string) (*models.Payment, error)
	WithTx(tx *gorm.DB) *GormPaymentRepository
}

// GormPaymentRepository is the GORM implementation.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a payment repository.
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx rebinds the repository to a transaction.
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create inserts a payment, assigning a payment ref when absent.
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	if payment.PaymentRef == "" {
		payment.PaymentRef = uuid.NewString()
	}
	return r.db.Create(payment).Error
}

// Update saves the full payment row.
func (r *GormPaymentRepository) Update(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

// UpdateStatus updates the status plus any extra columns in one statement.
func (r *GormPaymentRepository) UpdateStatus(id uint, status string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	return r.db.Model(&models.Payment{}).Where("id = ?", id).Updates(updates).Error
}

// GetByID fetches one payment, nil on miss.
func (r *GormPaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByIDs fetches payments by id list.
func (r *GormPaymentRepository) GetByIDs(ids []uint) ([]models.Payment, error) {
	if len(ids) == 0 {
		return []models.Payment{}, nil
	}
	var payments []models.Payment
	if err := r.db.Where("id IN ?", ids).Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// GetByPaymentRef fetches the payment carrying a gateway reference id.
func (r *GormPaymentRepository) GetByPaymentRef(ref string) (*models.Payment, error) {
	var payment models.Payment
	result := r.db.Where("payment_ref = ?", ref).Limit(1).Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// List returns a filtered page of payments plus the total count.
func (r *GormPaymentRepository) List(filter PaymentListFilter) ([]models.Payment, int64, error) {
	query := r.db.Model(&models.Payment{})
	if filter.AccountID != 0 {
		query = query.Where("account_id = ?", filter.AccountID)
	}
	if filter.PaymentMethodID != 0 {
		query = query.Where("payment_method_id = ?", filter.PaymentMethodID)
	}
	if filter.Gateway != "" {
		query = query.Where("payment_gateway = ?", filter.Gateway)
	}
	if filter.PaymentType != "" {
		query = query.Where("payment_type = ?", filter.PaymentType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var payments []models.Payment
	if err := query.Order("id desc").Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// GetLatestForPaymentMethod returns the most recent payments charged against
// a method, newest first. Suspended rows are excluded: they never reached
// the gateway.
func (r *GormPaymentRepository) GetLatestForPaymentMethod(methodID uint, limit int) ([]models.Payment, error) {
	if limit <= 0 {
		limit = 3
	}
	var payments []models.Payment
	err := r.db.
		Where("payment_method_id = ? AND status NOT IN ?", methodID,
			[]string{constants.PaymentStatusSuspended, constants.PaymentStatusTerminated}).
		Order("id desc").Limit(limit).Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// GetDeclinedForPaymentMethodCount counts declined attempts on a method
// since the given time.
func (r *GormPaymentRepository) GetDeclinedForPaymentMethodCount(methodID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("payment_method_id = ? AND status = ? AND created_at >= ?",
			methodID, constants.PaymentStatusDeclined, since).
		Count(&count).Error
	return count, err
}

// GetNotFullySettledAchPayments pages over captured ACH payments that have
// neither settled nor returned yet.
func (r *GormPaymentRepository) GetNotFullySettledAchPayments(page, pageSize int) ([]models.Payment, error) {
	query := r.db.
		Where("payment_type = ? AND status = ?", constants.PaymentTypeACH, constants.PaymentStatusCaptured).
		Order("id asc")
	query = applyPagination(query, page, pageSize)
	var payments []models.Payment
	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// GetExternalRefundsWithoutTransactionsForArea pages over credited refund
// rows imported from the CRM that have no gateway transaction yet.
func (r *GormPaymentRepository) GetExternalRefundsWithoutTransactionsForArea(areaID int, from, to time.Time, page, pageSize int) ([]models.Payment, error) {
	query := r.db.Model(&models.Payment{}).
		Joins("JOIN accounts ON accounts.id = payments.account_id").
		Where("accounts.area_id = ?", areaID).
		Where("payments.status = ?", constants.PaymentStatusCredited).
		Where("payments.external_ref_id IS NOT NULL").
		Where("payments.created_at >= ? AND payments.created_at <= ?", from, to).
		Where("NOT EXISTS (SELECT 1 FROM transactions WHERE transactions.payment_id = payments.id)").
		Order("payments.id asc")
	query = applyPagination(query, page, pageSize)
	var payments []models.Payment
	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// GetSuspendedOrTerminatedByInvoiceIDs returns suspended or terminated
// payments for the account that are linked to any of the given invoices,
// newest first. Used by duplicate detection and the terminated-invoice gate.
func (r *GormPaymentRepository) GetSuspendedOrTerminatedByInvoiceIDs(invoiceIDs []uint, accountID uint) ([]models.Payment, error) {
	if len(invoiceIDs) == 0 {
		return []models.Payment{}, nil
	}
	var payments []models.Payment
	err := r.db.Model(&models.Payment{}).
		Joins("JOIN payment_invoices ON payment_invoices.payment_id = payments.id").
		Where("payments.account_id = ?", accountID).
		Where("payments.status IN ?", []string{constants.PaymentStatusSuspended, constants.PaymentStatusTerminated}).
		Where("payment_invoices.invoice_id IN ?", invoiceIDs).
		Group("payments.id").
		Order("payments.id desc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// LinkInvoices attaches the invoice set a payment pays down.
func (r *GormPaymentRepository) LinkInvoices(paymentID uint, links []models.PaymentInvoice) error {
	if len(links) == 0 {
		return nil
	}
	for i := range links {
		links[i].PaymentID = paymentID
	}
	return r.db.Create(&links).Error
}

// GetInvoiceLinks returns the invoice links for a payment.
func (r *GormPaymentRepository) GetInvoiceLinks(paymentID uint) ([]models.PaymentInvoice, error) {
	var links []models.PaymentInvoice
	if err := r.db.Where("payment_id = ?", paymentID).Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// CloneAndCreateFromExistingPayment creates a new row carrying the
// original's identity fields, linked back through OriginalPaymentID. The
// original row is never touched.
func (r *GormPaymentRepository) CloneAndCreateFromExistingPayment(original *models.Payment, status string) (*models.Payment, error) {
	if original == nil {
		return nil, errors.New("original payment is nil")
	}
	originalID := original.ID
	now := time.Now()
	clone := models.Payment{
		PaymentRef:        uuid.NewString(),
		AccountID:         original.AccountID,
		PaymentMethodID:   original.PaymentMethodID,
		PaymentType:       original.PaymentType,
		PaymentGateway:    original.PaymentGateway,
		Amount:            original.Amount,
		AppliedAmount:     original.AppliedAmount,
		CurrencyCode:      original.CurrencyCode,
		Status:            status,
		OriginalPaymentID: &originalID,
		ProcessedAt:       &now,
		CreatedBy:         original.CreatedBy,
		UpdatedBy:         original.UpdatedBy,
	}
	if err := r.db.Create(&clone).Error; err != nil {
		return nil, err
	}
	return &clone, nil
}
