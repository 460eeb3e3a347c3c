package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

// Repository provides persistence for payment records.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreatePayment inserts a new payment row.
func (r *Repository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// UpdatePayment saves all columns of an existing payment row.
func (r *Repository) UpdatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Save(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// FindByID loads a payment by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByStripeIntentID loads a payment by its processor intent reference.
func (r *Repository) FindByStripeIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "stripe_payment_intent_id = ?", intentID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindPendingForProduct returns the user's open payment for the same product,
// or gorm.ErrRecordNotFound. Used to reuse intents instead of stacking them.
func (r *Repository) FindPendingForProduct(ctx context.Context, userID uuid.UUID, productType enums.ProductType, productID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("product_type = ?", productType).
		Where(productColumn(productType)+" = ?", productID).
		Where("status = ?", enums.PaymentStatusPending).
		Order("created_at DESC").
		First(&payment).
		Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListPayments returns one page of a user's payments plus the total count.
// A nil userID lists across all users (admin).
func (r *Repository) ListPayments(ctx context.Context, userID *uuid.UUID, status *enums.PaymentStatus, params pagination.Params) ([]models.Payment, int64, error) {
	qb := r.db.WithContext(ctx).Model(&models.Payment{})
	if userID != nil {
		qb = qb.Where("user_id = ?", *userID)
	}
	if status != nil {
		qb = qb.Where("status = ?", *status)
	}

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Payment
	err := qb.
		Order("created_at DESC, id DESC").
		Offset(params.Offset()).
		Limit(pagination.NormalizeLimit(params.Limit)).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// StatusCount is one row of the payment statistics aggregate.
type StatusCount struct {
	Status enums.PaymentStatus `json:"status"`
	Count  int64               `json:"count"`
	Amount string              `json:"amount"`
}

// ProductTypeCount is one row of the per-product statistics aggregate.
type ProductTypeCount struct {
	ProductType enums.ProductType `json:"product_type"`
	Count       int64             `json:"count"`
	Amount      string            `json:"amount"`
}

// CountByStatus aggregates payment counts and amounts per status.
func (r *Repository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0)::text AS amount").
		Group("status").
		Order("status ASC").
		Scan(&rows).
		Error
	return rows, err
}

// CountSucceededByProductType aggregates successful volume per product type.
func (r *Repository) CountSucceededByProductType(ctx context.Context) ([]ProductTypeCount, error) {
	var rows []ProductTypeCount
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("product_type, COUNT(*) AS count, COALESCE(SUM(amount), 0)::text AS amount").
		Where("status = ?", enums.PaymentStatusSucceeded).
		Group("product_type").
		Order("product_type ASC").
		Scan(&rows).
		Error
	return rows, err
}

func productColumn(productType enums.ProductType) string {
	switch productType {
	case enums.ProductTypeCourse:
		return "course_id"
	case enums.ProductTypeSubscription:
		return "pricing_plan_id"
	default:
		return "design_id"
	}
}
