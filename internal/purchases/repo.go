package purchases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

// Repository provides persistence for purchase entitlement records.
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

// CreatePurchase inserts a new purchase row.
func (r *Repository) CreatePurchase(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error) {
	if err := r.db.WithContext(ctx).Create(purchase).Error; err != nil {
		return nil, err
	}
	return purchase, nil
}

// UpdatePurchase saves all columns of an existing purchase row.
func (r *Repository) UpdatePurchase(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error) {
	if err := r.db.WithContext(ctx).Save(purchase).Error; err != nil {
		return nil, err
	}
	return purchase, nil
}

// FindByID loads a purchase by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.WithContext(ctx).First(&purchase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

// FindCompletedIndividual returns the completed individual purchase of one
// catalog item by the user, or gorm.ErrRecordNotFound.
func (r *Repository) FindCompletedIndividual(ctx context.Context, userID uuid.UUID, productType enums.ProductType, productID uuid.UUID) (*models.Purchase, error) {
	column := "design_id"
	if productType == enums.ProductTypeCourse {
		column = "course_id"
	}
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("type = ?", enums.PurchaseTypeIndividual).
		Where("status = ?", enums.PurchaseStatusCompleted).
		Where(column+" = ?", productID).
		First(&purchase).
		Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// FindLiveSubscription returns the user's completed subscription whose window
// covers now, preferring the one ending last.
func (r *Repository) FindLiveSubscription(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("type = ?", enums.PurchaseTypeSubscription).
		Where("status = ?", enums.PurchaseStatusCompleted).
		Where("subscription_ends_at > ?", now).
		Order("subscription_ends_at DESC").
		First(&purchase).
		Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// FindPendingSubscription returns the user's newest pending subscription
// purchase, or gorm.ErrRecordNotFound.
func (r *Repository) FindPendingSubscription(ctx context.Context, userID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("type = ?", enums.PurchaseTypeSubscription).
		Where("status = ?", enums.PurchaseStatusPending).
		Order("created_at DESC").
		First(&purchase).
		Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// FindLatestSubscription returns the user's most recent completed or expired
// subscription regardless of whether its window is still open, or
// gorm.ErrRecordNotFound.
func (r *Repository) FindLatestSubscription(ctx context.Context, userID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("type = ?", enums.PurchaseTypeSubscription).
		Where("status IN ?", []enums.PurchaseStatus{enums.PurchaseStatusCompleted, enums.PurchaseStatusExpired}).
		Order("created_at DESC").
		First(&purchase).
		Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// DecrementRemainingDownloads atomically consumes one download from a quota'd
// subscription. Returns the rows affected: zero means the quota is exhausted
// or the purchase has no counted quota.
func (r *Repository) DecrementRemainingDownloads(ctx context.Context, purchaseID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ?", purchaseID).
		Where("remaining_downloads > 0").
		UpdateColumn("remaining_downloads", gorm.Expr("remaining_downloads - 1"))
	return result.RowsAffected, result.Error
}

// ListFilters narrows purchase list queries.
type ListFilters struct {
	UserID *uuid.UUID
	Type   *enums.PurchaseType
	Status *enums.PurchaseStatus
}

// ListPurchases returns one page of purchases plus the total count.
func (r *Repository) ListPurchases(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Purchase, int64, error) {
	qb := r.db.WithContext(ctx).Model(&models.Purchase{})
	if filters.UserID != nil {
		qb = qb.Where("user_id = ?", *filters.UserID)
	}
	if filters.Type != nil {
		qb = qb.Where("type = ?", *filters.Type)
	}
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Purchase
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

// MarkExpiredSubscriptions flips completed subscriptions whose window has
// passed to expired, returning how many rows changed.
func (r *Repository) MarkExpiredSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("type = ?", enums.PurchaseTypeSubscription).
		Where("status = ?", enums.PurchaseStatusCompleted).
		Where("subscription_ends_at IS NOT NULL AND subscription_ends_at <= ?", now).
		Updates(map[string]any{"status": enums.PurchaseStatusExpired, "updated_at": now})
	return result.RowsAffected, result.Error
}

// RevenueBucket is one aggregate row of the purchase analytics query.
type RevenueBucket struct {
	Bucket    time.Time `json:"bucket"`
	Purchases int64     `json:"purchases"`
	Revenue   string    `json:"revenue"`
}

// RevenueByPeriod aggregates completed purchase revenue into calendar buckets.
func (r *Repository) RevenueByPeriod(ctx context.Context, period enums.AnalyticsPeriod, since time.Time) ([]RevenueBucket, error) {
	var rows []RevenueBucket
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Select("date_trunc(?, created_at) AS bucket, COUNT(*) AS purchases, COALESCE(SUM(amount), 0)::text AS revenue", period.DateTrunc()).
		Where("status = ?", enums.PurchaseStatusCompleted).
		Where("created_at >= ?", since).
		Group("bucket").
		Order("bucket ASC").
		Scan(&rows).
		Error
	return rows, err
}
