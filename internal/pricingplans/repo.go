package pricingplans

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

// Repository provides persistence for subscription plan definitions.
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

// CreatePlan inserts a new plan row.
func (r *Repository) CreatePlan(ctx context.Context, plan *models.PricingPlan) (*models.PricingPlan, error) {
	if err := r.db.WithContext(ctx).Create(plan).Error; err != nil {
		return nil, err
	}
	return plan, nil
}

// UpdatePlan saves all columns of an existing plan row.
func (r *Repository) UpdatePlan(ctx context.Context, plan *models.PricingPlan) (*models.PricingPlan, error) {
	if err := r.db.WithContext(ctx).Save(plan).Error; err != nil {
		return nil, err
	}
	return plan, nil
}

// FindByID loads a plan by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PricingPlan, error) {
	var plan models.PricingPlan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// FindByName loads a plan by its unique lowercase name.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.PricingPlan, error) {
	var plan models.PricingPlan
	if err := r.db.WithContext(ctx).First(&plan, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListPlans returns one page of plans plus the total count. Active-only
// listings also exclude plans past their expires_at.
func (r *Repository) ListPlans(ctx context.Context, params pagination.Params, activeOnly bool) ([]models.PricingPlan, int64, error) {
	qb := r.db.WithContext(ctx).Model(&models.PricingPlan{})
	if activeOnly {
		qb = qb.Where("is_active = ?", true).
			Where("expires_at IS NULL OR expires_at > now()")
	}

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PricingPlan
	err := qb.
		Order("priority DESC, created_at ASC").
		Offset(params.Offset()).
		Limit(pagination.NormalizeLimit(params.Limit)).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// PlanUsageRow is one aggregate row of the plan overview query.
type PlanUsageRow struct {
	PlanID        uuid.UUID `json:"plan_id"`
	Name          string    `json:"name"`
	IsActive      bool      `json:"is_active"`
	Subscriptions int64     `json:"subscriptions"`
	Revenue       string    `json:"revenue"`
}

// PlanUsage aggregates completed subscription volume and revenue per plan.
func (r *Repository) PlanUsage(ctx context.Context) ([]PlanUsageRow, error) {
	var rows []PlanUsageRow
	err := r.db.WithContext(ctx).
		Table("pricing_plans pp").
		Select(`pp.id AS plan_id, pp.name, pp.is_active,
COUNT(p.id) AS subscriptions,
COALESCE(SUM(p.amount) FILTER (WHERE p.status = 'completed'), 0)::text AS revenue`).
		Joins("LEFT JOIN purchases p ON p.pricing_plan_id = pp.id").
		Group("pp.id, pp.name, pp.is_active, pp.priority, pp.created_at").
		Order("pp.priority DESC, pp.created_at ASC").
		Scan(&rows).
		Error
	return rows, err
}

// CountPurchaseRefs counts purchase rows referencing the plan.
func (r *Repository) CountPurchaseRefs(ctx context.Context, planID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("pricing_plan_id = ?", planID).
		Count(&count).
		Error
	return count, err
}
