package pricingplans

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/pkg/db"
	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

// Service exposes subscription plan management and browsing.
type Service interface {
	CreatePlan(ctx context.Context, input CreatePlanInput) (*PlanDTO, error)
	UpdatePlan(ctx context.Context, planID uuid.UUID, input UpdatePlanInput) (*PlanDTO, error)
	DeactivatePlan(ctx context.Context, planID uuid.UUID) (*PlanDTO, error)
	GetPlan(ctx context.Context, planID uuid.UUID, includeInactive bool) (*PlanDTO, error)
	ListPlans(ctx context.Context, params pagination.Params, includeInactive bool) (*PlanListResult, error)
	Overview(ctx context.Context) ([]PlanUsageRow, error)
}

// CreatePlanInput holds the validated payload to create a plan.
type CreatePlanInput struct {
	Name               string
	Price              decimal.Decimal
	DiscountPercentage decimal.Decimal
	DurationCount      int
	DurationUnit       enums.PlanDurationUnit
	LegacyDuration     *string
	MaxDownloads       *int
	Priority           int
	ExpiresAt          *time.Time
}

// UpdatePlanInput holds optional mutation values for a plan.
type UpdatePlanInput struct {
	Name               *string
	Price              *decimal.Decimal
	DiscountPercentage *decimal.Decimal
	DurationCount      *int
	DurationUnit       *enums.PlanDurationUnit
	MaxDownloads       *int
	ClearMaxDownloads  bool
	Priority           *int
	IsActive           *bool
	ExpiresAt          *time.Time
	ClearExpiresAt     bool
}

type planRepository interface {
	CreatePlan(ctx context.Context, plan *models.PricingPlan) (*models.PricingPlan, error)
	UpdatePlan(ctx context.Context, plan *models.PricingPlan) (*models.PricingPlan, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PricingPlan, error)
	ListPlans(ctx context.Context, params pagination.Params, activeOnly bool) ([]models.PricingPlan, int64, error)
	PlanUsage(ctx context.Context) ([]PlanUsageRow, error)
}

type service struct {
	repo planRepository
}

// NewService constructs the pricing plan service.
func NewService(repo planRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("plan repository required")
	}
	return &service{repo: repo}, nil
}

// CreatePlan inserts a plan. When the structured duration is absent but a
// legacy free-text duration is supplied, the text is parsed into the
// structured fields and preserved verbatim for auditability.
func (s *service) CreatePlan(ctx context.Context, input CreatePlanInput) (*PlanDTO, error) {
	name := strings.ToLower(strings.TrimSpace(input.Name))
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validatePlanPricing(input.Price, input.DiscountPercentage); err != nil {
		return nil, err
	}

	count, unit := input.DurationCount, input.DurationUnit
	if count == 0 && unit == "" && input.LegacyDuration != nil {
		parsed := ParseLegacyDuration(*input.LegacyDuration)
		count, unit = parsed.Count, parsed.Unit
	}
	if count <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration_count must be positive")
	}
	if !unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid duration_unit")
	}
	if input.MaxDownloads != nil && *input.MaxDownloads < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_downloads must be non-negative")
	}

	plan := &models.PricingPlan{
		Name:               name,
		Price:              input.Price,
		DiscountPercentage: input.DiscountPercentage,
		DurationCount:      count,
		DurationUnit:       unit,
		LegacyDuration:     input.LegacyDuration,
		MaxDownloads:       input.MaxDownloads,
		Priority:           input.Priority,
		IsActive:           true,
		ExpiresAt:          input.ExpiresAt,
	}
	plan.RecomputeFinalPrice()

	created, err := s.repo.CreatePlan(ctx, plan)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "plan name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert plan")
	}
	dto := NewPlanDTO(created)
	return &dto, nil
}

// UpdatePlan applies partial updates and recomputes the final price.
func (s *service) UpdatePlan(ctx context.Context, planID uuid.UUID, input UpdatePlanInput) (*PlanDTO, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.ToLower(strings.TrimSpace(*input.Name))
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		plan.Name = name
	}
	if input.Price != nil {
		plan.Price = *input.Price
	}
	if input.DiscountPercentage != nil {
		plan.DiscountPercentage = *input.DiscountPercentage
	}
	if err := validatePlanPricing(plan.Price, plan.DiscountPercentage); err != nil {
		return nil, err
	}
	if input.DurationCount != nil {
		if *input.DurationCount <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration_count must be positive")
		}
		plan.DurationCount = *input.DurationCount
	}
	if input.DurationUnit != nil {
		if !input.DurationUnit.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid duration_unit")
		}
		plan.DurationUnit = *input.DurationUnit
	}
	if input.ClearMaxDownloads {
		plan.MaxDownloads = nil
	} else if input.MaxDownloads != nil {
		if *input.MaxDownloads < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_downloads must be non-negative")
		}
		plan.MaxDownloads = input.MaxDownloads
	}
	if input.Priority != nil {
		plan.Priority = *input.Priority
	}
	if input.IsActive != nil {
		plan.IsActive = *input.IsActive
	}
	if input.ClearExpiresAt {
		plan.ExpiresAt = nil
	} else if input.ExpiresAt != nil {
		plan.ExpiresAt = input.ExpiresAt
	}

	plan.RecomputeFinalPrice()

	updated, err := s.repo.UpdatePlan(ctx, plan)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "plan name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update plan")
	}
	dto := NewPlanDTO(updated)
	return &dto, nil
}

// DeactivatePlan turns off new subscriptions to the plan. Existing purchases
// keep their windows; plans are never deleted once referenced.
func (s *service) DeactivatePlan(ctx context.Context, planID uuid.UUID) (*PlanDTO, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		dto := NewPlanDTO(plan)
		return &dto, nil
	}
	plan.IsActive = false

	updated, err := s.repo.UpdatePlan(ctx, plan)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update plan")
	}
	dto := NewPlanDTO(updated)
	return &dto, nil
}

// GetPlan loads one plan. Non-admin callers only see active plans.
func (s *service) GetPlan(ctx context.Context, planID uuid.UUID, includeInactive bool) (*PlanDTO, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !includeInactive && !PlanPurchasable(plan, time.Now()) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	dto := NewPlanDTO(plan)
	return &dto, nil
}

// ListPlans returns a page of plans ordered by priority.
func (s *service) ListPlans(ctx context.Context, params pagination.Params, includeInactive bool) (*PlanListResult, error) {
	rows, total, err := s.repo.ListPlans(ctx, params, !includeInactive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list plans")
	}
	dtos := make([]PlanDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, NewPlanDTO(&rows[i]))
	}
	return &PlanListResult{Plans: dtos, TotalItems: total}, nil
}

// Overview returns the admin rollup of subscription volume per plan.
func (s *service) Overview(ctx context.Context) ([]PlanUsageRow, error) {
	rows, err := s.repo.PlanUsage(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: plan usage")
	}
	return rows, nil
}

func (s *service) loadPlan(ctx context.Context, planID uuid.UUID) (*models.PricingPlan, error) {
	plan, err := s.repo.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load plan")
	}
	return plan, nil
}

// PlanPurchasable reports whether new subscriptions to the plan are allowed.
func PlanPurchasable(plan *models.PricingPlan, now time.Time) bool {
	if plan == nil || !plan.IsActive {
		return false
	}
	if plan.ExpiresAt != nil && !plan.ExpiresAt.After(now) {
		return false
	}
	return true
}

func validatePlanPricing(price, discount decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	hundred := decimal.NewFromInt(100)
	if discount.IsNegative() || discount.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_percentage must be between 0 and 100")
	}
	return nil
}
