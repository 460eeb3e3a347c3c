package pricingplans

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
)

// PlanDTO is the public representation of a subscription plan.
type PlanDTO struct {
	ID                 uuid.UUID              `json:"id"`
	Name               string                 `json:"name"`
	Price              decimal.Decimal        `json:"price"`
	DiscountPercentage decimal.Decimal        `json:"discount_percentage"`
	FinalPrice         decimal.Decimal        `json:"final_price"`
	DurationCount      int                    `json:"duration_count"`
	DurationUnit       enums.PlanDurationUnit `json:"duration_unit"`
	MaxDownloads       *int                   `json:"max_downloads,omitempty"`
	Priority           int                    `json:"priority"`
	IsActive           bool                   `json:"is_active"`
	ExpiresAt          *time.Time             `json:"expires_at,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// PlanListResult is one page of plans plus pagination metadata inputs.
type PlanListResult struct {
	Plans      []PlanDTO
	TotalItems int64
}

// NewPlanDTO maps a plan row into its public shape.
func NewPlanDTO(plan *models.PricingPlan) PlanDTO {
	return PlanDTO{
		ID:                 plan.ID,
		Name:               plan.Name,
		Price:              plan.Price,
		DiscountPercentage: plan.DiscountPercentage,
		FinalPrice:         plan.FinalPrice,
		DurationCount:      plan.DurationCount,
		DurationUnit:       plan.DurationUnit,
		MaxDownloads:       plan.MaxDownloads,
		Priority:           plan.Priority,
		IsActive:           plan.IsActive,
		ExpiresAt:          plan.ExpiresAt,
		CreatedAt:          plan.CreatedAt,
		UpdatedAt:          plan.UpdatedAt,
	}
}
