package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delacruzdev/designvault-backend/pkg/enums"
)

// PricingPlan is a subscription tier definition.
type PricingPlan struct {
	ID                 uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string                 `gorm:"column:name;not null;unique"`
	Price              decimal.Decimal        `gorm:"column:price;type:numeric(10,2);not null"`
	DiscountPercentage decimal.Decimal        `gorm:"column:discount_percentage;type:numeric(5,2);not null;default:0"`
	FinalPrice         decimal.Decimal        `gorm:"column:final_price;type:numeric(10,2);not null"`
	DurationCount      int                    `gorm:"column:duration_count;not null;default:1"`
	DurationUnit       enums.PlanDurationUnit `gorm:"column:duration_unit;type:plan_duration_unit;not null;default:'month'"`
	LegacyDuration     *string                `gorm:"column:legacy_duration"`
	MaxDownloads       *int                   `gorm:"column:max_downloads"`
	Priority           int                    `gorm:"column:priority;not null;default:0"`
	IsActive           bool                   `gorm:"column:is_active;not null;default:true"`
	ExpiresAt          *time.Time             `gorm:"column:expires_at"`
	CreatedAt          time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// RecomputeFinalPrice keeps final_price = price * (1 - discount/100).
func (p *PricingPlan) RecomputeFinalPrice() {
	hundred := decimal.NewFromInt(100)
	p.FinalPrice = p.Price.Mul(hundred.Sub(p.DiscountPercentage)).Div(hundred).Round(2)
}

// SubscriptionWindow returns the subscription end for a window starting at from.
func (p PricingPlan) SubscriptionWindow(from time.Time) time.Time {
	if p.DurationUnit == enums.PlanDurationYear {
		return from.AddDate(p.DurationCount, 0, 0)
	}
	return from.AddDate(0, p.DurationCount, 0)
}
