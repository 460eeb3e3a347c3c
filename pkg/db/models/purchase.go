package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delacruzdev/designvault-backend/pkg/enums"
)

// Purchase is the durable entitlement record. Individual purchases reference
// exactly one of design/course; subscription purchases reference a pricing
// plan and, once completed, carry a date window plus remaining downloads.
type Purchase struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID               uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Type                 enums.PurchaseType   `gorm:"column:type;type:purchase_type;not null"`
	DesignID             *uuid.UUID           `gorm:"column:design_id;type:uuid"`
	CourseID             *uuid.UUID           `gorm:"column:course_id;type:uuid"`
	PricingPlanID        *uuid.UUID           `gorm:"column:pricing_plan_id;type:uuid"`
	Amount               decimal.Decimal      `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency             enums.Currency       `gorm:"column:currency;type:currency;not null;default:'USD'"`
	Status               enums.PurchaseStatus `gorm:"column:status;type:purchase_status;not null;default:'pending'"`
	PaymentMethod        string               `gorm:"column:payment_method;not null;default:'stripe'"`
	SubscriptionStartsAt *time.Time           `gorm:"column:subscription_starts_at"`
	SubscriptionEndsAt   *time.Time           `gorm:"column:subscription_ends_at"`
	RemainingDownloads   *int                 `gorm:"column:remaining_downloads"`
	AdminNote            *string              `gorm:"column:admin_note"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// SubscriptionLive reports whether the subscription window covers now.
func (p Purchase) SubscriptionLive(now time.Time) bool {
	return p.Type == enums.PurchaseTypeSubscription &&
		p.Status == enums.PurchaseStatusCompleted &&
		p.SubscriptionEndsAt != nil &&
		p.SubscriptionEndsAt.After(now)
}
