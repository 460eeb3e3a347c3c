package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delacruzdev/designvault-backend/pkg/enums"
)

// Payment is the local record of one attempted checkout. Exactly one of the
// product reference columns is populated, matching ProductType. Rows are
// never deleted.
type Payment struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	ProductType           enums.ProductType   `gorm:"column:product_type;type:product_type;not null"`
	DesignID              *uuid.UUID          `gorm:"column:design_id;type:uuid"`
	CourseID              *uuid.UUID          `gorm:"column:course_id;type:uuid"`
	PricingPlanID         *uuid.UUID          `gorm:"column:pricing_plan_id;type:uuid"`
	Amount                decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency              enums.Currency      `gorm:"column:currency;type:currency;not null;default:'USD'"`
	Status                enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	StripePaymentIntentID string              `gorm:"column:stripe_payment_intent_id;not null;unique"`
	PurchaseID            *uuid.UUID          `gorm:"column:purchase_id;type:uuid"`
	FailureMessage        *string             `gorm:"column:failure_message"`
	SucceededAt           *time.Time          `gorm:"column:succeeded_at"`
	FailedAt              *time.Time          `gorm:"column:failed_at"`
	RefundedAt            *time.Time          `gorm:"column:refunded_at"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductID returns the populated product reference for the payment's type.
func (p Payment) ProductID() *uuid.UUID {
	switch p.ProductType {
	case enums.ProductTypeDesign:
		return p.DesignID
	case enums.ProductTypeCourse:
		return p.CourseID
	case enums.ProductTypeSubscription:
		return p.PricingPlanID
	}
	return nil
}
