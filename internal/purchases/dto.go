package purchases

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
)

// PurchaseDTO is the public representation of an entitlement record.
type PurchaseDTO struct {
	ID                   uuid.UUID            `json:"id"`
	UserID               uuid.UUID            `json:"user_id"`
	Type                 enums.PurchaseType   `json:"type"`
	DesignID             *uuid.UUID           `json:"design_id,omitempty"`
	CourseID             *uuid.UUID           `json:"course_id,omitempty"`
	PricingPlanID        *uuid.UUID           `json:"pricing_plan_id,omitempty"`
	Amount               decimal.Decimal      `json:"amount"`
	Currency             enums.Currency       `json:"currency"`
	Status               enums.PurchaseStatus `json:"status"`
	PaymentMethod        string               `json:"payment_method"`
	SubscriptionStartsAt *time.Time           `json:"subscription_starts_at,omitempty"`
	SubscriptionEndsAt   *time.Time           `json:"subscription_ends_at,omitempty"`
	RemainingDownloads   *int                 `json:"remaining_downloads,omitempty"`
	AdminNote            *string              `json:"admin_note,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// EligibilityDTO is the subscription-eligibility snapshot for a user.
type EligibilityDTO struct {
	CanPurchaseSubscription bool       `json:"can_purchase_subscription"`
	HasActiveSubscription   bool       `json:"has_active_subscription"`
	HasPendingSubscription  bool       `json:"has_pending_subscription"`
	ActiveSubscriptionID    *uuid.UUID `json:"active_subscription_id,omitempty"`
	PendingSubscriptionID   *uuid.UUID `json:"pending_subscription_id,omitempty"`
	SubscriptionEndsAt      *time.Time `json:"subscription_ends_at,omitempty"`
}

// PurchaseListResult is one page of purchases plus pagination metadata inputs.
type PurchaseListResult struct {
	Purchases  []PurchaseDTO
	TotalItems int64
}

// NewPurchaseDTO maps a purchase row into its public shape.
func NewPurchaseDTO(purchase *models.Purchase) PurchaseDTO {
	return PurchaseDTO{
		ID:                   purchase.ID,
		UserID:               purchase.UserID,
		Type:                 purchase.Type,
		DesignID:             purchase.DesignID,
		CourseID:             purchase.CourseID,
		PricingPlanID:        purchase.PricingPlanID,
		Amount:               purchase.Amount,
		Currency:             purchase.Currency,
		Status:               purchase.Status,
		PaymentMethod:        purchase.PaymentMethod,
		SubscriptionStartsAt: purchase.SubscriptionStartsAt,
		SubscriptionEndsAt:   purchase.SubscriptionEndsAt,
		RemainingDownloads:   purchase.RemainingDownloads,
		AdminNote:            purchase.AdminNote,
		CreatedAt:            purchase.CreatedAt,
		UpdatedAt:            purchase.UpdatedAt,
	}
}
