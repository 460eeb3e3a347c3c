package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delacruzdev/designvault-backend/internal/purchases"
	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
)

// PaymentDTO is the public representation of a payment record.
type PaymentDTO struct {
	ID                    uuid.UUID           `json:"id"`
	UserID                uuid.UUID           `json:"user_id"`
	ProductType           enums.ProductType   `json:"product_type"`
	DesignID              *uuid.UUID          `json:"design_id,omitempty"`
	CourseID              *uuid.UUID          `json:"course_id,omitempty"`
	PricingPlanID         *uuid.UUID          `json:"pricing_plan_id,omitempty"`
	Amount                decimal.Decimal     `json:"amount"`
	Currency              enums.Currency      `json:"currency"`
	Status                enums.PaymentStatus `json:"status"`
	StripePaymentIntentID string              `json:"stripe_payment_intent_id"`
	PurchaseID            *uuid.UUID          `json:"purchase_id,omitempty"`
	FailureMessage        *string             `json:"failure_message,omitempty"`
	SucceededAt           *time.Time          `json:"succeeded_at,omitempty"`
	FailedAt              *time.Time          `json:"failed_at,omitempty"`
	RefundedAt            *time.Time          `json:"refunded_at,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

// IntentResultDTO is returned from intent creation: the local payment plus
// the client secret the frontend needs to collect the card.
type IntentResultDTO struct {
	Payment      PaymentDTO `json:"payment"`
	ClientSecret string     `json:"client_secret"`
}

// ConfirmResultDTO is returned from confirmation: the payment and, when the
// charge succeeded, the purchase it produced.
type ConfirmResultDTO struct {
	Payment  PaymentDTO             `json:"payment"`
	Purchase *purchases.PurchaseDTO `json:"purchase,omitempty"`
}

// PaymentListResult is one page of payments plus pagination metadata inputs.
type PaymentListResult struct {
	Payments   []PaymentDTO
	TotalItems int64
}

// StatisticsDTO is the admin payment statistics rollup.
type StatisticsDTO struct {
	ByStatus      []StatusCount      `json:"by_status"`
	ByProductType []ProductTypeCount `json:"by_product_type"`
}

// NewPaymentDTO maps a payment row into its public shape.
func NewPaymentDTO(payment *models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:                    payment.ID,
		UserID:                payment.UserID,
		ProductType:           payment.ProductType,
		DesignID:              payment.DesignID,
		CourseID:              payment.CourseID,
		PricingPlanID:         payment.PricingPlanID,
		Amount:                payment.Amount,
		Currency:              payment.Currency,
		Status:                payment.Status,
		StripePaymentIntentID: payment.StripePaymentIntentID,
		PurchaseID:            payment.PurchaseID,
		FailureMessage:        payment.FailureMessage,
		SucceededAt:           payment.SucceededAt,
		FailedAt:              payment.FailedAt,
		RefundedAt:            payment.RefundedAt,
		CreatedAt:             payment.CreatedAt,
		UpdatedAt:             payment.UpdatedAt,
	}
}
