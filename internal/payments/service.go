package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/internal/pricingplans"
	"github.com/delacruzdev/designvault-backend/internal/purchases"
	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
	"github.com/delacruzdev/designvault-backend/pkg/logger"
	"github.com/delacruzdev/designvault-backend/pkg/metrics"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

// Service exposes the checkout lifecycle: intent creation, confirmation,
// refunds, reads, and the admin statistics rollup.
type Service interface {
	CreateIntent(ctx context.Context, userID uuid.UUID, input CreateIntentInput) (*IntentResultDTO, error)
	Confirm(ctx context.Context, userID uuid.UUID, paymentID uuid.UUID) (*ConfirmResultDTO, error)
	Refund(ctx context.Context, paymentID uuid.UUID, reason *string) (*PaymentDTO, error)
	RefundByIntent(ctx context.Context, intentID string, reason *string) (*PaymentDTO, error)
	Get(ctx context.Context, actorID uuid.UUID, isAdmin bool, paymentID uuid.UUID) (*PaymentDTO, error)
	GetByIntentID(ctx context.Context, actorID uuid.UUID, isAdmin bool, intentID string) (*PaymentDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID, status *enums.PaymentStatus, params pagination.Params) (*PaymentListResult, error)
	AdminList(ctx context.Context, userID *uuid.UUID, status *enums.PaymentStatus, params pagination.Params) (*PaymentListResult, error)
	Statistics(ctx context.Context) (*StatisticsDTO, error)

	ApplyIntentSucceeded(ctx context.Context, intentID string) error
	ApplyIntentFailed(ctx context.Context, intentID string, failureMessage string) error
	ApplyIntentCanceled(ctx context.Context, intentID string) error
	ApplyIntentRefunded(ctx context.Context, intentID string) error
}

// CreateIntentInput identifies the product being bought.
type CreateIntentInput struct {
	ProductType enums.ProductType
	ProductID   uuid.UUID
}

type paymentRepository interface {
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	UpdatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByStripeIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	FindPendingForProduct(ctx context.Context, userID uuid.UUID, productType enums.ProductType, productID uuid.UUID) (*models.Payment, error)
	ListPayments(ctx context.Context, userID *uuid.UUID, status *enums.PaymentStatus, params pagination.Params) ([]models.Payment, int64, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	CountSucceededByProductType(ctx context.Context) ([]ProductTypeCount, error)
}

type purchaseWriter interface {
	CreatePurchase(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error)
	UpdatePurchase(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	FindCompletedIndividual(ctx context.Context, userID uuid.UUID, productType enums.ProductType, productID uuid.UUID) (*models.Purchase, error)
	FindLiveSubscription(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Purchase, error)
}

type designLoader interface {
	FindDesignByID(ctx context.Context, id uuid.UUID) (*models.Design, error)
}

type courseLoader interface {
	FindCourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
}

type planLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PricingPlan, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the payment service dependencies.
type ServiceParams struct {
	Repo              paymentRepository
	Purchases         purchaseWriter
	Designs           designLoader
	Courses           courseLoader
	Plans             planLoader
	Stripe            StripePaymentClient
	TransactionRunner txRunner
	PaymentWithTx     func(tx *gorm.DB) paymentRepository
	PurchaseWithTx    func(tx *gorm.DB) purchaseWriter
	Metrics           *metrics.PaymentMetrics
	Logger            *logger.Logger
}

type service struct {
	repo           paymentRepository
	purchases      purchaseWriter
	designs        designLoader
	courses        courseLoader
	plans          planLoader
	stripe         StripePaymentClient
	txRunner       txRunner
	paymentWithTx  func(tx *gorm.DB) paymentRepository
	purchaseWithTx func(tx *gorm.DB) purchaseWriter
	metrics        *metrics.PaymentMetrics
	logg           *logger.Logger
	now            func() time.Time
}

// NewService constructs the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if params.Purchases == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if params.Designs == nil || params.Courses == nil || params.Plans == nil {
		return nil, fmt.Errorf("catalog repositories required")
	}
	if params.Stripe == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.PaymentWithTx == nil || params.PurchaseWithTx == nil {
		return nil, fmt.Errorf("withTx factories required")
	}
	return &service{
		repo:           params.Repo,
		purchases:      params.Purchases,
		designs:        params.Designs,
		courses:        params.Courses,
		plans:          params.Plans,
		stripe:         params.Stripe,
		txRunner:       params.TransactionRunner,
		paymentWithTx:  params.PaymentWithTx,
		purchaseWithTx: params.PurchaseWithTx,
		metrics:        params.Metrics,
		logg:           params.Logger,
		now:            time.Now,
	}, nil
}

// PaymentRepoFactory adapts the payment repository's transaction binding to
// the shape ServiceParams expects.
func PaymentRepoFactory(repo *Repository) func(tx *gorm.DB) paymentRepository {
	return func(tx *gorm.DB) paymentRepository { return repo.WithTx(tx) }
}

// PurchaseRepoFactory adapts the purchase repository's transaction binding.
func PurchaseRepoFactory(repo *purchases.Repository) func(tx *gorm.DB) purchaseWriter {
	return func(tx *gorm.DB) purchaseWriter { return repo.WithTx(tx) }
}

type resolvedProduct struct {
	amount   decimal.Decimal
	currency enums.Currency
	plan     *models.PricingPlan
}

// CreateIntent resolves the product price server-side, rejects double
// purchases, reuses an open intent for the same product, and otherwise
// creates a fresh Stripe PaymentIntent plus its local pending record.
func (s *service) CreateIntent(ctx context.Context, userID uuid.UUID, input CreateIntentInput) (*IntentResultDTO, error) {
	if !input.ProductType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product type")
	}

	product, err := s.resolveProduct(ctx, input.ProductType, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must be greater than zero")
	}

	if err := s.rejectDoubleOwnership(ctx, userID, input); err != nil {
		return nil, err
	}

	if existing, err := s.repo.FindPendingForProduct(ctx, userID, input.ProductType, input.ProductID); err == nil {
		intent, err := s.stripe.GetIntent(ctx, existing.StripePaymentIntentID, nil)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stripe: fetch intent")
		}
		switch intent.Status {
		case stripe.PaymentIntentStatusRequiresPaymentMethod,
			stripe.PaymentIntentStatusRequiresConfirmation,
			stripe.PaymentIntentStatusRequiresAction:
			return &IntentResultDTO{Payment: NewPaymentDTO(existing), ClientSecret: intent.ClientSecret}, nil
		case stripe.PaymentIntentStatusSucceeded:
			// the webhook beat us to it; settle locally instead of handing
			// out a dead client secret
			if _, err := s.finalizeSuccess(ctx, existing); err != nil {
				return nil, err
			}
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "item already purchased")
		case stripe.PaymentIntentStatusCanceled:
			if _, err := s.markTerminal(ctx, existing, enums.PaymentStatusCanceled, nil); err != nil {
				return nil, err
			}
			// fall through to a fresh intent
		default:
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a payment for this product is still processing")
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find pending payment")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(product.amount)),
		Currency: stripe.String(strings.ToLower(product.currency.String())),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"user_id":      userID.String(),
			"product_type": input.ProductType.String(),
			"product_id":   input.ProductID.String(),
		},
	}
	intent, err := s.stripe.CreateIntent(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stripe: create intent")
	}

	payment := &models.Payment{
		UserID:                userID,
		ProductType:           input.ProductType,
		Amount:                product.amount,
		Currency:              product.currency,
		Status:                enums.PaymentStatusPending,
		StripePaymentIntentID: intent.ID,
	}
	setProductRef(payment, input.ProductType, input.ProductID)

	created, err := s.repo.CreatePayment(ctx, payment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert payment")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithPaymentIntentID(ctx, intent.ID), "payment intent created")
	}
	return &IntentResultDTO{Payment: NewPaymentDTO(created), ClientSecret: intent.ClientSecret}, nil
}

// Confirm re-checks the intent with Stripe and finalizes the local state.
// Confirming an already-succeeded payment is idempotent.
func (s *service) Confirm(ctx context.Context, userID uuid.UUID, paymentID uuid.UUID) (*ConfirmResultDTO, error) {
	payment, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}

	if payment.Status == enums.PaymentStatusSucceeded {
		return s.confirmResult(ctx, payment)
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment is %s and cannot be confirmed", payment.Status))
	}

	intent, err := s.stripe.GetIntent(ctx, payment.StripePaymentIntentID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stripe: fetch intent")
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		finalized, err := s.finalizeSuccess(ctx, payment)
		if err != nil {
			return nil, err
		}
		s.recordConfirmation(enums.PaymentStatusSucceeded)
		return s.confirmResult(ctx, finalized)

	case stripe.PaymentIntentStatusCanceled:
		updated, err := s.markTerminal(ctx, payment, enums.PaymentStatusCanceled, nil)
		if err != nil {
			return nil, err
		}
		s.recordConfirmation(enums.PaymentStatusCanceled)
		return &ConfirmResultDTO{Payment: NewPaymentDTO(updated)}, nil

	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		if intent.LastPaymentError != nil {
			msg := intent.LastPaymentError.Msg
			updated, err := s.markTerminal(ctx, payment, enums.PaymentStatusFailed, &msg)
			if err != nil {
				return nil, err
			}
			s.recordConfirmation(enums.PaymentStatusFailed)
			return &ConfirmResultDTO{Payment: NewPaymentDTO(updated)}, nil
		}
		return &ConfirmResultDTO{Payment: NewPaymentDTO(payment)}, nil

	default:
		// requires_confirmation, requires_action, processing: not settled yet.
		return &ConfirmResultDTO{Payment: NewPaymentDTO(payment)}, nil
	}
}

// Refund refunds a succeeded payment at Stripe and marks the payment and its
// purchase refunded.
func (s *service) Refund(ctx context.Context, paymentID uuid.UUID, reason *string) (*PaymentDTO, error) {
	payment, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return s.refundPayment(ctx, payment, reason)
}

// RefundByIntent refunds the payment identified by its processor intent ID.
func (s *service) RefundByIntent(ctx context.Context, intentID string, reason *string) (*PaymentDTO, error) {
	payment, err := s.loadPaymentByIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	return s.refundPayment(ctx, payment, reason)
}

func (s *service) refundPayment(ctx context.Context, payment *models.Payment, reason *string) (*PaymentDTO, error) {
	if !payment.Status.CanTransitionTo(enums.PaymentStatusRefunded) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment is %s and cannot be refunded", payment.Status))
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(payment.StripePaymentIntentID),
	}
	if reason != nil && strings.TrimSpace(*reason) != "" {
		params.Metadata = map[string]string{"reason": strings.TrimSpace(*reason)}
	}
	if _, err := s.stripe.CreateRefund(ctx, params); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stripe: create refund")
	}

	updated, err := s.applyRefund(ctx, payment)
	if err != nil {
		return nil, err
	}
	dto := NewPaymentDTO(updated)
	return &dto, nil
}

// Get loads one payment; customers only see their own.
func (s *service) Get(ctx context.Context, actorID uuid.UUID, isAdmin bool, paymentID uuid.UUID) (*PaymentDTO, error) {
	payment, err := s.loadPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && payment.UserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	dto := NewPaymentDTO(payment)
	return &dto, nil
}

// GetByIntentID loads one payment by its processor intent ID; customers only
// see their own.
func (s *service) GetByIntentID(ctx context.Context, actorID uuid.UUID, isAdmin bool, intentID string) (*PaymentDTO, error) {
	payment, err := s.loadPaymentByIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && payment.UserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	dto := NewPaymentDTO(payment)
	return &dto, nil
}

// ListMine returns the caller's payments, newest first.
func (s *service) ListMine(ctx context.Context, userID uuid.UUID, status *enums.PaymentStatus, params pagination.Params) (*PaymentListResult, error) {
	return s.list(ctx, &userID, status, params)
}

// AdminList returns any user's payments.
func (s *service) AdminList(ctx context.Context, userID *uuid.UUID, status *enums.PaymentStatus, params pagination.Params) (*PaymentListResult, error) {
	return s.list(ctx, userID, status, params)
}

// Statistics returns the admin rollup of payment volume.
func (s *service) Statistics(ctx context.Context) (*StatisticsDTO, error) {
	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: payment status counts")
	}
	byProduct, err := s.repo.CountSucceededByProductType(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: payment product counts")
	}
	return &StatisticsDTO{ByStatus: byStatus, ByProductType: byProduct}, nil
}

// ApplyIntentSucceeded settles the payment for a processor-side success
// notification. Payments already settled are left untouched.
func (s *service) ApplyIntentSucceeded(ctx context.Context, intentID string) error {
	return s.applyAuthoritative(ctx, intentID, nil)
}

// ApplyIntentFailed settles the payment for a processor-side failure
// notification, keeping the event's message as a fallback.
func (s *service) ApplyIntentFailed(ctx context.Context, intentID string, failureMessage string) error {
	var fallback *string
	if failureMessage != "" {
		fallback = &failureMessage
	}
	return s.applyAuthoritative(ctx, intentID, fallback)
}

// ApplyIntentCanceled settles the payment for a processor-side cancellation.
func (s *service) ApplyIntentCanceled(ctx context.Context, intentID string) error {
	return s.applyAuthoritative(ctx, intentID, nil)
}

// applyAuthoritative re-fetches the intent and settles the local payment from
// the status Stripe reports, not from the notification that triggered it.
// eventFailure carries the failure message from a payment_failed event; it is
// nil for other event types.
func (s *service) applyAuthoritative(ctx context.Context, intentID string, eventFailure *string) error {
	payment, err := s.loadPaymentByIntent(ctx, intentID)
	if err != nil {
		return err
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil
	}

	intent, err := s.stripe.GetIntent(ctx, payment.StripePaymentIntentID, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stripe: fetch intent")
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		if _, err := s.finalizeSuccess(ctx, payment); err != nil {
			return err
		}
		s.recordConfirmation(enums.PaymentStatusSucceeded)
		return nil

	case stripe.PaymentIntentStatusCanceled:
		if _, err := s.markTerminal(ctx, payment, enums.PaymentStatusCanceled, nil); err != nil {
			return err
		}
		s.recordConfirmation(enums.PaymentStatusCanceled)
		return nil

	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		msg := eventFailure
		if intent.LastPaymentError != nil {
			msg = &intent.LastPaymentError.Msg
		}
		if msg == nil {
			// never attempted; nothing to record
			return nil
		}
		if _, err := s.markTerminal(ctx, payment, enums.PaymentStatusFailed, msg); err != nil {
			return err
		}
		s.recordConfirmation(enums.PaymentStatusFailed)
		return nil

	default:
		// requires_confirmation, requires_action, processing: not settled yet.
		return nil
	}
}

// ApplyIntentRefunded propagates a processor-side refund to the local records.
func (s *service) ApplyIntentRefunded(ctx context.Context, intentID string) error {
	payment, err := s.loadPaymentByIntent(ctx, intentID)
	if err != nil {
		return err
	}
	if payment.Status == enums.PaymentStatusRefunded {
		return nil
	}
	if !payment.Status.CanTransitionTo(enums.PaymentStatusRefunded) {
		return nil
	}
	_, err = s.applyRefund(ctx, payment)
	return err
}

func (s *service) resolveProduct(ctx context.Context, productType enums.ProductType, productID uuid.UUID) (*resolvedProduct, error) {
	switch productType {
	case enums.ProductTypeDesign:
		design, err := s.designs.FindDesignByID(ctx, productID)
		if err != nil {
			return nil, notFoundOrDependency(err, "design")
		}
		if design.Status != enums.CatalogStatusActive {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "design not found")
		}
		return &resolvedProduct{amount: design.PurchasePrice(), currency: enums.CurrencyUSD}, nil

	case enums.ProductTypeCourse:
		course, err := s.courses.FindCourseByID(ctx, productID)
		if err != nil {
			return nil, notFoundOrDependency(err, "course")
		}
		if course.Status != enums.CatalogStatusActive {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
		}
		return &resolvedProduct{amount: course.PurchasePrice(), currency: enums.CurrencyUSD}, nil

	default:
		plan, err := s.plans.FindByID(ctx, productID)
		if err != nil {
			return nil, notFoundOrDependency(err, "plan")
		}
		if !pricingplans.PlanPurchasable(plan, s.now()) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return &resolvedProduct{amount: plan.FinalPrice, currency: enums.CurrencyUSD, plan: plan}, nil
	}
}

func (s *service) rejectDoubleOwnership(ctx context.Context, userID uuid.UUID, input CreateIntentInput) error {
	if input.ProductType == enums.ProductTypeSubscription {
		existing, err := s.purchases.FindLiveSubscription(ctx, userID, s.now())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find live subscription")
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "an active subscription already exists").
			WithDetails(map[string]any{"purchase_id": existing.ID})
	}

	existing, err := s.purchases.FindCompletedIndividual(ctx, userID, input.ProductType, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find completed purchase")
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "item already purchased").
		WithDetails(map[string]any{"purchase_id": existing.ID})
}

// finalizeSuccess transitions the payment to succeeded and creates its
// completed purchase in one transaction.
func (s *service) finalizeSuccess(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if !payment.Status.CanTransitionTo(enums.PaymentStatusSucceeded) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment is %s and cannot succeed", payment.Status))
	}

	var plan *models.PricingPlan
	if payment.ProductType == enums.ProductTypeSubscription {
		if payment.PricingPlanID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription payment missing plan reference")
		}
		loaded, err := s.plans.FindByID(ctx, *payment.PricingPlanID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load plan")
		}
		plan = loaded
	}

	now := s.now()
	var finalized *models.Payment
	if err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		paymentRepo := s.paymentWithTx(tx)
		purchaseRepo := s.purchaseWithTx(tx)

		purchase := &models.Purchase{
			UserID:        payment.UserID,
			Amount:        payment.Amount,
			Currency:      payment.Currency,
			Status:        enums.PurchaseStatusPending,
			PaymentMethod: "stripe",
			DesignID:      payment.DesignID,
			CourseID:      payment.CourseID,
			PricingPlanID: payment.PricingPlanID,
		}
		if payment.ProductType == enums.ProductTypeSubscription {
			purchase.Type = enums.PurchaseTypeSubscription
		} else {
			purchase.Type = enums.PurchaseTypeIndividual
		}
		purchases.ApplyCompletion(purchase, plan, now)

		created, err := purchaseRepo.CreatePurchase(ctx, purchase)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert purchase")
		}

		payment.Status = enums.PaymentStatusSucceeded
		payment.SucceededAt = &now
		payment.PurchaseID = &created.ID
		saved, err := paymentRepo.UpdatePayment(ctx, payment)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update payment")
		}
		finalized = saved
		return nil
	}); err != nil {
		return nil, err
	}
	return finalized, nil
}

func (s *service) markTerminal(ctx context.Context, payment *models.Payment, status enums.PaymentStatus, failureMessage *string) (*models.Payment, error) {
	now := s.now()
	payment.Status = status
	switch status {
	case enums.PaymentStatusFailed:
		payment.FailedAt = &now
		payment.FailureMessage = failureMessage
	case enums.PaymentStatusRefunded:
		payment.RefundedAt = &now
	}
	updated, err := s.repo.UpdatePayment(ctx, payment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update payment")
	}
	return updated, nil
}

func (s *service) applyRefund(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	now := s.now()
	var updated *models.Payment
	if err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		paymentRepo := s.paymentWithTx(tx)
		purchaseRepo := s.purchaseWithTx(tx)

		payment.Status = enums.PaymentStatusRefunded
		payment.RefundedAt = &now
		saved, err := paymentRepo.UpdatePayment(ctx, payment)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update payment")
		}
		updated = saved

		if payment.PurchaseID == nil {
			return nil
		}
		purchase, err := purchaseRepo.FindByID(ctx, *payment.PurchaseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load purchase")
		}
		if !purchase.Status.CanTransitionTo(enums.PurchaseStatusRefunded) {
			return nil
		}
		purchase.Status = enums.PurchaseStatusRefunded
		if _, err := purchaseRepo.UpdatePurchase(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update purchase")
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) confirmResult(ctx context.Context, payment *models.Payment) (*ConfirmResultDTO, error) {
	result := &ConfirmResultDTO{Payment: NewPaymentDTO(payment)}
	if payment.PurchaseID == nil {
		return result, nil
	}
	purchase, err := s.purchases.FindByID(ctx, *payment.PurchaseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load purchase")
	}
	dto := purchases.NewPurchaseDTO(purchase)
	result.Purchase = &dto
	return result, nil
}

func (s *service) list(ctx context.Context, userID *uuid.UUID, status *enums.PaymentStatus, params pagination.Params) (*PaymentListResult, error) {
	rows, total, err := s.repo.ListPayments(ctx, userID, status, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list payments")
	}
	dtos := make([]PaymentDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, NewPaymentDTO(&rows[i]))
	}
	return &PaymentListResult{Payments: dtos, TotalItems: total}, nil
}

func (s *service) loadPayment(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load payment")
	}
	return payment, nil
}

func (s *service) loadPaymentByIntent(ctx context.Context, intentID string) (*models.Payment, error) {
	payment, err := s.repo.FindByStripeIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found for intent")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load payment by intent")
	}
	return payment, nil
}

func (s *service) recordConfirmation(status enums.PaymentStatus) {
	if s.metrics != nil {
		s.metrics.RecordConfirmation(status.String())
	}
}

func notFoundOrDependency(err error, label string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, label+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load "+label)
}

func setProductRef(payment *models.Payment, productType enums.ProductType, productID uuid.UUID) {
	id := productID
	switch productType {
	case enums.ProductTypeDesign:
		payment.DesignID = &id
	case enums.ProductTypeCourse:
		payment.CourseID = &id
	case enums.ProductTypeSubscription:
		payment.PricingPlanID = &id
	}
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
