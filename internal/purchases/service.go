package purchases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/internal/pricingplans"
	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

// Payment-method tags accepted on direct purchase creation. Card purchases
// are created through the payment intent flow instead.
const (
	PaymentMethodStripe = "stripe"
	PaymentMethodFree   = "free"
	PaymentMethodManual = "manual"
)

// Service exposes purchase creation, reads, and the admin lifecycle.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*PurchaseDTO, error)
	Get(ctx context.Context, actorID uuid.UUID, isAdmin bool, purchaseID uuid.UUID) (*PurchaseDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID, filters ListFilters, params pagination.Params) (*PurchaseListResult, error)
	AdminList(ctx context.Context, filters ListFilters, params pagination.Params) (*PurchaseListResult, error)
	SubscriptionEligibility(ctx context.Context, userID uuid.UUID) (*EligibilityDTO, error)
	AdminComplete(ctx context.Context, purchaseID uuid.UUID, note *string) (*PurchaseDTO, error)
	AdminCancel(ctx context.Context, purchaseID uuid.UUID, note *string) (*PurchaseDTO, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	Analytics(ctx context.Context, period enums.AnalyticsPeriod, since time.Time) ([]RevenueBucket, error)
}

// CreateInput holds the validated payload for a direct (free/manual)
// purchase. Individual purchases reference exactly one catalog item,
// subscriptions reference a plan.
type CreateInput struct {
	Type          enums.PurchaseType
	DesignID      *uuid.UUID
	CourseID      *uuid.UUID
	PricingPlanID *uuid.UUID
	PaymentMethod string
}

type purchaseRepository interface {
	CreatePurchase(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	UpdatePurchase(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error)
	FindCompletedIndividual(ctx context.Context, userID uuid.UUID, productType enums.ProductType, productID uuid.UUID) (*models.Purchase, error)
	FindLiveSubscription(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Purchase, error)
	FindPendingSubscription(ctx context.Context, userID uuid.UUID) (*models.Purchase, error)
	ListPurchases(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Purchase, int64, error)
	MarkExpiredSubscriptions(ctx context.Context, now time.Time) (int64, error)
	RevenueByPeriod(ctx context.Context, period enums.AnalyticsPeriod, since time.Time) ([]RevenueBucket, error)
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

// ServiceParams wires the purchase service dependencies.
type ServiceParams struct {
	Repo              purchaseRepository
	Designs           designLoader
	Courses           courseLoader
	Plans             planLoader
	TransactionRunner txRunner
	WithTx            func(tx *gorm.DB) purchaseRepository
}

type service struct {
	repo     purchaseRepository
	designs  designLoader
	courses  courseLoader
	plans    planLoader
	txRunner txRunner
	withTx   func(tx *gorm.DB) purchaseRepository
	now      func() time.Time
}

// NewService constructs the purchase service. The withTx factory rebinds the
// repository to a transaction so completion updates are atomic.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if params.Designs == nil || params.Courses == nil {
		return nil, fmt.Errorf("catalog repositories required")
	}
	if params.Plans == nil {
		return nil, fmt.Errorf("plan repository required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.WithTx == nil {
		return nil, fmt.Errorf("withTx factory required")
	}
	return &service{
		repo:     params.Repo,
		designs:  params.Designs,
		courses:  params.Courses,
		plans:    params.Plans,
		txRunner: params.TransactionRunner,
		withTx:   params.WithTx,
		now:      time.Now,
	}, nil
}

// RepoFactory adapts the concrete repository's transaction binding to the
// shape ServiceParams expects.
func RepoFactory(repo *Repository) func(tx *gorm.DB) purchaseRepository {
	return func(tx *gorm.DB) purchaseRepository { return repo.WithTx(tx) }
}

// Create records a direct purchase. Free purchases complete immediately,
// manual purchases stay pending until an admin completes them. Card
// purchases must go through the payment intent flow.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*PurchaseDTO, error) {
	method := strings.ToLower(strings.TrimSpace(input.PaymentMethod))
	switch method {
	case PaymentMethodFree, PaymentMethodManual:
	case PaymentMethodStripe, "card":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card purchases are created through the payment intent flow")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method")
	}

	if err := validateProductRef(input); err != nil {
		return nil, err
	}

	amount, plan, err := s.resolveAmount(ctx, input)
	if err != nil {
		return nil, err
	}
	if method == PaymentMethodFree && !amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "free purchases require a zero-priced item")
	}

	if err := s.rejectDuplicate(ctx, userID, input); err != nil {
		return nil, err
	}

	purchase := &models.Purchase{
		UserID:        userID,
		Type:          input.Type,
		DesignID:      input.DesignID,
		CourseID:      input.CourseID,
		PricingPlanID: input.PricingPlanID,
		Amount:        amount,
		Currency:      enums.CurrencyUSD,
		Status:        enums.PurchaseStatusPending,
		PaymentMethod: method,
	}
	if method == PaymentMethodFree {
		ApplyCompletion(purchase, plan, s.now())
	}

	created, err := s.repo.CreatePurchase(ctx, purchase)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert purchase")
	}
	dto := NewPurchaseDTO(created)
	return &dto, nil
}

// SubscriptionEligibility reports whether the user can buy a subscription
// right now, with the blocking purchase surfaced when they cannot.
func (s *service) SubscriptionEligibility(ctx context.Context, userID uuid.UUID) (*EligibilityDTO, error) {
	result := &EligibilityDTO{CanPurchaseSubscription: true}

	active, err := s.repo.FindLiveSubscription(ctx, userID, s.now())
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find live subscription")
	}
	if active != nil {
		result.CanPurchaseSubscription = false
		result.HasActiveSubscription = true
		result.ActiveSubscriptionID = &active.ID
		result.SubscriptionEndsAt = active.SubscriptionEndsAt
	}

	pending, err := s.repo.FindPendingSubscription(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find pending subscription")
	}
	if pending != nil {
		result.CanPurchaseSubscription = false
		result.HasPendingSubscription = true
		result.PendingSubscriptionID = &pending.ID
	}

	return result, nil
}

// Get loads one purchase; customers only see their own.
func (s *service) Get(ctx context.Context, actorID uuid.UUID, isAdmin bool, purchaseID uuid.UUID) (*PurchaseDTO, error) {
	purchase, err := s.loadPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && purchase.UserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
	}
	dto := NewPurchaseDTO(purchase)
	return &dto, nil
}

// ListMine returns the caller's purchases, newest first.
func (s *service) ListMine(ctx context.Context, userID uuid.UUID, filters ListFilters, params pagination.Params) (*PurchaseListResult, error) {
	filters.UserID = &userID
	return s.list(ctx, filters, params)
}

// AdminList returns any user's purchases.
func (s *service) AdminList(ctx context.Context, filters ListFilters, params pagination.Params) (*PurchaseListResult, error) {
	return s.list(ctx, filters, params)
}

// AdminComplete moves a pending purchase to completed. Subscriptions get
// their window and download quota stamped from the plan at completion time.
func (s *service) AdminComplete(ctx context.Context, purchaseID uuid.UUID, note *string) (*PurchaseDTO, error) {
	purchase, err := s.loadPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if !purchase.Status.CanTransitionTo(enums.PurchaseStatusCompleted) {
		return nil, transitionError(purchase.Status, enums.PurchaseStatusCompleted)
	}

	var plan *models.PricingPlan
	if purchase.Type == enums.PurchaseTypeSubscription {
		if purchase.PricingPlanID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription purchase missing plan reference")
		}
		plan, err = s.plans.FindByID(ctx, *purchase.PricingPlanID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load plan")
		}
	}

	var updated *models.Purchase
	if err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.withTx(tx)
		ApplyCompletion(purchase, plan, s.now())
		appendNote(purchase, note)
		saved, err := repo.UpdatePurchase(ctx, purchase)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update purchase")
		}
		updated = saved
		return nil
	}); err != nil {
		return nil, err
	}

	dto := NewPurchaseDTO(updated)
	return &dto, nil
}

// AdminCancel cancels a purchase that is not already terminal.
func (s *service) AdminCancel(ctx context.Context, purchaseID uuid.UUID, note *string) (*PurchaseDTO, error) {
	purchase, err := s.loadPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if !purchase.Status.CanTransitionTo(enums.PurchaseStatusCancelled) {
		return nil, transitionError(purchase.Status, enums.PurchaseStatusCancelled)
	}

	purchase.Status = enums.PurchaseStatusCancelled
	appendNote(purchase, note)

	updated, err := s.repo.UpdatePurchase(ctx, purchase)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update purchase")
	}
	dto := NewPurchaseDTO(updated)
	return &dto, nil
}

// ExpireDue sweeps completed subscriptions whose window has passed.
func (s *service) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.repo.MarkExpiredSubscriptions(ctx, now)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: expire subscriptions")
	}
	return count, nil
}

// Analytics aggregates completed purchase revenue into calendar buckets.
func (s *service) Analytics(ctx context.Context, period enums.AnalyticsPeriod, since time.Time) ([]RevenueBucket, error) {
	if !period.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid analytics period")
	}
	rows, err := s.repo.RevenueByPeriod(ctx, period, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: revenue analytics")
	}
	return rows, nil
}

func (s *service) list(ctx context.Context, filters ListFilters, params pagination.Params) (*PurchaseListResult, error) {
	rows, total, err := s.repo.ListPurchases(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list purchases")
	}
	dtos := make([]PurchaseDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, NewPurchaseDTO(&rows[i]))
	}
	return &PurchaseListResult{Purchases: dtos, TotalItems: total}, nil
}

func (s *service) loadPurchase(ctx context.Context, purchaseID uuid.UUID) (*models.Purchase, error) {
	purchase, err := s.repo.FindByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load purchase")
	}
	return purchase, nil
}

func (s *service) resolveAmount(ctx context.Context, input CreateInput) (decimal.Decimal, *models.PricingPlan, error) {
	switch {
	case input.DesignID != nil:
		design, err := s.designs.FindDesignByID(ctx, *input.DesignID)
		if err != nil {
			return decimal.Zero, nil, notFoundOrDependency(err, "design")
		}
		if design.Status != enums.CatalogStatusActive {
			return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeNotFound, "design not found")
		}
		return design.PurchasePrice(), nil, nil

	case input.CourseID != nil:
		course, err := s.courses.FindCourseByID(ctx, *input.CourseID)
		if err != nil {
			return decimal.Zero, nil, notFoundOrDependency(err, "course")
		}
		if course.Status != enums.CatalogStatusActive {
			return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
		}
		return course.PurchasePrice(), nil, nil

	default:
		plan, err := s.plans.FindByID(ctx, *input.PricingPlanID)
		if err != nil {
			return decimal.Zero, nil, notFoundOrDependency(err, "plan")
		}
		if !pricingplans.PlanPurchasable(plan, s.now()) {
			return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return plan.FinalPrice, plan, nil
	}
}

func (s *service) rejectDuplicate(ctx context.Context, userID uuid.UUID, input CreateInput) error {
	if input.Type == enums.PurchaseTypeSubscription {
		eligibility, err := s.SubscriptionEligibility(ctx, userID)
		if err != nil {
			return err
		}
		if !eligibility.CanPurchaseSubscription {
			return pkgerrors.New(pkgerrors.CodeConflict, "a subscription already exists").
				WithDetails(eligibility)
		}
		return nil
	}

	productType := enums.ProductTypeDesign
	productID := input.DesignID
	if input.CourseID != nil {
		productType = enums.ProductTypeCourse
		productID = input.CourseID
	}
	existing, err := s.repo.FindCompletedIndividual(ctx, userID, productType, *productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find completed purchase")
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "item already purchased").
		WithDetails(map[string]any{"purchase_id": existing.ID})
}

func validateProductRef(input CreateInput) error {
	switch input.Type {
	case enums.PurchaseTypeIndividual:
		if (input.DesignID == nil) == (input.CourseID == nil) || input.PricingPlanID != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "individual purchases require exactly one of design_id or course_id")
		}
	case enums.PurchaseTypeSubscription:
		if input.PricingPlanID == nil || input.DesignID != nil || input.CourseID != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "subscription purchases require pricing_plan_id only")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid purchase type")
	}
	return nil
}

func notFoundOrDependency(err error, label string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, label+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load "+label)
}

// ApplyCompletion flips the purchase to completed and, for subscriptions,
// stamps the window and download quota from the plan.
func ApplyCompletion(purchase *models.Purchase, plan *models.PricingPlan, now time.Time) {
	purchase.Status = enums.PurchaseStatusCompleted
	if purchase.Type != enums.PurchaseTypeSubscription || plan == nil {
		return
	}
	start := now
	end := plan.SubscriptionWindow(start)
	purchase.SubscriptionStartsAt = &start
	purchase.SubscriptionEndsAt = &end
	if plan.MaxDownloads != nil {
		quota := *plan.MaxDownloads
		purchase.RemainingDownloads = &quota
	} else {
		purchase.RemainingDownloads = nil
	}
}

func appendNote(purchase *models.Purchase, note *string) {
	if note == nil {
		return
	}
	clean := strings.TrimSpace(*note)
	if clean == "" {
		return
	}
	purchase.AdminNote = &clean
}

func transitionError(from, to enums.PurchaseStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("purchase cannot move from %s to %s", from, to))
}
