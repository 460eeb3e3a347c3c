package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

type stubPaymentRepo struct {
	created   *models.Payment
	createErr error

	updated   *models.Payment
	updateErr error

	byID    *models.Payment
	findErr error

	byIntent    *models.Payment
	byIntentErr error

	pendingForProduct    *models.Payment
	pendingForProductErr error

	listRows  []models.Payment
	listTotal int64
	listErr   error

	statusCounts  []StatusCount
	productCounts []ProductTypeCount
	countErr      error
}

func (s *stubPaymentRepo) CreatePayment(_ context.Context, payment *models.Payment) (*models.Payment, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	s.created = payment
	return payment, nil
}

func (s *stubPaymentRepo) UpdatePayment(_ context.Context, payment *models.Payment) (*models.Payment, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updated = payment
	return payment, nil
}

func (s *stubPaymentRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.Payment, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.byID, nil
}

func (s *stubPaymentRepo) FindByStripeIntentID(_ context.Context, _ string) (*models.Payment, error) {
	if s.byIntentErr != nil {
		return nil, s.byIntentErr
	}
	return s.byIntent, nil
}

func (s *stubPaymentRepo) FindPendingForProduct(_ context.Context, _ uuid.UUID, _ enums.ProductType, _ uuid.UUID) (*models.Payment, error) {
	if s.pendingForProductErr != nil {
		return nil, s.pendingForProductErr
	}
	return s.pendingForProduct, nil
}

func (s *stubPaymentRepo) ListPayments(_ context.Context, _ *uuid.UUID, _ *enums.PaymentStatus, _ pagination.Params) ([]models.Payment, int64, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return s.listRows, s.listTotal, nil
}

func (s *stubPaymentRepo) CountByStatus(_ context.Context) ([]StatusCount, error) {
	if s.countErr != nil {
		return nil, s.countErr
	}
	return s.statusCounts, nil
}

func (s *stubPaymentRepo) CountSucceededByProductType(_ context.Context) ([]ProductTypeCount, error) {
	if s.countErr != nil {
		return nil, s.countErr
	}
	return s.productCounts, nil
}

type stubPurchaseWriter struct {
	created   *models.Purchase
	createErr error

	updated   *models.Purchase
	updateErr error

	byID    *models.Purchase
	findErr error

	completedIndividual    *models.Purchase
	completedIndividualErr error

	liveSub    *models.Purchase
	liveSubErr error
}

func (s *stubPurchaseWriter) CreatePurchase(_ context.Context, purchase *models.Purchase) (*models.Purchase, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	s.created = purchase
	s.byID = purchase
	return purchase, nil
}

func (s *stubPurchaseWriter) UpdatePurchase(_ context.Context, purchase *models.Purchase) (*models.Purchase, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updated = purchase
	return purchase, nil
}

func (s *stubPurchaseWriter) FindByID(_ context.Context, _ uuid.UUID) (*models.Purchase, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.byID == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.byID, nil
}

func (s *stubPurchaseWriter) FindCompletedIndividual(_ context.Context, _ uuid.UUID, _ enums.ProductType, _ uuid.UUID) (*models.Purchase, error) {
	if s.completedIndividualErr != nil {
		return nil, s.completedIndividualErr
	}
	return s.completedIndividual, nil
}

func (s *stubPurchaseWriter) FindLiveSubscription(_ context.Context, _ uuid.UUID, _ time.Time) (*models.Purchase, error) {
	if s.liveSubErr != nil {
		return nil, s.liveSubErr
	}
	return s.liveSub, nil
}

type stubDesignLoader struct {
	design *models.Design
	err    error
}

func (s *stubDesignLoader) FindDesignByID(_ context.Context, _ uuid.UUID) (*models.Design, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.design, nil
}

type stubCourseLoader struct {
	course *models.Course
	err    error
}

func (s *stubCourseLoader) FindCourseByID(_ context.Context, _ uuid.UUID) (*models.Course, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.course, nil
}

type stubPlanLoader struct {
	plan *models.PricingPlan
	err  error
}

func (s *stubPlanLoader) FindByID(_ context.Context, _ uuid.UUID) (*models.PricingPlan, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.plan, nil
}

type stubStripe struct {
	createdIntent    *stripe.PaymentIntent
	createIntentErr  error
	lastCreateParams *stripe.PaymentIntentParams

	intent    *stripe.PaymentIntent
	getErr    error
	refund    *stripe.Refund
	refundErr error
	refunded  bool
}

func (s *stubStripe) CreateIntent(_ context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	s.lastCreateParams = params
	if s.createIntentErr != nil {
		return nil, s.createIntentErr
	}
	return s.createdIntent, nil
}

func (s *stubStripe) GetIntent(_ context.Context, _ string, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.intent, nil
}

func (s *stubStripe) CreateRefund(_ context.Context, _ *stripe.RefundParams) (*stripe.Refund, error) {
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	s.refunded = true
	return s.refund, nil
}

type stubTxRunner struct{}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type serviceFixture struct {
	repo      *stubPaymentRepo
	purchases *stubPurchaseWriter
	designs   *stubDesignLoader
	courses   *stubCourseLoader
	plans     *stubPlanLoader
	stripe    *stubStripe
	svc       *service
}

func newServiceForTests(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo: &stubPaymentRepo{
			findErr:              gorm.ErrRecordNotFound,
			byIntentErr:          gorm.ErrRecordNotFound,
			pendingForProductErr: gorm.ErrRecordNotFound,
		},
		purchases: &stubPurchaseWriter{
			completedIndividualErr: gorm.ErrRecordNotFound,
			liveSubErr:             gorm.ErrRecordNotFound,
		},
		designs: &stubDesignLoader{err: gorm.ErrRecordNotFound},
		courses: &stubCourseLoader{err: gorm.ErrRecordNotFound},
		plans:   &stubPlanLoader{err: gorm.ErrRecordNotFound},
		stripe:  &stubStripe{},
	}
	svc, err := NewService(ServiceParams{
		Repo:              f.repo,
		Purchases:         f.purchases,
		Designs:           f.designs,
		Courses:           f.courses,
		Plans:             f.plans,
		Stripe:            f.stripe,
		TransactionRunner: &stubTxRunner{},
		PaymentWithTx:     func(tx *gorm.DB) paymentRepository { return f.repo },
		PurchaseWithTx:    func(tx *gorm.DB) purchaseWriter { return f.purchases },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc.(*service)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func assertCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want)
	}
	coded := pkgerrors.As(err)
	if coded == nil {
		t.Fatalf("expected coded error, got %v", err)
	}
	if coded.Code() != want {
		t.Fatalf("expected code %s, got %s (%s)", want, coded.Code(), coded.Message())
	}
}

func activeDesign(price int64) *models.Design {
	return &models.Design{
		ID:        uuid.New(),
		Status:    enums.CatalogStatusActive,
		BasePrice: decimal.NewFromInt(price),
	}
}

func TestCreateIntentChargesServerSidePrice(t *testing.T) {
	f := newServiceForTests(t)
	design := activeDesign(49)
	discounted := decimal.RequireFromString("39.99")
	design.DiscountedPrice = &discounted
	f.designs.err = nil
	f.designs.design = design
	f.stripe.createdIntent = &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "secret_123"}

	result, err := f.svc.CreateIntent(context.Background(), uuid.New(), CreateIntentInput{
		ProductType: enums.ProductTypeDesign,
		ProductID:   design.ID,
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if result.ClientSecret != "secret_123" {
		t.Fatalf("expected client secret returned, got %q", result.ClientSecret)
	}
	if got := *f.stripe.lastCreateParams.Amount; got != 3999 {
		t.Fatalf("expected 3999 minor units, got %d", got)
	}
	if f.repo.created == nil || f.repo.created.Status != enums.PaymentStatusPending {
		t.Fatalf("expected pending payment persisted, got %+v", f.repo.created)
	}
	if f.repo.created.DesignID == nil || *f.repo.created.DesignID != design.ID {
		t.Fatal("expected design reference recorded on payment")
	}
}

func TestCreateIntentReusesOpenIntent(t *testing.T) {
	f := newServiceForTests(t)
	design := activeDesign(10)
	f.designs.err = nil
	f.designs.design = design

	f.repo.pendingForProductErr = nil
	f.repo.pendingForProduct = &models.Payment{
		ID:                    uuid.New(),
		Status:                enums.PaymentStatusPending,
		StripePaymentIntentID: "pi_open",
	}
	f.stripe.intent = &stripe.PaymentIntent{
		ID:           "pi_open",
		ClientSecret: "secret_open",
		Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
	}

	result, err := f.svc.CreateIntent(context.Background(), uuid.New(), CreateIntentInput{
		ProductType: enums.ProductTypeDesign,
		ProductID:   design.ID,
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if result.Payment.ID != f.repo.pendingForProduct.ID {
		t.Fatal("expected existing payment returned")
	}
	if f.stripe.lastCreateParams != nil {
		t.Fatal("expected no new intent created")
	}
}

func TestCreateIntentRejectsZeroPricedProduct(t *testing.T) {
	f := newServiceForTests(t)
	f.designs.err = nil
	f.designs.design = activeDesign(0)

	_, err := f.svc.CreateIntent(context.Background(), uuid.New(), CreateIntentInput{
		ProductType: enums.ProductTypeDesign,
		ProductID:   f.designs.design.ID,
	})
	assertCode(t, err, pkgerrors.CodeValidation)
	if f.stripe.lastCreateParams != nil {
		t.Fatal("expected no intent created for a zero-priced product")
	}
}

func TestCreateIntentReplacesCanceledIntent(t *testing.T) {
	f := newServiceForTests(t)
	design := activeDesign(10)
	f.designs.err = nil
	f.designs.design = design

	f.repo.pendingForProductErr = nil
	f.repo.pendingForProduct = &models.Payment{
		ID:                    uuid.New(),
		Status:                enums.PaymentStatusPending,
		StripePaymentIntentID: "pi_dead",
	}
	f.stripe.intent = &stripe.PaymentIntent{ID: "pi_dead", Status: stripe.PaymentIntentStatusCanceled}
	f.stripe.createdIntent = &stripe.PaymentIntent{ID: "pi_fresh", ClientSecret: "secret_fresh"}

	result, err := f.svc.CreateIntent(context.Background(), uuid.New(), CreateIntentInput{
		ProductType: enums.ProductTypeDesign,
		ProductID:   design.ID,
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if f.repo.updated == nil || f.repo.updated.Status != enums.PaymentStatusCanceled {
		t.Fatalf("expected stale payment closed out, got %+v", f.repo.updated)
	}
	if f.stripe.lastCreateParams == nil {
		t.Fatal("expected a fresh intent created")
	}
	if result.ClientSecret != "secret_fresh" {
		t.Fatalf("expected fresh client secret, got %q", result.ClientSecret)
	}
}

func TestCreateIntentReconcilesSucceededIntent(t *testing.T) {
	f := newServiceForTests(t)
	design := activeDesign(10)
	f.designs.err = nil
	f.designs.design = design

	designID := design.ID
	f.repo.pendingForProductErr = nil
	f.repo.pendingForProduct = &models.Payment{
		ID:                    uuid.New(),
		ProductType:           enums.ProductTypeDesign,
		DesignID:              &designID,
		Amount:                decimal.NewFromInt(10),
		Currency:              enums.CurrencyUSD,
		Status:                enums.PaymentStatusPending,
		StripePaymentIntentID: "pi_done",
	}
	f.stripe.intent = &stripe.PaymentIntent{ID: "pi_done", Status: stripe.PaymentIntentStatusSucceeded}

	_, err := f.svc.CreateIntent(context.Background(), uuid.New(), CreateIntentInput{
		ProductType: enums.ProductTypeDesign,
		ProductID:   design.ID,
	})
	assertCode(t, err, pkgerrors.CodeConflict)
	if f.purchases.created == nil || f.purchases.created.Status != enums.PurchaseStatusCompleted {
		t.Fatalf("expected the settled payment reconciled into a purchase, got %+v", f.purchases.created)
	}
	if f.stripe.lastCreateParams != nil {
		t.Fatal("expected no new intent for an already-settled payment")
	}
}

func TestCreateIntentRejectsProcessingIntent(t *testing.T) {
	f := newServiceForTests(t)
	design := activeDesign(10)
	f.designs.err = nil
	f.designs.design = design

	f.repo.pendingForProductErr = nil
	f.repo.pendingForProduct = &models.Payment{
		ID:                    uuid.New(),
		Status:                enums.PaymentStatusPending,
		StripePaymentIntentID: "pi_busy",
	}
	f.stripe.intent = &stripe.PaymentIntent{ID: "pi_busy", Status: stripe.PaymentIntentStatusProcessing}

	_, err := f.svc.CreateIntent(context.Background(), uuid.New(), CreateIntentInput{
		ProductType: enums.ProductTypeDesign,
		ProductID:   design.ID,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCreateIntentRejectsOwnedItem(t *testing.T) {
	f := newServiceForTests(t)
	design := activeDesign(10)
	f.designs.err = nil
	f.designs.design = design
	f.purchases.completedIndividualErr = nil
	f.purchases.completedIndividual = &models.Purchase{ID: uuid.New()}

	_, err := f.svc.CreateIntent(context.Background(), uuid.New(), CreateIntentInput{
		ProductType: enums.ProductTypeDesign,
		ProductID:   design.ID,
	})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateIntentRejectsActiveSubscription(t *testing.T) {
	f := newServiceForTests(t)
	planID := uuid.New()
	f.plans.err = nil
	f.plans.plan = &models.PricingPlan{ID: planID, IsActive: true, FinalPrice: decimal.NewFromInt(20)}
	f.purchases.liveSubErr = nil
	f.purchases.liveSub = &models.Purchase{ID: uuid.New()}

	_, err := f.svc.CreateIntent(context.Background(), uuid.New(), CreateIntentInput{
		ProductType: enums.ProductTypeSubscription,
		ProductID:   planID,
	})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateIntentRejectsInvalidProductType(t *testing.T) {
	f := newServiceForTests(t)

	_, err := f.svc.CreateIntent(context.Background(), uuid.New(), CreateIntentInput{
		ProductType: enums.ProductType("bundle"),
		ProductID:   uuid.New(),
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateIntentHidesDraftDesign(t *testing.T) {
	f := newServiceForTests(t)
	design := activeDesign(10)
	design.Status = enums.CatalogStatusDraft
	f.designs.err = nil
	f.designs.design = design

	_, err := f.svc.CreateIntent(context.Background(), uuid.New(), CreateIntentInput{
		ProductType: enums.ProductTypeDesign,
		ProductID:   design.ID,
	})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestConfirmFinalizesSucceededIntent(t *testing.T) {
	f := newServiceForTests(t)
	userID := uuid.New()
	designID := uuid.New()
	f.repo.findErr = nil
	f.repo.byID = &models.Payment{
		ID:                    uuid.New(),
		UserID:                userID,
		ProductType:           enums.ProductTypeDesign,
		DesignID:              &designID,
		Amount:                decimal.NewFromInt(49),
		Currency:              enums.CurrencyUSD,
		Status:                enums.PaymentStatusPending,
		StripePaymentIntentID: "pi_123",
	}
	f.stripe.intent = &stripe.PaymentIntent{ID: "pi_123", Status: stripe.PaymentIntentStatusSucceeded}

	result, err := f.svc.Confirm(context.Background(), userID, f.repo.byID.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if result.Payment.Status != enums.PaymentStatusSucceeded {
		t.Fatalf("expected succeeded payment, got %s", result.Payment.Status)
	}
	if f.purchases.created == nil || f.purchases.created.Status != enums.PurchaseStatusCompleted {
		t.Fatalf("expected completed purchase created, got %+v", f.purchases.created)
	}
	if f.purchases.created.PaymentMethod != "stripe" {
		t.Fatalf("expected stripe payment method, got %s", f.purchases.created.PaymentMethod)
	}
	if result.Purchase == nil || result.Purchase.ID != f.purchases.created.ID {
		t.Fatal("expected purchase surfaced in confirm result")
	}
	if f.repo.updated.PurchaseID == nil || *f.repo.updated.PurchaseID != f.purchases.created.ID {
		t.Fatal("expected payment linked to its purchase")
	}
}

func TestConfirmIsIdempotentOnSucceeded(t *testing.T) {
	f := newServiceForTests(t)
	userID := uuid.New()
	purchaseID := uuid.New()
	f.purchases.byID = &models.Purchase{ID: purchaseID, Status: enums.PurchaseStatusCompleted}
	f.repo.findErr = nil
	f.repo.byID = &models.Payment{
		ID:         uuid.New(),
		UserID:     userID,
		Status:     enums.PaymentStatusSucceeded,
		PurchaseID: &purchaseID,
	}

	result, err := f.svc.Confirm(context.Background(), userID, f.repo.byID.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if result.Purchase == nil || result.Purchase.ID != purchaseID {
		t.Fatal("expected existing purchase returned")
	}
	if f.purchases.created != nil {
		t.Fatal("expected no new purchase on repeat confirm")
	}
}

func TestConfirmRejectsTerminalPayment(t *testing.T) {
	f := newServiceForTests(t)
	userID := uuid.New()
	f.repo.findErr = nil
	f.repo.byID = &models.Payment{ID: uuid.New(), UserID: userID, Status: enums.PaymentStatusFailed}

	_, err := f.svc.Confirm(context.Background(), userID, f.repo.byID.ID)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestConfirmHidesOtherUsersPayment(t *testing.T) {
	f := newServiceForTests(t)
	f.repo.findErr = nil
	f.repo.byID = &models.Payment{ID: uuid.New(), UserID: uuid.New(), Status: enums.PaymentStatusPending}

	_, err := f.svc.Confirm(context.Background(), uuid.New(), f.repo.byID.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestConfirmRecordsStripeFailure(t *testing.T) {
	f := newServiceForTests(t)
	userID := uuid.New()
	f.repo.findErr = nil
	f.repo.byID = &models.Payment{
		ID:                    uuid.New(),
		UserID:                userID,
		Status:                enums.PaymentStatusPending,
		StripePaymentIntentID: "pi_123",
	}
	f.stripe.intent = &stripe.PaymentIntent{
		ID:               "pi_123",
		Status:           stripe.PaymentIntentStatusRequiresPaymentMethod,
		LastPaymentError: &stripe.Error{Msg: "card declined"},
	}

	result, err := f.svc.Confirm(context.Background(), userID, f.repo.byID.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if result.Payment.Status != enums.PaymentStatusFailed {
		t.Fatalf("expected failed payment, got %s", result.Payment.Status)
	}
	if f.repo.updated.FailureMessage == nil || *f.repo.updated.FailureMessage != "card declined" {
		t.Fatalf("expected failure message recorded, got %v", f.repo.updated.FailureMessage)
	}
}

func TestConfirmLeavesUnsettledIntentPending(t *testing.T) {
	f := newServiceForTests(t)
	userID := uuid.New()
	f.repo.findErr = nil
	f.repo.byID = &models.Payment{
		ID:                    uuid.New(),
		UserID:                userID,
		Status:                enums.PaymentStatusPending,
		StripePaymentIntentID: "pi_123",
	}
	f.stripe.intent = &stripe.PaymentIntent{ID: "pi_123", Status: stripe.PaymentIntentStatusProcessing}

	result, err := f.svc.Confirm(context.Background(), userID, f.repo.byID.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if result.Payment.Status != enums.PaymentStatusPending {
		t.Fatalf("expected pending payment, got %s", result.Payment.Status)
	}
	if f.repo.updated != nil {
		t.Fatal("expected no payment update for unsettled intent")
	}
}

func TestRefundSucceededPayment(t *testing.T) {
	f := newServiceForTests(t)
	purchaseID := uuid.New()
	f.purchases.byID = &models.Purchase{ID: purchaseID, Status: enums.PurchaseStatusCompleted}
	f.repo.findErr = nil
	f.repo.byID = &models.Payment{
		ID:                    uuid.New(),
		Status:                enums.PaymentStatusSucceeded,
		StripePaymentIntentID: "pi_123",
		PurchaseID:            &purchaseID,
	}
	f.stripe.refund = &stripe.Refund{ID: "re_123"}

	reason := "customer request"
	dto, err := f.svc.Refund(context.Background(), f.repo.byID.ID, &reason)
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if dto.Status != enums.PaymentStatusRefunded {
		t.Fatalf("expected refunded payment, got %s", dto.Status)
	}
	if !f.stripe.refunded {
		t.Fatal("expected a Stripe refund issued")
	}
	if f.purchases.updated == nil || f.purchases.updated.Status != enums.PurchaseStatusRefunded {
		t.Fatalf("expected purchase marked refunded, got %+v", f.purchases.updated)
	}
}

func TestRefundRejectsPendingPayment(t *testing.T) {
	f := newServiceForTests(t)
	f.repo.findErr = nil
	f.repo.byID = &models.Payment{ID: uuid.New(), Status: enums.PaymentStatusPending}

	_, err := f.svc.Refund(context.Background(), f.repo.byID.ID, nil)
	assertCode(t, err, pkgerrors.CodeStateConflict)
	if f.stripe.refunded {
		t.Fatal("expected no Stripe refund for pending payment")
	}
}

func TestGetByIntentIDHidesOtherUsers(t *testing.T) {
	f := newServiceForTests(t)
	owner := uuid.New()
	f.repo.byIntentErr = nil
	f.repo.byIntent = &models.Payment{ID: uuid.New(), UserID: owner, StripePaymentIntentID: "pi_123"}

	_, err := f.svc.GetByIntentID(context.Background(), uuid.New(), false, "pi_123")
	assertCode(t, err, pkgerrors.CodeNotFound)

	if _, err := f.svc.GetByIntentID(context.Background(), uuid.New(), true, "pi_123"); err != nil {
		t.Fatalf("admin GetByIntentID: %v", err)
	}
	if _, err := f.svc.GetByIntentID(context.Background(), owner, false, "pi_123"); err != nil {
		t.Fatalf("owner GetByIntentID: %v", err)
	}
}

func TestApplyIntentSucceededIsIdempotent(t *testing.T) {
	f := newServiceForTests(t)
	f.repo.byIntentErr = nil
	f.repo.byIntent = &models.Payment{ID: uuid.New(), Status: enums.PaymentStatusSucceeded}

	if err := f.svc.ApplyIntentSucceeded(context.Background(), "pi_123"); err != nil {
		t.Fatalf("ApplyIntentSucceeded: %v", err)
	}
	if f.purchases.created != nil {
		t.Fatal("expected no purchase created for an already-settled payment")
	}
}

func TestApplyIntentSucceededStampsSubscription(t *testing.T) {
	f := newServiceForTests(t)
	planID := uuid.New()
	quota := 15
	f.plans.err = nil
	f.plans.plan = &models.PricingPlan{
		ID:            planID,
		IsActive:      true,
		DurationCount: 1,
		DurationUnit:  enums.PlanDurationMonth,
		MaxDownloads:  &quota,
	}
	f.repo.byIntentErr = nil
	f.repo.byIntent = &models.Payment{
		ID:                    uuid.New(),
		ProductType:           enums.ProductTypeSubscription,
		PricingPlanID:         &planID,
		Status:                enums.PaymentStatusPending,
		Amount:                decimal.NewFromInt(20),
		Currency:              enums.CurrencyUSD,
		StripePaymentIntentID: "pi_123",
	}
	f.stripe.intent = &stripe.PaymentIntent{ID: "pi_123", Status: stripe.PaymentIntentStatusSucceeded}

	if err := f.svc.ApplyIntentSucceeded(context.Background(), "pi_123"); err != nil {
		t.Fatalf("ApplyIntentSucceeded: %v", err)
	}
	created := f.purchases.created
	if created == nil || created.Type != enums.PurchaseTypeSubscription {
		t.Fatalf("expected subscription purchase, got %+v", created)
	}
	wantEnd := testNow.AddDate(0, 1, 0)
	if created.SubscriptionEndsAt == nil || !created.SubscriptionEndsAt.Equal(wantEnd) {
		t.Fatalf("expected subscription end %v, got %v", wantEnd, created.SubscriptionEndsAt)
	}
	if created.RemainingDownloads == nil || *created.RemainingDownloads != quota {
		t.Fatalf("expected quota %d, got %v", quota, created.RemainingDownloads)
	}
}

func TestApplyIntentSucceededRequiresAuthoritativeStatus(t *testing.T) {
	f := newServiceForTests(t)
	f.repo.byIntentErr = nil
	f.repo.byIntent = &models.Payment{
		ID:                    uuid.New(),
		Status:                enums.PaymentStatusPending,
		StripePaymentIntentID: "pi_123",
	}
	f.stripe.getErr = context.DeadlineExceeded

	err := f.svc.ApplyIntentSucceeded(context.Background(), "pi_123")
	assertCode(t, err, pkgerrors.CodeDependency)
	if f.purchases.created != nil {
		t.Fatal("expected no purchase when the intent cannot be re-fetched")
	}
	if f.repo.updated != nil {
		t.Fatal("expected payment untouched when the intent cannot be re-fetched")
	}
}

func TestApplyIntentSucceededIgnoresUnsettledProviderStatus(t *testing.T) {
	f := newServiceForTests(t)
	f.repo.byIntentErr = nil
	f.repo.byIntent = &models.Payment{
		ID:                    uuid.New(),
		Status:                enums.PaymentStatusPending,
		StripePaymentIntentID: "pi_123",
	}
	f.stripe.intent = &stripe.PaymentIntent{ID: "pi_123", Status: stripe.PaymentIntentStatusProcessing}

	if err := f.svc.ApplyIntentSucceeded(context.Background(), "pi_123"); err != nil {
		t.Fatalf("ApplyIntentSucceeded: %v", err)
	}
	if f.purchases.created != nil {
		t.Fatal("expected no purchase while the provider reports the intent unsettled")
	}
}

func TestApplyIntentFailedPrefersProviderMessage(t *testing.T) {
	f := newServiceForTests(t)
	f.repo.byIntentErr = nil
	f.repo.byIntent = &models.Payment{ID: uuid.New(), Status: enums.PaymentStatusPending, StripePaymentIntentID: "pi_123"}
	f.stripe.intent = &stripe.PaymentIntent{
		ID:               "pi_123",
		Status:           stripe.PaymentIntentStatusRequiresPaymentMethod,
		LastPaymentError: &stripe.Error{Msg: "card declined"},
	}

	if err := f.svc.ApplyIntentFailed(context.Background(), "pi_123", "stale event message"); err != nil {
		t.Fatalf("ApplyIntentFailed: %v", err)
	}
	if f.repo.updated.FailureMessage == nil || *f.repo.updated.FailureMessage != "card declined" {
		t.Fatalf("expected provider message recorded, got %v", f.repo.updated.FailureMessage)
	}
}

func TestApplyIntentFailedRecordsMessage(t *testing.T) {
	f := newServiceForTests(t)
	f.repo.byIntentErr = nil
	f.repo.byIntent = &models.Payment{ID: uuid.New(), Status: enums.PaymentStatusPending, StripePaymentIntentID: "pi_123"}
	f.stripe.intent = &stripe.PaymentIntent{ID: "pi_123", Status: stripe.PaymentIntentStatusRequiresPaymentMethod}

	if err := f.svc.ApplyIntentFailed(context.Background(), "pi_123", "insufficient funds"); err != nil {
		t.Fatalf("ApplyIntentFailed: %v", err)
	}
	if f.repo.updated.Status != enums.PaymentStatusFailed {
		t.Fatalf("expected failed payment, got %s", f.repo.updated.Status)
	}
	if f.repo.updated.FailureMessage == nil || *f.repo.updated.FailureMessage != "insufficient funds" {
		t.Fatalf("expected failure message, got %v", f.repo.updated.FailureMessage)
	}
}

func TestApplyIntentFailedIgnoresSettledPayment(t *testing.T) {
	f := newServiceForTests(t)
	f.repo.byIntentErr = nil
	f.repo.byIntent = &models.Payment{ID: uuid.New(), Status: enums.PaymentStatusRefunded}

	if err := f.svc.ApplyIntentFailed(context.Background(), "pi_123", "late failure"); err != nil {
		t.Fatalf("ApplyIntentFailed: %v", err)
	}
	if f.repo.updated != nil {
		t.Fatal("expected no update for a settled payment")
	}
}

func TestMinorUnitsRounding(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"0", 0},
		{"10", 1000},
		{"39.99", 3999},
		{"0.01", 1},
	}
	for _, tc := range cases {
		if got := minorUnits(decimal.RequireFromString(tc.amount)); got != tc.want {
			t.Fatalf("minorUnits(%s) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}
