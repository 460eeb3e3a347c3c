package purchases

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

type stubPurchaseRepo struct {
	created   *models.Purchase
	createErr error

	byID    *models.Purchase
	findErr error

	updated   *models.Purchase
	updateErr error

	completedIndividual    *models.Purchase
	completedIndividualErr error

	liveSub    *models.Purchase
	liveSubErr error

	pendingSub    *models.Purchase
	pendingSubErr error

	listRows  []models.Purchase
	listTotal int64
	listErr   error

	expiredCount int64
	expireErr    error

	revenue    []RevenueBucket
	revenueErr error
}

func (s *stubPurchaseRepo) CreatePurchase(_ context.Context, purchase *models.Purchase) (*models.Purchase, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	s.created = purchase
	return purchase, nil
}

func (s *stubPurchaseRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.Purchase, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.byID, nil
}

func (s *stubPurchaseRepo) UpdatePurchase(_ context.Context, purchase *models.Purchase) (*models.Purchase, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updated = purchase
	return purchase, nil
}

func (s *stubPurchaseRepo) FindCompletedIndividual(_ context.Context, _ uuid.UUID, _ enums.ProductType, _ uuid.UUID) (*models.Purchase, error) {
	if s.completedIndividualErr != nil {
		return nil, s.completedIndividualErr
	}
	return s.completedIndividual, nil
}

func (s *stubPurchaseRepo) FindLiveSubscription(_ context.Context, _ uuid.UUID, _ time.Time) (*models.Purchase, error) {
	if s.liveSubErr != nil {
		return nil, s.liveSubErr
	}
	return s.liveSub, nil
}

func (s *stubPurchaseRepo) FindPendingSubscription(_ context.Context, _ uuid.UUID) (*models.Purchase, error) {
	if s.pendingSubErr != nil {
		return nil, s.pendingSubErr
	}
	return s.pendingSub, nil
}

func (s *stubPurchaseRepo) ListPurchases(_ context.Context, _ ListFilters, _ pagination.Params) ([]models.Purchase, int64, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return s.listRows, s.listTotal, nil
}

func (s *stubPurchaseRepo) MarkExpiredSubscriptions(_ context.Context, _ time.Time) (int64, error) {
	if s.expireErr != nil {
		return 0, s.expireErr
	}
	return s.expiredCount, nil
}

func (s *stubPurchaseRepo) RevenueByPeriod(_ context.Context, _ enums.AnalyticsPeriod, _ time.Time) ([]RevenueBucket, error) {
	if s.revenueErr != nil {
		return nil, s.revenueErr
	}
	return s.revenue, nil
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

type stubTxRunner struct{}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newServiceForTests(t *testing.T, repo *stubPurchaseRepo, designs *stubDesignLoader, courses *stubCourseLoader, plans *stubPlanLoader) *service {
	t.Helper()
	if repo == nil {
		repo = &stubPurchaseRepo{}
	}
	if designs == nil {
		designs = &stubDesignLoader{err: gorm.ErrRecordNotFound}
	}
	if courses == nil {
		courses = &stubCourseLoader{err: gorm.ErrRecordNotFound}
	}
	if plans == nil {
		plans = &stubPlanLoader{err: gorm.ErrRecordNotFound}
	}
	svc, err := NewService(ServiceParams{
		Repo:              repo,
		Designs:           designs,
		Courses:           courses,
		Plans:             plans,
		TransactionRunner: &stubTxRunner{},
		WithTx:            func(tx *gorm.DB) purchaseRepository { return repo },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	impl := svc.(*service)
	impl.now = func() time.Time { return testNow }
	return impl
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

func noSubscriptionsRepo() *stubPurchaseRepo {
	return &stubPurchaseRepo{
		completedIndividualErr: gorm.ErrRecordNotFound,
		liveSubErr:             gorm.ErrRecordNotFound,
		pendingSubErr:          gorm.ErrRecordNotFound,
	}
}

func zeroPricedDesign() *models.Design {
	return &models.Design{
		ID:        uuid.New(),
		Status:    enums.CatalogStatusActive,
		BasePrice: decimal.Zero,
	}
}

func TestCreateFreePurchaseCompletesImmediately(t *testing.T) {
	repo := noSubscriptionsRepo()
	design := zeroPricedDesign()
	svc := newServiceForTests(t, repo, &stubDesignLoader{design: design}, nil, nil)

	dto, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Type:          enums.PurchaseTypeIndividual,
		DesignID:      &design.ID,
		PaymentMethod: "free",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.Status != enums.PurchaseStatusCompleted {
		t.Fatalf("expected completed status, got %s", dto.Status)
	}
	if repo.created == nil || repo.created.PaymentMethod != PaymentMethodFree {
		t.Fatalf("expected free purchase persisted, got %+v", repo.created)
	}
}

func TestCreateFreePurchaseRejectsPricedItem(t *testing.T) {
	design := zeroPricedDesign()
	design.BasePrice = decimal.NewFromInt(29)
	svc := newServiceForTests(t, noSubscriptionsRepo(), &stubDesignLoader{design: design}, nil, nil)

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Type:          enums.PurchaseTypeIndividual,
		DesignID:      &design.ID,
		PaymentMethod: "free",
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateRejectsCardMethod(t *testing.T) {
	svc := newServiceForTests(t, noSubscriptionsRepo(), nil, nil, nil)
	designID := uuid.New()

	for _, method := range []string{"stripe", "card", "Stripe "} {
		_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
			Type:          enums.PurchaseTypeIndividual,
			DesignID:      &designID,
			PaymentMethod: method,
		})
		assertCode(t, err, pkgerrors.CodeValidation)
	}
}

func TestCreateRejectsUnknownMethod(t *testing.T) {
	svc := newServiceForTests(t, noSubscriptionsRepo(), nil, nil, nil)
	designID := uuid.New()

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Type:          enums.PurchaseTypeIndividual,
		DesignID:      &designID,
		PaymentMethod: "barter",
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateManualPurchaseStaysPending(t *testing.T) {
	repo := noSubscriptionsRepo()
	design := zeroPricedDesign()
	design.BasePrice = decimal.NewFromInt(49)
	svc := newServiceForTests(t, repo, &stubDesignLoader{design: design}, nil, nil)

	dto, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Type:          enums.PurchaseTypeIndividual,
		DesignID:      &design.ID,
		PaymentMethod: "manual",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.Status != enums.PurchaseStatusPending {
		t.Fatalf("expected pending status, got %s", dto.Status)
	}
	if !dto.Amount.Equal(decimal.NewFromInt(49)) {
		t.Fatalf("expected amount 49, got %s", dto.Amount)
	}
}

func TestCreateValidatesProductRef(t *testing.T) {
	svc := newServiceForTests(t, noSubscriptionsRepo(), nil, nil, nil)
	designID := uuid.New()
	courseID := uuid.New()
	planID := uuid.New()

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"individual without item", CreateInput{Type: enums.PurchaseTypeIndividual, PaymentMethod: "manual"}},
		{"individual with both items", CreateInput{Type: enums.PurchaseTypeIndividual, DesignID: &designID, CourseID: &courseID, PaymentMethod: "manual"}},
		{"individual with plan", CreateInput{Type: enums.PurchaseTypeIndividual, DesignID: &designID, PricingPlanID: &planID, PaymentMethod: "manual"}},
		{"subscription without plan", CreateInput{Type: enums.PurchaseTypeSubscription, PaymentMethod: "manual"}},
		{"subscription with item", CreateInput{Type: enums.PurchaseTypeSubscription, PricingPlanID: &planID, DesignID: &designID, PaymentMethod: "manual"}},
		{"unknown type", CreateInput{Type: enums.PurchaseType("bundle"), DesignID: &designID, PaymentMethod: "manual"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), uuid.New(), tc.input)
			assertCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestCreateRejectsInactiveDesign(t *testing.T) {
	design := zeroPricedDesign()
	design.Status = enums.CatalogStatusDraft
	svc := newServiceForTests(t, noSubscriptionsRepo(), &stubDesignLoader{design: design}, nil, nil)

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Type:          enums.PurchaseTypeIndividual,
		DesignID:      &design.ID,
		PaymentMethod: "free",
	})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestCreateRejectsDuplicateIndividual(t *testing.T) {
	repo := noSubscriptionsRepo()
	repo.completedIndividualErr = nil
	repo.completedIndividual = &models.Purchase{ID: uuid.New()}
	design := zeroPricedDesign()
	svc := newServiceForTests(t, repo, &stubDesignLoader{design: design}, nil, nil)

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Type:          enums.PurchaseTypeIndividual,
		DesignID:      &design.ID,
		PaymentMethod: "free",
	})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateSubscriptionRejectedWhileActive(t *testing.T) {
	endsAt := testNow.Add(24 * time.Hour)
	repo := noSubscriptionsRepo()
	repo.liveSubErr = nil
	repo.liveSub = &models.Purchase{
		ID:                 uuid.New(),
		Type:               enums.PurchaseTypeSubscription,
		Status:             enums.PurchaseStatusCompleted,
		SubscriptionEndsAt: &endsAt,
	}
	planID := uuid.New()
	plan := &models.PricingPlan{
		ID:            planID,
		IsActive:      true,
		FinalPrice:    decimal.Zero,
		DurationCount: 1,
		DurationUnit:  enums.PlanDurationMonth,
	}
	svc := newServiceForTests(t, repo, nil, nil, &stubPlanLoader{plan: plan})

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Type:          enums.PurchaseTypeSubscription,
		PricingPlanID: &planID,
		PaymentMethod: "free",
	})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateFreeSubscriptionStampsWindow(t *testing.T) {
	repo := noSubscriptionsRepo()
	quota := 20
	planID := uuid.New()
	plan := &models.PricingPlan{
		ID:            planID,
		IsActive:      true,
		FinalPrice:    decimal.Zero,
		DurationCount: 1,
		DurationUnit:  enums.PlanDurationMonth,
		MaxDownloads:  &quota,
	}
	svc := newServiceForTests(t, repo, nil, nil, &stubPlanLoader{plan: plan})

	dto, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Type:          enums.PurchaseTypeSubscription,
		PricingPlanID: &planID,
		PaymentMethod: "free",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.Status != enums.PurchaseStatusCompleted {
		t.Fatalf("expected completed subscription, got %s", dto.Status)
	}
	if repo.created.SubscriptionStartsAt == nil || !repo.created.SubscriptionStartsAt.Equal(testNow) {
		t.Fatalf("expected subscription start %v, got %v", testNow, repo.created.SubscriptionStartsAt)
	}
	wantEnd := testNow.AddDate(0, 1, 0)
	if repo.created.SubscriptionEndsAt == nil || !repo.created.SubscriptionEndsAt.Equal(wantEnd) {
		t.Fatalf("expected subscription end %v, got %v", wantEnd, repo.created.SubscriptionEndsAt)
	}
	if repo.created.RemainingDownloads == nil || *repo.created.RemainingDownloads != quota {
		t.Fatalf("expected remaining downloads %d, got %v", quota, repo.created.RemainingDownloads)
	}
}

func TestSubscriptionEligibilityStates(t *testing.T) {
	userID := uuid.New()

	t.Run("no subscriptions", func(t *testing.T) {
		svc := newServiceForTests(t, noSubscriptionsRepo(), nil, nil, nil)
		result, err := svc.SubscriptionEligibility(context.Background(), userID)
		if err != nil {
			t.Fatalf("SubscriptionEligibility: %v", err)
		}
		if !result.CanPurchaseSubscription {
			t.Fatal("expected user to be eligible")
		}
	})

	t.Run("active subscription blocks", func(t *testing.T) {
		endsAt := testNow.Add(48 * time.Hour)
		repo := noSubscriptionsRepo()
		repo.liveSubErr = nil
		repo.liveSub = &models.Purchase{ID: uuid.New(), SubscriptionEndsAt: &endsAt}
		svc := newServiceForTests(t, repo, nil, nil, nil)

		result, err := svc.SubscriptionEligibility(context.Background(), userID)
		if err != nil {
			t.Fatalf("SubscriptionEligibility: %v", err)
		}
		if result.CanPurchaseSubscription || !result.HasActiveSubscription {
			t.Fatalf("expected active block, got %+v", result)
		}
		if result.ActiveSubscriptionID == nil || *result.ActiveSubscriptionID != repo.liveSub.ID {
			t.Fatal("expected blocking purchase surfaced")
		}
	})

	t.Run("pending subscription blocks", func(t *testing.T) {
		repo := noSubscriptionsRepo()
		repo.pendingSubErr = nil
		repo.pendingSub = &models.Purchase{ID: uuid.New()}
		svc := newServiceForTests(t, repo, nil, nil, nil)

		result, err := svc.SubscriptionEligibility(context.Background(), userID)
		if err != nil {
			t.Fatalf("SubscriptionEligibility: %v", err)
		}
		if result.CanPurchaseSubscription || !result.HasPendingSubscription {
			t.Fatalf("expected pending block, got %+v", result)
		}
	})
}

func TestGetHidesOtherUsersPurchases(t *testing.T) {
	owner := uuid.New()
	repo := &stubPurchaseRepo{byID: &models.Purchase{ID: uuid.New(), UserID: owner}}
	svc := newServiceForTests(t, repo, nil, nil, nil)

	_, err := svc.Get(context.Background(), uuid.New(), false, repo.byID.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)

	if _, err := svc.Get(context.Background(), uuid.New(), true, repo.byID.ID); err != nil {
		t.Fatalf("admin Get: %v", err)
	}
	if _, err := svc.Get(context.Background(), owner, false, repo.byID.ID); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
}

func TestAdminCompleteStampsSubscriptionFromPlan(t *testing.T) {
	planID := uuid.New()
	quota := 10
	repo := &stubPurchaseRepo{byID: &models.Purchase{
		ID:            uuid.New(),
		Type:          enums.PurchaseTypeSubscription,
		Status:        enums.PurchaseStatusPending,
		PricingPlanID: &planID,
	}}
	plan := &models.PricingPlan{
		ID:            planID,
		IsActive:      true,
		DurationCount: 1,
		DurationUnit:  enums.PlanDurationYear,
		MaxDownloads:  &quota,
	}
	svc := newServiceForTests(t, repo, nil, nil, &stubPlanLoader{plan: plan})

	note := "wire transfer confirmed"
	dto, err := svc.AdminComplete(context.Background(), repo.byID.ID, &note)
	if err != nil {
		t.Fatalf("AdminComplete: %v", err)
	}
	if dto.Status != enums.PurchaseStatusCompleted {
		t.Fatalf("expected completed, got %s", dto.Status)
	}
	wantEnd := testNow.AddDate(1, 0, 0)
	if repo.updated.SubscriptionEndsAt == nil || !repo.updated.SubscriptionEndsAt.Equal(wantEnd) {
		t.Fatalf("expected end %v, got %v", wantEnd, repo.updated.SubscriptionEndsAt)
	}
	if repo.updated.RemainingDownloads == nil || *repo.updated.RemainingDownloads != quota {
		t.Fatalf("expected quota %d, got %v", quota, repo.updated.RemainingDownloads)
	}
	if repo.updated.AdminNote == nil || *repo.updated.AdminNote != note {
		t.Fatalf("expected admin note recorded, got %v", repo.updated.AdminNote)
	}
}

func TestAdminCompleteRejectsTerminalStatus(t *testing.T) {
	repo := &stubPurchaseRepo{byID: &models.Purchase{
		ID:     uuid.New(),
		Type:   enums.PurchaseTypeIndividual,
		Status: enums.PurchaseStatusCompleted,
	}}
	svc := newServiceForTests(t, repo, nil, nil, nil)

	_, err := svc.AdminComplete(context.Background(), repo.byID.ID, nil)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestAdminCompleteSubscriptionMissingPlan(t *testing.T) {
	repo := &stubPurchaseRepo{byID: &models.Purchase{
		ID:     uuid.New(),
		Type:   enums.PurchaseTypeSubscription,
		Status: enums.PurchaseStatusPending,
	}}
	svc := newServiceForTests(t, repo, nil, nil, nil)

	_, err := svc.AdminComplete(context.Background(), repo.byID.ID, nil)
	assertCode(t, err, pkgerrors.CodeInternal)
}

func TestAdminCancelPendingPurchase(t *testing.T) {
	repo := &stubPurchaseRepo{byID: &models.Purchase{
		ID:     uuid.New(),
		Type:   enums.PurchaseTypeIndividual,
		Status: enums.PurchaseStatusPending,
	}}
	svc := newServiceForTests(t, repo, nil, nil, nil)

	dto, err := svc.AdminCancel(context.Background(), repo.byID.ID, nil)
	if err != nil {
		t.Fatalf("AdminCancel: %v", err)
	}
	if dto.Status != enums.PurchaseStatusCancelled {
		t.Fatalf("expected cancelled, got %s", dto.Status)
	}
}

func TestAdminCancelRejectsRefunded(t *testing.T) {
	repo := &stubPurchaseRepo{byID: &models.Purchase{
		ID:     uuid.New(),
		Status: enums.PurchaseStatusRefunded,
	}}
	svc := newServiceForTests(t, repo, nil, nil, nil)

	_, err := svc.AdminCancel(context.Background(), repo.byID.ID, nil)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestAdminCompleteMissingPurchase(t *testing.T) {
	repo := &stubPurchaseRepo{findErr: gorm.ErrRecordNotFound}
	svc := newServiceForTests(t, repo, nil, nil, nil)

	_, err := svc.AdminComplete(context.Background(), uuid.New(), nil)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestExpireDueReportsCount(t *testing.T) {
	repo := &stubPurchaseRepo{expiredCount: 3}
	svc := newServiceForTests(t, repo, nil, nil, nil)

	count, err := svc.ExpireDue(context.Background(), testNow)
	if err != nil {
		t.Fatalf("ExpireDue: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 expired, got %d", count)
	}
}

func TestAnalyticsRejectsInvalidPeriod(t *testing.T) {
	svc := newServiceForTests(t, &stubPurchaseRepo{}, nil, nil, nil)

	_, err := svc.Analytics(context.Background(), enums.AnalyticsPeriod("hourly"), testNow)
	assertCode(t, err, pkgerrors.CodeValidation)
}
