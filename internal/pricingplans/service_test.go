package pricingplans

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

type stubPlanRepo struct {
	created   *models.PricingPlan
	createErr error

	updated   *models.PricingPlan
	updateErr error

	byID    *models.PricingPlan
	findErr error

	listRows  []models.PricingPlan
	listTotal int64
	listErr   error

	lastActiveOnly bool

	usage    []PlanUsageRow
	usageErr error
}

func (s *stubPlanRepo) CreatePlan(_ context.Context, plan *models.PricingPlan) (*models.PricingPlan, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	s.created = plan
	return plan, nil
}

func (s *stubPlanRepo) UpdatePlan(_ context.Context, plan *models.PricingPlan) (*models.PricingPlan, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updated = plan
	return plan, nil
}

func (s *stubPlanRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.PricingPlan, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.byID, nil
}

func (s *stubPlanRepo) ListPlans(_ context.Context, _ pagination.Params, activeOnly bool) ([]models.PricingPlan, int64, error) {
	s.lastActiveOnly = activeOnly
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return s.listRows, s.listTotal, nil
}

func (s *stubPlanRepo) PlanUsage(_ context.Context) ([]PlanUsageRow, error) {
	if s.usageErr != nil {
		return nil, s.usageErr
	}
	return s.usage, nil
}

func newServiceForTests(t *testing.T, repo *stubPlanRepo) Service {
	t.Helper()
	if repo == nil {
		repo = &stubPlanRepo{}
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
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

func TestCreatePlanComputesFinalPrice(t *testing.T) {
	repo := &stubPlanRepo{}
	svc := newServiceForTests(t, repo)

	dto, err := svc.CreatePlan(context.Background(), CreatePlanInput{
		Name:               "  Pro Annual  ",
		Price:              decimal.NewFromInt(100),
		DiscountPercentage: decimal.NewFromInt(25),
		DurationCount:      1,
		DurationUnit:       enums.PlanDurationYear,
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if dto.Name != "pro annual" {
		t.Fatalf("expected normalized name, got %q", dto.Name)
	}
	if !dto.FinalPrice.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("expected final price 75, got %s", dto.FinalPrice)
	}
	if !repo.created.IsActive {
		t.Fatal("expected new plan active")
	}
}

func TestCreatePlanParsesLegacyDuration(t *testing.T) {
	repo := &stubPlanRepo{}
	svc := newServiceForTests(t, repo)

	legacy := "6 Months"
	_, err := svc.CreatePlan(context.Background(), CreatePlanInput{
		Name:           "starter",
		Price:          decimal.NewFromInt(10),
		LegacyDuration: &legacy,
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if repo.created.DurationCount != 6 || repo.created.DurationUnit != enums.PlanDurationMonth {
		t.Fatalf("expected 6 months parsed, got %d %s", repo.created.DurationCount, repo.created.DurationUnit)
	}
	if repo.created.LegacyDuration == nil || *repo.created.LegacyDuration != legacy {
		t.Fatal("expected legacy text preserved verbatim")
	}
}

func TestCreatePlanValidation(t *testing.T) {
	svc := newServiceForTests(t, nil)

	cases := []struct {
		name  string
		input CreatePlanInput
	}{
		{"empty name", CreatePlanInput{Price: decimal.NewFromInt(10), DurationCount: 1, DurationUnit: enums.PlanDurationMonth}},
		{"negative price", CreatePlanInput{Name: "x", Price: decimal.NewFromInt(-1), DurationCount: 1, DurationUnit: enums.PlanDurationMonth}},
		{"discount over 100", CreatePlanInput{Name: "x", Price: decimal.NewFromInt(10), DiscountPercentage: decimal.NewFromInt(101), DurationCount: 1, DurationUnit: enums.PlanDurationMonth}},
		{"zero duration", CreatePlanInput{Name: "x", Price: decimal.NewFromInt(10), DurationUnit: enums.PlanDurationMonth}},
		{"bad unit", CreatePlanInput{Name: "x", Price: decimal.NewFromInt(10), DurationCount: 1, DurationUnit: enums.PlanDurationUnit("week")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreatePlan(context.Background(), tc.input)
			assertCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestCreatePlanDuplicateName(t *testing.T) {
	repo := &stubPlanRepo{createErr: &pq.Error{Code: "23505"}}
	svc := newServiceForTests(t, repo)

	_, err := svc.CreatePlan(context.Background(), CreatePlanInput{
		Name:          "pro",
		Price:         decimal.NewFromInt(10),
		DurationCount: 1,
		DurationUnit:  enums.PlanDurationMonth,
	})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestUpdatePlanRecomputesFinalPrice(t *testing.T) {
	repo := &stubPlanRepo{byID: &models.PricingPlan{
		ID:            uuid.New(),
		Name:          "pro",
		Price:         decimal.NewFromInt(100),
		DurationCount: 1,
		DurationUnit:  enums.PlanDurationMonth,
		IsActive:      true,
	}}
	svc := newServiceForTests(t, repo)

	discount := decimal.NewFromInt(50)
	dto, err := svc.UpdatePlan(context.Background(), repo.byID.ID, UpdatePlanInput{DiscountPercentage: &discount})
	if err != nil {
		t.Fatalf("UpdatePlan: %v", err)
	}
	if !dto.FinalPrice.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected final price 50, got %s", dto.FinalPrice)
	}
}

func TestUpdatePlanClearsQuota(t *testing.T) {
	quota := 10
	repo := &stubPlanRepo{byID: &models.PricingPlan{
		ID:            uuid.New(),
		Name:          "pro",
		Price:         decimal.NewFromInt(10),
		DurationCount: 1,
		DurationUnit:  enums.PlanDurationMonth,
		MaxDownloads:  &quota,
		IsActive:      true,
	}}
	svc := newServiceForTests(t, repo)

	dto, err := svc.UpdatePlan(context.Background(), repo.byID.ID, UpdatePlanInput{ClearMaxDownloads: true})
	if err != nil {
		t.Fatalf("UpdatePlan: %v", err)
	}
	if dto.MaxDownloads != nil {
		t.Fatal("expected unlimited downloads after clear")
	}
}

func TestDeactivatePlanIsIdempotent(t *testing.T) {
	repo := &stubPlanRepo{byID: &models.PricingPlan{ID: uuid.New(), Name: "pro", IsActive: false}}
	svc := newServiceForTests(t, repo)

	dto, err := svc.DeactivatePlan(context.Background(), repo.byID.ID)
	if err != nil {
		t.Fatalf("DeactivatePlan: %v", err)
	}
	if dto.IsActive {
		t.Fatal("expected inactive plan")
	}
	if repo.updated != nil {
		t.Fatal("expected no write for an already-inactive plan")
	}
}

func TestGetPlanHidesInactiveFromCustomers(t *testing.T) {
	repo := &stubPlanRepo{byID: &models.PricingPlan{ID: uuid.New(), Name: "legacy", IsActive: false}}
	svc := newServiceForTests(t, repo)

	_, err := svc.GetPlan(context.Background(), repo.byID.ID, false)
	assertCode(t, err, pkgerrors.CodeNotFound)

	if _, err := svc.GetPlan(context.Background(), repo.byID.ID, true); err != nil {
		t.Fatalf("admin GetPlan: %v", err)
	}
}

func TestGetPlanMissing(t *testing.T) {
	repo := &stubPlanRepo{findErr: gorm.ErrRecordNotFound}
	svc := newServiceForTests(t, repo)

	_, err := svc.GetPlan(context.Background(), uuid.New(), true)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestListPlansScopesToActiveForCustomers(t *testing.T) {
	repo := &stubPlanRepo{}
	svc := newServiceForTests(t, repo)

	if _, err := svc.ListPlans(context.Background(), pagination.Params{Page: 1, Limit: 20}, false); err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
	if !repo.lastActiveOnly {
		t.Fatal("expected active-only listing for customers")
	}

	if _, err := svc.ListPlans(context.Background(), pagination.Params{Page: 1, Limit: 20}, true); err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
	if repo.lastActiveOnly {
		t.Fatal("expected full listing for admins")
	}
}

func TestPlanPurchasable(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		plan *models.PricingPlan
		want bool
	}{
		{"nil plan", nil, false},
		{"inactive", &models.PricingPlan{IsActive: false}, false},
		{"expired", &models.PricingPlan{IsActive: true, ExpiresAt: &past}, false},
		{"active no expiry", &models.PricingPlan{IsActive: true}, true},
		{"active future expiry", &models.PricingPlan{IsActive: true, ExpiresAt: &future}, true},
	}
	for _, tc := range cases {
		if got := PlanPurchasable(tc.plan, now); got != tc.want {
			t.Fatalf("%s: PlanPurchasable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestParseLegacyDuration(t *testing.T) {
	cases := []struct {
		raw       string
		wantCount int
		wantUnit  enums.PlanDurationUnit
	}{
		{"1 month", 1, enums.PlanDurationMonth},
		{"6 months", 6, enums.PlanDurationMonth},
		{"12months", 12, enums.PlanDurationMonth},
		{"1 Year", 1, enums.PlanDurationYear},
		{"2 years", 2, enums.PlanDurationYear},
		{"annual", 1, enums.PlanDurationMonth},
		{"", 1, enums.PlanDurationMonth},
	}
	for _, tc := range cases {
		got := ParseLegacyDuration(tc.raw)
		if got.Count != tc.wantCount || got.Unit != tc.wantUnit {
			t.Fatalf("ParseLegacyDuration(%q) = %d %s, want %d %s", tc.raw, got.Count, got.Unit, tc.wantCount, tc.wantUnit)
		}
	}
}
