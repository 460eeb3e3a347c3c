package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
)

type stubDesignRepo struct {
	created   *models.Design
	createErr error

	updated   *models.Design
	updateErr error

	deletedID uuid.UUID
	deleteErr error

	byID    *models.Design
	findErr error

	slugTaken map[string]bool

	purchaseRefs int64
	refsErr      error

	listRows    []models.Design
	listTotal   int64
	listErr     error
	lastQuery   ListQuery
	listQueried bool
}

func (s *stubDesignRepo) CreateDesign(_ context.Context, design *models.Design) (*models.Design, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if design.ID == uuid.Nil {
		design.ID = uuid.New()
	}
	s.created = design
	return design, nil
}

func (s *stubDesignRepo) UpdateDesign(_ context.Context, design *models.Design) (*models.Design, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updated = design
	return design, nil
}

func (s *stubDesignRepo) DeleteDesign(_ context.Context, id uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedID = id
	return nil
}

func (s *stubDesignRepo) FindDesignByID(_ context.Context, _ uuid.UUID) (*models.Design, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.byID, nil
}

func (s *stubDesignRepo) FindDesignBySlug(_ context.Context, slug string) (*models.Design, error) {
	if s.slugTaken[slug] {
		return &models.Design{Slug: slug}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubDesignRepo) CountPurchaseRefs(_ context.Context, _ uuid.UUID) (int64, error) {
	if s.refsErr != nil {
		return 0, s.refsErr
	}
	return s.purchaseRefs, nil
}

func (s *stubDesignRepo) ListDesigns(_ context.Context, query ListQuery) ([]models.Design, int64, error) {
	s.lastQuery = query
	s.listQueried = true
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return s.listRows, s.listTotal, nil
}

type stubCourseRepo struct {
	created   *models.Course
	createErr error

	updated   *models.Course
	updateErr error

	deletedID uuid.UUID
	deleteErr error

	byID    *models.Course
	findErr error

	slugTaken map[string]bool

	purchaseRefs int64
	refsErr      error

	listRows  []models.Course
	listTotal int64
	listErr   error
}

func (s *stubCourseRepo) CreateCourse(_ context.Context, course *models.Course) (*models.Course, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	s.created = course
	return course, nil
}

func (s *stubCourseRepo) UpdateCourse(_ context.Context, course *models.Course) (*models.Course, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updated = course
	return course, nil
}

func (s *stubCourseRepo) DeleteCourse(_ context.Context, id uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedID = id
	return nil
}

func (s *stubCourseRepo) FindCourseByID(_ context.Context, _ uuid.UUID) (*models.Course, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.byID, nil
}

func (s *stubCourseRepo) FindCourseBySlug(_ context.Context, slug string) (*models.Course, error) {
	if s.slugTaken[slug] {
		return &models.Course{Slug: slug}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCourseRepo) CountPurchaseRefs(_ context.Context, _ uuid.UUID) (int64, error) {
	if s.refsErr != nil {
		return 0, s.refsErr
	}
	return s.purchaseRefs, nil
}

func (s *stubCourseRepo) ListCourses(_ context.Context, _ ListQuery) ([]models.Course, int64, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return s.listRows, s.listTotal, nil
}

func newServiceForTests(t *testing.T, designs *stubDesignRepo, courses *stubCourseRepo) Service {
	t.Helper()
	if designs == nil {
		designs = &stubDesignRepo{findErr: gorm.ErrRecordNotFound}
	}
	if courses == nil {
		courses = &stubCourseRepo{findErr: gorm.ErrRecordNotFound}
	}
	svc, err := NewService(designs, courses)
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

func TestCreateDesignDerivesSlugAndDefaults(t *testing.T) {
	repo := &stubDesignRepo{}
	svc := newServiceForTests(t, repo, nil)

	dto, err := svc.CreateDesign(context.Background(), uuid.New(), CreateDesignInput{
		Title:         "  Brutalist Poster Kit!  ",
		Tags:          []string{" Posters ", "posters", "", "Print"},
		BasePrice:     decimal.NewFromInt(29),
		FileObjectKey: "designs/kit.zip",
		FileExt:       ".ZIP",
	})
	if err != nil {
		t.Fatalf("CreateDesign: %v", err)
	}
	if dto.Slug != "brutalist-poster-kit" {
		t.Fatalf("unexpected slug %q", dto.Slug)
	}
	if dto.Status != enums.CatalogStatusDraft {
		t.Fatalf("expected draft default, got %s", dto.Status)
	}
	if len(repo.created.Tags) != 2 || repo.created.Tags[0] != "posters" || repo.created.Tags[1] != "print" {
		t.Fatalf("expected deduplicated lowercase tags, got %v", repo.created.Tags)
	}
	if repo.created.FileExt != "zip" {
		t.Fatalf("expected normalized extension, got %q", repo.created.FileExt)
	}
}

func TestCreateDesignResolvesSlugCollision(t *testing.T) {
	repo := &stubDesignRepo{slugTaken: map[string]bool{"poster-kit": true, "poster-kit-2": true}}
	svc := newServiceForTests(t, repo, nil)

	dto, err := svc.CreateDesign(context.Background(), uuid.New(), CreateDesignInput{
		Title:         "Poster Kit",
		BasePrice:     decimal.NewFromInt(10),
		FileObjectKey: "designs/kit.zip",
		FileExt:       "zip",
	})
	if err != nil {
		t.Fatalf("CreateDesign: %v", err)
	}
	if dto.Slug != "poster-kit-3" {
		t.Fatalf("expected suffixed slug, got %q", dto.Slug)
	}
}

func TestCreateDesignValidation(t *testing.T) {
	svc := newServiceForTests(t, nil, nil)
	negative := decimal.NewFromInt(-1)
	high := decimal.NewFromInt(30)

	cases := []struct {
		name  string
		input CreateDesignInput
	}{
		{"negative price", CreateDesignInput{Title: "x", BasePrice: negative, FileObjectKey: "k", FileExt: "zip"}},
		{"discount above base", CreateDesignInput{Title: "x", BasePrice: decimal.NewFromInt(20), DiscountedPrice: &high, FileObjectKey: "k", FileExt: "zip"}},
		{"missing object key", CreateDesignInput{Title: "x", BasePrice: decimal.NewFromInt(20), FileObjectKey: "  ", FileExt: "zip"}},
		{"bad status", CreateDesignInput{Title: "x", BasePrice: decimal.NewFromInt(20), Status: enums.CatalogStatus("hidden"), FileObjectKey: "k", FileExt: "zip"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateDesign(context.Background(), uuid.New(), tc.input)
			assertCode(t, err, pkgerrors.CodeValidation)
		})
	}
}

func TestUpdateDesignTitleRegeneratesSlug(t *testing.T) {
	repo := &stubDesignRepo{byID: &models.Design{
		ID:        uuid.New(),
		Title:     "Old Title",
		Slug:      "old-title",
		BasePrice: decimal.NewFromInt(10),
		Status:    enums.CatalogStatusActive,
	}}
	svc := newServiceForTests(t, repo, nil)

	title := "New Title"
	dto, err := svc.UpdateDesign(context.Background(), repo.byID.ID, UpdateDesignInput{Title: &title})
	if err != nil {
		t.Fatalf("UpdateDesign: %v", err)
	}
	if dto.Slug != "new-title" {
		t.Fatalf("expected regenerated slug, got %q", dto.Slug)
	}
}

func TestUpdateDesignClearsDiscount(t *testing.T) {
	discounted := decimal.NewFromInt(5)
	repo := &stubDesignRepo{byID: &models.Design{
		ID:              uuid.New(),
		Title:           "Kit",
		Slug:            "kit",
		BasePrice:       decimal.NewFromInt(10),
		DiscountedPrice: &discounted,
	}}
	svc := newServiceForTests(t, repo, nil)

	dto, err := svc.UpdateDesign(context.Background(), repo.byID.ID, UpdateDesignInput{ClearDiscount: true})
	if err != nil {
		t.Fatalf("UpdateDesign: %v", err)
	}
	if dto.DiscountedPrice != nil {
		t.Fatal("expected discount cleared")
	}
}

func TestDeleteDesignBlockedByPurchases(t *testing.T) {
	repo := &stubDesignRepo{
		byID:         &models.Design{ID: uuid.New()},
		purchaseRefs: 4,
	}
	svc := newServiceForTests(t, repo, nil)

	err := svc.DeleteDesign(context.Background(), repo.byID.ID)
	assertCode(t, err, pkgerrors.CodeConflict)
	if repo.deletedID != uuid.Nil {
		t.Fatal("expected no delete for a sold design")
	}
}

func TestDeleteDesignWithoutPurchases(t *testing.T) {
	repo := &stubDesignRepo{byID: &models.Design{ID: uuid.New()}}
	svc := newServiceForTests(t, repo, nil)

	if err := svc.DeleteDesign(context.Background(), repo.byID.ID); err != nil {
		t.Fatalf("DeleteDesign: %v", err)
	}
	if repo.deletedID != repo.byID.ID {
		t.Fatal("expected design deleted")
	}
}

func TestGetDesignHidesNonActiveFromCustomers(t *testing.T) {
	repo := &stubDesignRepo{byID: &models.Design{ID: uuid.New(), Status: enums.CatalogStatusDraft}}
	svc := newServiceForTests(t, repo, nil)

	_, err := svc.GetDesign(context.Background(), repo.byID.ID, false)
	assertCode(t, err, pkgerrors.CodeNotFound)

	if _, err := svc.GetDesign(context.Background(), repo.byID.ID, true); err != nil {
		t.Fatalf("admin GetDesign: %v", err)
	}
}

func TestListDesignsStripsStatusFilterForCustomers(t *testing.T) {
	repo := &stubDesignRepo{}
	svc := newServiceForTests(t, repo, nil)

	draft := enums.CatalogStatusDraft
	query := ListQuery{Filters: ListFilters{Status: &draft}}
	if _, err := svc.ListDesigns(context.Background(), query, false); err != nil {
		t.Fatalf("ListDesigns: %v", err)
	}
	if repo.lastQuery.Filters.Status != nil {
		t.Fatal("expected status filter dropped for public listing")
	}

	if _, err := svc.ListDesigns(context.Background(), query, true); err != nil {
		t.Fatalf("admin ListDesigns: %v", err)
	}
	if repo.lastQuery.Filters.Status == nil {
		t.Fatal("expected status filter honored for admins")
	}
}

func TestCreateCourseRejectsNegativeCounts(t *testing.T) {
	svc := newServiceForTests(t, nil, &stubCourseRepo{})

	_, err := svc.CreateCourse(context.Background(), uuid.New(), CreateCourseInput{
		Title:      "Typography Basics",
		BasePrice:  decimal.NewFromInt(40),
		VideoCount: -1,
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestDeleteCourseBlockedByPurchases(t *testing.T) {
	courses := &stubCourseRepo{byID: &models.Course{ID: uuid.New()}, purchaseRefs: 1}
	svc := newServiceForTests(t, nil, courses)

	err := svc.DeleteCourse(context.Background(), courses.byID.ID)
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Brutalist Poster Kit", "brutalist-poster-kit"},
		{"  UI/UX  Starter  ", "ui-ux-starter"},
		{"Déjà Vu", "déjà-vu"},
		{"!!!", ""},
		{"Already-Hyphenated Title", "already-hyphenated-title"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.title); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestUniqueSlugEmptyBase(t *testing.T) {
	slug, err := UniqueSlug("", func(string) (bool, error) { return false, nil })
	if err != nil {
		t.Fatalf("UniqueSlug: %v", err)
	}
	if slug != "item" {
		t.Fatalf("expected fallback slug, got %q", slug)
	}
}
