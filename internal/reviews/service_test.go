package reviews

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

type stubReviewRepo struct {
	created   *models.Review
	createErr error

	updated   *models.Review
	updateErr error

	deletedID uuid.UUID
	deleteErr error

	byID    *models.Review
	findErr error

	designRows  []models.Review
	courseRows  []models.Review
	listTotal   int64
	listErr     error
	helpfulRows int64
	helpfulErr  error

	designRecomputes int
	courseRecomputes int
	recomputeErr     error

	ratingCounts []RatingCount
	summary      *RatingSummary
	overviewErr  error
}

func (s *stubReviewRepo) CreateReview(_ context.Context, review *models.Review) (*models.Review, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	s.created = review
	return review, nil
}

func (s *stubReviewRepo) UpdateReview(_ context.Context, review *models.Review) (*models.Review, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updated = review
	return review, nil
}

func (s *stubReviewRepo) DeleteReview(_ context.Context, id uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedID = id
	return nil
}

func (s *stubReviewRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.Review, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.byID, nil
}

func (s *stubReviewRepo) ListForDesign(_ context.Context, _ uuid.UUID, _ SortOrder, _ pagination.Params) ([]models.Review, int64, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return s.designRows, s.listTotal, nil
}

func (s *stubReviewRepo) ListForCourse(_ context.Context, _ uuid.UUID, _ SortOrder, _ pagination.Params) ([]models.Review, int64, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return s.courseRows, s.listTotal, nil
}

func (s *stubReviewRepo) IncrementHelpful(_ context.Context, _ uuid.UUID) (int64, error) {
	if s.helpfulErr != nil {
		return 0, s.helpfulErr
	}
	return s.helpfulRows, nil
}

func (s *stubReviewRepo) RecomputeDesignRating(_ context.Context, _ uuid.UUID) error {
	if s.recomputeErr != nil {
		return s.recomputeErr
	}
	s.designRecomputes++
	return nil
}

func (s *stubReviewRepo) RecomputeCourseRating(_ context.Context, _ uuid.UUID) error {
	if s.recomputeErr != nil {
		return s.recomputeErr
	}
	s.courseRecomputes++
	return nil
}

func (s *stubReviewRepo) CountByRating(_ context.Context) ([]RatingCount, error) {
	if s.overviewErr != nil {
		return nil, s.overviewErr
	}
	return s.ratingCounts, nil
}

func (s *stubReviewRepo) Summary(_ context.Context) (*RatingSummary, error) {
	if s.overviewErr != nil {
		return nil, s.overviewErr
	}
	return s.summary, nil
}

type stubPurchaseChecker struct {
	purchase *models.Purchase
	err      error

	lastProductType enums.ProductType
}

func (s *stubPurchaseChecker) FindCompletedIndividual(_ context.Context, _ uuid.UUID, productType enums.ProductType, _ uuid.UUID) (*models.Purchase, error) {
	s.lastProductType = productType
	if s.err != nil {
		return nil, s.err
	}
	return s.purchase, nil
}

type stubTxRunner struct{}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newServiceForTests(t *testing.T, repo *stubReviewRepo, purchases *stubPurchaseChecker) Service {
	t.Helper()
	if repo == nil {
		repo = &stubReviewRepo{}
	}
	if purchases == nil {
		purchases = &stubPurchaseChecker{err: gorm.ErrRecordNotFound}
	}
	svc, err := NewService(repo, purchases, &stubTxRunner{}, func(tx *gorm.DB) reviewRepository { return repo })
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

func TestCreateRequiresCompletedPurchase(t *testing.T) {
	svc := newServiceForTests(t, nil, &stubPurchaseChecker{err: gorm.ErrRecordNotFound})
	designID := uuid.New()

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{DesignID: &designID, Rating: 5})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestCreateRecomputesDesignAggregate(t *testing.T) {
	repo := &stubReviewRepo{}
	purchases := &stubPurchaseChecker{purchase: &models.Purchase{ID: uuid.New()}}
	svc := newServiceForTests(t, repo, purchases)
	designID := uuid.New()
	comment := "  clean lines, great grids  "

	dto, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		DesignID: &designID,
		Rating:   4,
		Comment:  &comment,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dto.Rating != 4 {
		t.Fatalf("expected rating 4, got %d", dto.Rating)
	}
	if repo.created.Comment == nil || *repo.created.Comment != "clean lines, great grids" {
		t.Fatalf("expected trimmed comment, got %v", repo.created.Comment)
	}
	if repo.designRecomputes != 1 {
		t.Fatalf("expected one design recompute, got %d", repo.designRecomputes)
	}
	if purchases.lastProductType != enums.ProductTypeDesign {
		t.Fatalf("expected design purchase check, got %s", purchases.lastProductType)
	}
}

func TestCreateChecksCoursePurchases(t *testing.T) {
	repo := &stubReviewRepo{}
	purchases := &stubPurchaseChecker{purchase: &models.Purchase{ID: uuid.New()}}
	svc := newServiceForTests(t, repo, purchases)
	courseID := uuid.New()

	if _, err := svc.Create(context.Background(), uuid.New(), CreateInput{CourseID: &courseID, Rating: 5}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if purchases.lastProductType != enums.ProductTypeCourse {
		t.Fatalf("expected course purchase check, got %s", purchases.lastProductType)
	}
	if repo.courseRecomputes != 1 {
		t.Fatalf("expected one course recompute, got %d", repo.courseRecomputes)
	}
}

func TestCreateValidatesItemRef(t *testing.T) {
	svc := newServiceForTests(t, nil, nil)
	designID := uuid.New()
	courseID := uuid.New()

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{Rating: 5})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.Create(context.Background(), uuid.New(), CreateInput{DesignID: &designID, CourseID: &courseID, Rating: 5})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateValidatesRatingBounds(t *testing.T) {
	svc := newServiceForTests(t, nil, nil)
	designID := uuid.New()

	for _, rating := range []int{0, -1, 6} {
		_, err := svc.Create(context.Background(), uuid.New(), CreateInput{DesignID: &designID, Rating: rating})
		assertCode(t, err, pkgerrors.CodeValidation)
	}
}

func TestCreateRejectsDuplicateReview(t *testing.T) {
	repo := &stubReviewRepo{createErr: &pq.Error{Code: "23505"}}
	purchases := &stubPurchaseChecker{purchase: &models.Purchase{ID: uuid.New()}}
	svc := newServiceForTests(t, repo, purchases)
	designID := uuid.New()

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{DesignID: &designID, Rating: 3})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestUpdateOnlyByAuthor(t *testing.T) {
	author := uuid.New()
	designID := uuid.New()
	repo := &stubReviewRepo{byID: &models.Review{ID: uuid.New(), UserID: author, DesignID: &designID, Rating: 3}}
	svc := newServiceForTests(t, repo, nil)

	rating := 5
	_, err := svc.Update(context.Background(), uuid.New(), repo.byID.ID, UpdateInput{Rating: &rating})
	assertCode(t, err, pkgerrors.CodeNotFound)

	dto, err := svc.Update(context.Background(), author, repo.byID.ID, UpdateInput{Rating: &rating})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if dto.Rating != 5 {
		t.Fatalf("expected rating 5, got %d", dto.Rating)
	}
	if repo.designRecomputes != 1 {
		t.Fatalf("expected one recompute after update, got %d", repo.designRecomputes)
	}
}

func TestDeleteByAdmin(t *testing.T) {
	designID := uuid.New()
	repo := &stubReviewRepo{byID: &models.Review{ID: uuid.New(), UserID: uuid.New(), DesignID: &designID}}
	svc := newServiceForTests(t, repo, nil)

	err := svc.Delete(context.Background(), uuid.New(), false, repo.byID.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)

	if err := svc.Delete(context.Background(), uuid.New(), true, repo.byID.ID); err != nil {
		t.Fatalf("admin Delete: %v", err)
	}
	if repo.deletedID != repo.byID.ID {
		t.Fatal("expected review deleted")
	}
	if repo.designRecomputes != 1 {
		t.Fatalf("expected recompute after delete, got %d", repo.designRecomputes)
	}
}

func TestMarkHelpfulMissingReview(t *testing.T) {
	repo := &stubReviewRepo{helpfulRows: 0}
	svc := newServiceForTests(t, repo, nil)

	_, err := svc.MarkHelpful(context.Background(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestMarkHelpfulReturnsFreshRow(t *testing.T) {
	designID := uuid.New()
	repo := &stubReviewRepo{
		helpfulRows: 1,
		byID:        &models.Review{ID: uuid.New(), DesignID: &designID, HelpfulCount: 8},
	}
	svc := newServiceForTests(t, repo, nil)

	dto, err := svc.MarkHelpful(context.Background(), repo.byID.ID)
	if err != nil {
		t.Fatalf("MarkHelpful: %v", err)
	}
	if dto.HelpfulCount != 8 {
		t.Fatalf("expected helpful count 8, got %d", dto.HelpfulCount)
	}
}

func TestOverviewCombinesSummaryAndCounts(t *testing.T) {
	repo := &stubReviewRepo{
		summary:      &RatingSummary{Total: 120, Average: "4.3"},
		ratingCounts: []RatingCount{{Rating: 5, Count: 80}, {Rating: 4, Count: 25}},
	}
	svc := newServiceForTests(t, repo, nil)

	dto, err := svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if dto.TotalReviews != 120 || dto.AverageRating != "4.3" {
		t.Fatalf("unexpected overview %+v", dto)
	}
	if len(dto.ByRating) != 2 {
		t.Fatalf("expected 2 rating buckets, got %d", len(dto.ByRating))
	}
}

func TestParseSortOrderDefaultsToRecent(t *testing.T) {
	cases := map[string]SortOrder{
		"":            SortRecent,
		"recent":      SortRecent,
		"helpful":     SortHelpful,
		"rating_desc": SortRatingDesc,
		"rating_asc":  SortRatingAsc,
		"bogus":       SortRecent,
	}
	for raw, want := range cases {
		if got := ParseSortOrder(raw); got != want {
			t.Fatalf("ParseSortOrder(%q) = %q, want %q", raw, got, want)
		}
	}
}
