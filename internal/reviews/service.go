package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/pkg/db"
	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

// Service exposes the review lifecycle and rating aggregation.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*ReviewDTO, error)
	Update(ctx context.Context, userID uuid.UUID, reviewID uuid.UUID, input UpdateInput) (*ReviewDTO, error)
	Delete(ctx context.Context, actorID uuid.UUID, isAdmin bool, reviewID uuid.UUID) error
	MarkHelpful(ctx context.Context, reviewID uuid.UUID) (*ReviewDTO, error)
	ListForDesign(ctx context.Context, designID uuid.UUID, sort SortOrder, params pagination.Params) (*ReviewListResult, error)
	ListForCourse(ctx context.Context, courseID uuid.UUID, sort SortOrder, params pagination.Params) (*ReviewListResult, error)
	Overview(ctx context.Context) (*OverviewDTO, error)
}

// CreateInput holds the validated payload to create a review. Exactly one of
// DesignID/CourseID must be set.
type CreateInput struct {
	DesignID *uuid.UUID
	CourseID *uuid.UUID
	Rating   int
	Comment  *string
}

// UpdateInput holds optional mutation values for a review.
type UpdateInput struct {
	Rating  *int
	Comment *string
}

type reviewRepository interface {
	CreateReview(ctx context.Context, review *models.Review) (*models.Review, error)
	UpdateReview(ctx context.Context, review *models.Review) (*models.Review, error)
	DeleteReview(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListForDesign(ctx context.Context, designID uuid.UUID, sort SortOrder, params pagination.Params) ([]models.Review, int64, error)
	ListForCourse(ctx context.Context, courseID uuid.UUID, sort SortOrder, params pagination.Params) ([]models.Review, int64, error)
	IncrementHelpful(ctx context.Context, reviewID uuid.UUID) (int64, error)
	RecomputeDesignRating(ctx context.Context, designID uuid.UUID) error
	RecomputeCourseRating(ctx context.Context, courseID uuid.UUID) error
	CountByRating(ctx context.Context) ([]RatingCount, error)
	Summary(ctx context.Context) (*RatingSummary, error)
}

type purchaseChecker interface {
	FindCompletedIndividual(ctx context.Context, userID uuid.UUID, productType enums.ProductType, productID uuid.UUID) (*models.Purchase, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo      reviewRepository
	purchases purchaseChecker
	txRunner  txRunner
	withTx    func(tx *gorm.DB) reviewRepository
}

// NewService constructs the review service.
func NewService(repo reviewRepository, purchases purchaseChecker, runner txRunner, withTx func(tx *gorm.DB) reviewRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if purchases == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if withTx == nil {
		return nil, fmt.Errorf("withTx factory required")
	}
	return &service{repo: repo, purchases: purchases, txRunner: runner, withTx: withTx}, nil
}

// RepoFactory adapts the concrete repository's transaction binding to the
// shape NewService expects.
func RepoFactory(repo *Repository) func(tx *gorm.DB) reviewRepository {
	return func(tx *gorm.DB) reviewRepository { return repo.WithTx(tx) }
}

// Create inserts a review after verifying the author completed a purchase of
// the item. The item's rating aggregate is recomputed in the same transaction.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*ReviewDTO, error) {
	if err := validateItemRef(input.DesignID, input.CourseID); err != nil {
		return nil, err
	}
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}

	productType := enums.ProductTypeDesign
	productID := input.DesignID
	if input.CourseID != nil {
		productType = enums.ProductTypeCourse
		productID = input.CourseID
	}
	if _, err := s.purchases.FindCompletedIndividual(ctx, userID, productType, *productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "a completed purchase is required to review")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check purchase")
	}

	review := &models.Review{
		UserID:   userID,
		DesignID: input.DesignID,
		CourseID: input.CourseID,
		Rating:   input.Rating,
		Comment:  normalizeComment(input.Comment),
	}

	var created *models.Review
	if err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.withTx(tx)
		row, err := repo.CreateReview(ctx, review)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "item already reviewed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert review")
		}
		created = row
		return recomputeAggregate(ctx, repo, row)
	}); err != nil {
		return nil, err
	}

	dto := NewReviewDTO(created)
	return &dto, nil
}

// Update lets the author change rating or comment; aggregates follow.
func (s *service) Update(ctx context.Context, userID uuid.UUID, reviewID uuid.UUID, input UpdateInput) (*ReviewDTO, error) {
	review, err := s.loadReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}

	if input.Rating != nil {
		if err := validateRating(*input.Rating); err != nil {
			return nil, err
		}
		review.Rating = *input.Rating
	}
	if input.Comment != nil {
		review.Comment = normalizeComment(input.Comment)
	}

	var updated *models.Review
	if err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.withTx(tx)
		row, err := repo.UpdateReview(ctx, review)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update review")
		}
		updated = row
		return recomputeAggregate(ctx, repo, row)
	}); err != nil {
		return nil, err
	}

	dto := NewReviewDTO(updated)
	return &dto, nil
}

// Delete removes a review (author or admin); aggregates follow.
func (s *service) Delete(ctx context.Context, actorID uuid.UUID, isAdmin bool, reviewID uuid.UUID) error {
	review, err := s.loadReview(ctx, reviewID)
	if err != nil {
		return err
	}
	if !isAdmin && review.UserID != actorID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.withTx(tx)
		if err := repo.DeleteReview(ctx, reviewID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete review")
		}
		return recomputeAggregate(ctx, repo, review)
	})
}

// MarkHelpful bumps the helpful counter and returns the fresh row.
func (s *service) MarkHelpful(ctx context.Context, reviewID uuid.UUID) (*ReviewDTO, error) {
	affected, err := s.repo.IncrementHelpful(ctx, reviewID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: bump helpful count")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	review, err := s.loadReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	dto := NewReviewDTO(review)
	return &dto, nil
}

// ListForDesign returns a page of a design's reviews.
func (s *service) ListForDesign(ctx context.Context, designID uuid.UUID, sort SortOrder, params pagination.Params) (*ReviewListResult, error) {
	rows, total, err := s.repo.ListForDesign(ctx, designID, sort, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list reviews")
	}
	return buildListResult(rows, total), nil
}

// ListForCourse returns a page of a course's reviews.
func (s *service) ListForCourse(ctx context.Context, courseID uuid.UUID, sort SortOrder, params pagination.Params) (*ReviewListResult, error) {
	rows, total, err := s.repo.ListForCourse(ctx, courseID, sort, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list reviews")
	}
	return buildListResult(rows, total), nil
}

// Overview returns the admin rollup of review volume and ratings.
func (s *service) Overview(ctx context.Context) (*OverviewDTO, error) {
	summary, err := s.repo.Summary(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: review summary")
	}
	byRating, err := s.repo.CountByRating(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: review rating counts")
	}
	return &OverviewDTO{
		TotalReviews:  summary.Total,
		AverageRating: summary.Average,
		ByRating:      byRating,
	}, nil
}

func (s *service) loadReview(ctx context.Context, reviewID uuid.UUID) (*models.Review, error) {
	review, err := s.repo.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load review")
	}
	return review, nil
}

func recomputeAggregate(ctx context.Context, repo reviewRepository, review *models.Review) error {
	if review.DesignID != nil {
		if err := repo.RecomputeDesignRating(ctx, *review.DesignID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: recompute design rating")
		}
		return nil
	}
	if review.CourseID != nil {
		if err := repo.RecomputeCourseRating(ctx, *review.CourseID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: recompute course rating")
		}
	}
	return nil
}

func buildListResult(rows []models.Review, total int64) *ReviewListResult {
	dtos := make([]ReviewDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, NewReviewDTO(&rows[i]))
	}
	return &ReviewListResult{Reviews: dtos, TotalItems: total}
}

func validateItemRef(designID, courseID *uuid.UUID) error {
	if (designID == nil) == (courseID == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of design_id or course_id is required")
	}
	return nil
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	return nil
}

func normalizeComment(comment *string) *string {
	if comment == nil {
		return nil
	}
	clean := strings.TrimSpace(*comment)
	if clean == "" {
		return nil
	}
	return &clean
}
