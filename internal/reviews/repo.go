package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

// Repository provides persistence for reviews and the denormalized rating
// aggregates carried on catalog rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateReview inserts a new review row.
func (r *Repository) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

// UpdateReview saves all columns of an existing review row.
func (r *Repository) UpdateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	if err := r.db.WithContext(ctx).Save(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

// DeleteReview removes a review by ID.
func (r *Repository) DeleteReview(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Review{}).Error
}

// FindByID loads a review by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// ListForDesign returns one page of a design's reviews plus the total count.
func (r *Repository) ListForDesign(ctx context.Context, designID uuid.UUID, sort SortOrder, params pagination.Params) ([]models.Review, int64, error) {
	return r.listForItem(ctx, "design_id", designID, sort, params)
}

// ListForCourse returns one page of a course's reviews plus the total count.
func (r *Repository) ListForCourse(ctx context.Context, courseID uuid.UUID, sort SortOrder, params pagination.Params) ([]models.Review, int64, error) {
	return r.listForItem(ctx, "course_id", courseID, sort, params)
}

func (r *Repository) listForItem(ctx context.Context, column string, itemID uuid.UUID, sort SortOrder, params pagination.Params) ([]models.Review, int64, error) {
	qb := r.db.WithContext(ctx).Model(&models.Review{}).Where(column+" = ?", itemID)

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Review
	err := qb.
		Order(orderClause(sort)).
		Offset(params.Offset()).
		Limit(pagination.NormalizeLimit(params.Limit)).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// IncrementHelpful bumps the helpful counter, returning rows affected.
func (r *Repository) IncrementHelpful(ctx context.Context, reviewID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ?", reviewID).
		UpdateColumn("helpful_count", gorm.Expr("helpful_count + 1"))
	return result.RowsAffected, result.Error
}

// RecomputeDesignRating rewrites the design's aggregate from its live reviews.
func (r *Repository) RecomputeDesignRating(ctx context.Context, designID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
UPDATE designs SET
  average_rating = COALESCE((SELECT ROUND(AVG(rating)::numeric, 1) FROM reviews WHERE design_id = ?), 0),
  total_reviews = (SELECT COUNT(*) FROM reviews WHERE design_id = ?)
WHERE id = ?`, designID, designID, designID).Error
}

// RecomputeCourseRating rewrites the course's aggregate from its live reviews.
func (r *Repository) RecomputeCourseRating(ctx context.Context, courseID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
UPDATE courses SET
  average_rating = COALESCE((SELECT ROUND(AVG(rating)::numeric, 1) FROM reviews WHERE course_id = ?), 0),
  total_reviews = (SELECT COUNT(*) FROM reviews WHERE course_id = ?)
WHERE id = ?`, courseID, courseID, courseID).Error
}

// RatingCount is one aggregate row of the review overview query.
type RatingCount struct {
	Rating int   `json:"rating"`
	Count  int64 `json:"count"`
}

// CountByRating groups all reviews by their star rating.
func (r *Repository) CountByRating(ctx context.Context) ([]RatingCount, error) {
	var rows []RatingCount
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("rating, COUNT(*) AS count").
		Group("rating").
		Order("rating ASC").
		Scan(&rows).
		Error
	return rows, err
}

// RatingSummary holds the site-wide review totals.
type RatingSummary struct {
	Total   int64  `json:"total"`
	Average string `json:"average"`
}

// Summary returns the overall review count and average rating.
func (r *Repository) Summary(ctx context.Context) (*RatingSummary, error) {
	var row RatingSummary
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COUNT(*) AS total, COALESCE(ROUND(AVG(rating)::numeric, 2), 0)::text AS average").
		Scan(&row).
		Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func orderClause(sort SortOrder) string {
	switch sort {
	case SortHelpful:
		return "helpful_count DESC, created_at DESC, id DESC"
	case SortRatingDesc:
		return "rating DESC, created_at DESC, id DESC"
	case SortRatingAsc:
		return "rating ASC, created_at DESC, id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}
