package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
)

// SortOrder selects the list ordering for review queries.
type SortOrder string

const (
	SortRecent     SortOrder = "recent"
	SortHelpful    SortOrder = "helpful"
	SortRatingDesc SortOrder = "rating_desc"
	SortRatingAsc  SortOrder = "rating_asc"
)

// ParseSortOrder normalizes a raw sort value, defaulting to recent.
func ParseSortOrder(value string) SortOrder {
	switch SortOrder(value) {
	case SortHelpful, SortRatingDesc, SortRatingAsc:
		return SortOrder(value)
	default:
		return SortRecent
	}
}

// ReviewDTO is the public representation of a review.
type ReviewDTO struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	DesignID     *uuid.UUID `json:"design_id,omitempty"`
	CourseID     *uuid.UUID `json:"course_id,omitempty"`
	Rating       int        `json:"rating"`
	Comment      *string    `json:"comment,omitempty"`
	HelpfulCount int        `json:"helpful_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ReviewListResult is one page of reviews plus pagination metadata inputs.
type ReviewListResult struct {
	Reviews    []ReviewDTO
	TotalItems int64
}

// OverviewDTO is the admin rollup of review activity.
type OverviewDTO struct {
	TotalReviews  int64         `json:"total_reviews"`
	AverageRating string        `json:"average_rating"`
	ByRating      []RatingCount `json:"by_rating"`
}

// NewReviewDTO maps a review row into its public shape.
func NewReviewDTO(review *models.Review) ReviewDTO {
	return ReviewDTO{
		ID:           review.ID,
		UserID:       review.UserID,
		DesignID:     review.DesignID,
		CourseID:     review.CourseID,
		Rating:       review.Rating,
		Comment:      review.Comment,
		HelpfulCount: review.HelpfulCount,
		CreatedAt:    review.CreatedAt,
		UpdatedAt:    review.UpdatedAt,
	}
}
