package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

// SortOrder selects the list ordering for catalog queries.
type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortRating    SortOrder = "rating"
	SortPopular   SortOrder = "popular"
)

// ListFilters narrows catalog list queries. Status is only honored for admin
// callers; public lists always see active items.
type ListFilters struct {
	Status   *enums.CatalogStatus
	Category *string
	Level    *string
	Tags     []string
	PriceMin *decimal.Decimal
	PriceMax *decimal.Decimal
	Query    string
}

// ListQuery bundles filters, sort, and pagination for a catalog page.
type ListQuery struct {
	Filters    ListFilters
	Sort       SortOrder
	Pagination pagination.Params
}

// DesignDTO is the public representation of a design listing.
type DesignDTO struct {
	ID              uuid.UUID           `json:"id"`
	Title           string              `json:"title"`
	Slug            string              `json:"slug"`
	Description     *string             `json:"description,omitempty"`
	Category        *string             `json:"category,omitempty"`
	Tags            []string            `json:"tags"`
	BasePrice       decimal.Decimal     `json:"base_price"`
	DiscountedPrice *decimal.Decimal    `json:"discounted_price,omitempty"`
	Status          enums.CatalogStatus `json:"status"`
	FileExt         string              `json:"file_ext"`
	DownloadsCount  int                 `json:"downloads_count"`
	AverageRating   float64             `json:"average_rating"`
	TotalReviews    int                 `json:"total_reviews"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// CourseDTO is the public representation of a course listing.
type CourseDTO struct {
	ID              uuid.UUID           `json:"id"`
	Title           string              `json:"title"`
	Slug            string              `json:"slug"`
	Description     *string             `json:"description,omitempty"`
	Level           *string             `json:"level,omitempty"`
	VideoCount      int                 `json:"video_count"`
	DurationMinutes int                 `json:"duration_minutes"`
	BasePrice       decimal.Decimal     `json:"base_price"`
	DiscountedPrice *decimal.Decimal    `json:"discounted_price,omitempty"`
	Status          enums.CatalogStatus `json:"status"`
	AverageRating   float64             `json:"average_rating"`
	TotalReviews    int                 `json:"total_reviews"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// DesignListResult is one page of designs plus pagination metadata inputs.
type DesignListResult struct {
	Designs    []DesignDTO
	TotalItems int64
}

// CourseListResult is one page of courses plus pagination metadata inputs.
type CourseListResult struct {
	Courses    []CourseDTO
	TotalItems int64
}

// NewDesignDTO maps a design row into its public shape.
func NewDesignDTO(design *models.Design) DesignDTO {
	tags := make([]string, len(design.Tags))
	copy(tags, design.Tags)
	return DesignDTO{
		ID:              design.ID,
		Title:           design.Title,
		Slug:            design.Slug,
		Description:     design.Description,
		Category:        design.Category,
		Tags:            tags,
		BasePrice:       design.BasePrice,
		DiscountedPrice: design.DiscountedPrice,
		Status:          design.Status,
		FileExt:         design.FileExt,
		DownloadsCount:  design.DownloadsCount,
		AverageRating:   design.AverageRating,
		TotalReviews:    design.TotalReviews,
		CreatedAt:       design.CreatedAt,
		UpdatedAt:       design.UpdatedAt,
	}
}

// NewCourseDTO maps a course row into its public shape.
func NewCourseDTO(course *models.Course) CourseDTO {
	return CourseDTO{
		ID:              course.ID,
		Title:           course.Title,
		Slug:            course.Slug,
		Description:     course.Description,
		Level:           course.Level,
		VideoCount:      course.VideoCount,
		DurationMinutes: course.DurationMinutes,
		BasePrice:       course.BasePrice,
		DiscountedPrice: course.DiscountedPrice,
		Status:          course.Status,
		AverageRating:   course.AverageRating,
		TotalReviews:    course.TotalReviews,
		CreatedAt:       course.CreatedAt,
		UpdatedAt:       course.UpdatedAt,
	}
}

// ParseSortOrder normalizes a raw sort value, defaulting to newest.
func ParseSortOrder(value string) SortOrder {
	switch SortOrder(value) {
	case SortPriceAsc, SortPriceDesc, SortRating, SortPopular:
		return SortOrder(value)
	default:
		return SortNewest
	}
}
