package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

// CourseRepository provides persistence for course listings.
type CourseRepository struct {
	db *gorm.DB
}

// NewCourseRepository builds a repository tied to the provided GORM DB.
func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{db: tx}
}

// CreateCourse inserts a new course row.
func (r *CourseRepository) CreateCourse(ctx context.Context, course *models.Course) (*models.Course, error) {
	if err := r.db.WithContext(ctx).Create(course).Error; err != nil {
		return nil, err
	}
	return course, nil
}

// UpdateCourse saves all columns of an existing course row.
func (r *CourseRepository) UpdateCourse(ctx context.Context, course *models.Course) (*models.Course, error) {
	if err := r.db.WithContext(ctx).Save(course).Error; err != nil {
		return nil, err
	}
	return course, nil
}

// DeleteCourse removes a course by ID.
func (r *CourseRepository) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Course{}).Error
}

// FindCourseByID loads a course by primary key.
func (r *CourseRepository) FindCourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// FindCourseBySlug loads a course by its unique slug.
func (r *CourseRepository) FindCourseBySlug(ctx context.Context, slug string) (*models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

// CountPurchaseRefs counts purchase rows referencing the course.
func (r *CourseRepository) CountPurchaseRefs(ctx context.Context, courseID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("course_id = ?", courseID).
		Count(&count).
		Error
	return count, err
}

// ListCourses returns one page of courses matching the query plus the total count.
func (r *CourseRepository) ListCourses(ctx context.Context, query ListQuery) ([]models.Course, int64, error) {
	qb := r.db.WithContext(ctx).Model(&models.Course{})
	qb = applyCourseFilters(qb, query.Filters)

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Course
	err := qb.
		Order(courseOrderClause(query.Sort)).
		Offset(query.Pagination.Offset()).
		Limit(pagination.NormalizeLimit(query.Pagination.Limit)).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func applyCourseFilters(qb *gorm.DB, filters ListFilters) *gorm.DB {
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	} else {
		qb = qb.Where("status = ?", enums.CatalogStatusActive)
	}
	if filters.Level != nil {
		qb = qb.Where("level = ?", *filters.Level)
	}
	if filters.PriceMin != nil {
		qb = qb.Where("COALESCE(discounted_price, base_price) >= ?", *filters.PriceMin)
	}
	if filters.PriceMax != nil {
		qb = qb.Where("COALESCE(discounted_price, base_price) <= ?", *filters.PriceMax)
	}
	if search := strings.TrimSpace(filters.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)", pattern, pattern)
	}
	return qb
}

func courseOrderClause(sort SortOrder) string {
	switch sort {
	case SortPriceAsc:
		return "COALESCE(discounted_price, base_price) ASC, id ASC"
	case SortPriceDesc:
		return "COALESCE(discounted_price, base_price) DESC, id ASC"
	case SortRating:
		return "average_rating DESC, total_reviews DESC, id ASC"
	default:
		return "created_at DESC, id DESC"
	}
}
