package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
)

// Service exposes catalog management and browsing for designs and courses.
type Service interface {
	CreateDesign(ctx context.Context, actorID uuid.UUID, input CreateDesignInput) (*DesignDTO, error)
	UpdateDesign(ctx context.Context, designID uuid.UUID, input UpdateDesignInput) (*DesignDTO, error)
	DeleteDesign(ctx context.Context, designID uuid.UUID) error
	GetDesign(ctx context.Context, designID uuid.UUID, includeHidden bool) (*DesignDTO, error)
	ListDesigns(ctx context.Context, query ListQuery, includeHidden bool) (*DesignListResult, error)

	CreateCourse(ctx context.Context, actorID uuid.UUID, input CreateCourseInput) (*CourseDTO, error)
	UpdateCourse(ctx context.Context, courseID uuid.UUID, input UpdateCourseInput) (*CourseDTO, error)
	DeleteCourse(ctx context.Context, courseID uuid.UUID) error
	GetCourse(ctx context.Context, courseID uuid.UUID, includeHidden bool) (*CourseDTO, error)
	ListCourses(ctx context.Context, query ListQuery, includeHidden bool) (*CourseListResult, error)
}

// CreateDesignInput holds the validated payload to create a design.
type CreateDesignInput struct {
	Title           string
	Description     *string
	Category        *string
	Tags            []string
	BasePrice       decimal.Decimal
	DiscountedPrice *decimal.Decimal
	Status          enums.CatalogStatus
	FileObjectKey   string
	FileExt         string
}

// UpdateDesignInput holds optional mutation values for a design.
type UpdateDesignInput struct {
	Title           *string
	Description     *string
	Category        *string
	Tags            *[]string
	BasePrice       *decimal.Decimal
	DiscountedPrice *decimal.Decimal
	ClearDiscount   bool
	Status          *enums.CatalogStatus
	FileObjectKey   *string
	FileExt         *string
}

// CreateCourseInput holds the validated payload to create a course.
type CreateCourseInput struct {
	Title           string
	Description     *string
	Level           *string
	VideoCount      int
	DurationMinutes int
	BasePrice       decimal.Decimal
	DiscountedPrice *decimal.Decimal
	Status          enums.CatalogStatus
}

// UpdateCourseInput holds optional mutation values for a course.
type UpdateCourseInput struct {
	Title           *string
	Description     *string
	Level           *string
	VideoCount      *int
	DurationMinutes *int
	BasePrice       *decimal.Decimal
	DiscountedPrice *decimal.Decimal
	ClearDiscount   bool
	Status          *enums.CatalogStatus
}

type designRepository interface {
	CreateDesign(ctx context.Context, design *models.Design) (*models.Design, error)
	UpdateDesign(ctx context.Context, design *models.Design) (*models.Design, error)
	DeleteDesign(ctx context.Context, id uuid.UUID) error
	FindDesignByID(ctx context.Context, id uuid.UUID) (*models.Design, error)
	FindDesignBySlug(ctx context.Context, slug string) (*models.Design, error)
	CountPurchaseRefs(ctx context.Context, designID uuid.UUID) (int64, error)
	ListDesigns(ctx context.Context, query ListQuery) ([]models.Design, int64, error)
}

type courseRepository interface {
	CreateCourse(ctx context.Context, course *models.Course) (*models.Course, error)
	UpdateCourse(ctx context.Context, course *models.Course) (*models.Course, error)
	DeleteCourse(ctx context.Context, id uuid.UUID) error
	FindCourseByID(ctx context.Context, id uuid.UUID) (*models.Course, error)
	FindCourseBySlug(ctx context.Context, slug string) (*models.Course, error)
	CountPurchaseRefs(ctx context.Context, courseID uuid.UUID) (int64, error)
	ListCourses(ctx context.Context, query ListQuery) ([]models.Course, int64, error)
}

type service struct {
	designs designRepository
	courses courseRepository
}

// NewService constructs the catalog service.
func NewService(designs designRepository, courses courseRepository) (Service, error) {
	if designs == nil {
		return nil, fmt.Errorf("design repository required")
	}
	if courses == nil {
		return nil, fmt.Errorf("course repository required")
	}
	return &service{designs: designs, courses: courses}, nil
}

// CreateDesign inserts a new design with a slug derived from the title.
func (s *service) CreateDesign(ctx context.Context, actorID uuid.UUID, input CreateDesignInput) (*DesignDTO, error) {
	if err := validatePricing(input.BasePrice, input.DiscountedPrice); err != nil {
		return nil, err
	}
	status := input.Status
	if status == "" {
		status = enums.CatalogStatusDraft
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid catalog status")
	}

	slug, err := s.uniqueDesignSlug(ctx, input.Title)
	if err != nil {
		return nil, err
	}

	design := &models.Design{
		Title:           strings.TrimSpace(input.Title),
		Slug:            slug,
		Description:     input.Description,
		Category:        input.Category,
		Tags:            normalizeTags(input.Tags),
		BasePrice:       input.BasePrice,
		DiscountedPrice: input.DiscountedPrice,
		Status:          status,
		FileObjectKey:   strings.TrimSpace(input.FileObjectKey),
		FileExt:         normalizeExt(input.FileExt),
		CreatedBy:       &actorID,
	}
	if design.FileObjectKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_object_key is required")
	}

	created, err := s.designs.CreateDesign(ctx, design)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert design")
	}
	dto := NewDesignDTO(created)
	return &dto, nil
}

// UpdateDesign applies partial updates to an existing design.
func (s *service) UpdateDesign(ctx context.Context, designID uuid.UUID, input UpdateDesignInput) (*DesignDTO, error) {
	design, err := s.designs.FindDesignByID(ctx, designID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "design not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load design")
	}

	if input.Title != nil && strings.TrimSpace(*input.Title) != design.Title {
		slug, err := s.uniqueDesignSlug(ctx, *input.Title)
		if err != nil {
			return nil, err
		}
		design.Title = strings.TrimSpace(*input.Title)
		design.Slug = slug
	}
	if input.Description != nil {
		design.Description = input.Description
	}
	if input.Category != nil {
		design.Category = input.Category
	}
	if input.Tags != nil {
		design.Tags = normalizeTags(*input.Tags)
	}
	if input.BasePrice != nil {
		design.BasePrice = *input.BasePrice
	}
	if input.ClearDiscount {
		design.DiscountedPrice = nil
	} else if input.DiscountedPrice != nil {
		design.DiscountedPrice = input.DiscountedPrice
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid catalog status")
		}
		design.Status = *input.Status
	}
	if input.FileObjectKey != nil {
		design.FileObjectKey = strings.TrimSpace(*input.FileObjectKey)
	}
	if input.FileExt != nil {
		design.FileExt = normalizeExt(*input.FileExt)
	}

	if err := validatePricing(design.BasePrice, design.DiscountedPrice); err != nil {
		return nil, err
	}

	updated, err := s.designs.UpdateDesign(ctx, design)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update design")
	}
	dto := NewDesignDTO(updated)
	return &dto, nil
}

// DeleteDesign removes a design that no purchase references. Designs that were
// ever sold must be archived instead so entitlements keep resolving.
func (s *service) DeleteDesign(ctx context.Context, designID uuid.UUID) error {
	if _, err := s.designs.FindDesignByID(ctx, designID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "design not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load design")
	}

	refs, err := s.designs.CountPurchaseRefs(ctx, designID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count purchase refs")
	}
	if refs > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "design has purchases; archive it instead").
			WithDetails(map[string]any{"purchase_count": refs})
	}

	if err := s.designs.DeleteDesign(ctx, designID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete design")
	}
	return nil
}

// GetDesign loads one design. Non-admin callers only see active items.
func (s *service) GetDesign(ctx context.Context, designID uuid.UUID, includeHidden bool) (*DesignDTO, error) {
	design, err := s.designs.FindDesignByID(ctx, designID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "design not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load design")
	}
	if !includeHidden && design.Status != enums.CatalogStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "design not found")
	}
	dto := NewDesignDTO(design)
	return &dto, nil
}

// ListDesigns returns a page of designs. Status filtering is admin-only.
func (s *service) ListDesigns(ctx context.Context, query ListQuery, includeHidden bool) (*DesignListResult, error) {
	if !includeHidden {
		query.Filters.Status = nil
	}
	rows, total, err := s.designs.ListDesigns(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list designs")
	}
	dtos := make([]DesignDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, NewDesignDTO(&rows[i]))
	}
	return &DesignListResult{Designs: dtos, TotalItems: total}, nil
}

// CreateCourse inserts a new course with a slug derived from the title.
func (s *service) CreateCourse(ctx context.Context, actorID uuid.UUID, input CreateCourseInput) (*CourseDTO, error) {
	if err := validatePricing(input.BasePrice, input.DiscountedPrice); err != nil {
		return nil, err
	}
	if input.VideoCount < 0 || input.DurationMinutes < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "video_count and duration_minutes must be non-negative")
	}
	status := input.Status
	if status == "" {
		status = enums.CatalogStatusDraft
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid catalog status")
	}

	slug, err := s.uniqueCourseSlug(ctx, input.Title)
	if err != nil {
		return nil, err
	}

	course := &models.Course{
		Title:           strings.TrimSpace(input.Title),
		Slug:            slug,
		Description:     input.Description,
		Level:           input.Level,
		VideoCount:      input.VideoCount,
		DurationMinutes: input.DurationMinutes,
		BasePrice:       input.BasePrice,
		DiscountedPrice: input.DiscountedPrice,
		Status:          status,
		CreatedBy:       &actorID,
	}

	created, err := s.courses.CreateCourse(ctx, course)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert course")
	}
	dto := NewCourseDTO(created)
	return &dto, nil
}

// UpdateCourse applies partial updates to an existing course.
func (s *service) UpdateCourse(ctx context.Context, courseID uuid.UUID, input UpdateCourseInput) (*CourseDTO, error) {
	course, err := s.courses.FindCourseByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load course")
	}

	if input.Title != nil && strings.TrimSpace(*input.Title) != course.Title {
		slug, err := s.uniqueCourseSlug(ctx, *input.Title)
		if err != nil {
			return nil, err
		}
		course.Title = strings.TrimSpace(*input.Title)
		course.Slug = slug
	}
	if input.Description != nil {
		course.Description = input.Description
	}
	if input.Level != nil {
		course.Level = input.Level
	}
	if input.VideoCount != nil {
		if *input.VideoCount < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "video_count must be non-negative")
		}
		course.VideoCount = *input.VideoCount
	}
	if input.DurationMinutes != nil {
		if *input.DurationMinutes < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration_minutes must be non-negative")
		}
		course.DurationMinutes = *input.DurationMinutes
	}
	if input.BasePrice != nil {
		course.BasePrice = *input.BasePrice
	}
	if input.ClearDiscount {
		course.DiscountedPrice = nil
	} else if input.DiscountedPrice != nil {
		course.DiscountedPrice = input.DiscountedPrice
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid catalog status")
		}
		course.Status = *input.Status
	}

	if err := validatePricing(course.BasePrice, course.DiscountedPrice); err != nil {
		return nil, err
	}

	updated, err := s.courses.UpdateCourse(ctx, course)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update course")
	}
	dto := NewCourseDTO(updated)
	return &dto, nil
}

// DeleteCourse removes a course that no purchase references.
func (s *service) DeleteCourse(ctx context.Context, courseID uuid.UUID) error {
	if _, err := s.courses.FindCourseByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load course")
	}

	refs, err := s.courses.CountPurchaseRefs(ctx, courseID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count purchase refs")
	}
	if refs > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "course has purchases; archive it instead").
			WithDetails(map[string]any{"purchase_count": refs})
	}

	if err := s.courses.DeleteCourse(ctx, courseID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete course")
	}
	return nil
}

// GetCourse loads one course. Non-admin callers only see active items.
func (s *service) GetCourse(ctx context.Context, courseID uuid.UUID, includeHidden bool) (*CourseDTO, error) {
	course, err := s.courses.FindCourseByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load course")
	}
	if !includeHidden && course.Status != enums.CatalogStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "course not found")
	}
	dto := NewCourseDTO(course)
	return &dto, nil
}

// ListCourses returns a page of courses. Status filtering is admin-only.
func (s *service) ListCourses(ctx context.Context, query ListQuery, includeHidden bool) (*CourseListResult, error) {
	if !includeHidden {
		query.Filters.Status = nil
	}
	rows, total, err := s.courses.ListCourses(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list courses")
	}
	dtos := make([]CourseDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, NewCourseDTO(&rows[i]))
	}
	return &CourseListResult{Courses: dtos, TotalItems: total}, nil
}

func (s *service) uniqueDesignSlug(ctx context.Context, title string) (string, error) {
	base := Slugify(title)
	slug, err := UniqueSlug(base, func(candidate string) (bool, error) {
		_, err := s.designs.FindDesignBySlug(ctx, candidate)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: resolve slug")
	}
	return slug, nil
}

func (s *service) uniqueCourseSlug(ctx context.Context, title string) (string, error) {
	base := Slugify(title)
	slug, err := UniqueSlug(base, func(candidate string) (bool, error) {
		_, err := s.courses.FindCourseBySlug(ctx, candidate)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: resolve slug")
	}
	return slug, nil
}

func validatePricing(base decimal.Decimal, discounted *decimal.Decimal) error {
	if base.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "base_price must be non-negative")
	}
	if discounted != nil {
		if discounted.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "discounted_price must be non-negative")
		}
		if discounted.GreaterThanOrEqual(base) {
			return pkgerrors.New(pkgerrors.CodeValidation, "discounted_price must be below base_price")
		}
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		clean := strings.ToLower(strings.TrimSpace(tag))
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	return out
}

func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}
