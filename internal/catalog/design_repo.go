package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

// DesignRepository provides persistence for design listings.
type DesignRepository struct {
	db *gorm.DB
}

// NewDesignRepository builds a repository tied to the provided GORM DB.
func NewDesignRepository(db *gorm.DB) *DesignRepository {
	return &DesignRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *DesignRepository) WithTx(tx *gorm.DB) *DesignRepository {
	return &DesignRepository{db: tx}
}

// CreateDesign inserts a new design row.
func (r *DesignRepository) CreateDesign(ctx context.Context, design *models.Design) (*models.Design, error) {
	if err := r.db.WithContext(ctx).Create(design).Error; err != nil {
		return nil, err
	}
	return design, nil
}

// UpdateDesign saves all columns of an existing design row.
func (r *DesignRepository) UpdateDesign(ctx context.Context, design *models.Design) (*models.Design, error) {
	if err := r.db.WithContext(ctx).Save(design).Error; err != nil {
		return nil, err
	}
	return design, nil
}

// DeleteDesign removes a design by ID.
func (r *DesignRepository) DeleteDesign(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Design{}).Error
}

// FindDesignByID loads a design by primary key.
func (r *DesignRepository) FindDesignByID(ctx context.Context, id uuid.UUID) (*models.Design, error) {
	var design models.Design
	if err := r.db.WithContext(ctx).First(&design, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &design, nil
}

// FindDesignBySlug loads a design by its unique slug.
func (r *DesignRepository) FindDesignBySlug(ctx context.Context, slug string) (*models.Design, error) {
	var design models.Design
	if err := r.db.WithContext(ctx).First(&design, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &design, nil
}

// CountPurchaseRefs counts purchase rows referencing the design.
func (r *DesignRepository) CountPurchaseRefs(ctx context.Context, designID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("design_id = ?", designID).
		Count(&count).
		Error
	return count, err
}

// IncrementDownloadsCount bumps the denormalized download counter.
func (r *DesignRepository) IncrementDownloadsCount(ctx context.Context, designID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Design{}).
		Where("id = ?", designID).
		UpdateColumn("downloads_count", gorm.Expr("downloads_count + 1")).
		Error
}

// ListDesigns returns one page of designs matching the query plus the total count.
func (r *DesignRepository) ListDesigns(ctx context.Context, query ListQuery) ([]models.Design, int64, error) {
	qb := r.db.WithContext(ctx).Model(&models.Design{})
	qb = applyDesignFilters(qb, query.Filters)

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Design
	err := qb.
		Order(designOrderClause(query.Sort)).
		Offset(query.Pagination.Offset()).
		Limit(pagination.NormalizeLimit(query.Pagination.Limit)).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func applyDesignFilters(qb *gorm.DB, filters ListFilters) *gorm.DB {
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	} else {
		qb = qb.Where("status = ?", enums.CatalogStatusActive)
	}
	if filters.Category != nil {
		qb = qb.Where("category = ?", *filters.Category)
	}
	if len(filters.Tags) > 0 {
		qb = qb.Where("tags && ?", pq.StringArray(filters.Tags))
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

func designOrderClause(sort SortOrder) string {
	switch sort {
	case SortPriceAsc:
		return "COALESCE(discounted_price, base_price) ASC, id ASC"
	case SortPriceDesc:
		return "COALESCE(discounted_price, base_price) DESC, id ASC"
	case SortRating:
		return "average_rating DESC, total_reviews DESC, id ASC"
	case SortPopular:
		return "downloads_count DESC, id ASC"
	default:
		return "created_at DESC, id DESC"
	}
}
