package downloads

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

// Repository provides persistence for the download audit log.
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

// CreateDownload appends one audit row. Rows are never updated or deleted.
func (r *Repository) CreateDownload(ctx context.Context, download *models.Download) (*models.Download, error) {
	if err := r.db.WithContext(ctx).Create(download).Error; err != nil {
		return nil, err
	}
	return download, nil
}

// ListByUser returns one page of the user's download history plus the total count.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Download, int64, error) {
	qb := r.db.WithContext(ctx).Model(&models.Download{}).Where("user_id = ?", userID)

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Download
	err := qb.
		Order("created_at DESC, id DESC").
		Offset(params.Offset()).
		Limit(pagination.NormalizeLimit(params.Limit)).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// TopDesignRow is one aggregate row of the download analytics query.
type TopDesignRow struct {
	DesignID  uuid.UUID `json:"design_id"`
	Title     string    `json:"title"`
	Downloads int64     `json:"downloads"`
}

// EntitlementCount is one aggregate row of the download analytics query.
type EntitlementCount struct {
	Entitlement enums.EntitlementType `json:"entitlement"`
	Count       int64                 `json:"count"`
}

// CountByEntitlement groups downloads since the cutoff by the entitlement
// that authorized them.
func (r *Repository) CountByEntitlement(ctx context.Context, since time.Time) ([]EntitlementCount, error) {
	var rows []EntitlementCount
	err := r.db.WithContext(ctx).
		Model(&models.Download{}).
		Select("entitlement, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("entitlement").
		Order("entitlement ASC").
		Scan(&rows).
		Error
	return rows, err
}

// TopDesigns returns the most downloaded designs since the cutoff.
func (r *Repository) TopDesigns(ctx context.Context, since time.Time, limit int) ([]TopDesignRow, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []TopDesignRow
	err := r.db.WithContext(ctx).
		Table("downloads d").
		Select("d.design_id, des.title, COUNT(*) AS downloads").
		Joins("JOIN designs des ON des.id = d.design_id").
		Where("d.created_at >= ?", since).
		Group("d.design_id, des.title").
		Order("downloads DESC").
		Limit(limit).
		Scan(&rows).
		Error
	return rows, err
}
