package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/delacruzdev/designvault-backend/pkg/enums"
)

// Design is a downloadable digital asset listing.
type Design struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title           string              `gorm:"column:title;not null"`
	Slug            string              `gorm:"column:slug;not null;unique"`
	Description     *string             `gorm:"column:description"`
	Category        *string             `gorm:"column:category"`
	Tags            pq.StringArray      `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	BasePrice       decimal.Decimal     `gorm:"column:base_price;type:numeric(10,2);not null"`
	DiscountedPrice *decimal.Decimal    `gorm:"column:discounted_price;type:numeric(10,2)"`
	Status          enums.CatalogStatus `gorm:"column:status;type:catalog_status;not null;default:'draft'"`
	FileObjectKey   string              `gorm:"column:file_object_key;not null"`
	FileExt         string              `gorm:"column:file_ext;not null"`
	DownloadsCount  int                 `gorm:"column:downloads_count;not null;default:0"`
	AverageRating   float64             `gorm:"column:average_rating;type:numeric(3,1);not null;default:0"`
	TotalReviews    int                 `gorm:"column:total_reviews;not null;default:0"`
	CreatedBy       *uuid.UUID          `gorm:"column:created_by;type:uuid"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// PurchasePrice resolves the charged amount: discounted when present, else base.
func (d Design) PurchasePrice() decimal.Decimal {
	if d.DiscountedPrice != nil {
		return *d.DiscountedPrice
	}
	return d.BasePrice
}
