package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/delacruzdev/designvault-backend/pkg/enums"
)

// Course is a purchasable video course listing.
type Course struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title           string              `gorm:"column:title;not null"`
	Slug            string              `gorm:"column:slug;not null;unique"`
	Description     *string             `gorm:"column:description"`
	Level           *string             `gorm:"column:level"`
	VideoCount      int                 `gorm:"column:video_count;not null;default:0"`
	DurationMinutes int                 `gorm:"column:duration_minutes;not null;default:0"`
	BasePrice       decimal.Decimal     `gorm:"column:base_price;type:numeric(10,2);not null"`
	DiscountedPrice *decimal.Decimal    `gorm:"column:discounted_price;type:numeric(10,2)"`
	Status          enums.CatalogStatus `gorm:"column:status;type:catalog_status;not null;default:'draft'"`
	AverageRating   float64             `gorm:"column:average_rating;type:numeric(3,1);not null;default:0"`
	TotalReviews    int                 `gorm:"column:total_reviews;not null;default:0"`
	CreatedBy       *uuid.UUID          `gorm:"column:created_by;type:uuid"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// PurchasePrice resolves the charged amount: discounted when present, else base.
func (c Course) PurchasePrice() decimal.Decimal {
	if c.DiscountedPrice != nil {
		return *c.DiscountedPrice
	}
	return c.BasePrice
}
