package models

import (
	"time"

	"github.com/google/uuid"
)

// Review holds one user's rating for exactly one design or course. Uniqueness
// per (user, item) is enforced by partial unique indexes.
type Review struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	DesignID     *uuid.UUID `gorm:"column:design_id;type:uuid"`
	CourseID     *uuid.UUID `gorm:"column:course_id;type:uuid"`
	Rating       int        `gorm:"column:rating;not null"`
	Comment      *string    `gorm:"column:comment"`
	HelpfulCount int        `gorm:"column:helpful_count;not null;default:0"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
