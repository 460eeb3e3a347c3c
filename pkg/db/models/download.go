package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/delacruzdev/designvault-backend/pkg/enums"
)

// Download is an append-only audit row for one authorized file download.
type Download struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	DesignID    uuid.UUID             `gorm:"column:design_id;type:uuid;not null;index"`
	PurchaseID  uuid.UUID             `gorm:"column:purchase_id;type:uuid;not null"`
	Entitlement enums.EntitlementType `gorm:"column:entitlement;type:entitlement_type;not null"`
	IPAddress   *string               `gorm:"column:ip_address"`
	UserAgent   *string               `gorm:"column:user_agent"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
