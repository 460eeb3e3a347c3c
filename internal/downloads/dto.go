package downloads

import (
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
)

// DownloadDTO is one row of a user's download history.
type DownloadDTO struct {
	ID          uuid.UUID             `json:"id"`
	DesignID    uuid.UUID             `json:"design_id"`
	PurchaseID  uuid.UUID             `json:"purchase_id"`
	Entitlement enums.EntitlementType `json:"entitlement"`
	CreatedAt   time.Time             `json:"created_at"`
}

// HistoryResult is one page of downloads plus pagination metadata inputs.
type HistoryResult struct {
	Downloads  []DownloadDTO
	TotalItems int64
}

// StreamResult carries the authorized file stream. The caller owns Body and
// must close it.
type StreamResult struct {
	Body        io.ReadCloser
	FileName    string
	Entitlement enums.EntitlementType
}

// SubscriptionStatusDTO summarizes the caller's current subscription access.
type SubscriptionStatusDTO struct {
	Active             bool       `json:"active"`
	PurchaseID         *uuid.UUID `json:"purchase_id,omitempty"`
	PricingPlanID      *uuid.UUID `json:"pricing_plan_id,omitempty"`
	EndsAt             *time.Time `json:"ends_at,omitempty"`
	RemainingDownloads *int       `json:"remaining_downloads,omitempty"`
	Unlimited          bool       `json:"unlimited"`
}

// AnalyticsDTO is the admin rollup of download activity.
type AnalyticsDTO struct {
	TotalDownloads int64              `json:"total_downloads"`
	ByEntitlement  []EntitlementCount `json:"by_entitlement"`
	TopDesigns     []TopDesignRow     `json:"top_designs"`
}

// RequestMeta captures request attribution stored on the audit row.
type RequestMeta struct {
	IPAddress *string
	UserAgent *string
}

// NewDownloadDTO maps a download row into its public shape.
func NewDownloadDTO(download *models.Download) DownloadDTO {
	return DownloadDTO{
		ID:          download.ID,
		DesignID:    download.DesignID,
		PurchaseID:  download.PurchaseID,
		Entitlement: download.Entitlement,
		CreatedAt:   download.CreatedAt,
	}
}
