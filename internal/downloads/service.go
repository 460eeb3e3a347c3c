package downloads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delacruzdev/designvault-backend/internal/catalog"
	"github.com/delacruzdev/designvault-backend/internal/purchases"
	"github.com/delacruzdev/designvault-backend/pkg/db/models"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
	"github.com/delacruzdev/designvault-backend/pkg/storage/gcs"
)

// Service gates file downloads behind entitlements and keeps the audit log.
type Service interface {
	Download(ctx context.Context, userID, designID uuid.UUID, meta RequestMeta) (*StreamResult, error)
	History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*HistoryResult, error)
	SubscriptionStatus(ctx context.Context, userID uuid.UUID) (*SubscriptionStatusDTO, error)
	Analytics(ctx context.Context, since time.Time, topLimit int) (*AnalyticsDTO, error)
}

type downloadRepository interface {
	CreateDownload(ctx context.Context, download *models.Download) (*models.Download, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Download, int64, error)
	TopDesigns(ctx context.Context, since time.Time, limit int) ([]TopDesignRow, error)
	CountByEntitlement(ctx context.Context, since time.Time) ([]EntitlementCount, error)
}

type designReader interface {
	FindDesignByID(ctx context.Context, id uuid.UUID) (*models.Design, error)
	IncrementDownloadsCount(ctx context.Context, designID uuid.UUID) error
}

type entitlementRepository interface {
	FindCompletedIndividual(ctx context.Context, userID uuid.UUID, productType enums.ProductType, productID uuid.UUID) (*models.Purchase, error)
	FindLiveSubscription(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Purchase, error)
	FindLatestSubscription(ctx context.Context, userID uuid.UUID) (*models.Purchase, error)
	DecrementRemainingDownloads(ctx context.Context, purchaseID uuid.UUID) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the download service dependencies.
type ServiceParams struct {
	Repo              downloadRepository
	Designs           designReader
	Purchases         entitlementRepository
	Storage           gcs.ObjectReader
	TransactionRunner txRunner
	DownloadWithTx    func(tx *gorm.DB) downloadRepository
	DesignWithTx      func(tx *gorm.DB) designReader
	PurchaseWithTx    func(tx *gorm.DB) entitlementRepository
}

type service struct {
	repo           downloadRepository
	designs        designReader
	purchases      entitlementRepository
	storage        gcs.ObjectReader
	txRunner       txRunner
	downloadWithTx func(tx *gorm.DB) downloadRepository
	designWithTx   func(tx *gorm.DB) designReader
	purchaseWithTx func(tx *gorm.DB) entitlementRepository
	now            func() time.Time
}

// NewService constructs the download service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("download repository required")
	}
	if params.Designs == nil {
		return nil, fmt.Errorf("design repository required")
	}
	if params.Purchases == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("storage client required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.DownloadWithTx == nil || params.DesignWithTx == nil || params.PurchaseWithTx == nil {
		return nil, fmt.Errorf("withTx factories required")
	}
	return &service{
		repo:           params.Repo,
		designs:        params.Designs,
		purchases:      params.Purchases,
		storage:        params.Storage,
		txRunner:       params.TransactionRunner,
		downloadWithTx: params.DownloadWithTx,
		designWithTx:   params.DesignWithTx,
		purchaseWithTx: params.PurchaseWithTx,
		now:            time.Now,
	}, nil
}

// RepoFactory adapts the download repository's transaction binding to the
// shape ServiceParams expects.
func RepoFactory(repo *Repository) func(tx *gorm.DB) downloadRepository {
	return func(tx *gorm.DB) downloadRepository { return repo.WithTx(tx) }
}

// DesignRepoFactory adapts the design repository's transaction binding.
func DesignRepoFactory(repo *catalog.DesignRepository) func(tx *gorm.DB) designReader {
	return func(tx *gorm.DB) designReader { return repo.WithTx(tx) }
}

// PurchaseRepoFactory adapts the purchase repository's transaction binding.
func PurchaseRepoFactory(repo *purchases.Repository) func(tx *gorm.DB) entitlementRepository {
	return func(tx *gorm.DB) entitlementRepository { return repo.WithTx(tx) }
}

// Download authorizes and streams one design file. Individual ownership wins
// over subscription access so owners never burn subscription quota. Quota
// consumption, the audit row, and the counter bump commit atomically before
// the file stream is opened.
func (s *service) Download(ctx context.Context, userID, designID uuid.UUID, meta RequestMeta) (*StreamResult, error) {
	design, err := s.designs.FindDesignByID(ctx, designID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "design not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load design")
	}
	// Draft designs are invisible even to entitled users. Archived ones stay
	// downloadable for existing owners.
	if design.Status == enums.CatalogStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "design not found")
	}

	grant, err := s.resolveEntitlement(ctx, userID, designID)
	if err != nil {
		return nil, err
	}

	if err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		purchaseRepo := s.purchaseWithTx(tx)
		downloadRepo := s.downloadWithTx(tx)
		designRepo := s.designWithTx(tx)

		if grant.consumesQuota {
			affected, err := purchaseRepo.DecrementRemainingDownloads(ctx, grant.purchaseID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: consume download quota")
			}
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeForbidden, "download quota exhausted")
			}
		}

		download := &models.Download{
			UserID:      userID,
			DesignID:    designID,
			PurchaseID:  grant.purchaseID,
			Entitlement: grant.entitlement,
			IPAddress:   meta.IPAddress,
			UserAgent:   meta.UserAgent,
		}
		if _, err := downloadRepo.CreateDownload(ctx, download); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert download")
		}

		if err := designRepo.IncrementDownloadsCount(ctx, designID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: bump downloads count")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	body, err := s.storage.ReadObject(ctx, design.FileObjectKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storage: open object")
	}

	return &StreamResult{
		Body:        body,
		FileName:    fmt.Sprintf("%s.%s", design.Slug, design.FileExt),
		Entitlement: grant.entitlement,
	}, nil
}

// History returns the caller's download log, newest first.
func (s *service) History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*HistoryResult, error) {
	rows, total, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list downloads")
	}
	dtos := make([]DownloadDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, NewDownloadDTO(&rows[i]))
	}
	return &HistoryResult{Downloads: dtos, TotalItems: total}, nil
}

// SubscriptionStatus summarizes whether the caller can download via
// subscription right now and how much quota remains.
func (s *service) SubscriptionStatus(ctx context.Context, userID uuid.UUID) (*SubscriptionStatusDTO, error) {
	sub, err := s.purchases.FindLiveSubscription(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &SubscriptionStatusDTO{Active: false}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find live subscription")
	}
	return &SubscriptionStatusDTO{
		Active:             true,
		PurchaseID:         &sub.ID,
		PricingPlanID:      sub.PricingPlanID,
		EndsAt:             sub.SubscriptionEndsAt,
		RemainingDownloads: sub.RemainingDownloads,
		Unlimited:          sub.RemainingDownloads == nil,
	}, nil
}

// Analytics returns the admin rollup of download activity since the cutoff.
func (s *service) Analytics(ctx context.Context, since time.Time, topLimit int) (*AnalyticsDTO, error) {
	byEntitlement, err := s.repo.CountByEntitlement(ctx, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: download entitlement counts")
	}
	top, err := s.repo.TopDesigns(ctx, since, topLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: top designs")
	}

	var total int64
	for _, row := range byEntitlement {
		total += row.Count
	}
	return &AnalyticsDTO{
		TotalDownloads: total,
		ByEntitlement:  byEntitlement,
		TopDesigns:     top,
	}, nil
}

type entitlementGrant struct {
	purchaseID    uuid.UUID
	entitlement   enums.EntitlementType
	consumesQuota bool
}

func (s *service) resolveEntitlement(ctx context.Context, userID, designID uuid.UUID) (*entitlementGrant, error) {
	owned, err := s.purchases.FindCompletedIndividual(ctx, userID, enums.ProductTypeDesign, designID)
	if err == nil {
		return &entitlementGrant{
			purchaseID:  owned.ID,
			entitlement: enums.EntitlementIndividualPurchase,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find completed purchase")
	}

	sub, err := s.purchases.FindLiveSubscription(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.denyWithoutSubscription(ctx, userID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find live subscription")
	}

	return &entitlementGrant{
		purchaseID:    sub.ID,
		entitlement:   enums.EntitlementSubscription,
		consumesQuota: sub.RemainingDownloads != nil,
	}, nil
}

// denyWithoutSubscription distinguishes a lapsed subscriber from a user who
// never had access.
func (s *service) denyWithoutSubscription(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.purchases.FindLatestSubscription(ctx, userID); err == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "subscription expired")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find latest subscription")
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "purchase this design or subscribe to download")
}
