package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/delacruzdev/designvault-backend/api/responses"
	"github.com/delacruzdev/designvault-backend/api/validators"
	catalogsvc "github.com/delacruzdev/designvault-backend/internal/catalog"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
	"github.com/delacruzdev/designvault-backend/pkg/logger"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

type createDesignRequest struct {
	Title           string           `json:"title" validate:"required,max=200"`
	Description     *string          `json:"description,omitempty"`
	Category        *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Tags            []string         `json:"tags,omitempty" validate:"omitempty,dive,required"`
	BasePrice       *decimal.Decimal `json:"base_price" validate:"required"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	Status          *string          `json:"status,omitempty"`
	FileObjectKey   string           `json:"file_object_key" validate:"required"`
	FileExt         string           `json:"file_ext" validate:"required,max=16"`
}

type updateDesignRequest struct {
	Title           *string          `json:"title,omitempty" validate:"omitempty,max=200"`
	Description     *string          `json:"description,omitempty"`
	Category        *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Tags            *[]string        `json:"tags,omitempty"`
	BasePrice       *decimal.Decimal `json:"base_price,omitempty"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	ClearDiscount   bool             `json:"clear_discount,omitempty"`
	Status          *string          `json:"status,omitempty"`
	FileObjectKey   *string          `json:"file_object_key,omitempty"`
	FileExt         *string          `json:"file_ext,omitempty" validate:"omitempty,max=16"`
}

// AdminCreateDesign handles design creation.
func AdminCreateDesign(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		actorID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createDesignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := enums.CatalogStatusDraft
		if payload.Status != nil {
			parsed, err := enums.ParseCatalogStatus(strings.TrimSpace(*payload.Status))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			status = parsed
		}

		design, err := svc.CreateDesign(r.Context(), actorID, catalogsvc.CreateDesignInput{
			Title:           strings.TrimSpace(payload.Title),
			Description:     payload.Description,
			Category:        payload.Category,
			Tags:            payload.Tags,
			BasePrice:       *payload.BasePrice,
			DiscountedPrice: payload.DiscountedPrice,
			Status:          status,
			FileObjectKey:   strings.TrimSpace(payload.FileObjectKey),
			FileExt:         strings.TrimSpace(payload.FileExt),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, design)
	}
}

// AdminUpdateDesign handles partial design updates.
func AdminUpdateDesign(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		designID, err := validators.PathUUID(chi.URLParam(r, "designId"), "design id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateDesignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalogsvc.UpdateDesignInput{
			Title:           payload.Title,
			Description:     payload.Description,
			Category:        payload.Category,
			Tags:            payload.Tags,
			BasePrice:       payload.BasePrice,
			DiscountedPrice: payload.DiscountedPrice,
			ClearDiscount:   payload.ClearDiscount,
			FileObjectKey:   payload.FileObjectKey,
			FileExt:         payload.FileExt,
		}
		if payload.Status != nil {
			parsed, err := enums.ParseCatalogStatus(strings.TrimSpace(*payload.Status))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &parsed
		}

		design, err := svc.UpdateDesign(r.Context(), designID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, design)
	}
}

// AdminDeleteDesign removes a design with no purchase references.
func AdminDeleteDesign(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		designID, err := validators.PathUUID(chi.URLParam(r, "designId"), "design id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteDesign(r.Context(), designID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "design deleted", nil)
	}
}

// GetDesign returns one design. Admins also see drafts and archived items.
func GetDesign(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		designID, err := validators.PathUUID(chi.URLParam(r, "designId"), "design id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		design, err := svc.GetDesign(r.Context(), designID, isAdmin(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, design)
	}
}

// ListDesigns returns a filtered page of designs.
func ListDesigns(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		query, err := parseCatalogListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListDesigns(r.Context(), query, isAdmin(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WritePage(w, result.Designs, pagination.Meta(query.Pagination, result.TotalItems))
	}
}

func parseCatalogListQuery(r *http.Request) (catalogsvc.ListQuery, error) {
	params, err := validators.ParsePagination(r)
	if err != nil {
		return catalogsvc.ListQuery{}, err
	}

	filters := catalogsvc.ListFilters{
		Query: strings.TrimSpace(r.URL.Query().Get("search")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseCatalogStatus(raw)
		if err != nil {
			return catalogsvc.ListQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
		filters.Category = &raw
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("level")); raw != "" {
		filters.Level = &raw
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("tags")); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filters.Tags = append(filters.Tags, tag)
			}
		}
	}

	if filters.PriceMin, err = validators.ParseQueryDecimal(r, "price_min"); err != nil {
		return catalogsvc.ListQuery{}, err
	}
	if filters.PriceMax, err = validators.ParseQueryDecimal(r, "price_max"); err != nil {
		return catalogsvc.ListQuery{}, err
	}

	return catalogsvc.ListQuery{
		Filters:    filters,
		Sort:       catalogsvc.ParseSortOrder(r.URL.Query().Get("sort")),
		Pagination: params,
	}, nil
}
