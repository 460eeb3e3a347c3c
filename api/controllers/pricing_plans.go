package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/delacruzdev/designvault-backend/api/responses"
	"github.com/delacruzdev/designvault-backend/api/validators"
	plansvc "github.com/delacruzdev/designvault-backend/internal/pricingplans"
	"github.com/delacruzdev/designvault-backend/pkg/enums"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
	"github.com/delacruzdev/designvault-backend/pkg/logger"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

type createPlanRequest struct {
	Name               string           `json:"name" validate:"required,max=100"`
	Price              *decimal.Decimal `json:"price" validate:"required"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	DurationCount      *int             `json:"duration_count,omitempty" validate:"omitempty,min=1"`
	DurationUnit       *string          `json:"duration_unit,omitempty"`
	Duration           *string          `json:"duration,omitempty" validate:"omitempty,max=50"`
	MaxDownloads       *int             `json:"max_downloads,omitempty" validate:"omitempty,min=1"`
	Priority           int              `json:"priority,omitempty"`
	ExpiresAt          *time.Time       `json:"expires_at,omitempty"`
}

type updatePlanRequest struct {
	Name               *string          `json:"name,omitempty" validate:"omitempty,max=100"`
	Price              *decimal.Decimal `json:"price,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	DurationCount      *int             `json:"duration_count,omitempty" validate:"omitempty,min=1"`
	DurationUnit       *string          `json:"duration_unit,omitempty"`
	MaxDownloads       *int             `json:"max_downloads,omitempty" validate:"omitempty,min=1"`
	ClearMaxDownloads  bool             `json:"clear_max_downloads,omitempty"`
	Priority           *int             `json:"priority,omitempty"`
	IsActive           *bool            `json:"is_active,omitempty"`
	ExpiresAt          *time.Time       `json:"expires_at,omitempty"`
	ClearExpiresAt     bool             `json:"clear_expires_at,omitempty"`
}

// AdminCreatePlan handles pricing plan creation.
func AdminCreatePlan(svc plansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		var payload createPlanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := plansvc.CreatePlanInput{
			Name:           strings.TrimSpace(payload.Name),
			Price:          *payload.Price,
			LegacyDuration: payload.Duration,
			MaxDownloads:   payload.MaxDownloads,
			Priority:       payload.Priority,
			ExpiresAt:      payload.ExpiresAt,
		}
		if payload.DiscountPercentage != nil {
			input.DiscountPercentage = *payload.DiscountPercentage
		}
		if payload.DurationCount != nil {
			input.DurationCount = *payload.DurationCount
		}
		if payload.DurationUnit != nil {
			unit, err := enums.ParsePlanDurationUnit(strings.TrimSpace(*payload.DurationUnit))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid duration unit"))
				return
			}
			input.DurationUnit = unit
		}

		plan, err := svc.CreatePlan(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, plan)
	}
}

// AdminUpdatePlan handles partial plan updates.
func AdminUpdatePlan(svc plansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		planID, err := validators.PathUUID(chi.URLParam(r, "planId"), "plan id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePlanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := plansvc.UpdatePlanInput{
			Name:               payload.Name,
			Price:              payload.Price,
			DiscountPercentage: payload.DiscountPercentage,
			DurationCount:      payload.DurationCount,
			MaxDownloads:       payload.MaxDownloads,
			ClearMaxDownloads:  payload.ClearMaxDownloads,
			Priority:           payload.Priority,
			IsActive:           payload.IsActive,
			ExpiresAt:          payload.ExpiresAt,
			ClearExpiresAt:     payload.ClearExpiresAt,
		}
		if payload.DurationUnit != nil {
			unit, err := enums.ParsePlanDurationUnit(strings.TrimSpace(*payload.DurationUnit))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid duration unit"))
				return
			}
			input.DurationUnit = &unit
		}

		plan, err := svc.UpdatePlan(r.Context(), planID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, plan)
	}
}

// AdminDeactivatePlan retires a plan without deleting historical references.
func AdminDeactivatePlan(svc plansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		planID, err := validators.PathUUID(chi.URLParam(r, "planId"), "plan id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.DeactivatePlan(r.Context(), planID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "plan deactivated", plan)
	}
}

// GetPlan returns one plan. Admins also see inactive plans.
func GetPlan(svc plansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		planID, err := validators.PathUUID(chi.URLParam(r, "planId"), "plan id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.GetPlan(r.Context(), planID, isAdmin(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, plan)
	}
}

// ListPlans returns a page of plans, active-only for customers.
func ListPlans(svc plansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListPlans(r.Context(), params, isAdmin(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WritePage(w, result.Plans, pagination.Meta(params, result.TotalItems))
	}
}

// AdminPlanOverview returns subscription volume and revenue per plan.
func AdminPlanOverview(svc plansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		rows, err := svc.Overview(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}
