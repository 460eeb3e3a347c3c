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

type createCourseRequest struct {
	Title           string           `json:"title" validate:"required,max=200"`
	Description     *string          `json:"description,omitempty"`
	Level           *string          `json:"level,omitempty" validate:"omitempty,max=50"`
	VideoCount      int              `json:"video_count" validate:"min=0"`
	DurationMinutes int              `json:"duration_minutes" validate:"min=0"`
	BasePrice       *decimal.Decimal `json:"base_price" validate:"required"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	Status          *string          `json:"status,omitempty"`
}

type updateCourseRequest struct {
	Title           *string          `json:"title,omitempty" validate:"omitempty,max=200"`
	Description     *string          `json:"description,omitempty"`
	Level           *string          `json:"level,omitempty" validate:"omitempty,max=50"`
	VideoCount      *int             `json:"video_count,omitempty" validate:"omitempty,min=0"`
	DurationMinutes *int             `json:"duration_minutes,omitempty" validate:"omitempty,min=0"`
	BasePrice       *decimal.Decimal `json:"base_price,omitempty"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	ClearDiscount   bool             `json:"clear_discount,omitempty"`
	Status          *string          `json:"status,omitempty"`
}

// AdminCreateCourse handles course creation.
func AdminCreateCourse(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload createCourseRequest
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

		course, err := svc.CreateCourse(r.Context(), actorID, catalogsvc.CreateCourseInput{
			Title:           strings.TrimSpace(payload.Title),
			Description:     payload.Description,
			Level:           payload.Level,
			VideoCount:      payload.VideoCount,
			DurationMinutes: payload.DurationMinutes,
			BasePrice:       *payload.BasePrice,
			DiscountedPrice: payload.DiscountedPrice,
			Status:          status,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, course)
	}
}

// AdminUpdateCourse handles partial course updates.
func AdminUpdateCourse(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		courseID, err := validators.PathUUID(chi.URLParam(r, "courseId"), "course id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCourseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalogsvc.UpdateCourseInput{
			Title:           payload.Title,
			Description:     payload.Description,
			Level:           payload.Level,
			VideoCount:      payload.VideoCount,
			DurationMinutes: payload.DurationMinutes,
			BasePrice:       payload.BasePrice,
			DiscountedPrice: payload.DiscountedPrice,
			ClearDiscount:   payload.ClearDiscount,
		}
		if payload.Status != nil {
			parsed, err := enums.ParseCatalogStatus(strings.TrimSpace(*payload.Status))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = &parsed
		}

		course, err := svc.UpdateCourse(r.Context(), courseID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, course)
	}
}

// AdminDeleteCourse removes a course with no purchase references.
func AdminDeleteCourse(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		courseID, err := validators.PathUUID(chi.URLParam(r, "courseId"), "course id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteCourse(r.Context(), courseID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "course deleted", nil)
	}
}

// GetCourse returns one course. Admins also see drafts and archived items.
func GetCourse(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		courseID, err := validators.PathUUID(chi.URLParam(r, "courseId"), "course id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		course, err := svc.GetCourse(r.Context(), courseID, isAdmin(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, course)
	}
}

// ListCourses returns a filtered page of courses.
func ListCourses(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		result, err := svc.ListCourses(r.Context(), query, isAdmin(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WritePage(w, result.Courses, pagination.Meta(query.Pagination, result.TotalItems))
	}
}
