package controllers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/delacruzdev/designvault-backend/api/middleware"
	"github.com/delacruzdev/designvault-backend/api/responses"
	"github.com/delacruzdev/designvault-backend/api/validators"
	downloadsvc "github.com/delacruzdev/designvault-backend/internal/downloads"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
	"github.com/delacruzdev/designvault-backend/pkg/logger"
	"github.com/delacruzdev/designvault-backend/pkg/pagination"
)

// DownloadDesign authorizes the caller and streams the design file as an
// attachment. The quota decrement and audit row commit before the first byte
// is written.
func DownloadDesign(svc downloadsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "download service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		designID, err := validators.PathUUID(chi.URLParam(r, "designId"), "design id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		meta := downloadsvc.RequestMeta{}
		if ip := middleware.ClientIP(r); ip != "" {
			meta.IPAddress = &ip
		}
		if ua := r.UserAgent(); ua != "" {
			meta.UserAgent = &ua
		}

		result, err := svc.Download(r.Context(), userID, designID, meta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer result.Body.Close()

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
		w.Header().Set("X-Entitlement", result.Entitlement.String())
		if _, err := io.Copy(w, result.Body); err != nil && logg != nil {
			logg.Error(r.Context(), "download.stream", err)
		}
	}
}

// DownloadHistory returns the caller's download log, newest first.
func DownloadHistory(svc downloadsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "download service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.History(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WritePage(w, result.Downloads, pagination.Meta(params, result.TotalItems))
	}
}

// GetSubscriptionStatus reports whether the caller can download via
// subscription right now and how much quota remains.
func GetSubscriptionStatus(svc downloadsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "download service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.SubscriptionStatus(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}

// AdminDownloadAnalytics returns download totals, the entitlement breakdown,
// and the most downloaded designs since the cutoff.
func AdminDownloadAnalytics(svc downloadsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "download service unavailable"))
			return
		}

		since, err := validators.ParseQueryTime(r, "since")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start := time.Now().UTC().AddDate(0, 0, -30)
		if since != nil {
			start = *since
		}

		limit, err := validators.ParseQueryInt(r, "limit", 10, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		analytics, err := svc.Analytics(r.Context(), start, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, analytics)
	}
}
