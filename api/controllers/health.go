package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/delacruzdev/designvault-backend/api/responses"
	"github.com/delacruzdev/designvault-backend/pkg/config"
	"github.com/delacruzdev/designvault-backend/pkg/db"
	pkgerrors "github.com/delacruzdev/designvault-backend/pkg/errors"
	"github.com/delacruzdev/designvault-backend/pkg/logger"
	"github.com/delacruzdev/designvault-backend/pkg/redis"
	"github.com/delacruzdev/designvault-backend/pkg/storage/gcs"
)

const envHeader = "X-DesignVault-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the process dependencies and reports per-check status.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger, storageP gcs.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		check := func(name string, ping func(context.Context) error) {
			if ping == nil {
				checks[name] = "skipped"
				return
			}
			if err := ping(ctx); err != nil {
				checks[name] = "down"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "health."+name, err)
				}
				return
			}
			checks[name] = "up"
		}

		if dbP != nil {
			check("database", dbP.Ping)
		}
		if redisP != nil {
			check("redis", redisP.Ping)
		}
		if storageP != nil {
			check("storage", storageP.Ping)
		}

		if !healthy {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
