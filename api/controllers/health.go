package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/benjamins-shop/storefront-backend/api/responses"
	"github.com/benjamins-shop/storefront-backend/pkg/config"
	"github.com/benjamins-shop/storefront-backend/pkg/logger"
)

const healthCheckTimeout = 5 * time.Second

// Pinger reports whether a datasource is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness without touching dependencies.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Shop-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the datasources the API cannot serve without.
func HealthReady(cfg *config.Config, db, cache Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Shop-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		checks["database"] = checkDependency(ctx, db)
		checks["redis"] = checkDependency(ctx, cache)
		for _, status := range checks {
			if status == "unreachable" {
				healthy = false
			}
		}

		status := http.StatusOK
		overall := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
			if logg != nil {
				logg.Warn(logg.WithFields(r.Context(), map[string]any{"checks": checks}), "readiness check failed")
			}
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": overall,
			"checks": checks,
		})
	}
}

func checkDependency(ctx context.Context, dep Pinger) string {
	if dep == nil {
		return "skipped"
	}
	if err := dep.Ping(ctx); err != nil {
		return "unreachable"
	}
	return "ok"
}
