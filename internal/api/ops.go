package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kgay-travel/shoreline/internal/middleware"
	"kgay-travel/shoreline/internal/models/entities"
)

// NewOpsRouter builds the operational endpoints that stay up for the
// duration of a migration run: Prometheus metrics and a health check.
func NewOpsRouter(db *sqlx.DB, upSince time.Time) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogging)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", HealthCheckHandler(db, upSince))

	return r
}

// HealthCheckHandler handles GET /healthz
func HealthCheckHandler(db *sqlx.DB, upSince time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := make(map[string]entities.ServiceStatus)

		pgStatus := "ok"
		pgDetails := "Postgres Connected"
		if err := db.Ping(); err != nil {
			pgStatus = "down"
			pgDetails = err.Error()
		}
		services["postgres"] = entities.ServiceStatus{
			Status:  pgStatus,
			Details: pgDetails,
		}

		overallStatus := "ok"
		for _, svc := range services {
			if svc.Status != "ok" {
				overallStatus = "down"
				break
			}
		}

		resp := entities.HealthCheckResponse{
			Services: services,
			Status:   overallStatus,
			Uptime:   time.Since(upSince).Round(time.Second).String(),
		}
		w.Header().Set("Content-Type", "application/json")
		if overallStatus != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
