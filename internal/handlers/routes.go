package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"techtrack-backend/internal/snapshot"
	"techtrack-backend/pkg/utils"
)

// GetActiveRoutes returns every open route with technician and job summaries
func GetActiveRoutes(snapshots *snapshot.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routes, err := snapshots.ActiveRoutes(r.Context())
		if err != nil {
			respondError(w, log, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, map[string]interface{}{"routes": routes})
	}
}

// GetJobRoute returns a job's route (null if never started) and its samples in order
func GetJobRoute(snapshots *snapshot.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobId")

		route, err := snapshots.JobRoute(r.Context(), jobID)
		if err != nil {
			respondError(w, log, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, map[string]interface{}{
			"route":            route.Route,
			"location_history": route.LocationHistory,
		})
	}
}
