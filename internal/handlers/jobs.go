package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"techtrack-backend/internal/middleware"
	"techtrack-backend/internal/models"
	"techtrack-backend/internal/tracking"
	"techtrack-backend/internal/websocket"
	"techtrack-backend/pkg/utils"
)

type jobTransition func(ctx context.Context, techID, jobID string) (*tracking.JobResult, error)

// jobWorkflow wraps accept/start/complete. The acting technician comes from
// the bearer token.
func jobWorkflow(transition jobTransition, hub Broadcaster, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		jobID := chi.URLParam(r, "id")

		res, err := transition(r.Context(), userClaims.UserID, jobID)
		if err != nil {
			respondError(w, log, err)
			return
		}

		if res.ClosedRoute != nil {
			hub.BroadcastToRoom(websocket.AdminRoom, websocket.EventRouteCompleted, res.ClosedRoute)
		}
		hub.BroadcastToRoom(websocket.AdminRoom, websocket.EventJobStatusChanged, &res.Changed)

		utils.RespondSuccess(w, http.StatusOK, map[string]interface{}{"job": res.Job})
	}
}

// AcceptJob marks an ASSIGNED job as ACCEPTED
func AcceptJob(engine *tracking.Engine, hub Broadcaster, log zerolog.Logger) http.HandlerFunc {
	return jobWorkflow(engine.AcceptJob, hub, log)
}

// StartJob puts the job IN_PROGRESS and turns tracking on
func StartJob(engine *tracking.Engine, hub Broadcaster, log zerolog.Logger) http.HandlerFunc {
	return jobWorkflow(engine.StartJob, hub, log)
}

// CompleteJob marks the job COMPLETED and turns tracking off
func CompleteJob(engine *tracking.Engine, hub Broadcaster, log zerolog.Logger) http.HandlerFunc {
	return jobWorkflow(engine.CompleteJob, hub, log)
}

// AssignJob creates an ASSIGNED job for a technician
func AssignJob(engine *tracking.Engine, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req models.AssignJobRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(w, log, err)
			return
		}

		job, err := engine.AssignJob(r.Context(), userClaims.UserID, req)
		if err != nil {
			respondError(w, log, err)
			return
		}
		utils.RespondSuccess(w, http.StatusCreated, map[string]interface{}{"job": job})
	}
}
