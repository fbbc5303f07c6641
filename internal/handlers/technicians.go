package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"techtrack-backend/internal/middleware"
	"techtrack-backend/internal/models"
	"techtrack-backend/internal/snapshot"
	"techtrack-backend/internal/tracking"
	"techtrack-backend/internal/websocket"
	"techtrack-backend/pkg/utils"
)

// GetTechniciansWithLocation returns technicians that are tracking or not OFFLINE
func GetTechniciansWithLocation(snapshots *snapshot.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		techs, err := snapshots.TrackedTechnicians(r.Context())
		if err != nil {
			respondError(w, log, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, map[string]interface{}{"technicians": techs})
	}
}

// GetAllTechnicians returns every technician with its first open job
func GetAllTechnicians(snapshots *snapshot.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		techs, err := snapshots.AllTechnicians(r.Context())
		if err != nil {
			respondError(w, log, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, map[string]interface{}{"technicians": techs})
	}
}

// GetLocationHistory returns a technician's newest samples, 500 by default
func GetLocationHistory(snapshots *snapshot.Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		techID := chi.URLParam(r, "id")

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				respondError(w, log, fmt.Errorf("%w: limit must be a positive integer", tracking.ErrValidation))
				return
			}
			limit = n
		}

		history, err := snapshots.History(r.Context(), techID, limit, snapshot.HTTPHistoryLimit)
		if err != nil {
			respondError(w, log, err)
			return
		}
		utils.RespondSuccess(w, http.StatusOK, map[string]interface{}{"location_history": history})
	}
}

type toggleTrackingRequest struct {
	IsTracking *bool `json:"is_tracking" validate:"required"`
}

// ToggleTracking lets a technician switch tracking on or off for itself
func ToggleTracking(engine *tracking.Engine, hub Broadcaster, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		techID := chi.URLParam(r, "id")
		userClaims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if userClaims.Role == models.RoleTechnician && userClaims.UserID != techID {
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		var req toggleTrackingRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(w, log, err)
			return
		}

		res, err := engine.SetTracking(r.Context(), techID, *req.IsTracking)
		if err != nil {
			respondError(w, log, err)
			return
		}

		hub.BroadcastToRoom(websocket.AdminRoom, websocket.EventTechGPSChanged, &res.Changed)
		utils.RespondSuccess(w, http.StatusOK, map[string]interface{}{"technician": res.Technician})
	}
}
