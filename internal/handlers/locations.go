package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"techtrack-backend/internal/tracking"
	"techtrack-backend/internal/websocket"
	"techtrack-backend/pkg/utils"
)

type backgroundLocationRequest struct {
	Lat   *float64             `json:"lat"`
	Lng   *float64             `json:"lng"`
	JobID websocket.FlexibleID `json:"job_id,omitempty"`
}

// UpdateBackgroundLocation is the stateless twin of the update_location
// event, called by the mobile background task
func UpdateBackgroundLocation(engine *tracking.Engine, hub Broadcaster, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		techID := chi.URLParam(r, "id")

		var req backgroundLocationRequest
		if err := decodeBody(r, &req); err != nil {
			respondError(w, log, err)
			return
		}

		res, err := engine.AcceptLocationPayload(r.Context(), techID, req.Lat, req.Lng, req.JobID.String())
		if err != nil {
			respondError(w, log, err)
			return
		}

		hub.BroadcastToRoom(websocket.AdminRoom, websocket.EventLocationUpdate, &res.Update)

		utils.RespondSuccess(w, http.StatusOK, map[string]interface{}{
			"lat":    res.Saved.Lat,
			"lng":    res.Saved.Lng,
			"job_id": res.Update.JobID,
		})
	}
}
