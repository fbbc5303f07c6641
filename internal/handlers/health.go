package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"techtrack-backend/pkg/utils"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the store answers
func Health(store Pinger, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			log.Error().Err(err).Msg("❌ Health check failed")
			utils.RespondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"success": false,
				"status":  "unavailable",
			})
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"status":  "ok",
		})
	}
}
