package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"techtrack-backend/internal/tracking"
	"techtrack-backend/pkg/utils"
)

// Broadcaster is the slice of the websocket hub handlers need
type Broadcaster interface {
	BroadcastToRoom(room, eventType string, data interface{})
}

var validate = validator.New()

// decodeBody decodes a JSON body and validates it
func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", tracking.ErrValidation)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field()))
			}
			return fmt.Errorf("%w: invalid or missing %s", tracking.ErrValidation, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", tracking.ErrValidation, err)
	}
	return nil
}

// respondError maps tracking error kinds onto status codes
func respondError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := tracking.StatusCode(err)
	if status >= 500 {
		log.Error().Err(err).Msg("❌ Request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}
	utils.RespondError(w, status, tracking.PublicMessage(err))
}
