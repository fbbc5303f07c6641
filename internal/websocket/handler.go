package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"

	"techtrack-backend/internal/middleware"
	"techtrack-backend/pkg/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origins are enforced by the CORS layer in front of the API
		return true
	},
}

// HandlerOptions configures the /ws handshake
type HandlerOptions struct {
	Auth        *middleware.Authenticator
	RequireAuth bool
}

// HandleWebSocket upgrades HTTP connection to WebSocket. A ?token= query
// parameter is verified when present and required when RequireAuth is set.
func HandleWebSocket(hub *Hub, dispatch *Dispatcher, opts HandlerOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")

		var userClaims middleware.UserClaims
		switch {
		case tokenString != "":
			if opts.Auth == nil {
				utils.RespondError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			claims, err := opts.Auth.ParseToken(tokenString)
			if err != nil {
				hub.log.Warn().Err(err).Msg("❌ Invalid token in query parameter")
				utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			userClaims = claims
		case opts.RequireAuth:
			// Fallback: Get user from context (set by Auth middleware)
			claims, ok := middleware.GetUserFromContext(r)
			if !ok {
				hub.log.Warn().Msg("❌ No token for WebSocket connection")
				utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			userClaims = claims
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Error().Err(err).Msg("❌ WebSocket upgrade failed")
			return
		}

		client := NewClient(userClaims.UserID, userClaims.Role, conn, hub, dispatch)
		if !hub.Register(client) {
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
