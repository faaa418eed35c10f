package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nrdvana/slidelink/internal/config"
	"github.com/nrdvana/slidelink/internal/services"
)

// WebSocketHandler upgrades sync connections and hands them to the hub
type WebSocketHandler struct {
	hub      *services.Hub
	grants   *services.GrantService
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(hub *services.Hub, grants *services.GrantService, logger zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		grants: grants,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// decks are often opened from file:// or another host
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: logger,
	}
}

// HandleWebSocket joins a peer to the room
// GET /ws?mode=presenter|obs&key=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("mode")

	var roleNames []string
	switch mode {
	case config.ModeObserver:
	case config.ModePresenter:
		names, err := h.grants.ResolveRoles(query.Get("key"))
		switch {
		case errors.Is(err, services.ErrGrantNotFound), errors.Is(err, services.ErrGrantInactive):
			http.Error(w, "Invalid key", http.StatusForbidden)
			return
		case err != nil:
			h.log.Error().Err(err).Msg("failed to resolve key")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		roleNames = names
	default:
		http.Error(w, "mode must be presenter or obs", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	peer := h.hub.Join(conn, mode, roleNames)
	h.hub.Serve(peer)
}
