package handlers

import (
	"net/http"

	"github.com/nrdvana/slidelink/internal/services"
)

// StateHandler reports the room's shared state
type StateHandler struct {
	hub *services.Hub
}

// NewStateHandler creates a new state handler
func NewStateHandler(hub *services.Hub) *StateHandler {
	return &StateHandler{hub: hub}
}

// StateResponse is the body of GET /api/state
type StateResponse struct {
	Known    bool `json:"known"`
	SlideNum int  `json:"slide_num"`
	StepNum  int  `json:"step_num"`
	Peers    int  `json:"peers"`
}

// GetState returns the last position sent by a leader
// GET /api/state
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	state, peers := h.hub.State()
	writeJSON(w, http.StatusOK, StateResponse{
		Known:    state.Known(),
		SlideNum: state.SlideNum,
		StepNum:  state.StepNum,
		Peers:    peers,
	})
}
