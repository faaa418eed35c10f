package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/nrdvana/slidelink/internal/models"
	"github.com/nrdvana/slidelink/internal/services"
)

// GrantHandler handles HTTP requests for connection grants
type GrantHandler struct {
	grants *services.GrantService
	log    zerolog.Logger
}

// NewGrantHandler creates a new grant handler
func NewGrantHandler(grants *services.GrantService, logger zerolog.Logger) *GrantHandler {
	return &GrantHandler{
		grants: grants,
		log:    logger,
	}
}

// CreateGrantRequest represents a grant registration request
type CreateGrantRequest struct {
	Key   string   `json:"key"`
	Label string   `json:"label,omitempty"`
	Roles []string `json:"roles"`
}

// CreateGrantResponse echoes the key once, to whoever registered it
type CreateGrantResponse struct {
	*models.Grant
	Key string `json:"key"`
}

// UpdateGrantRequest represents a partial grant update
type UpdateGrantRequest struct {
	Label    *string  `json:"label,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	IsActive *bool    `json:"isActive,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// grantError maps service errors to status codes
func (gh *GrantHandler) grantError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrGrantNotFound):
		http.Error(w, "Grant not found", http.StatusNotFound)
	case errors.Is(err, services.ErrDuplicateKey):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrUnknownRole), errors.Is(err, services.ErrEmptyKey):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		gh.log.Error().Err(err).Msg("grant request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// CreateGrant registers a key
// POST /api/grants
func (gh *GrantHandler) CreateGrant(w http.ResponseWriter, r *http.Request) {
	var req CreateGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	grant, err := gh.grants.CreateGrant(req.Key, req.Label, req.Roles)
	if err != nil {
		gh.grantError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateGrantResponse{Grant: grant, Key: grant.Key})
}

// ListGrants returns all grants
// GET /api/grants
func (gh *GrantHandler) ListGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := gh.grants.ListGrants()
	if err != nil {
		gh.grantError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grants)
}

// GetGrant returns one grant
// GET /api/grants/{id}
func (gh *GrantHandler) GetGrant(w http.ResponseWriter, r *http.Request) {
	grant, err := gh.grants.GetGrant(mux.Vars(r)["id"])
	if err != nil {
		gh.grantError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

// UpdateGrant changes label, roles or the active flag
// PUT /api/grants/{id}
func (gh *GrantHandler) UpdateGrant(w http.ResponseWriter, r *http.Request) {
	var req UpdateGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	grant, err := gh.grants.UpdateGrant(mux.Vars(r)["id"], services.GrantUpdate{
		Label:    req.Label,
		Roles:    req.Roles,
		IsActive: req.IsActive,
	})
	if err != nil {
		gh.grantError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

// DeleteGrant removes a grant
// DELETE /api/grants/{id}
func (gh *GrantHandler) DeleteGrant(w http.ResponseWriter, r *http.Request) {
	if err := gh.grants.DeleteGrant(mux.Vars(r)["id"]); err != nil {
		gh.grantError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
