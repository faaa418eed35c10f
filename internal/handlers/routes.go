package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nrdvana/slidelink/internal/observability"
)

// SetupRoutes wires the relay endpoints. deckDir, if set, is served at the
// root so the deck and the relay share an origin.
func SetupRoutes(ws *WebSocketHandler, state *StateHandler, grants *GrantHandler, deckDir string, logger zerolog.Logger) *mux.Router {
	observability.RegisterMetrics()
	router := mux.NewRouter()

	router.HandleFunc("/ws", ws.HandleWebSocket).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(observability.RequestLogger(logger), observability.RequestMetricsMiddleware)
	api.HandleFunc("/state", state.GetState).Methods(http.MethodGet)
	api.HandleFunc("/grants", grants.ListGrants).Methods(http.MethodGet)
	api.HandleFunc("/grants", grants.CreateGrant).Methods(http.MethodPost)
	api.HandleFunc("/grants/{id}", grants.GetGrant).Methods(http.MethodGet)
	api.HandleFunc("/grants/{id}", grants.UpdateGrant).Methods(http.MethodPut)
	api.HandleFunc("/grants/{id}", grants.DeleteGrant).Methods(http.MethodDelete)

	if deckDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(deckDir)))
	}
	return router
}
