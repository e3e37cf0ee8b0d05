package www

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"farmgate/gateway"
	"farmgate/state"
)

// Handlers serves the local diagnostics API.
type Handlers struct {
	client    *gateway.Client
	store     *state.Store
	daemonURL string
}

// NewRouter builds the diagnostics API router. daemonURL is the address a
// reconnect request dials when the caller doesn't supply one.
func NewRouter(client *gateway.Client, store *state.Store, daemonURL string) http.Handler {
	h := &Handlers{client: client, store: store, daemonURL: daemonURL}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.apiStatus)
		r.Get("/alerts", h.apiAlerts)
		r.Delete("/alerts/{id}", h.apiDismissAlert)
		r.Post("/connect", h.apiConnect)
		r.Post("/disconnect", h.apiDisconnect)
	})

	return r
}

func (h *Handlers) jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("www: encode response: %v", err)
	}
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
