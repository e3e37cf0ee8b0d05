package www

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type statusResponse struct {
	Connected   bool            `json:"connected"`
	Services    map[string]bool `json:"services"`
	Pending     int             `json:"pending_requests"`
	Plotting    bool            `json:"plotting"`
	LastCommand string          `json:"last_command,omitempty"`
}

func (h *Handlers) apiStatus(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, statusResponse{
		Connected:   h.store.Connected(),
		Services:    h.store.Services(),
		Pending:     h.client.Pending(),
		Plotting:    h.store.Plotting(),
		LastCommand: h.store.LastCommand(),
	})
}

func (h *Handlers) apiAlerts(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.store.Alerts())
}

func (h *Handlers) apiDismissAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.store.DismissAlert(id) {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	h.jsonOK(w, map[string]bool{"dismissed": true})
}

type connectRequest struct {
	URL string `json:"url,omitempty"`
}

// apiConnect is the external reconnect entry point: the gateway never redials
// on its own.
func (h *Handlers) apiConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if r.Body != nil {
		// Empty body means "dial the configured daemon".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	addr := req.URL
	if addr == "" {
		addr = h.daemonURL
	}

	if err := h.client.Connect(addr); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	h.jsonOK(w, map[string]any{"connected": true, "url": addr})
}

func (h *Handlers) apiDisconnect(w http.ResponseWriter, r *http.Request) {
	h.client.Disconnect()
	h.jsonOK(w, map[string]bool{"connected": false})
}
