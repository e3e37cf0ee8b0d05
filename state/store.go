package state

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"farmgate/gateway"
	"farmgate/protocol"
)

// Alert is a user-facing error surfaced by the gateway.
type Alert struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Store is the in-process reducer layer: it consumes gateway actions and
// exposes the read side the router, poller, and diagnostics API consult.
type Store struct {
	mu          sync.RWMutex
	connected   bool
	services    map[string]bool
	lastCommand string
	wallets     []protocol.WalletInfo
	plotsCached bool
	plotQueue   json.RawMessage
	plotting    bool
	alerts      []Alert
}

// New creates an empty store.
func New() *Store {
	return &Store{services: make(map[string]bool)}
}

// Dispatch applies one gateway action.
func (s *Store) Dispatch(a gateway.Action) {
	switch a.Type {
	case gateway.ActionIncomingMessage:
		s.applyEnvelope(a.Envelope)
	case gateway.ActionConnectionStatus:
		s.mu.Lock()
		s.connected = a.Connected
		if !a.Connected {
			// Service flags are only meaningful while the daemon link is up.
			// The plot cache survives reconnects.
			s.services = make(map[string]bool)
		}
		s.mu.Unlock()
	case gateway.ActionPlotQueueUpdate:
		s.mu.Lock()
		s.plotQueue = a.Queue
		s.plotting = true
		s.mu.Unlock()
	case gateway.ActionPlottingStopped:
		s.mu.Lock()
		s.plotting = false
		s.mu.Unlock()
	case gateway.ActionShowErrorDialog:
		s.mu.Lock()
		s.alerts = append(s.alerts, Alert{
			ID:      uuid.New().String(),
			Message: a.Message,
			Time:    time.Now(),
		})
		s.mu.Unlock()
	}
}

func (s *Store) applyEnvelope(env *protocol.Envelope) {
	if env == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastCommand = env.Command

	switch env.Command {
	case protocol.CmdPing:
		var st protocol.ResponseStatus
		if err := env.DecodeData(&st); err == nil && st.OK() && env.Origin != "" {
			s.services[env.Origin] = true
		}
	case protocol.CmdGetWallets:
		var list protocol.WalletList
		if err := env.DecodeData(&list); err != nil {
			log.Printf("state: get_wallets payload: %v", err)
			return
		}
		if list.OK() {
			s.wallets = list.Wallets
		}
	case protocol.CmdGetPlots:
		var st protocol.ResponseStatus
		if err := env.DecodeData(&st); err == nil && st.OK() {
			s.plotsCached = true
		}
	}
}

// ServiceConnected reports whether the named backend service has answered a
// ping on the current connection.
func (s *Store) ServiceConnected(service string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services[service]
}

// PlotsCached reports whether a plot list has been fetched.
func (s *Store) PlotsCached() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plotsCached
}

// Connected reports the daemon link state.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Plotting reports whether the plotter is active.
func (s *Store) Plotting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plotting
}

// LastCommand returns the command of the most recent inbound envelope.
func (s *Store) LastCommand() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCommand
}

// Services returns a copy of the per-service connectivity flags.
func (s *Store) Services() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.services))
	for k, v := range s.services {
		out[k] = v
	}
	return out
}

// Wallets returns a copy of the cached wallet list.
func (s *Store) Wallets() []protocol.WalletInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.WalletInfo, len(s.wallets))
	copy(out, s.wallets)
	return out
}

// Alerts returns a copy of the surfaced errors, oldest first.
func (s *Store) Alerts() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// DismissAlert removes an alert by id.
func (s *Store) DismissAlert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.alerts {
		if a.ID == id {
			s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
			return true
		}
	}
	return false
}
