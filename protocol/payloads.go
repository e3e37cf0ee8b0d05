package protocol

import (
	"encoding/json"
	"strings"
)

// ResponseStatus is the conventional success indicator carried in response
// data. Success is a pointer so push events that carry no success field are
// not mistaken for failures.
type ResponseStatus struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK reports an explicit success.
func (s ResponseStatus) OK() bool {
	return s.Success != nil && *s.Success
}

// Failed reports an explicit failure.
func (s ResponseStatus) Failed() bool {
	return s.Success != nil && !*s.Success
}

// Benign reports whether the error text is an expected failure that must not
// surface to the user.
func (s ResponseStatus) Benign() bool {
	return strings.Contains(s.Error, "already running") ||
		strings.Contains(s.Error, "not_initialized")
}

// --- Client -> daemon payloads ---

// RegisterService announces this client (or one of its channels) to the daemon.
type RegisterService struct {
	Service  string `json:"service"`
	Instance string `json:"instance,omitempty"`
	Hostname string `json:"hostname,omitempty"`
}

// ServiceRequest names the backend service a start/stop command targets.
type ServiceRequest struct {
	Service string `json:"service"`
}

// WalletRequest targets a per-wallet fetch.
type WalletRequest struct {
	WalletID int `json:"wallet_id"`
}

// LogIn selects the key to operate under.
type LogIn struct {
	Fingerprint int64 `json:"fingerprint"`
}

// --- Daemon -> client payloads ---

// ServiceResponse answers start_service and stop_service, echoing the target.
type ServiceResponse struct {
	ResponseStatus
	Service string `json:"service"`
}

// WalletInfo describes one wallet in a get_wallets response. Data carries
// wallet-type-specific metadata as a nested JSON string.
type WalletInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// WalletList answers get_wallets.
type WalletList struct {
	ResponseStatus
	Wallets []WalletInfo `json:"wallets"`
}

// RateLimitedInfo is the nested metadata of a RATE_LIMITED wallet.
type RateLimitedInfo struct {
	Initialized bool `json:"initialized"`
}

// KeyEvent answers the key-management commands.
type KeyEvent struct {
	ResponseStatus
	Fingerprint int64 `json:"fingerprint,omitempty"`
}

// StateChange is the payload of a state_changed push event.
type StateChange struct {
	State    string          `json:"state"`
	WalletID int             `json:"wallet_id,omitempty"`
	Queue    json.RawMessage `json:"queue,omitempty"`
}
