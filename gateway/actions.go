package gateway

import (
	"encoding/json"

	"farmgate/protocol"
)

// ActionType tags the action objects handed to the reducer layer.
type ActionType string

const (
	ActionIncomingMessage  ActionType = "INCOMING_MESSAGE"
	ActionConnectionStatus ActionType = "CONNECTION_STATUS"
	ActionPlotQueueUpdate  ActionType = "PLOT_QUEUE_UPDATE"
	ActionPlottingStopped  ActionType = "PLOTTING_STOPPED"
	ActionShowErrorDialog  ActionType = "SHOW_ERROR_DIALOG"
)

// Action is a tagged state update emitted by the gateway. Which fields are set
// depends on Type.
type Action struct {
	Type      ActionType
	Envelope  *protocol.Envelope // INCOMING_MESSAGE
	Connected bool               // CONNECTION_STATUS
	Queue     json.RawMessage    // PLOT_QUEUE_UPDATE
	Message   string             // SHOW_ERROR_DIALOG
}

// Dispatcher is the reducer sink the gateway feeds state updates into.
type Dispatcher interface {
	Dispatch(Action)
}

// StateReader exposes the slices of external state the router and poller
// consult before issuing redundant fetches.
type StateReader interface {
	ServiceConnected(service string) bool
	PlotsCached() bool
}

// Sender issues outgoing commands to the daemon. Implemented by *Client.
type Sender interface {
	Call(command, destination string, payload any, cb Callback) error
}
