package gateway

import (
	"sync"

	"farmgate/protocol"
)

// Callback is invoked with the response envelope that answers a request.
type Callback func(*protocol.Envelope)

// Correlator matches inbound envelopes to pending requests by request_id.
// Each entry resolves at most once.
type Correlator struct {
	mu      sync.Mutex
	pending map[string]Callback
}

// NewCorrelator creates an empty pending-request table.
func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[string]Callback)}
}

// Register stores the callback for an outstanding request id.
func (c *Correlator) Register(requestID string, cb Callback) {
	c.mu.Lock()
	c.pending[requestID] = cb
	c.mu.Unlock()
}

// Cancel drops a pending entry without invoking it.
func (c *Correlator) Cancel(requestID string) {
	c.mu.Lock()
	delete(c.pending, requestID)
	c.mu.Unlock()
}

// Resolve invokes and clears the callback waiting on the envelope's
// request id, if any. Envelopes with no matching entry pass through
// untouched; unsolicited pushes are not an error.
func (c *Correlator) Resolve(env *protocol.Envelope) bool {
	c.mu.Lock()
	cb, ok := c.pending[env.RequestID]
	if ok {
		delete(c.pending, env.RequestID)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	cb(env)
	return true
}

// Flush drops every pending entry and returns how many were dropped.
// Called when the connection goes away; abandoned callbacks never fire.
func (c *Correlator) Flush() int {
	c.mu.Lock()
	n := len(c.pending)
	c.pending = make(map[string]Callback)
	c.mu.Unlock()
	return n
}

// PendingCount returns the number of outstanding requests.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
