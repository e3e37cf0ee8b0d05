package gateway

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"farmgate/protocol"
)

// ErrNotConnected is returned by Send when no socket is open. The envelope is
// dropped, not queued.
var ErrNotConnected = errors.New("not connected")

// Client owns the single WebSocket connection to the daemon. It serializes
// outgoing envelopes, runs the read pump, and hands every inbound frame to the
// correlator and then the router, in that order.
type Client struct {
	dispatcher Dispatcher
	correlator *Correlator

	router  *Router
	onOpen  func()
	onClose func()

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	// dialMu serializes the close-prior -> dial -> install sequence so
	// overlapping Connect calls cannot each install a socket.
	dialMu  sync.Mutex
	writeMu sync.Mutex
}

// NewClient creates a disconnected client feeding the given dispatcher.
func NewClient(dispatcher Dispatcher) *Client {
	return &Client{
		dispatcher: dispatcher,
		correlator: NewCorrelator(),
	}
}

// Bind wires the inbound router and the lifecycle hooks. onOpen runs after
// each successful dial (service bootstrap); onClose runs whenever the
// connection goes away (loop shutdown). Must be called before Connect.
func (c *Client) Bind(router *Router, onOpen, onClose func()) {
	c.router = router
	c.onOpen = onOpen
	c.onClose = onClose
}

// Connect dials the daemon at addr. Any prior socket is closed first, so at
// most one connection is live at a time. A failed dial leaves the client
// disconnected and is reported to the caller, never panicked.
func (c *Client) Connect(addr string) error {
	c.dialMu.Lock()
	defer c.dialMu.Unlock()

	c.mu.Lock()
	prior := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	// A new connect is a hard cancellation of everything in flight on the
	// old socket.
	if prior != nil {
		prior.Close()
		c.teardown()
	}

	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		log.Printf("gateway: connect %s: %v", addr, err)
		return fmt.Errorf("connect %s: %w", addr, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.dispatcher.Dispatch(Action{Type: ActionConnectionStatus, Connected: true})
	go c.readLoop(conn)

	if c.onOpen != nil {
		c.onOpen()
	}
	return nil
}

// Disconnect closes the socket and clears the handle.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn == nil {
		return
	}
	conn.Close()
	c.teardown()
}

// Connected reports whether outgoing sends are currently permitted.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Pending returns the number of requests awaiting a response.
func (c *Client) Pending() int {
	return c.correlator.PendingCount()
}

// Send serializes the envelope and writes it to the socket. When disconnected
// the envelope is dropped and ErrNotConnected returned; callers treat this as
// non-fatal.
func (c *Client) Send(env *protocol.Envelope) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		log.Printf("gateway: drop %s: not connected", env.Command)
		return ErrNotConnected
	}

	raw, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", env.Command, err)
	}

	// gorilla permits one concurrent writer.
	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, raw)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("write %s: %w", env.Command, err)
	}
	return nil
}

// Call builds an envelope for the command and sends it. A non-nil cb is
// registered to fire on the matching response; registration is rolled back if
// the send fails.
func (c *Client) Call(command, destination string, payload any, cb Callback) error {
	env, err := protocol.NewEnvelope(command, destination, payload)
	if err != nil {
		return err
	}
	if cb != nil {
		c.correlator.Register(env.RequestID, cb)
	}
	if err := c.Send(env); err != nil {
		if cb != nil {
			c.correlator.Cancel(env.RequestID)
		}
		return err
	}
	return nil
}

// readLoop pumps frames off one socket until it dies. Frames are handled
// sequentially, so receipt order is preserved and correlation always completes
// before routing.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.closed(conn, err)
			return
		}

		env, err := protocol.Decode(raw)
		if err != nil {
			// Isolate the bad frame; the connection stays up.
			log.Printf("gateway: dropping frame: %v", err)
			continue
		}

		c.correlator.Resolve(env)
		if c.router != nil {
			c.router.Route(env)
		}
	}
}

// closed handles a socket that died underneath the read pump. A stale pump
// whose socket was already replaced by a newer Connect does nothing.
func (c *Client) closed(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Printf("gateway: connection lost: %v", err)
	}
	c.teardown()
}

// teardown runs the shared disconnect path: notify state, abandon pending
// requests, stop ping loops. No automatic reconnect; a new Connect must be
// issued externally.
func (c *Client) teardown() {
	c.dispatcher.Dispatch(Action{Type: ActionConnectionStatus, Connected: false})
	if n := c.correlator.Flush(); n > 0 {
		log.Printf("gateway: abandoned %d pending requests", n)
	}
	if c.onClose != nil {
		c.onClose()
	}
}
