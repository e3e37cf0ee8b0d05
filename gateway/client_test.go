package gateway

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"farmgate/protocol"
)

// fakeDaemon is an in-process WebSocket endpoint standing in for the backend
// daemon.
type fakeDaemon struct {
	t   *testing.T
	srv *httptest.Server

	mu   sync.Mutex
	conn *websocket.Conn
	live int

	recv   chan *protocol.Envelope
	closed chan struct{}
}

func newFakeDaemon(t *testing.T) *fakeDaemon {
	d := &fakeDaemon{
		t:      t,
		recv:   make(chan *protocol.Envelope, 64),
		closed: make(chan struct{}, 4),
	}
	d.srv = httptest.NewServer(http.HandlerFunc(d.handle))
	t.Cleanup(d.srv.Close)
	return d
}

func (d *fakeDaemon) handle(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	d.mu.Lock()
	d.conn = conn
	d.live++
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.live--
		d.mu.Unlock()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case d.closed <- struct{}{}:
			default:
			}
			return
		}
		env, err := protocol.Decode(raw)
		if err != nil {
			continue
		}
		d.recv <- env
	}
}

func (d *fakeDaemon) url() string {
	return "ws" + strings.TrimPrefix(d.srv.URL, "http")
}

// liveSockets returns how many server-side connections are still open.
func (d *fakeDaemon) liveSockets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// expect waits for the next envelope and asserts its command.
func (d *fakeDaemon) expect(command string) *protocol.Envelope {
	d.t.Helper()
	select {
	case env := <-d.recv:
		if env.Command != command {
			d.t.Fatalf("received %q, want %q", env.Command, command)
		}
		return env
	case <-time.After(2 * time.Second):
		d.t.Fatalf("timed out waiting for %q", command)
		return nil
	}
}

func (d *fakeDaemon) push(env *protocol.Envelope) {
	d.t.Helper()
	raw, err := env.Encode()
	if err != nil {
		d.t.Fatalf("encode push: %v", err)
	}
	d.pushRaw(raw)
}

func (d *fakeDaemon) pushRaw(raw []byte) {
	d.t.Helper()
	// The handler goroutine stores the connection just after the handshake;
	// wait for it rather than racing the client's Connect return.
	var conn *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		conn = d.conn
		d.mu.Unlock()
		if conn != nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if conn == nil {
		d.t.Fatal("no daemon connection to push on")
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		d.t.Fatalf("push: %v", err)
	}
}

func (d *fakeDaemon) dropConnection() {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(s string) {
	l.mu.Lock()
	l.events = append(l.events, s)
	l.mu.Unlock()
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

func (l *eventLog) index(s string) int {
	for i, e := range l.all() {
		if e == s {
			return i
		}
	}
	return -1
}

type logDispatcher struct {
	log *eventLog
}

func (d *logDispatcher) Dispatch(a Action) {
	d.log.add("action:" + string(a.Type))
}

func TestSendNotConnected(t *testing.T) {
	c := NewClient(&fakeDispatcher{})

	env, err := protocol.NewEnvelope(protocol.CmdPing, protocol.ServiceWallet, nil)
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if err := c.Send(env); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send = %v, want ErrNotConnected", err)
	}
}

func TestConnectFailure(t *testing.T) {
	c := NewClient(&fakeDispatcher{})

	if err := c.Connect("ws://127.0.0.1:1"); err == nil {
		t.Fatal("expected dial error")
	}
	if c.Connected() {
		t.Error("client should stay disconnected after a failed dial")
	}
}

func TestCallRollsBackOnSendFailure(t *testing.T) {
	c := NewClient(&fakeDispatcher{})

	err := c.Call(protocol.CmdPing, protocol.ServiceWallet, nil, func(*protocol.Envelope) {})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Call = %v, want ErrNotConnected", err)
	}
	if c.Pending() != 0 {
		t.Errorf("pending = %d, want 0 after failed send", c.Pending())
	}
}

// End-to-end: a ping round trip resolves the waiting caller first, then the
// router fans out the wallet status refresh.
func TestPingScenario(t *testing.T) {
	d := newFakeDaemon(t)
	events := &eventLog{}
	disp := &logDispatcher{log: events}

	c := NewClient(disp)
	router := NewRouter(c, disp, &fakeState{}, &fakeLoops{})
	c.Bind(router, nil, nil)

	if err := c.Connect(d.url()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Disconnect()

	err := c.Call(protocol.CmdPing, protocol.ServiceWallet, nil, func(env *protocol.Envelope) {
		events.add("callback")
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	sent := d.expect(protocol.CmdPing)
	if sent.Destination != protocol.ServiceWallet {
		t.Errorf("destination = %q, want wallet", sent.Destination)
	}
	if sent.Origin != protocol.OriginUI {
		t.Errorf("origin = %q, want %q", sent.Origin, protocol.OriginUI)
	}

	d.push(&protocol.Envelope{
		Command:   protocol.CmdPing,
		Origin:    protocol.ServiceWallet,
		Data:      []byte(`{"success":true}`),
		RequestID: sent.RequestID,
	})

	// Router follow-ups arrive on the wire in rule order.
	d.expect(protocol.CmdGetConnections)
	d.expect(protocol.CmdGetPublicKeys)

	cb := events.index("callback")
	in := events.index("action:" + string(ActionIncomingMessage))
	if cb == -1 || in == -1 {
		t.Fatalf("events = %v, want callback and incoming action", events.all())
	}
	if cb > in {
		t.Errorf("callback at %d after incoming action at %d; correlation must come first", cb, in)
	}
	if c.Pending() != 0 {
		t.Errorf("pending = %d, want 0 after response", c.Pending())
	}
}

func TestCloseBeforeReopen(t *testing.T) {
	d1 := newFakeDaemon(t)
	d2 := newFakeDaemon(t)

	c := NewClient(&fakeDispatcher{})
	if err := c.Connect(d1.url()); err != nil {
		t.Fatalf("connect first: %v", err)
	}
	if err := c.Connect(d2.url()); err != nil {
		t.Fatalf("connect second: %v", err)
	}
	defer c.Disconnect()

	select {
	case <-d1.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("old connection was never closed")
	}

	if !c.Connected() {
		t.Fatal("client should stay connected to the new daemon")
	}

	// The new socket is live.
	env, _ := protocol.NewEnvelope(protocol.CmdPing, protocol.ServiceWallet, nil)
	if err := c.Send(env); err != nil {
		t.Fatalf("send on new connection: %v", err)
	}
	d2.expect(protocol.CmdPing)
}

func TestConcurrentConnectSingleSocket(t *testing.T) {
	d1 := newFakeDaemon(t)
	d2 := newFakeDaemon(t)

	for i := 0; i < 20; i++ {
		c := NewClient(&fakeDispatcher{})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); _ = c.Connect(d1.url()) }()
		go func() { defer wg.Done(); _ = c.Connect(d2.url()) }()
		wg.Wait()

		if !c.Connected() {
			t.Fatalf("iteration %d: client should be connected", i)
		}
		waitFor(t, 2*time.Second, func() bool {
			return d1.liveSockets()+d2.liveSockets() == 1
		}, "exactly one live socket after overlapping connects")

		c.Disconnect()
		waitFor(t, 2*time.Second, func() bool {
			return d1.liveSockets()+d2.liveSockets() == 0
		}, "all sockets to close")
	}
}

func TestMalformedFrameIsolated(t *testing.T) {
	d := newFakeDaemon(t)
	disp := &fakeDispatcher{}

	c := NewClient(disp)
	c.Bind(NewRouter(c, disp, &fakeState{}, &fakeLoops{}), nil, nil)
	if err := c.Connect(d.url()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Disconnect()

	d.pushRaw([]byte("{this is not json"))
	d.push(&protocol.Envelope{
		Command:   protocol.CmdPing,
		Origin:    protocol.ServiceFarmer,
		Data:      []byte(`{"success":true}`),
		RequestID: protocol.NewRequestID(),
	})

	// The valid frame after the bad one still routes.
	d.expect(protocol.CmdGetChallenges)
	d.expect(protocol.CmdGetConnections)

	if !c.Connected() {
		t.Error("a malformed frame must not drop the connection")
	}
}

func TestServerDropFlushesPending(t *testing.T) {
	d := newFakeDaemon(t)
	disp := &fakeDispatcher{}

	closeHook := make(chan struct{}, 1)
	c := NewClient(disp)
	c.Bind(nil, nil, func() { closeHook <- struct{}{} })
	if err := c.Connect(d.url()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	err := c.Call(protocol.CmdGetWallets, protocol.ServiceWallet, nil, func(*protocol.Envelope) {
		t.Error("abandoned callback must never fire")
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	d.expect(protocol.CmdGetWallets)

	d.dropConnection()

	select {
	case <-closeHook:
	case <-time.After(2 * time.Second):
		t.Fatal("onClose hook never ran")
	}

	waitFor(t, time.Second, func() bool { return !c.Connected() }, "disconnect")
	if c.Pending() != 0 {
		t.Errorf("pending = %d, want 0 after flush", c.Pending())
	}

	var sawDown bool
	for _, a := range disp.dispatched() {
		if a.Type == ActionConnectionStatus && !a.Connected {
			sawDown = true
		}
	}
	if !sawDown {
		t.Error("expected a disconnected CONNECTION_STATUS action")
	}
}

func TestDisconnect(t *testing.T) {
	d := newFakeDaemon(t)
	c := NewClient(&fakeDispatcher{})

	if err := c.Connect(d.url()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	c.Disconnect()

	if c.Connected() {
		t.Error("client should report disconnected")
	}
	select {
	case <-d.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("daemon never saw the close")
	}

	// Idempotent.
	c.Disconnect()
}
