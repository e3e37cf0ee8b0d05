package gateway

import (
	"testing"

	"farmgate/protocol"
)

func response(requestID string) *protocol.Envelope {
	return &protocol.Envelope{
		Command:   protocol.CmdPing,
		Origin:    protocol.ServiceWallet,
		Data:      []byte(`{"success":true}`),
		RequestID: requestID,
	}
}

func TestResolveExactlyOnce(t *testing.T) {
	c := NewCorrelator()
	id := protocol.NewRequestID()

	fired := 0
	c.Register(id, func(env *protocol.Envelope) { fired++ })

	if !c.Resolve(response(id)) {
		t.Fatal("first Resolve should match")
	}
	if fired != 1 {
		t.Fatalf("callback fired %d times, want 1", fired)
	}
	if c.PendingCount() != 0 {
		t.Errorf("pending = %d, want 0 after resolve", c.PendingCount())
	}

	// A duplicate frame with the same request id must not re-fire.
	if c.Resolve(response(id)) {
		t.Error("second Resolve should not match")
	}
	if fired != 1 {
		t.Errorf("callback fired %d times after duplicate, want 1", fired)
	}
}

func TestUnmatchedPassesThrough(t *testing.T) {
	c := NewCorrelator()
	if c.Resolve(response(protocol.NewRequestID())) {
		t.Error("unsolicited envelope should not match anything")
	}
}

func TestCancel(t *testing.T) {
	c := NewCorrelator()
	id := protocol.NewRequestID()

	fired := false
	c.Register(id, func(env *protocol.Envelope) { fired = true })
	c.Cancel(id)

	if c.Resolve(response(id)) {
		t.Error("cancelled entry should not match")
	}
	if fired {
		t.Error("cancelled callback should never fire")
	}
}

func TestFlush(t *testing.T) {
	c := NewCorrelator()

	fired := 0
	for i := 0; i < 3; i++ {
		c.Register(protocol.NewRequestID(), func(env *protocol.Envelope) { fired++ })
	}

	if n := c.Flush(); n != 3 {
		t.Errorf("Flush = %d, want 3", n)
	}
	if fired != 0 {
		t.Errorf("flushed callbacks fired %d times, want 0", fired)
	}
	if c.PendingCount() != 0 {
		t.Errorf("pending = %d, want 0 after flush", c.PendingCount())
	}
}
