package protocol

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedFrame marks an inbound frame that is not valid JSON or is
// missing required envelope fields.
var ErrMalformedFrame = errors.New("malformed frame")

// Envelope is the wire unit exchanged with the daemon.
type Envelope struct {
	Command     string          `json:"command"`
	Data        json.RawMessage `json:"data"`
	Origin      string          `json:"origin"`
	Destination string          `json:"destination"`
	Ack         bool            `json:"ack"`
	RequestID   string          `json:"request_id"`
}

// NewRequestID returns a fresh 32-byte random identifier in hex.
func NewRequestID() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// NewEnvelope builds an outbound envelope for the given command and
// destination service. A nil payload is sent as an empty object.
func NewEnvelope(command, destination string, payload any) (*Envelope, error) {
	data := json.RawMessage("{}")
	if payload != nil {
		p, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", command, err)
		}
		data = p
	}

	return &Envelope{
		Command:     command,
		Data:        data,
		Origin:      OriginUI,
		Destination: destination,
		Ack:         false,
		RequestID:   NewRequestID(),
	}, nil
}

// Decode parses a JSON text frame into an envelope.
func Decode(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Command == "" {
		return nil, fmt.Errorf("%w: missing command", ErrMalformedFrame)
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedFrame)
	}
	return &env, nil
}

// Encode marshals the envelope to a JSON text frame.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeData unmarshals the data payload into the given target.
func (e *Envelope) DecodeData(target any) error {
	return json.Unmarshal(e.Data, target)
}
