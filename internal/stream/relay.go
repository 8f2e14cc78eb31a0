package stream

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Relay republishes a session's wire frames to NATS so consumers outside
// the process observe the same ordered feed as in-process subscribers.
//
// Frames are published to subjects:
//
//	sessions.{session_id}.events
//
// The payload is the JSON encoding of the Frame, identical to the SSE
// data field.
type Relay struct {
	nc *nats.Conn
}

// NewRelay creates a relay over an established NATS connection.
func NewRelay(nc *nats.Conn) *Relay {
	return &Relay{nc: nc}
}

// SubjectFor returns the NATS subject carrying a session's frames.
func SubjectFor(sessionID string) string {
	return fmt.Sprintf("sessions.%s.events", sessionID)
}

// Publish sends one frame to the session's subject.
func (r *Relay) Publish(sessionID string, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if err := r.nc.Publish(SubjectFor(sessionID), data); err != nil {
		return fmt.Errorf("publish frame: %w", err)
	}
	return nil
}
