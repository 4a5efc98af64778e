// Package transport carries chat-protocol messages between agents over HTTP.
package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/va6996/tokenagent/chat"
)

const EnvelopeVersion = 1

// Envelope wraps one chat-protocol message. Payload is the JSON-encoded
// message and travels base64 encoded.
type Envelope struct {
	Version        int    `json:"version"`
	Sender         string `json:"sender"`
	Target         string `json:"target"`
	Session        string `json:"session"`
	SchemaDigest   string `json:"schema_digest"`
	ProtocolDigest string `json:"protocol_digest,omitempty"`
	Payload        []byte `json:"payload,omitempty"`
	Expires        int64  `json:"expires,omitempty"`
	Nonce          int64  `json:"nonce,omitempty"`
}

// NewEnvelope wraps msg in an envelope with a fresh session id
func NewEnvelope(sender, target string, msg chat.Model) (*Envelope, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", msg, err)
	}
	return &Envelope{
		Version:        EnvelopeVersion,
		Sender:         sender,
		Target:         target,
		Session:        uuid.New().String(),
		SchemaDigest:   msg.SchemaDigest(),
		ProtocolDigest: chat.ProtocolDigest,
		Payload:        payload,
		Nonce:          time.Now().UnixNano(),
	}, nil
}

// Expired reports whether the envelope carries an expiry (unix seconds) in the past
func (e *Envelope) Expired(now time.Time) bool {
	return e.Expires > 0 && now.Unix() > e.Expires
}

// Validate checks the fields every inbound envelope needs
func (e *Envelope) Validate() error {
	if e.Sender == "" {
		return fmt.Errorf("envelope sender is required")
	}
	if e.SchemaDigest == "" {
		return fmt.Errorf("envelope schema_digest is required")
	}
	if len(e.Payload) == 0 {
		return fmt.Errorf("envelope payload is required")
	}
	return nil
}
