package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/va6996/tokenagent/chat"
	"github.com/va6996/tokenagent/log"
)

// HTTPSender delivers messages by POSTing envelopes to the target's endpoint
type HTTPSender struct {
	Address    string
	Resolver   Resolver
	HTTPClient *http.Client
}

var _ chat.Sender = (*HTTPSender)(nil)

// NewHTTPSender creates a sender that signs envelopes as address
func NewHTTPSender(address string, resolver Resolver, timeout time.Duration) *HTTPSender {
	return &HTTPSender{
		Address:    address,
		Resolver:   resolver,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Send wraps msg in an envelope and delivers it to target. Non-2xx is an error.
func (s *HTTPSender) Send(ctx context.Context, target string, msg chat.Model) error {
	endpoint, err := s.Resolver.Resolve(ctx, target)
	if err != nil {
		return err
	}

	env, err := NewEnvelope(s.Address, target, msg)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debugf(ctx, "Sending %T to %s via %s", msg, target, endpoint)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver to %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("delivery to %s failed with status %d: %s", target, resp.StatusCode, string(detail))
	}
	return nil
}
