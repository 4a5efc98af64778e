package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/firebase/genkit/go/genkit"
	"github.com/va6996/tokenagent/config"
	"github.com/va6996/tokenagent/log"
	"github.com/va6996/tokenagent/tools"
)

// ErrUnsupportedOperation is returned by Call for names outside the catalog
var ErrUnsupportedOperation = errors.New("unsupported operation")

// Client calls the token canister over its HTTP gateway
type Client struct {
	BaseURL    string
	CanisterID string
	HTTPClient *http.Client
}

// NewClient creates a ledger client and registers its tools
func NewClient(cfg config.LedgerConfig, gk *genkit.Genkit, registry *tools.Registry) *Client {
	if cfg.CanisterID == "" {
		log.Warn(context.Background(), "Ledger canister id is empty, requests will be sent without a Host override")
	}

	client := &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		CanisterID: cfg.CanisterID,
		HTTPClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
	}

	client.registerTools(gk, registry)

	return client
}

// requestError marks failures talking to the canister, as opposed to
// failures building the request.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// Call invokes the named operation. Backend and argument failures come back
// as an {"error": ...} result; only an unknown operation is an error.
func (c *Client) Call(ctx context.Context, operation string, args map[string]interface{}) (interface{}, error) {
	op, ok := Lookup(operation)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, operation)
	}
	return c.execute(ctx, op, args), nil
}

func (c *Client) execute(ctx context.Context, op Operation, args map[string]interface{}) interface{} {
	result, err := c.do(ctx, op, args)
	if err == nil {
		return result
	}

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		log.Errorf(ctx, "[Ledger] HTTP request failed for %s: %v", op.Name, err)
		return errorResult("Failed to communicate with the canister: " + err.Error())
	}
	log.Errorf(ctx, "[Ledger] Error calling %s: %v", op.Name, err)
	return errorResult("An unexpected error occurred: " + err.Error())
}

func (c *Client) do(ctx context.Context, op Operation, args map[string]interface{}) (interface{}, error) {
	payload, err := op.Payload(args)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := c.BaseURL + "/" + op.Path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.CanisterID != "" {
		httpReq.Host = c.CanisterID + ".localhost"
	}

	log.Infof(ctx, "[Ledger] Calling endpoint: %s with payload: %s", url, string(jsonData))

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &requestError{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &requestError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &requestError{err: fmt.Errorf("%s for url: %s", resp.Status, url)}
	}

	var result interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &requestError{err: fmt.Errorf("failed to decode response: %w", err)}
	}

	log.Debugf(ctx, "[Ledger] %s completed: %s", op.Name, string(body))
	return result, nil
}

func errorResult(msg string) map[string]interface{} {
	return map[string]interface{}{"error": msg}
}
