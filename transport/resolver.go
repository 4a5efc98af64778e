package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/va6996/tokenagent/log"
)

// ErrUnknownAddress is returned when no endpoint is known for an agent address
var ErrUnknownAddress = errors.New("unknown agent address")

// Resolver maps an agent address to the URL its envelopes are POSTed to
type Resolver interface {
	Resolve(ctx context.Context, address string) (string, error)
}

// StaticResolver resolves from a fixed address book
type StaticResolver map[string]string

func (r StaticResolver) Resolve(ctx context.Context, address string) (string, error) {
	if endpoint, ok := r[address]; ok && endpoint != "" {
		return endpoint, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownAddress, address)
}

// ChainResolver asks each resolver in turn and returns the first hit.
// Errors other than ErrUnknownAddress are logged and skipped.
type ChainResolver []Resolver

func (c ChainResolver) Resolve(ctx context.Context, address string) (string, error) {
	for _, r := range c {
		endpoint, err := r.Resolve(ctx, address)
		if err == nil {
			return endpoint, nil
		}
		if !errors.Is(err, ErrUnknownAddress) {
			log.Warnf(ctx, "Resolver %T failed for %s: %v", r, address, err)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownAddress, address)
}
