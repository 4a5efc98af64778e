package context

import (
	stdctx "context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := stdctx.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	id := NewRequestID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	ctx = WithRequestID(ctx, id)
	assert.Equal(t, id, RequestIDFromContext(ctx))
	assert.Equal(t, ctx, EnsureRequestID(ctx))
}

func TestEnsureRequestID(t *testing.T) {
	ctx := EnsureRequestID(stdctx.Background())
	assert.NotEmpty(t, RequestIDFromContext(ctx))
}

func TestSenderAndMessageID(t *testing.T) {
	ctx := WithSender(stdctx.Background(), "agent1qsender")
	ctx = WithMessageID(ctx, "msg-1")

	assert.Equal(t, "agent1qsender", SenderFromContext(ctx))
	assert.Equal(t, "msg-1", MessageIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, SenderFromContext(nil))
}
