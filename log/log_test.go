package log

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	reqctx "github.com/va6996/tokenagent/context"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T, level, format string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Init(level, format)
	SetOutput(&buf)
	t.Cleanup(func() {
		Init("info", "text")
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestCustomFormatter(t *testing.T) {
	buf := captureOutput(t, "info", "text")

	ctx := reqctx.WithRequestID(context.Background(), "req-123")
	ctx = reqctx.WithSender(ctx, "agent1qsender")
	Infof(ctx, "handled %d items", 2)

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "[log_test.go:")
	assert.Contains(t, out, "handled 2 items")
	assert.Contains(t, out, "[req:req-123]")
	assert.Contains(t, out, "sender=agent1qsender")
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t, "warn", "text")

	Infof(context.Background(), "hidden")
	Warnf(context.Background(), "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Equal(t, logrus.WarnLevel, Logger.GetLevel())
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t, "debug", "json")

	ctx := reqctx.WithMessageID(context.Background(), "msg-9")
	Debugf(ctx, "decoded")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "decoded", decoded["msg"])
	assert.Equal(t, "msg-9", decoded["msg_id"])
}

func TestInitUnknownLevelDefaultsToInfo(t *testing.T) {
	captureOutput(t, "verbose", "text")
	assert.Equal(t, logrus.InfoLevel, Logger.GetLevel())
}
