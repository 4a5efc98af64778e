package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/va6996/tokenagent/chat"
	"github.com/va6996/tokenagent/config"
	"github.com/va6996/tokenagent/orm"
	"github.com/va6996/tokenagent/plugins/ledger"
	"github.com/va6996/tokenagent/transport"
)

const (
	agentAddress = "agent1qtokenagent"
	peerAddress  = "agent1quser"
)

// fakeASI1 answers the first completion with a metadata tool call and the
// second with a summary quoting the tool result.
func fakeASI1(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		var body struct {
			Tools    []interface{}            `json:"tools"`
			Messages []map[string]interface{} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		message := `{"role":"assistant","content":null,"tool_calls":[{"id":"call_1","type":"function","function":{"name":"get_token_metadata","arguments":"{\"token_id\":\"ryjl3-tyaaa-aaaaa-aaaba-cai\"}"}}]}`
		if len(body.Tools) == 0 {
			last := body.Messages[len(body.Messages)-1]
			content, _ := json.Marshal("Summary: " + fmt.Sprint(last["content"]))
			message = fmt.Sprintf(`{"role":"assistant","content":%s}`, content)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"c","object":"chat.completion","created":1,"model":"asi1-mini","choices":[{"index":0,"finish_reason":"stop","message":%s}]}`, message)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fakeLedger(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getTokenMetadata", r.URL.Path)
		assert.Equal(t, "aaaaa-aa.localhost", r.Host)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"symbol":"TT"}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type inbox struct {
	mu       sync.Mutex
	received []transport.Envelope
}

func (b *inbox) snapshot() []transport.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]transport.Envelope(nil), b.received...)
}

func fakePeer(t *testing.T) (*httptest.Server, *inbox) {
	t.Helper()
	box := &inbox{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env transport.Envelope
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		box.mu.Lock()
		box.received = append(box.received, env)
		box.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, box
}

func testConfig(llmURL, ledgerURL, peerURL string) *config.Config {
	return &config.Config{
		Agent: config.AgentConfig{
			Name:        "icrc2_token_agent",
			Address:     agentAddress,
			Port:        0,
			Peers:       map[string]string{peerAddress: peerURL},
			SendTimeout: 5,
		},
		LLM:     config.LLMConfig{APIKey: "sk-test", BaseURL: llmURL, Model: "asi1-mini", Timeout: 5},
		Ledger:  config.LedgerConfig{BaseURL: ledgerURL, CanisterID: "aaaaa-aa", Timeout: 5},
		Storage: config.StorageConfig{Driver: "sqlite", DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())},
	}
}

func TestSetupAgent_RequiresAPIKey(t *testing.T) {
	_, err := SetupAgent(context.Background(), &config.Config{Ledger: config.LedgerConfig{BaseURL: "http://ledger"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASI1_API_KEY")
}

func TestSetupAgent_RegistersLedgerTools(t *testing.T) {
	app, err := SetupAgent(context.Background(), testConfig("http://llm", "http://ledger", "http://peer"))
	require.NoError(t, err)
	assert.Equal(t, []string{ledger.OpCreateToken, ledger.OpTokenMetadata, ledger.OpTokenInfo}, app.Registry.Names())
	assert.Nil(t, app.Server)
}

func TestSetup_ChatRoundTrip(t *testing.T) {
	llm := fakeASI1(t)
	ledgerSrv := fakeLedger(t)
	peer, box := fakePeer(t)

	app, err := Setup(context.Background(), testConfig(llm.URL, ledgerSrv.URL, peer.URL))
	require.NoError(t, err)
	defer app.Close()

	ts := httptest.NewServer(app.Server.Handler())
	defer ts.Close()

	inboundMsg := chat.NewTextMessage("What is the metadata of ryjl3-tyaaa-aaaaa-aaaba-cai?")
	env, err := transport.NewEnvelope(peerAddress, agentAddress, inboundMsg)
	require.NoError(t, err)
	body, err := json.Marshal(env)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/submit", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	app.Server.Wait()

	received := box.snapshot()
	require.Len(t, received, 2)

	assert.Equal(t, chat.ChatAcknowledgementDigest, received[0].SchemaDigest)
	var ack chat.ChatAcknowledgement
	require.NoError(t, json.Unmarshal(received[0].Payload, &ack))
	assert.Equal(t, inboundMsg.MsgID, ack.AcknowledgedMsgID)

	assert.Equal(t, chat.ChatMessageDigest, received[1].SchemaDigest)
	assert.Equal(t, agentAddress, received[1].Sender)
	var reply chat.ChatMessage
	require.NoError(t, json.Unmarshal(received[1].Payload, &reply))
	assert.Equal(t, []string{`Summary: {"symbol":"TT"}`}, reply.Texts())

	records, err := orm.ListExchanges(app.DB, peerAddress, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, inboundMsg.MsgID, records[0].MsgID)
	assert.Equal(t, `Summary: {"symbol":"TT"}`, records[0].Reply)
	assert.WithinDuration(t, time.Now(), records[0].RepliedAt, time.Minute)
}
