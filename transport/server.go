package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/va6996/tokenagent/agents"
	reqctx "github.com/va6996/tokenagent/context"
	"github.com/va6996/tokenagent/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const maxBodyBytes = 1 << 20

// Dispatcher routes a decoded envelope payload
type Dispatcher interface {
	Dispatch(ctx context.Context, sender, schema string, payload []byte) error
}

// Server accepts envelopes on /submit and hands them to a Dispatcher in the
// background. /query answers an utterance synchronously.
type Server struct {
	address    string
	dispatcher Dispatcher
	responder  agents.Responder

	srv      *http.Server
	inflight conc.WaitGroup
}

// NewServer creates a server listening on port. An empty address accepts
// envelopes for any target.
func NewServer(port int, address string, dispatcher Dispatcher, responder agents.Responder) *Server {
	s := &Server{
		address:    address,
		dispatcher: dispatcher,
		responder:  responder,
	}
	// Use h2c for HTTP/2 without TLS
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed, CORS-wrapped handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /submit", s.handleSubmit)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return cors(mux)
}

// Start serves until ctx is cancelled, then shuts down and drains
// in-flight dispatches.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof(ctx, "Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info(context.Background(), "Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf(context.Background(), "Server shutdown error: %v", err)
		}
	}

	s.Wait()
	return nil
}

// Wait blocks until every background dispatch has finished
func (s *Server) Wait() {
	if r := s.inflight.WaitAndRecover(); r != nil {
		log.Errorf(context.Background(), "Dispatch panicked: %v", r.Value)
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := reqctx.WithRequestID(r.Context(), reqctx.NewRequestID())

	var env Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid envelope: "+err.Error())
		return
	}
	if err := env.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.address != "" && env.Target != s.address {
		log.Warnf(ctx, "Rejecting envelope from %s for target %s", env.Sender, env.Target)
		writeError(w, http.StatusBadRequest, "envelope target does not match this agent")
		return
	}
	if env.Expired(time.Now()) {
		writeError(w, http.StatusBadRequest, "envelope expired")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{})

	// The request context ends with the response; keep its values only
	bg := context.WithoutCancel(ctx)
	s.inflight.Go(func() {
		if err := s.dispatcher.Dispatch(bg, env.Sender, env.SchemaDigest, env.Payload); err != nil {
			log.Errorf(bg, "Dispatch from %s failed: %v", env.Sender, err)
		}
	})
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := reqctx.WithRequestID(r.Context(), reqctx.NewRequestID())

	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	log.Infof(ctx, "Received query: %s", req.Query)
	writeJSON(w, http.StatusOK, queryResponse{Response: s.responder.ProcessQuery(ctx, req.Query)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "address": s.address})
}

// Simple CORS middleware
func cors(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf(context.Background(), "Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
