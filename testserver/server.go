// Package testserver provides a configurable JSON HTTP server for
// exercising the dispatch and comparison engine in tests.
package testserver

import (
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
)

// Server is a configurable HTTP test server. Responses to /api/decision are
// deterministic functions of the submitted identifier, so two identical
// runs produce byte-identical bodies and can be compared for regressions.
type Server struct {
	mux        *http.ServeMux
	flakyCount atomic.Int64
	requests   atomic.Int64
}

// NewServer creates a test server with all endpoints configured.
func NewServer() *Server {
	s := &Server{mux: http.NewServeMux()}
	s.registerHandlers()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.mux }

// Requests returns the number of requests handled so far.
func (s *Server) Requests() int64 { return s.requests.Load() }

// ResetFlaky resets the /flaky failure counter.
func (s *Server) ResetFlaky() { s.flakyCount.Store(0) }

func (s *Server) registerHandlers() {
	s.mux.HandleFunc("/health", s.count(s.handleHealth))
	s.mux.HandleFunc("/status/", s.count(s.handleStatus))
	s.mux.HandleFunc("/delay/", s.count(s.handleDelay))
	s.mux.HandleFunc("/flaky/", s.count(s.handleFlaky))
	s.mux.HandleFunc("/api/decision", s.count(s.handleDecision))
}

func (s *Server) count(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		h(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// handleStatus returns the requested HTTP status code.
// Example: POST /status/503 returns 503.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/status/"))
	if err != nil || code < 100 || code > 599 {
		http.Error(w, "invalid status code", http.StatusBadRequest)
		return
	}
	w.WriteHeader(code)
	fmt.Fprintf(w, "%d %s", code, http.StatusText(code))
}

// handleDelay waits before responding. Example: POST /delay/100 waits 100ms.
func (s *Server) handleDelay(w http.ResponseWriter, r *http.Request) {
	ms, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/delay/"))
	if err != nil || ms < 0 {
		http.Error(w, "invalid delay", http.StatusBadRequest)
		return
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"delayed_ms":%d}`, ms)
}

// handleFlaky fails the first N requests with 503, then succeeds.
// Example: POST /flaky/3 fails three times across all callers.
func (s *Server) handleFlaky(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/flaky/"))
	if err != nil || n < 0 {
		http.Error(w, "invalid failure count", http.StatusBadRequest)
		return
	}
	if s.flakyCount.Add(1) <= int64(n) {
		http.Error(w, "transient failure", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"recovered"}`)
}

// handleDecision answers an application submission with a response derived
// deterministically from its appId.
func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}
	if !gjson.ValidBytes(body) {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	appID := gjson.GetBytes(body, "appId")
	if !appID.Exists() {
		appID = gjson.GetBytes(body, "application.appId")
	}
	if !appID.Exists() {
		http.Error(w, `{"error":"missing appId"}`, http.StatusBadRequest)
		return
	}

	h := fnv.New32a()
	h.Write([]byte(appID.String()))
	score := 300 + h.Sum32()%550
	decision := "approved"
	if score < 500 {
		decision = "referred"
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"appId":%q,"decision":%q,"score":%d}`, appID.String(), decision, score)
}
