// Package health exposes worker heartbeats over HTTP.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dyluth/stratux-companion/internal/worker"
)

// Checker reports the status of every worker.
type Checker interface {
	Statuses(now time.Time) []worker.Status
}

// Server provides the /healthz endpoint for the companion process.
// It runs in a background goroutine and can be gracefully shut down.
type Server struct {
	server  *http.Server
	checker Checker
	now     func() time.Time
}

// Response is the JSON body of /healthz.
type Response struct {
	Status  string          `json:"status"`
	Error   string          `json:"error,omitempty"`
	Workers []worker.Status `json:"workers"`
}

// Healthy reports whether the response describes a healthy process.
func (r *Response) Healthy() bool {
	return r.Status == "healthy"
}

// NewServer creates a health server listening on all interfaces at port.
func NewServer(checker Checker, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		checker: checker,
		now:     time.Now,
	}

	mux.HandleFunc("/healthz", s.handleHealthz)

	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the listen address and serves in a background goroutine.
// A bind failure (e.g. port already in use) is returned immediately.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	go func() {
		log.Printf("[DEBUG] Health server starting on %s", s.server.Addr)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[ERROR] Health server error: %v", err)
		}
		log.Printf("[DEBUG] Health server stopped")
	}()

	return nil
}

// Shutdown gracefully shuts down the HTTP server, waiting for in-flight
// requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("[DEBUG] Shutting down health server...")
	return s.server.Shutdown(ctx)
}

// handleHealthz returns 200 when every worker is healthy, 503 otherwise.
//
// Response format:
//   - Success: {"status": "healthy", "workers": [...]}
//   - Failure: {"status": "unhealthy", "error": "stale workers: traffic", "workers": [...]}
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	statuses := s.checker.Statuses(s.now())

	var stale []string
	for _, st := range statuses {
		if !st.Healthy {
			stale = append(stale, st.Name)
		}
	}

	response := Response{Status: "healthy", Workers: statuses}
	statusCode := http.StatusOK
	if len(stale) > 0 {
		response.Status = "unhealthy"
		response.Error = "stale workers: " + strings.Join(stale, ", ")
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("[ERROR] Failed to encode health response: %v", err)
	}
}
