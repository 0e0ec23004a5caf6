// Package mockserver ships the stub sync server used for local
// development and tests. It always accepts a batch (§9 design notes: "an
// implementation should treat that as a test double, not a specification
// of server semantics").
package mockserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tasksync/tasksync/internal/sync"
)

// Server is a minimal stand-in for the real sync server.
type Server struct {
	config Config
	http   *http.Server
}

// Config controls the listen address.
type Config struct {
	ListenAddr string
}

// New creates a Server bound to cfg.ListenAddr.
func New(cfg Config) *Server {
	s := &Server{config: cfg}
	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("mock sync server", "err", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sync/health", s.handleHealth)
	mux.HandleFunc("POST /sync/batch", s.handleBatch)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleBatch accepts any well-formed batch and acknowledges every item
// as success. The checksum is recomputed and the comparison reported as
// checksum_verified; per the open question in §9, this stub logs a
// mismatch and proceeds rather than rejecting the batch.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req sync.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	processed := make([]sync.ProcessedItem, len(req.Items))
	for i, item := range req.Items {
		processed[i] = sync.ProcessedItem{
			ClientID: item.ID,
			ServerID: fmt.Sprintf("srv-%d", item.ID),
			Status:   sync.StatusSuccess,
		}
	}

	verified := req.Checksum == sync.Checksum(req.Items)
	if !verified {
		slog.Warn("mock sync server: batch checksum mismatch", "items", len(req.Items))
	}

	resp := sync.BatchResponse{
		ProcessedItems:   processed,
		ServerTimestamp:  time.Now().UTC(),
		ChecksumVerified: verified,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
