package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/panjf2000/ants/v2"

	"asnlookup/internal/auth"
	"asnlookup/internal/lookup"
	"asnlookup/internal/metrics"
	"asnlookup/internal/reload"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Reloader is the part of reload.Controller the admin routes drive.
type Reloader interface {
	Reload(ctx context.Context, reason string, force bool) (*reload.Generation, error)
	Status() reload.Status
}

type Server struct {
	lookup   *lookup.Service
	reloader Reloader
	bulkPool *ants.PoolWithFunc
}

// New creates the request layer. workers sizes the pool resolving bulk
// requests.
func New(svc *lookup.Service, reloader Reloader, workers int) (*Server, error) {
	s := &Server{lookup: svc, reloader: reloader}

	pool, err := ants.NewPoolWithFunc(workers, s.resolveBulkTask, ants.WithNonblocking(false))
	if err != nil {
		return nil, fmt.Errorf("server: create bulk pool: %w", err)
	}
	s.bulkPool = pool
	return s, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler returns the full route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	router := http.NewServeMux()
	router.HandleFunc("GET /single", s.getSingle)
	router.HandleFunc("POST /bulk", s.postBulk)
	router.HandleFunc("GET /healthz", s.getHealth)
	router.HandleFunc("GET /version", getVersion)
	router.Handle("GET /metrics", metrics.Handler())

	router.Handle("POST /admin/reload", auth.IsAdmin(http.HandlerFunc(s.postReload)))
	router.Handle("GET /admin/status", auth.IsAdmin(http.HandlerFunc(s.getStatus)))
	router.Handle("GET /admin/settings", auth.IsAdmin(http.HandlerFunc(getSettings)))
	router.Handle("POST /admin/settings", auth.IsAdmin(http.HandlerFunc(s.postSettings)))

	return withRequestID(enableCORS(router))
}

// ListenAndServe serves until ctx is done and then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("Shutting down HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// Close releases the bulk worker pool.
func (s *Server) Close() {
	s.bulkPool.Release()
}
