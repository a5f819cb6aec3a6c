// Package server exposes the engine's admin surface: rolling stats, the
// active configuration, config updates, and a websocket event stream.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/openroad/roadcall/config"
	"github.com/openroad/roadcall/errors"
	"github.com/openroad/roadcall/logger"
	"github.com/openroad/roadcall/monitor"
)

// Server serves the HTTP admin API and fans engine events out to websocket
// subscribers.
type Server struct {
	holder     *config.Holder
	watcher    *config.Watcher
	stats      *monitor.Recorder
	ticker     *monitor.Ticker
	configPath string

	httpServer *http.Server

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// New creates a server bound to the given port. watcher may be nil when file
// watching is disabled; saves then simply skip the own-write marker.
func New(port int, holder *config.Holder, stats *monitor.Recorder, ticker *monitor.Ticker, watcher *config.Watcher, configPath string) *Server {
	s := &Server{
		holder:     holder,
		watcher:    watcher,
		stats:      stats,
		ticker:     ticker,
		configPath: configPath,
		clients:    make(map[*wsClient]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/ws", s.handleWebsocket)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown. Blocks; run it on its own goroutine.
func (s *Server) Start() error {
	logger.Infow("Admin server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "admin server failed")
	}
	return nil
}

// Shutdown closes subscriber connections and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.clients {
		c.close()
	}
	s.clients = make(map[*wsClient]struct{})
	s.mu.Unlock()

	return s.httpServer.Shutdown(ctx)
}

// handleStats returns the rolling 24h counters plus loop state.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	stats, err := s.stats.Snapshot()
	if err != nil {
		logger.Errorw("Failed to build stats snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":  stats,
		"ticker": s.ticker.Status(),
	})
}

// handleConfig serves the active snapshot and accepts replacements. An
// invalid configuration is rejected with 422 and the active snapshot stays
// untouched; a valid one is persisted to disk and swapped in for the next
// tick.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap := s.holder.Snapshot()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"config":     snap.Config,
			"version":    snap.Version,
			"created_at": snap.CreatedAt,
		})

	case http.MethodPut:
		var cfg config.Config
		if err := readJSON(w, r, &cfg); err != nil {
			return
		}

		if err := cfg.Validate(); err != nil {
			logger.Warnw("Rejected invalid configuration", "error", err)
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		if s.watcher != nil {
			s.watcher.MarkOwnWrite()
		}
		if err := config.Save(&cfg, s.configPath); err != nil {
			logger.Errorw("Failed to persist configuration", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save configuration")
			return
		}

		snap, err := s.holder.Swap(&cfg)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		logger.Infow("Configuration updated", "version", snap.Version)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"version":    snap.Version,
			"created_at": snap.CreatedAt,
		})

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
