package irc

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mercuryirc/mercury/internal/logging"
)

// Monitor serves a local HTTP status endpoint for a connection. It is
// read-only observability: GET /debug/status returns the connection's
// Stats snapshot as JSON.
type Monitor struct {
	conn     *Connection
	logger   *logging.Logger
	listener net.Listener
	server   *http.Server
}

// NewMonitor creates a monitor for the given connection.
func NewMonitor(conn *Connection, logger *logging.Logger) *Monitor {
	return &Monitor{
		conn:   conn,
		logger: logger,
	}
}

// Start listens on addr and serves in the background.
func (m *Monitor) Start(addr string) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/debug/status", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(m.conn.Stats()); err != nil {
			m.logger.Error("failed to encode status", "error", err)
		}
	})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	m.listener = listener
	m.server = &http.Server{Handler: r}

	m.logger.Info("monitor listening", "addr", listener.Addr().String())

	go func() {
		if err := m.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			m.logger.Error("monitor server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, valid after Start.
func (m *Monitor) Addr() string {
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

// Close shuts the monitor down.
func (m *Monitor) Close() error {
	if m.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.server.Shutdown(ctx)
}
