package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/clickplanet/clickplanet/internal/broadcast"
	"github.com/clickplanet/clickplanet/internal/coordinator"
	"github.com/clickplanet/clickplanet/internal/query"
)

// Server wraps the HTTP server and mux for the ClickPlanet API.
type Server struct {
	httpServer *http.Server
}

// Config configures a new Server.
type Config struct {
	ListenAddress    string
	Port             int
	Coordinator      *coordinator.Coordinator
	Query            *query.Engine
	Hub              *broadcast.Hub
	StorePoolSize    int
	APIMaxBodyBytes  int64
	SessionQueueSize int
	StartedAt        time.Time
	StoreReady       func() bool
}

// NewServer creates a new API server with the game routes plus the
// operational endpoints.
func NewServer(cfg Config) *Server {
	pool := newResourcePool(cfg.StorePoolSize)
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", HandleHealthz(func() SystemStatus {
		ready := true
		if cfg.StoreReady != nil {
			ready = cfg.StoreReady()
		}
		return SystemStatus{StoreReady: ready}
	}))
	mux.Handle("GET /api/v1/system/info", HandleSystemInfo(cfg.StartedAt))

	mux.Handle("POST /api/click", HandleClick(cfg.Coordinator, pool, cfg.APIMaxBodyBytes))
	mux.Handle("POST /api/ownerships-by-batch", HandleOwnershipsByBatch(cfg.Query, pool, cfg.APIMaxBodyBytes))
	mux.Handle("GET /api/ownerships", HandleOwnershipsAll(cfg.Query))
	mux.Handle("GET /v2/rpc/leaderboard", HandleLeaderboard(cfg.Query))

	mux.Handle("GET /ws/listen", HandleListen(cfg.Hub, cfg.SessionQueueSize))

	addr := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.Port)
	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: mux},
	}
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
