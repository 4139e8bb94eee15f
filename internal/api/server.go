package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// Server is the public HTTP server: the router plus the WebSocket hub.
type Server struct {
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer builds the server around an existing hub.
//
// IMPORTANT: nothing listens until Start() is called, so tests can use
// Router() with httptest instead.
func NewServer(cfg RouterConfig, hub *Hub) *Server {
	s := &Server{hub: hub}

	s.rateLimiter = cfg.RateLimiter
	if s.rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		s.rateLimiter = NewIPRateLimiter(rateLimitCfg)
		cfg.RateLimiter = s.rateLimiter
	}

	s.router = NewRouter(cfg)
	s.setupWebSocketRoutes()

	return s
}

// setupWebSocketRoutes adds the upgrade endpoints. They need the hub, so
// they are not part of NewRouter.
func (s *Server) setupWebSocketRoutes() {
	// WebSocket endpoint (also on the Socket.IO path for older clients)
	s.router.Get("/socket.io/", s.handleSocketIO)
	s.router.Get("/ws", s.hub.HandleWebSocket)
}

// Start listens on addr and blocks until the server stops. It returns
// http.ErrServerClosed after Stop.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🌐 Server starting on %s", addr)
	log.Printf("🔌 WebSocket: ws://localhost%s/ws", addr)

	return s.httpServer.ListenAndServe()
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Stats reports the HTTP rate limiter and WebSocket hub counters.
func (s *Server) Stats() interface{} {
	return map[string]interface{}{
		"http":      s.rateLimiter.GetStats(),
		"websocket": s.hub.Stats(),
	}
}

// Stop closes every WebSocket, stops accepting requests and releases the
// rate limiter.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.CloseAll()
	s.rateLimiter.Stop()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleSocketIO(w http.ResponseWriter, r *http.Request) {
	// Check if this is a WebSocket upgrade request
	if websocket.IsWebSocketUpgrade(r) {
		s.hub.HandleWebSocket(w, r)
		return
	}

	// For polling fallback, return 404 (we only support WebSocket)
	writeError(w, "use websocket", http.StatusNotFound)
}
