package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arenalabs/arena/internal/config"
	"github.com/arenalabs/arena/internal/store"
)

// Server accepts websocket connections over HTTP and feeds their frames into
// the gateway. It satisfies the lifecycle Service contract.
type Server struct {
	cfg     config.ServerConfig
	gateway *Gateway
	store   store.Client
	logger  *zap.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// NewServer creates the HTTP/websocket server.
//
// Precondition: gateway, st, and logger must be non-nil.
func NewServer(cfg config.ServerConfig, gw *Gateway, st store.Client, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		gateway: gw,
		store:   st,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are games and tools, not browsers with credentials;
			// cross-origin upgrades are accepted.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	router := chi.NewRouter()
	router.Get("/ws", s.handleWS)
	router.Get("/healthz", s.handleHealth)
	router.Get("/stats", s.handleStats)

	s.httpServer = &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}
	return s
}

// Start listens and serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("websocket server listening", zap.String("addr", s.cfg.Addr()))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the HTTP server down, giving in-flight requests a short grace
// period.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("shutting down http server", zap.Error(err))
	}
}

// handleWS upgrades the request, allocates a fresh connection identifier,
// registers the connection, and starts its pumps.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	conn := newWSConn(uuid.NewString(), sock, s.cfg.WriteTimeout, s.cfg.PongTimeout, s.logger)
	s.gateway.OnConnect(conn)

	go conn.writePump()
	go conn.readPump(s.dispatch, s.gateway.OnDisconnect)
}

// dispatch hands one inbound frame to the gateway under a per-message
// timeout, so a stalled store call fails only this message.
func (s *Server) dispatch(connID string, raw []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HandleTimeout)
	defer cancel()
	s.gateway.OnMessage(ctx, connID, raw)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		http.Error(w, "store unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	depth, err := s.gateway.QueueDepth(r.Context())
	if err != nil {
		http.Error(w, "store unreachable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{
		"connections": int64(s.gateway.Conns().Count()),
		"queue_depth": depth,
	})
}
