package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/harun/logstream/internal/observability"
	"github.com/harun/logstream/internal/tracing"
	"github.com/harun/logstream/pkg/session"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// SessionServer runs one log session over an established connection.
type SessionServer interface {
	Serve(ctx context.Context, conn session.Conn, requestPath string) error
}

// Server accepts WebSocket connections and hands each one to the session
// handler. Every request path that is not reserved is treated as a log
// request.
type Server struct {
	host           string
	port           int
	writeTimeout   time.Duration
	readLimit      int64
	server         *http.Server
	listener       net.Listener
	upgrader       websocket.Upgrader
	clients        *ClientRegistry
	limiter        *ConnLimiter
	sessions       SessionServer
	logger         zerolog.Logger
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	active         sync.WaitGroup
	baseCtx        context.Context
	cancel         context.CancelFunc
}

// Config holds server configuration
type Config struct {
	Host              string
	Port              int
	WriteTimeout      time.Duration
	ReadLimit         int64
	ConnectsPerMinute int
	MaxSessionsPerIP  int
	Sessions          SessionServer
	Logger            zerolog.Logger
	// Clock drives connect limits and client activity. Defaults to wall time.
	Clock             clock.Clock
}

// NewServer creates a new Server. Port 0 picks a free port on Start.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session handler is required")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = defaultReadLimit
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	return &Server{
		host:         cfg.Host,
		port:         cfg.Port,
		writeTimeout: cfg.WriteTimeout,
		readLimit:    cfg.ReadLimit,
		clients:      NewClientRegistry(cfg.Clock),
		limiter:      NewConnLimiter(cfg.ConnectsPerMinute, cfg.MaxSessionsPerIP, cfg.Clock),
		sessions:     cfg.Sessions,
		logger:       cfg.Logger,
		baseCtx:      baseCtx,
		cancel:       cancel,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // log viewers are commonly served from another origin
			},
		},
	}, nil
}

// Handler returns the HTTP handler serving WebSocket sessions, /healthz and
// /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/", s.handleWebSocket)
	return mux
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("Starting log stream server")

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Log stream server error")
		}
	}()

	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully stops the server: new connections are refused, running
// sessions are cancelled and their connections closed.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down log stream server")
	s.cancel()

	for _, conn := range s.clients.Conns() {
		conn.Close()
	}

	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All sessions completed")
	case <-time.After(10 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("Log stream server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	sessions := s.clients.Sessions()
	status := HealthStatus{Status: "ok", Clients: len(sessions), Sessions: sessions}

	s.shutdownMu.RLock()
	shuttingDown := s.isShuttingDown
	s.shutdownMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if shuttingDown {
		status.Status = "shutting_down"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	if s.isShuttingDown {
		s.shutdownMu.RUnlock()
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	s.active.Add(1)
	s.shutdownMu.RUnlock()

	if allowed, reason := s.limiter.Acquire(r.RemoteAddr); !allowed {
		s.active.Done()
		s.logger.Warn().Str("ip", r.RemoteAddr).Str("reason", reason).Msg("Connection rejected")
		http.Error(w, reason, http.StatusTooManyRequests)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.limiter.Release(r.RemoteAddr)
		s.active.Done()
		s.logger.Warn().Err(err).Str("ip", r.RemoteAddr).Msg("Failed to upgrade connection")
		return
	}

	requestPath := r.RequestURI
	if requestPath == "" {
		requestPath = r.URL.RequestURI()
	}

	clientID, _ := gonanoid.New()
	client := &Client{
		ID:        clientID,
		Path:      requestPath,
		IPAddress: r.RemoteAddr,
	}
	client.Conn = NewConn(ws, r.RemoteAddr, s.writeTimeout, s.readLimit, func() {
		s.clients.Touch(clientID)
	})

	observability.SetActiveClients(s.clients.Add(client))

	go s.serveClient(client)
}

// serveClient runs the session for a client and unregisters it afterwards.
func (s *Server) serveClient(client *Client) {
	defer s.active.Done()
	defer func() {
		client.Conn.Close()
		s.limiter.Release(client.IPAddress)
		observability.SetActiveClients(s.clients.Remove(client.ID))
	}()

	ctx := tracing.WithClientID(tracing.NewRequestContext(s.baseCtx), client.ID)
	// Serve logs the outcome itself.
	_ = s.sessions.Serve(ctx, client.Conn, client.Path)
}
