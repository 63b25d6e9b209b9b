// Package server serves the interactive playground over WebSocket and telnet
// and exposes a small HTTP API for samples, renders and recorded sessions.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/tilewave/internal/config"
	"github.com/lawnchairsociety/tilewave/internal/logger"
	"github.com/lawnchairsociety/tilewave/internal/sample"
	"github.com/lawnchairsociety/tilewave/internal/store"
	"github.com/lawnchairsociety/tilewave/internal/wfc"
)

// Archive is a Recorder that can also read recorded sessions back.
// *store.Store implements it.
type Archive interface {
	Recorder
	ListSessions(fingerprint string) ([]*store.SessionRecord, error)
	GetSession(id string) (*store.SessionRecord, error)
	LoadCatalog(id string) (*wfc.Catalog, error)
	LoadSnapshot(id string, step int) (*wfc.Grid, error)
	LatestStep(id string) (int, error)
}

type Server struct {
	cfg          *config.Config
	lib          *sample.Library
	archive      Archive
	connLimiter  *ConnLimiter
	cmdLimiter   *CommandLimiter
	router       chi.Router
	httpServer   *http.Server
	listener     net.Listener
	clients      map[Client]struct{}
	mu           sync.Mutex
	shutdown     chan struct{}
	shutdownOnce sync.Once
	StartTime    time.Time
}

// NewServer creates a server for cfg serving samples from lib. archive may
// be nil, which disables recording and the session endpoints.
func NewServer(cfg *config.Config, lib *sample.Library, archive Archive) *Server {
	s := &Server{
		cfg:         cfg,
		lib:         lib,
		archive:     archive,
		connLimiter: NewConnLimiter(cfg.Server.Connections),
		cmdLimiter:  NewCommandLimiter(cfg.Server.RateLimit),
		clients:     make(map[Client]struct{}),
		shutdown:    make(chan struct{}),
		StartTime:   time.Now(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving the API and the /ws endpoint.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebSocketUpgrade)

	r.Route("/api", func(r chi.Router) {
		r.Get("/samples", s.handleSamples)
		r.Get("/render.png", s.handleRender)

		if s.archive != nil {
			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", s.handleListSessions)
				r.Get("/{id}", s.handleGetSession)
				r.Get("/{id}/steps/{step}", s.handleSessionStep)
			})
		}
	})
	return r
}

// Start serves HTTP on the configured address until Shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return s.Serve(listener)
}

// Serve serves HTTP on listener until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logger.Info("Server listening", "address", listener.Addr().String())
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartTelnet accepts line-based TCP clients on address until Shutdown.
func (s *Server) StartTelnet(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start telnet listener: %w", err)
	}
	return s.ServeTelnet(listener)
}

// ServeTelnet accepts line-based TCP clients on listener until Shutdown.
func (s *Server) ServeTelnet(listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	logger.Info("Telnet server listening", "address", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Error("Error accepting connection", "error", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	ip := extractIP(remoteAddr)

	if !s.connLimiter.TryAcquire(ip) {
		logger.Warning("Connection rejected - limit exceeded",
			"remote_addr", remoteAddr,
			"ip", ip)
		conn.Write([]byte("Too many connections. Please try again later.\r\n"))
		conn.Close()
		return
	}
	defer s.connLimiter.Release(ip)

	client := NewTelnetClient(conn)
	defer client.Close()
	s.handleClient(client, ip)
}

// handleWebSocketUpgrade upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	clientIP := getRealIP(r)

	if !s.connLimiter.TryAcquire(clientIP) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.Server.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		s.connLimiter.Release(clientIP)
		return
	}

	go func() {
		defer s.connLimiter.Release(clientIP)
		client := NewWebSocketClient(wsConn, s.cfg.Server.WebSocket.MaxMessageSize)
		defer client.Close()
		s.handleClient(client, clientIP)
	}()
}

// handleClient runs the command loop shared by telnet and WebSocket clients.
func (s *Server) handleClient(client Client, ip string) {
	log := logger.With("remote_addr", client.RemoteAddr())

	if locked, remaining := s.cmdLimiter.IsLocked(ip); locked {
		client.SendFrame(&Frame{Error: fmt.Sprintf("locked out for %s", remaining.Round(time.Second))})
		return
	}

	var recorder Recorder
	if s.archive != nil {
		recorder = s.archive
	}
	p, err := NewPlayground(s.lib, s.cfg.Solver, s.cfg.Server.MaxRunSteps, recorder, log)
	if err != nil {
		log.Error("Failed to start playground", "error", err)
		client.SendFrame(&Frame{Error: err.Error()})
		return
	}

	if !s.register(client) {
		return
	}
	defer s.unregister(client)

	log.Info("Client connected", "sample", p.name, "session_id", p.SessionID())
	defer log.Info("Client disconnected")

	hello := p.Frame()
	hello.Command = CmdState.String()
	hello.Message = "type help for commands"
	if err := client.SendFrame(hello); err != nil {
		return
	}

	for {
		line, err := client.ReadLine()
		if err != nil {
			return
		}

		cmd, err := ParseCommand(line)
		if err != nil {
			locked, lockout := s.cmdLimiter.RecordInvalid(ip)
			if locked {
				logger.Always("Client locked out", "ip", ip, "duration", lockout.String())
				client.SendFrame(&Frame{Error: fmt.Sprintf("too many invalid commands, locked out for %s", lockout)})
				return
			}
			if err := client.SendFrame(&Frame{Command: "unknown", Error: err.Error()}); err != nil {
				return
			}
			continue
		}
		s.cmdLimiter.RecordValid(ip)

		if cmd.Kind == CmdQuit {
			client.SendFrame(&Frame{Command: cmd.Kind.String(), Message: "bye"})
			return
		}

		log.Debug("Command", "command", line)
		if err := client.SendFrame(p.Execute(cmd)); err != nil {
			return
		}
	}
}

func (s *Server) register(c Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.shutdown:
		return false
	default:
	}
	s.clients[c] = struct{}{}
	return true
}

func (s *Server) unregister(c Client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

// ClientCount returns the number of connected playground clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// getRealIP extracts the real client IP from an HTTP request.
// It checks X-Forwarded-For header first (for reverse proxy setups),
// then falls back to the direct remote address.
func getRealIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs: "client, proxy1, proxy2"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if clientIP := strings.TrimSpace(strings.Split(xff, ",")[0]); clientIP != "" {
			return clientIP
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return extractIP(r.RemoteAddr)
}

// Shutdown stops the listeners and closes every client connection. It is
// safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdown)

		s.mu.Lock()
		listener, srv := s.listener, s.httpServer
		clients := make([]Client, 0, len(s.clients))
		for c := range s.clients {
			clients = append(clients, c)
		}
		s.mu.Unlock()

		if listener != nil {
			listener.Close()
		}
		s.cmdLimiter.Stop()
		for _, c := range clients {
			c.Close()
		}
		if srv != nil {
			err = srv.Shutdown(ctx)
		}
		logger.Info("Server shutdown complete", "clients_closed", len(clients))
	})
	return err
}
