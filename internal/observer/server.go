// Package observer streams the colony to loopback websocket clients.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aristath/colony/internal/events"
	"github.com/aristath/colony/internal/sim"
)

// Snapshotter provides consistent game views. *sim.Game satisfies it.
type Snapshotter interface {
	Snapshot() sim.Snapshot
}

// Message is one frame sent to observers.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Message types besides the bus event types.
const (
	TypeSnapshot = "snapshot"
	TypeRequest  = "SNAPSHOT" // Sent by clients to ask for a snapshot now
)

// Config configures a Server.
type Config struct {
	Addr             string
	SnapshotInterval time.Duration // Default 1s
	ClientBuffer     int           // Frames queued per client before it is dropped (default 256)
	Logger           *zap.Logger
}

// Server serves /v1/bootstrap, /v1/board and /healthz.
type Server struct {
	cfg    Config
	game   Snapshotter
	events <-chan events.Event
	logger *zap.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu      sync.Mutex
	clients map[uint64]chan []byte
}

// NewServer subscribes to bus and serves snapshots from game.
func NewServer(game Snapshotter, bus *events.EventBus, cfg Config) *Server {
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = time.Second
	}
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		game:   game,
		events: bus.SubscribeAll(256),
		logger: cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
		clients: make(map[uint64]chan []byte),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/bootstrap", s.handleBootstrap)
	mux.HandleFunc("/v1/board", s.handleBoard)
	return mux
}

// Run listens on the configured address and fans bus events out to
// clients until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("observer listen on %s: %w", s.cfg.Addr, err)
	}
	s.logger.Info("observer listening", zap.String("addr", ln.Addr().String()))

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()
	go s.broadcast(ctx)

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("observer: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("observer shutdown", zap.Error(err))
	}
	s.closeClients()
	return nil
}

// broadcast forwards bus events and periodic snapshots to every client.
func (s *Server) broadcast(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.events:
			if !ok {
				s.closeClients()
				return
			}
			s.send(Message{Type: ev.EventType(), Data: ev})
		case <-ticker.C:
			if s.clientCount() > 0 {
				s.send(Message{Type: TypeSnapshot, Data: s.game.Snapshot()})
			}
		}
	}
}

func (s *Server) send(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to encode observer frame", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, out := range s.clients {
		select {
		case out <- b:
		default:
			// Too slow; the writer sees the closed channel and hangs up.
			close(out)
			delete(s.clients, id)
			s.logger.Warn("observer client dropped", zap.Uint64("client", id))
		}
	}
}

func (s *Server) join() (uint64, chan []byte) {
	id := s.nextID.Add(1)
	out := make(chan []byte, s.cfg.ClientBuffer)
	s.mu.Lock()
	s.clients[id] = out
	s.mu.Unlock()
	return id, out
}

func (s *Server) leave(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if out, ok := s.clients[id]; ok {
		close(out)
		delete(s.clients, id)
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, out := range s.clients {
		close(out)
		delete(s.clients, id)
	}
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) handleHealth(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(map[string]any{
		"status":  "ok",
		"tick":    s.game.Snapshot().Tick,
		"clients": s.clientCount(),
	})
}

func (s *Server) handleBootstrap(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(s.game.Snapshot())
}

func (s *Server) handleBoard(rw http.ResponseWriter, r *http.Request) {
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id, out := s.join()
	defer s.leave(id)
	s.logger.Debug("observer client joined", zap.Uint64("client", id))

	first, err := json.Marshal(Message{Type: TypeSnapshot, Data: s.game.Snapshot()})
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, first); err != nil {
		return
	}

	// Reader: snapshot requests and close detection.
	requests := make(chan struct{}, 1)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req Message
			if json.Unmarshal(msg, &req) == nil && req.Type == TypeRequest {
				select {
				case requests <- struct{}{}:
				default:
				}
			}
		}
	}()

	for {
		var frame []byte
		select {
		case <-readDone:
			return
		case b, ok := <-out:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"), time.Now().Add(time.Second))
				return
			}
			frame = b
		case <-requests:
			frame, err = json.Marshal(Message{Type: TypeSnapshot, Data: s.game.Snapshot()})
			if err != nil {
				return
			}
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
