// Package feed exposes the live event stream over a local WebSocket
// endpoint, so external frontends can watch transfers and answer
// incoming requests without linking the core. Outbound frames are JSON
// events; the only inbound frame is a resolve command.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/droptea/droptea/pkg/event"
)

// Resolver carries a feed client's decision into the resolve funnel.
type Resolver func(taskID string, accepted bool) bool

// command is the inbound frame sent by feed clients.
type command struct {
	Op       string `json:"op"`
	TaskID   string `json:"task_id"`
	Accepted bool   `json:"accepted"`
}

// Server serves the event feed on /events.
type Server struct {
	bus     *event.Bus
	resolve Resolver
	log     *slog.Logger

	mu   sync.Mutex
	ln   net.Listener
	http *http.Server
}

// NewServer creates a feed server. Call Start to begin listening.
func NewServer(bus *event.Bus, resolve Resolver, log *slog.Logger) *Server {
	return &Server{bus: bus, resolve: resolve, log: log}
}

// Start listens on addr and serves the feed until Close.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("feed: listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)

	srv := &http.Server{Handler: mux}

	s.mu.Lock()
	s.ln = ln
	s.http = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("feed server stopped", "err", err)
		}
	}()

	s.log.Info("event feed listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("feed accept failed", "err", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "feed closed")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := s.bus.Subscribe(64)
	defer s.bus.Unsubscribe(sub)

	s.log.Debug("feed client connected", "remote", r.RemoteAddr)

	go s.readCommands(ctx, cancel, c)

	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		case ev := <-sub.C:
			if err := wsjson.Write(ctx, c, ev); err != nil {
				return
			}
		}
	}
}

// readCommands consumes inbound frames until the connection drops,
// forwarding resolve commands into the funnel.
func (s *Server) readCommands(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn) {
	defer cancel()
	for {
		var cmd command
		if err := wsjson.Read(ctx, c, &cmd); err != nil {
			return
		}
		switch cmd.Op {
		case "resolve":
			won := s.resolve(cmd.TaskID, cmd.Accepted)
			s.log.Debug("feed resolve", "task_id", cmd.TaskID, "accepted", cmd.Accepted, "won", won)
		default:
			s.log.Debug("feed ignoring command", "op", cmd.Op)
		}
	}
}

// Close shuts the feed down, dropping connected clients.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("feed: shutdown: %w", err)
	}
	return nil
}
