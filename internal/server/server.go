// Package server is the daemon supervisor: it binds the loopback
// listener, owns the notification pusher and spawns one handler per
// accepted game connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/galaxyd/internal/config"
	"github.com/udisondev/galaxyd/internal/gameplay"
	"github.com/udisondev/galaxyd/internal/handler"
	"github.com/udisondev/galaxyd/internal/model"
	"github.com/udisondev/galaxyd/internal/pusher"
	"github.com/udisondev/galaxyd/internal/token"
)

// Server accepts game connections on the fixed loopback port.
type Server struct {
	cfg   config.Daemon
	api   handler.RemoteAPI
	store *token.Store
	user  model.UserInfo

	events        *pusher.Broadcast
	overlayEvents chan handler.OverlayPeerEvent

	active       atomic.Int64
	everAccepted atomic.Bool

	listener net.Listener
	mu       sync.Mutex
}

// New собирает supervisor из общих зависимостей.
func New(cfg config.Daemon, api handler.RemoteAPI, store *token.Store, user model.UserInfo) *Server {
	return &Server{
		cfg:           cfg,
		api:           api,
		store:         store,
		user:          user,
		events:        pusher.NewBroadcast(),
		overlayEvents: make(chan handler.OverlayPeerEvent, 64),
	}
}

// OverlayEvents exposes decoded overlay actions to the embedding
// application (open web page, invitations, visibility).
func (s *Server) OverlayEvents() <-chan handler.OverlayPeerEvent {
	return s.overlayEvents
}

// Addr returns the bound address, nil before Run.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close закрывает listener.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run binds the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop, pusher and idle watcher on a ready
// listener. Используется в тестах с произвольным listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		bootstrap, ok := s.store.Get(token.GalaxyClientID)
		if !ok {
			return fmt.Errorf("bootstrap token missing from store")
		}
		client := pusher.New(s.cfg.Endpoints.Pusher, bootstrap.AccessToken, s.events)
		if err := client.Run(gctx); err != nil {
			// The daemon keeps serving from cache without push.
			slog.Error("notification pusher stopped", "err", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("communication service listening", "address", ln.Addr())
		s.acceptLoop(gctx)
		return nil
	})

	if s.cfg.QuitWhenIdle {
		g.Go(func() error {
			s.idleWatcher(gctx, cancel)
			return nil
		})
	}

	return g.Wait()
}

func (s *Server) acceptLoop(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			slog.Error("accepting connection", "err", err)
			continue
		}

		s.everAccepted.Store(true)
		s.active.Add(1)
		slog.Info("game connected", "remote", conn.RemoteAddr())

		h := handler.New(conn, s.api, s.store, s.openCache, s.events, s.overlayEvents, s.user, s.cfg)
		wg.Go(func() {
			defer s.active.Add(-1)
			h.Run(ctx)
		})
	}
}

// openCache is the lazy cache opener handed to every handler.
func (s *Server) openCache(ctx context.Context, clientID, userID string) (*gameplay.Database, error) {
	return gameplay.Open(ctx, s.cfg.DataDir, clientID, userID, s.cfg.Locale)
}

// idleWatcher exits the daemon once no handler has been active for the
// configured window after the first accept.
func (s *Server) idleWatcher(ctx context.Context, cancel context.CancelFunc) {
	window := time.Duration(s.cfg.IdleSeconds) * time.Second
	if window <= 0 {
		window = 15 * time.Second
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var idleSince time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.everAccepted.Load() || s.active.Load() > 0 {
				idleSince = time.Time{}
				continue
			}
			if idleSince.IsZero() {
				idleSince = time.Now()
				continue
			}
			if time.Since(idleSince) >= window {
				slog.Info("no active games, exiting", "idle", window)
				cancel()
				return
			}
		}
	}
}
