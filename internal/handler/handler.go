// Package handler serves one game connection: framed request dispatch,
// gameplay cache writes, overlay IPC and the periodic sync engine.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/udisondev/galaxyd/internal/config"
	"github.com/udisondev/galaxyd/internal/model"
	"github.com/udisondev/galaxyd/internal/protocol"
	"github.com/udisondev/galaxyd/internal/pusher"
	"github.com/udisondev/galaxyd/internal/token"
)

// syncPeriod is how often dirty cache rows are pushed to the remote
// service while the connection lives.
const syncPeriod = 10 * time.Second

// Handler owns one accepted game socket and its two sub-tasks: the game
// frame loop and the overlay IPC task started by start_game_session.
type Handler struct {
	conn          net.Conn
	api           RemoteAPI
	store         *token.Store
	openDB        CacheOpener
	events        *pusher.Broadcast
	overlayEvents chan<- OverlayPeerEvent
	user          model.UserInfo
	cfg           config.Daemon

	hctx *Context

	// writeMu serializes frame writes: the game task, the pusher
	// forwarder and nobody else.
	writeMu sync.Mutex

	// overlayOut carries framed messages destined for the overlay peer.
	overlayOut     chan []byte
	overlayWG      sync.WaitGroup
	overlayMu      sync.Mutex
	overlayRunning bool
}

// New builds a handler for an accepted connection.
func New(conn net.Conn, api RemoteAPI, store *token.Store, openDB CacheOpener,
	events *pusher.Broadcast, overlayEvents chan<- OverlayPeerEvent,
	user model.UserInfo, cfg config.Daemon) *Handler {
	return &Handler{
		conn:          conn,
		api:           api,
		store:         store,
		openDB:        openDB,
		events:        events,
		overlayEvents: overlayEvents,
		user:          user,
		cfg:           cfg,
		hctx:          NewContext(),
		overlayOut:    make(chan []byte, 20),
	}
}

// Context exposes the connection state (tests).
func (h *Handler) Context() *Context {
	return h.hctx
}

type inboundFrame struct {
	frame *protocol.Frame
	err   error
}

// Run serves the connection until the peer disconnects or ctx is
// cancelled. The sync engine runs every tick and one final time on the
// way out.
func (h *Handler) Run(ctx context.Context) {
	defer h.conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub := h.events.Subscribe()
	defer sub.Close()

	pusherCh := make(chan pusher.Event, 8)
	go func() {
		for {
			ev, err := sub.Recv(ctx)
			if errors.Is(err, pusher.ErrLagged) {
				slog.Warn("pusher events dropped for slow handler", "client_id", h.hctx.ClientID())
				continue
			}
			if err != nil {
				return
			}
			select {
			case pusherCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	frames := make(chan inboundFrame)
	go func() {
		for {
			f, err := protocol.ReadFrame(h.conn)
			select {
			case frames <- inboundFrame{frame: f, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(syncPeriod)
	defer ticker.Stop()

	defer func() {
		cancel() // stop the overlay listener before waiting on it
		h.shutdown()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case in := <-frames:
			if in.err != nil {
				if errors.Is(in.err, io.EOF) {
					slog.Info("game disconnected", "client_id", h.hctx.ClientID())
				} else {
					slog.Error("reading frame", "err", in.err, "client_id", h.hctx.ClientID())
				}
				return
			}
			if !h.dispatch(ctx, in.frame) {
				return
			}

		case ev := <-pusherCh:
			h.handlePusherEvent(ev)

		case <-ticker.C:
			h.syncCycle(ctx)
		}
	}
}

// shutdown runs the final sync and releases the cache. It gets its own
// context: the handler's may already be cancelled.
func (h *Handler) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	h.syncCycle(ctx)
	h.overlayWG.Wait()
	if db := h.hctx.DB(); db != nil {
		if err := db.Close(); err != nil {
			slog.Error("closing gameplay database", "err", err)
		}
	}
}

// dispatch routes one frame by (sort, type). Returns false when the
// session must end.
func (h *Handler) dispatch(ctx context.Context, f *protocol.Frame) bool {
	var (
		respHeader  *protocol.Header
		respPayload []byte
		err         error
	)

	switch f.Header.Sort {
	case protocol.SortCommunicationService:
		respHeader, respPayload, err = h.handleComm(ctx, f)
	case protocol.SortWebbroker:
		respHeader, respPayload, err = h.handleWebbroker(f)
	case protocol.SortOverlayForService:
		respHeader, respPayload, err = h.handleOverlayService(f)
	case protocol.SortOverlayForClient:
		respHeader, respPayload, err = h.handleOverlayClient(ctx, f)
	default:
		err = ErrNotImplemented
	}

	switch {
	case err == nil:
		respHeader.Oseq = f.Header.Oseq
		h.write(respHeader, respPayload)
		return true

	case errors.Is(err, ErrIgnored):
		return true

	case errors.Is(err, ErrNotImplemented):
		slog.Warn("unhandled message", "sort", f.Header.Sort, "type", f.Header.Type)
		h.write(&protocol.Header{Sort: f.Header.Sort, Type: f.Header.Type, Oseq: f.Header.Oseq}, nil)
		return true

	case errors.Is(err, ErrUnauthorized):
		slog.Error("session unauthorized, closing", "client_id", h.hctx.ClientID())
		h.write(&protocol.Header{Sort: f.Header.Sort, Type: f.Header.Type, Oseq: f.Header.Oseq, Status: 403}, nil)
		return false

	default:
		slog.Error("handling frame", "sort", f.Header.Sort, "type", f.Header.Type, "err", err)
		return true
	}
}

// write serializes one outgoing frame under the socket mutex.
func (h *Handler) write(hd *protocol.Header, payload []byte) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := protocol.WriteFrame(h.conn, hd, payload); err != nil {
		slog.Error("writing frame", "err", err)
	}
}

// handlePusherEvent tracks connectivity and forwards topic messages the
// game subscribed to.
func (h *Handler) handlePusherEvent(ev pusher.Event) {
	switch ev.Kind {
	case pusher.EventOnline:
		h.hctx.SetOnline(true)
	case pusher.EventOffline:
		h.hctx.SetOnline(false)
	case pusher.EventTopic:
		if !h.hctx.SubscribedTo(ev.Topic) {
			return
		}
		h.writeMu.Lock()
		_, err := h.conn.Write(ev.Raw)
		h.writeMu.Unlock()
		if err != nil {
			slog.Error("forwarding topic message", "topic", ev.Topic, "err", err)
		}
	}
}
