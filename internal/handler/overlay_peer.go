package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/udisondev/galaxyd/internal/protocol"
)

// OverlayEventKind discriminates decoded overlay -> service messages.
type OverlayEventKind int

const (
	OverlayOpenWebPage OverlayEventKind = iota
	OverlayVisibilityChange
	OverlayInvitationDialog
	OverlayGameJoin
	OverlayInitComplete
)

// OverlayPeerEvent is one decoded overlay action, broadcast to the
// embedding application.
type OverlayPeerEvent struct {
	GamePID          uint32
	Kind             OverlayEventKind
	URL              string
	ConnectionString string
	ClientID         string
	InviterID        uint64
	Visible          bool
	Raw              []byte
}

// OverlaySocketPath derives the per-game IPC endpoint name from the game
// pid supplied in start_game_session.
func OverlaySocketPath(pid uint32) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("galaxy-overlay-%d.sock", pid))
}

// startOverlayListener binds the per-game overlay endpoint and runs the
// overlay sub-task. Repeated start_game_session requests reuse the
// running listener.
func (h *Handler) startOverlayListener(ctx context.Context, pid uint32) {
	if pid == 0 {
		slog.Warn("start_game_session without a pid, overlay disabled")
		return
	}
	h.overlayMu.Lock()
	if h.overlayRunning {
		h.overlayMu.Unlock()
		return
	}
	h.overlayRunning = true
	h.overlayMu.Unlock()

	path := OverlaySocketPath(pid)
	h.overlayWG.Add(1)
	go func() {
		defer h.overlayWG.Done()
		h.runOverlay(ctx, pid, path)
	}()
}

// runOverlay owns the overlay endpoint for the connection's lifetime:
// bind (with stale-socket cleanup), accept one peer at a time, pump
// queued notifications out and decode peer messages in.
func (h *Handler) runOverlay(ctx context.Context, pid uint32, path string) {
	defer os.Remove(path)

	var ln net.Listener
	for {
		var err error
		ln, err = net.Listen("unix", path)
		if err == nil {
			break
		}
		// A previous daemon run may have left the socket behind.
		os.Remove(path)
		slog.Warn("binding overlay socket", "path", path, "err", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
	defer ln.Close()
	slog.Info("overlay endpoint ready", "path", path, "game_pid", pid)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			slog.Error("accepting overlay peer", "err", err)
			continue
		}
		h.serveOverlayPeer(ctx, pid, conn)
		if ctx.Err() != nil {
			return
		}
	}
}

// serveOverlayPeer pumps one connected overlay process.
func (h *Handler) serveOverlayPeer(ctx context.Context, pid uint32, conn net.Conn) {
	defer conn.Close()

	peerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Writer: queued achievement notifications and other frames.
	go func() {
		for {
			select {
			case <-peerCtx.Done():
				return
			case frame := <-h.overlayOut:
				if _, err := conn.Write(frame); err != nil {
					slog.Error("writing to overlay", "err", err)
					cancel()
					return
				}
			}
		}
	}()

	for {
		f, err := protocol.ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Error("reading overlay frame", "err", err)
			}
			return
		}
		h.handleOverlayPeerFrame(pid, f)
	}
}

// handleOverlayPeerFrame decodes one overlay -> service message into an
// OverlayPeerEvent. Unknown types are logged and dropped.
func (h *Handler) handleOverlayPeerFrame(pid uint32, f *protocol.Frame) {
	ev := OverlayPeerEvent{GamePID: pid}

	switch f.Header.Type {
	case protocol.MsgShowWebPage:
		var msg protocol.ShowWebPage
		if err := msg.Unmarshal(f.Payload); err != nil {
			slog.Warn("dropping malformed overlay message", "err", err)
			return
		}
		ev.Kind = OverlayOpenWebPage
		ev.URL = msg.URL

	case protocol.MsgVisibilityChangeNotification:
		var msg protocol.VisibilityChangeNotification
		if err := msg.Unmarshal(f.Payload); err != nil {
			slog.Warn("dropping malformed overlay message", "err", err)
			return
		}
		ev.Kind = OverlayVisibilityChange
		ev.Visible = msg.Visible

	case protocol.MsgShowInvitationDialog:
		var msg protocol.ShowInvitationDialog
		if err := msg.Unmarshal(f.Payload); err != nil {
			slog.Warn("dropping malformed overlay message", "err", err)
			return
		}
		ev.Kind = OverlayInvitationDialog
		ev.ConnectionString = msg.ConnectionString

	case protocol.MsgGameJoinRequestNotification:
		var msg protocol.GameJoinRequestNotification
		if err := msg.Unmarshal(f.Payload); err != nil {
			slog.Warn("dropping malformed overlay message", "err", err)
			return
		}
		ev.Kind = OverlayGameJoin
		ev.InviterID = msg.InviterID
		ev.ClientID = msg.ClientID
		ev.ConnectionString = msg.ConnectionString

	case protocol.MsgOverlayInitializedNotification:
		ev.Kind = OverlayInitComplete
		ev.Raw = f.Payload

	default:
		slog.Warn("unsupported overlay peer message", "type", f.Header.Type)
		return
	}

	select {
	case h.overlayEvents <- ev:
	default:
		slog.Warn("overlay event channel full, dropping", "kind", ev.Kind)
	}
}
