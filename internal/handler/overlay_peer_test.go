package handler

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/udisondev/galaxyd/internal/config"
	"github.com/udisondev/galaxyd/internal/model"
	"github.com/udisondev/galaxyd/internal/protocol"
	"github.com/udisondev/galaxyd/internal/pusher"
	"github.com/udisondev/galaxyd/internal/token"
)

// newOverlayTestHandler builds a handler whose overlay broadcast the test
// can read.
func newOverlayTestHandler(t *testing.T, events chan OverlayPeerEvent) *Handler {
	t.Helper()
	local, remote := net.Pipe()
	t.Cleanup(func() {
		local.Close()
		remote.Close()
	})
	return New(local, &mockAPI{}, token.NewStore(), nil, pusher.NewBroadcast(),
		events, model.UserInfo{Username: "tester", GalaxyUserID: testUserID}, config.Default())
}

func TestOverlayPeerRoundTrip(t *testing.T) {
	events := make(chan OverlayPeerEvent, 16)
	h := newOverlayTestHandler(t, events)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const pid = 31337
	h.startOverlayListener(ctx, pid)
	path := OverlaySocketPath(pid)

	// The listener needs a moment to bind.
	var conn net.Conn
	var err error
	for range 50 {
		conn, err = net.Dial("unix", path)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dialing overlay socket: %v", err)
	}
	defer conn.Close()

	// Service -> overlay: queued achievement notification is delivered.
	h.notifyOverlayAchievement(model.Achievement{
		ID: 17, Key: "ach_first_blood", Name: "First Blood",
	}, 1704067200)

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	f, err := protocol.ReadFrame(conn)
	if err != nil {
		t.Fatalf("reading achievement notification: %v", err)
	}
	if f.Header.Type != protocol.MsgNotifyAchievementUnlocked {
		t.Errorf("unexpected type %d", f.Header.Type)
	}

	// Overlay -> service: a decoded peer event reaches the broadcast.
	frame, err := protocol.EncodeFrame(&protocol.Header{
		Sort: protocol.SortOverlayForService,
		Type: protocol.MsgShowWebPage,
	}, (&protocol.ShowWebPage{URL: "https://embed.gog.com/account"}).Marshal())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Write(frame); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		if ev.Kind != OverlayOpenWebPage || ev.URL != "https://embed.gog.com/account" {
			t.Errorf("unexpected event: %+v", ev)
		}
		if ev.GamePID != pid {
			t.Errorf("event pid %d", ev.GamePID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no overlay event broadcast")
	}
}
