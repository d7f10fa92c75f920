package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/galaxyd/internal/config"
	"github.com/udisondev/galaxyd/internal/gog"
	"github.com/udisondev/galaxyd/internal/model"
	"github.com/udisondev/galaxyd/internal/protocol"
	"github.com/udisondev/galaxyd/internal/token"
)

var upgrader = websocket.Upgrader{}

// fakeServices fakes the auth/gameplay HTTP endpoints and the push
// websocket in one httptest server.
func fakeServices(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			// Auth the pusher and then sit on the connection.
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			f, err := protocol.DecodeFrame(data)
			if err != nil {
				return
			}
			resp, _ := protocol.EncodeFrame(&protocol.Header{
				Sort: protocol.SortWebbroker,
				Type: protocol.MsgWebbrokerAuthResponse,
				Oseq: f.Header.Oseq,
			}, nil)
			conn.WriteMessage(websocket.BinaryMessage, resp)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
		switch {
		case r.URL.Path == "/token":
			w.Write([]byte(`{"access_token":"game-access","refresh_token":"game-refresh"}`))
		case strings.HasSuffix(r.URL.Path, "/achievements"):
			w.Write([]byte(`{"total_count":0,"items":[],"achievements_mode":"ALL_VISIBLE"}`))
		case strings.HasSuffix(r.URL.Path, "/stats"):
			w.Write([]byte(`{"total_count":0,"items":[]}`))
		default:
			w.Write([]byte(`{}`))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testServer(t *testing.T, cfg func(*config.Daemon)) *Server {
	t.Helper()
	services := fakeServices(t)

	c := config.Default()
	c.DataDir = t.TempDir()
	c.Endpoints = config.Endpoints{
		Auth:     services.URL,
		Embed:    services.URL,
		Gameplay: services.URL,
		API:      services.URL,
		Pusher:   "ws" + strings.TrimPrefix(services.URL, "http"),
	}
	if cfg != nil {
		cfg(&c)
	}

	store := token.NewStore()
	store.Insert(token.GalaxyClientID, model.Token{
		AccessToken:  "bootstrap-access",
		RefreshToken: "bootstrap-refresh",
	})

	api, err := gog.NewClient(store, c.Endpoints, c.Locale, nil, "test")
	require.NoError(t, err)

	return New(c, api, store, model.UserInfo{Username: "tester", GalaxyUserID: "58912491000987582"})
}

func TestServeAcceptsAndAuthenticates(t *testing.T) {
	srv := testServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	payload := (&protocol.AuthInfoRequest{
		ClientID:     "50225266424144145",
		ClientSecret: "sekret",
		GamePID:      99,
	}).Marshal()
	require.NoError(t, protocol.WriteFrame(conn, &protocol.Header{
		Sort: protocol.SortCommunicationService,
		Type: protocol.MsgAuthInfoRequest,
		Oseq: 3,
	}, payload))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	f, err := protocol.ReadFrame(conn)
	require.NoError(t, err)

	assert.EqualValues(t, protocol.MsgAuthInfoResponse, f.Header.Type)
	assert.EqualValues(t, 3, f.Header.Oseq, "response must mirror the request oseq")

	var resp protocol.AuthInfoResponse
	require.NoError(t, resp.Unmarshal(f.Payload))
	assert.Equal(t, "game-refresh", resp.RefreshToken)
	assert.Equal(t, "tester", resp.UserName)
	assert.Equal(t, model.IDUser, model.EntityID(resp.UserID).Kind())

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop on cancellation")
	}
}

func TestQuitWhenIdle(t *testing.T) {
	srv := testServer(t, func(c *config.Daemon) {
		c.QuitWhenIdle = true
		c.IdleSeconds = 1
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	// First game connects and leaves.
	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	time.Sleep(200 * time.Millisecond)
	conn.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("server did not quit when idle")
	}
}

func TestPreload(t *testing.T) {
	srv := testServer(t, nil)

	err := srv.Preload(context.Background(), "50225266424144145", "sekret")
	require.NoError(t, err)

	// A second preload is satisfied from the database.
	err = srv.Preload(context.Background(), "50225266424144145", "sekret")
	require.NoError(t, err)

	tok, ok := srv.store.Get("50225266424144145")
	require.True(t, ok)
	assert.Equal(t, "game-access", tok.AccessToken)
}
