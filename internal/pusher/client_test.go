package pusher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/galaxyd/internal/protocol"
)

var upgrader = websocket.Upgrader{}

// pushServer fakes the vendor push endpoint: checks auth, accepts the
// topic subscriptions, then hands the connection to script.
func pushServer(t *testing.T, authStatus uint32, script func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f, err := protocol.DecodeFrame(data)
		require.NoError(t, err)
		require.EqualValues(t, protocol.MsgWebbrokerAuthRequest, f.Header.Type)
		require.EqualValues(t, 10000, f.Header.Oseq)

		var auth protocol.WebbrokerAuthRequest
		require.NoError(t, auth.Unmarshal(f.Payload))
		require.Equal(t, "Bearer push-access", auth.AuthToken)

		resp, err := protocol.EncodeFrame(&protocol.Header{
			Sort:   protocol.SortWebbroker,
			Type:   protocol.MsgWebbrokerAuthResponse,
			Oseq:   f.Header.Oseq,
			Status: authStatus,
		}, nil)
		require.NoError(t, err)
		if err := conn.WriteMessage(websocket.BinaryMessage, resp); err != nil {
			return
		}
		if authStatus != 0 {
			return
		}

		for range 3 {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			f, err := protocol.DecodeFrame(data)
			require.NoError(t, err)
			require.EqualValues(t, protocol.MsgSubscribeTopicRequest, f.Header.Type)
		}

		if script != nil {
			script(conn)
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestPusherDeliversTopicMessages(t *testing.T) {
	url := pushServer(t, 0, func(conn *websocket.Conn) {
		msg := &protocol.MessageFromTopic{Topic: "presence", Data: []byte("friend-online")}
		frame, _ := protocol.EncodeFrame(&protocol.Header{
			Sort: protocol.SortWebbroker,
			Type: protocol.MsgMessageFromTopic,
		}, msg.Marshal())
		conn.WriteMessage(websocket.BinaryMessage, frame)
		time.Sleep(100 * time.Millisecond)
	})

	events := NewBroadcast()
	sub := events.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := New(url, "push-access", events)
	go client.Run(ctx)

	e, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventOnline, e.Kind)

	e, err = sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventTopic, e.Kind)
	assert.Equal(t, "presence", e.Topic)

	// Raw carries the full frame for direct forwarding
	f, err := protocol.DecodeFrame(e.Raw)
	require.NoError(t, err)
	assert.EqualValues(t, protocol.MsgMessageFromTopic, f.Header.Type)
}

func TestPusherAuthRejectionIsTerminal(t *testing.T) {
	url := pushServer(t, 401, nil)

	events := NewBroadcast()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := New(url, "push-access", events).Run(ctx)
	assert.ErrorIs(t, err, ErrAuthRejected)
}

func TestPusherOfflineAfterDisconnect(t *testing.T) {
	url := pushServer(t, 0, func(conn *websocket.Conn) {
		// Server drops the connection right after setup.
	})

	events := NewBroadcast()
	sub := events.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := New(url, "push-access", events)
	go client.Run(ctx)

	recvCtx, recvCancel := context.WithTimeout(ctx, 5*time.Second)
	defer recvCancel()

	e, err := sub.Recv(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, EventOnline, e.Kind)

	e, err = sub.Recv(recvCtx)
	require.NoError(t, err)
	assert.Equal(t, EventOffline, e.Kind)
}

func TestBroadcastLag(t *testing.T) {
	b := NewBroadcast()
	sub := b.Subscribe()
	defer sub.Close()

	for i := 0; i < subscriberBuffer+5; i++ {
		b.Send(Event{Kind: EventTopic, Topic: "chat"})
	}

	ctx := context.Background()
	_, err := sub.Recv(ctx)
	assert.True(t, errors.Is(err, ErrLagged))

	// Delivery resumes after the lag notice
	e, err := sub.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventTopic, e.Kind)
}

func TestBroadcastIndependentStreams(t *testing.T) {
	b := NewBroadcast()
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	defer s1.Close()
	defer s2.Close()

	b.Send(Event{Kind: EventOnline})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, s := range []*Subscription{s1, s2} {
		e, err := s.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, EventOnline, e.Kind)
	}
}
