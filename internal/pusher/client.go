// Package pusher maintains the long-lived WebSocket to the vendor's
// notification service and fans its messages out to connection handlers.
package pusher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/udisondev/galaxyd/internal/protocol"
)

const (
	// Authentication and subscription oseq bases used by the desktop
	// client.
	authOseq      = 10000
	subscribeOseq = 1020

	dialRetries      = 5
	dialBackoff      = 3 * time.Second
	reconnectBackoff = 10 * time.Second

	keepalivePeriod = 60 * time.Second
	// Two consecutive unanswered pings flip the daemon offline.
	maxMissedPongs = 2
)

// Topics every session subscribes to after authentication.
var defaultTopics = []string{"chat", "friends", "presence"}

// ErrAuthRejected is terminal: the push service refused the token and a
// reconnect will not fix it.
var ErrAuthRejected = errors.New("pusher authentication rejected")

// Client owns the push connection. Run blocks until the context is
// cancelled or authentication is rejected.
type Client struct {
	url         string
	accessToken string
	broadcast   *Broadcast
	dialer      *websocket.Dialer

	online bool
}

// New создаёт клиента push-сервиса. events получает Online/Offline/Topic.
func New(url, accessToken string, events *Broadcast) *Client {
	return &Client{
		url:         url,
		accessToken: accessToken,
		broadcast:   events,
		dialer:      websocket.DefaultDialer,
	}
}

// Run connects, authenticates and pumps notifications until ctx is
// cancelled. Connection failures reconnect forever; auth rejection
// terminates.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := c.connect(ctx)
		if err != nil {
			if errors.Is(err, ErrAuthRejected) {
				slog.Error("notification pusher rejected", "err", err)
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			attempt++
			backoff := dialBackoff
			if attempt > dialRetries {
				backoff = reconnectBackoff
			}
			slog.Warn("pusher connect failed", "attempt", attempt, "backoff", backoff, "err", err)
			if !sleep(ctx, backoff) {
				return nil
			}
			continue
		}

		attempt = 0
		err = c.pump(ctx, conn)
		conn.Close()
		c.setOnline(false)
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("pusher connection lost", "err", err)
		if !sleep(ctx, reconnectBackoff) {
			return nil
		}
	}
}

// connect dials the endpoint, authenticates and subscribes the default
// topics.
func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", c.url, err)
	}

	auth := &protocol.WebbrokerAuthRequest{AuthToken: "Bearer " + c.accessToken}
	frame, err := protocol.EncodeFrame(&protocol.Header{
		Sort: protocol.SortWebbroker,
		Type: protocol.MsgWebbrokerAuthRequest,
		Oseq: authOseq,
	}, auth.Marshal())
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending auth request: %w", err)
	}

	// The first frame back must be the auth response.
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading auth response: %w", err)
	}
	f, err := protocol.DecodeFrame(data)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("parsing auth response: %w", err)
	}
	if f.Header.Type != protocol.MsgWebbrokerAuthResponse {
		conn.Close()
		return nil, fmt.Errorf("expected auth response, got type %d", f.Header.Type)
	}
	if f.Header.Status != 0 {
		conn.Close()
		return nil, fmt.Errorf("%w: status %d", ErrAuthRejected, f.Header.Status)
	}
	slog.Info("notification pusher authenticated")

	for i, topic := range defaultTopics {
		sub := &protocol.SubscribeTopicRequest{Topic: topic}
		frame, err := protocol.EncodeFrame(&protocol.Header{
			Sort: protocol.SortWebbroker,
			Type: protocol.MsgSubscribeTopicRequest,
			Oseq: subscribeOseq + uint64(i),
		}, sub.Marshal())
		if err != nil {
			conn.Close()
			return nil, err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			conn.Close()
			return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}

	return conn, nil
}

// pump runs the read/keepalive loop on an authenticated connection.
func (c *Client) pump(ctx context.Context, conn *websocket.Conn) error {
	c.setOnline(true)

	pongCh := make(chan struct{}, 1)
	conn.SetPongHandler(func(string) error {
		select {
		case pongCh <- struct{}{}:
		default:
		}
		return nil
	})

	type inbound struct {
		data []byte
		err  error
	}
	msgCh := make(chan inbound)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			select {
			case msgCh <- inbound{data: data, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(keepalivePeriod)
	defer ticker.Stop()

	missed := 0
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-pongCh:
			missed = 0
			c.setOnline(true)

		case <-ticker.C:
			if missed >= maxMissedPongs {
				c.setOnline(false)
				return fmt.Errorf("missed %d keepalives", missed)
			}
			missed++
			ping := &protocol.WebbrokerPing{PingTime: uint64(time.Now().UnixMilli())}
			payload, err := protocol.EncodeFrame(&protocol.Header{
				Sort: protocol.SortWebbroker,
				Type: protocol.MsgWebbrokerPing,
			}, ping.Marshal())
			if err != nil {
				return err
			}
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, payload, deadline); err != nil {
				return fmt.Errorf("sending keepalive: %w", err)
			}

		case in := <-msgCh:
			if in.err != nil {
				return fmt.Errorf("reading push message: %w", in.err)
			}
			c.handleMessage(in.data)
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	f, err := protocol.DecodeFrame(data)
	if err != nil {
		slog.Warn("dropping malformed push frame", "err", err)
		return
	}

	switch f.Header.Type {
	case protocol.MsgSubscribeTopicResponse:
		var resp protocol.SubscribeTopicResponse
		if err := resp.Unmarshal(f.Payload); err != nil {
			slog.Warn("dropping malformed subscribe response", "err", err)
			return
		}
		slog.Debug("subscribed to topic", "topic", resp.Topic)

	case protocol.MsgMessageFromTopic:
		var msg protocol.MessageFromTopic
		if err := msg.Unmarshal(f.Payload); err != nil {
			slog.Warn("dropping malformed topic message", "err", err)
			return
		}
		c.broadcast.Send(Event{Kind: EventTopic, Topic: msg.Topic, Raw: data})

	default:
		slog.Debug("unhandled push message", "type", f.Header.Type)
	}
}

// setOnline broadcasts transitions only, so subscribers see exactly one
// Offline between two Onlines.
func (c *Client) setOnline(online bool) {
	if c.online == online {
		return
	}
	c.online = online
	if online {
		c.broadcast.Send(Event{Kind: EventOnline})
	} else {
		c.broadcast.Send(Event{Kind: EventOffline})
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
