package handler

import (
	"log/slog"

	"github.com/udisondev/galaxyd/internal/protocol"
)

// handleWebbroker dispatches sort 2 (webbroker) messages from the game.
// Topic subscriptions are honored per connection: only messages on
// topics the game asked for are forwarded to it.
func (h *Handler) handleWebbroker(f *protocol.Frame) (*protocol.Header, []byte, error) {
	switch f.Header.Type {
	case protocol.MsgSubscribeTopicRequest:
		var req protocol.SubscribeTopicRequest
		if err := req.Unmarshal(f.Payload); err != nil {
			return nil, nil, protoDrop("subscribe_topic_request", err)
		}

		h.hctx.SubscribeTopic(req.Topic)
		slog.Debug("game subscribed to topic", "topic", req.Topic, "client_id", h.hctx.ClientID())

		resp := &protocol.SubscribeTopicResponse{Topic: req.Topic}
		hd := &protocol.Header{Sort: protocol.SortWebbroker, Type: protocol.MsgSubscribeTopicResponse}
		return hd, resp.Marshal(), nil

	default:
		return nil, nil, ErrNotImplemented
	}
}
