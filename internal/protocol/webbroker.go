package protocol

// Webbroker service (sort 2) message types. The same catalogue flows on
// the game TCP socket and inside the pusher's WebSocket binary messages.
const (
	MsgWebbrokerAuthRequest   = 1
	MsgWebbrokerAuthResponse  = 2
	MsgSubscribeTopicRequest  = 3
	MsgSubscribeTopicResponse = 4
	MsgMessageFromTopic       = 5
	MsgWebbrokerPing          = 6
	MsgWebbrokerPong          = 7
)

type WebbrokerAuthRequest struct {
	AuthToken string
}

func (m *WebbrokerAuthRequest) Marshal() []byte {
	return appendStringField(nil, 1, m.AuthToken)
}

func (m *WebbrokerAuthRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.AuthToken = d.string_()
		} else {
			d.skip()
		}
	}
	return d.err
}

// WebbrokerAuthResponse has no body; the result status rides in header
// field 101 (0 = OK).
type WebbrokerAuthResponse struct{}

func (m *WebbrokerAuthResponse) Marshal() []byte { return nil }
func (m *WebbrokerAuthResponse) Unmarshal(data []byte) error { return nil }

type SubscribeTopicRequest struct {
	Topic string
}

func (m *SubscribeTopicRequest) Marshal() []byte {
	return appendStringField(nil, 1, m.Topic)
}

func (m *SubscribeTopicRequest) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.Topic = d.string_()
		} else {
			d.skip()
		}
	}
	return d.err
}

type SubscribeTopicResponse struct {
	Topic string
}

func (m *SubscribeTopicResponse) Marshal() []byte {
	return appendStringField(nil, 1, m.Topic)
}

func (m *SubscribeTopicResponse) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.Topic = d.string_()
		} else {
			d.skip()
		}
	}
	return d.err
}

// MessageFromTopic is decoded only far enough to learn the topic; the
// whole frame is forwarded verbatim to subscribed games.
type MessageFromTopic struct {
	Topic string
	Data  []byte
}

func (m *MessageFromTopic) Marshal() []byte {
	var b []byte
	b = appendStringField(b, 1, m.Topic)
	b = appendBytesField(b, 2, m.Data)
	return b
}

func (m *MessageFromTopic) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case 1:
			m.Topic = d.string_()
		case 2:
			m.Data = d.bytes()
		default:
			d.skip()
		}
	}
	return d.err
}

type WebbrokerPing struct {
	PingTime uint64
}

func (m *WebbrokerPing) Marshal() []byte {
	return appendVarintField(nil, 1, m.PingTime)
}

func (m *WebbrokerPing) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.PingTime = d.varint()
		} else {
			d.skip()
		}
	}
	return d.err
}

type WebbrokerPong struct {
	PongTime uint64
}

func (m *WebbrokerPong) Marshal() []byte {
	return appendVarintField(nil, 1, m.PongTime)
}

func (m *WebbrokerPong) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		if d.num == 1 {
			m.PongTime = d.varint()
		} else {
			d.skip()
		}
	}
	return d.err
}
