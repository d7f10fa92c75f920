package handler

import "errors"

// Frame-level outcomes. ErrIgnored means the message was processed and no
// response is expected; ErrNotImplemented answers with a bare header so
// the SDK inside the game does not hang waiting.
var (
	ErrIgnored        = errors.New("no response expected")
	ErrNotImplemented = errors.New("not implemented")
	// ErrUnauthorized invalidates the whole session; the handler closes
	// the socket.
	ErrUnauthorized = errors.New("session unauthorized")
)
