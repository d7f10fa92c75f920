package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Wire frame: u16 big-endian header length, header protobuf, payload bytes.
// The payload length is carried inside the header (size field).

// ErrTruncated is returned when the stream ends in the middle of a frame.
var ErrTruncated = errors.New("truncated frame")

// ErrBadHeader is returned when the header protobuf does not parse.
var ErrBadHeader = errors.New("malformed frame header")

// MaxPayloadSize bounds a single frame payload. The SDK never sends
// anything close to this; it guards against a corrupted header size.
const MaxPayloadSize = 16 << 20

// Frame is one decoded protocol message.
type Frame struct {
	Header  Header
	Payload []byte
}

// ReadFrame reads exactly one frame from r. A clean EOF before the first
// byte is returned as io.EOF so callers can tell a closed connection from
// a torn frame.
func ReadFrame(r io.Reader) (*Frame, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading header length: %w", err)
	}

	headerLen := int(binary.BigEndian.Uint16(lenBuf[:]))
	headerBuf := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, fmt.Errorf("reading header (%d bytes): %w", headerLen, ErrTruncated)
	}

	var f Frame
	if err := f.Header.Unmarshal(headerBuf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}

	size := int(f.Header.Size)
	if size > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload size %d", ErrBadHeader, size)
	}
	f.Payload = make([]byte, size)
	if _, err := io.ReadFull(r, f.Payload); err != nil {
		return nil, fmt.Errorf("reading payload (%d bytes): %w", size, ErrTruncated)
	}
	return &f, nil
}

// DecodeFrame parses a frame from an in-memory buffer (WebSocket binary
// messages arrive whole).
func DecodeFrame(data []byte) (*Frame, error) {
	f, err := ReadFrame(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading header length: %w", ErrTruncated)
		}
		return nil, err
	}
	return f, nil
}

// EncodeFrame builds the byte form of a frame. The header's size field is
// set from the payload before serialization.
func EncodeFrame(h *Header, payload []byte) ([]byte, error) {
	h.Size = uint32(len(payload))
	headerBuf := h.Marshal()
	if len(headerBuf) > 0xFFFF {
		return nil, fmt.Errorf("header too large: %d bytes", len(headerBuf))
	}

	buf := make([]byte, 0, 2+len(headerBuf)+len(payload))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(headerBuf)))
	buf = append(buf, headerBuf...)
	buf = append(buf, payload...)
	return buf, nil
}

// WriteFrame encodes and writes one frame to w.
func WriteFrame(w io.Writer, h *Header, payload []byte) error {
	buf, err := EncodeFrame(h, payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}
