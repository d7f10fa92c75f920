package protocol

// Message sort discriminators as the Galaxy SDK numbers them.
const (
	SortCommunicationService = 1
	SortWebbroker            = 2
	SortOverlayForService    = 3
	SortOverlayForClient     = 7
)

// Fields 100 and 101 are "unknown" extensions the desktop client smuggles
// through the Header: 100 echoes the request's oseq into the response, 101
// mirrors an HTTP status from the gameplay service to the game.
const (
	headerFieldSort   = 1
	headerFieldType   = 2
	headerFieldSize   = 3
	headerFieldOseq   = 100
	headerFieldStatus = 101
)

// Header frames every message on the TCP, WebSocket and overlay planes.
// Oseq and Status use 0 as "absent": the SDK never assigns oseq 0 and
// status 0 is not a valid HTTP code.
type Header struct {
	Sort   uint32
	Type   uint32
	Size   uint32
	Oseq   uint64
	Status uint32
}

// Marshal serializes the header protobuf.
func (h *Header) Marshal() []byte {
	b := make([]byte, 0, 16)
	b = appendVarintField(b, headerFieldSort, uint64(h.Sort))
	b = appendVarintField(b, headerFieldType, uint64(h.Type))
	b = appendVarintField(b, headerFieldSize, uint64(h.Size))
	b = appendVarintField(b, headerFieldOseq, h.Oseq)
	b = appendVarintField(b, headerFieldStatus, uint64(h.Status))
	return b
}

// Unmarshal parses the header protobuf. Unknown fields are skipped.
func (h *Header) Unmarshal(data []byte) error {
	d := newDecoder(data)
	for d.next() {
		switch d.num {
		case headerFieldSort:
			h.Sort = uint32(d.varint())
		case headerFieldType:
			h.Type = uint32(d.varint())
		case headerFieldSize:
			h.Size = uint32(d.varint())
		case headerFieldOseq:
			h.Oseq = d.varint()
		case headerFieldStatus:
			h.Status = uint32(d.varint())
		default:
			d.skip()
		}
	}
	return d.err
}
