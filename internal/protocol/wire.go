package protocol

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Append helpers emit proto3-style fields: zero values are skipped so the
// encoded form matches what the vendor's generated code produces.

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBoolField(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendFloatField(b []byte, num protowire.Number, v float32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func appendDoubleField(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

// decoder walks the fields of one serialized message. Wrong-typed fields
// are skipped and read as zero values; the first parse error sticks.
type decoder struct {
	buf []byte
	err error
	num protowire.Number
	typ protowire.Type
}

func newDecoder(buf []byte) *decoder {
	return &decoder{buf: buf}
}

// next advances to the next field tag. Returns false at end of buffer or
// on error.
func (d *decoder) next() bool {
	if d.err != nil || len(d.buf) == 0 {
		return false
	}
	num, typ, n := protowire.ConsumeTag(d.buf)
	if n < 0 {
		d.err = protowire.ParseError(n)
		return false
	}
	d.buf = d.buf[n:]
	d.num, d.typ = num, typ
	return true
}

func (d *decoder) skip() {
	n := protowire.ConsumeFieldValue(d.num, d.typ, d.buf)
	if n < 0 {
		d.err = protowire.ParseError(n)
		return
	}
	d.buf = d.buf[n:]
}

func (d *decoder) varint() uint64 {
	if d.typ != protowire.VarintType {
		d.skip()
		return 0
	}
	v, n := protowire.ConsumeVarint(d.buf)
	if n < 0 {
		d.err = protowire.ParseError(n)
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) bool_() bool {
	return d.varint() != 0
}

func (d *decoder) bytes() []byte {
	if d.typ != protowire.BytesType {
		d.skip()
		return nil
	}
	v, n := protowire.ConsumeBytes(d.buf)
	if n < 0 {
		d.err = protowire.ParseError(n)
		return nil
	}
	d.buf = d.buf[n:]
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (d *decoder) string_() string {
	return string(d.bytes())
}

func (d *decoder) float() float32 {
	if d.typ != protowire.Fixed32Type {
		d.skip()
		return 0
	}
	v, n := protowire.ConsumeFixed32(d.buf)
	if n < 0 {
		d.err = protowire.ParseError(n)
		return 0
	}
	d.buf = d.buf[n:]
	return math.Float32frombits(v)
}

func (d *decoder) double() float64 {
	if d.typ != protowire.Fixed64Type {
		d.skip()
		return 0
	}
	v, n := protowire.ConsumeFixed64(d.buf)
	if n < 0 {
		d.err = protowire.ParseError(n)
		return 0
	}
	d.buf = d.buf[n:]
	return math.Float64frombits(v)
}
