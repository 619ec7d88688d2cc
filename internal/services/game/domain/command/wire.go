package command

import (
	"fmt"
	"math"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// WireVersion is the only frame version this build reads and writes.
const WireVersion = 1

// Encoder appends tagged fields in declaration order. Field numbers are
// assigned sequentially from 1, so a kind always writes the same field set.
type Encoder struct {
	buf  []byte
	next protowire.Number
}

// NewEncoder returns an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{next: 1}
}

// Bytes returns the encoded fields.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) tag(typ protowire.Type) {
	e.buf = protowire.AppendTag(e.buf, e.next, typ)
	e.next++
}

// Uint writes an unsigned varint.
func (e *Encoder) Uint(v uint64) {
	e.tag(protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, v)
}

// Int writes a zigzag signed varint.
func (e *Encoder) Int(v int64) {
	e.tag(protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, protowire.EncodeZigZag(v))
}

// Bool writes 0 or 1.
func (e *Encoder) Bool(v bool) {
	e.Uint(protowire.EncodeBool(v))
}

// String writes a length-prefixed string.
func (e *Encoder) String(v string) {
	e.tag(protowire.BytesType)
	e.buf = protowire.AppendString(e.buf, v)
}

// Raw writes a length-prefixed byte slice.
func (e *Encoder) Raw(v []byte) {
	e.tag(protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, v)
}

// StringMap writes a map as one field of alternating keys and values, sorted
// by key.
func (e *Encoder) StringMap(m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var inner []byte
	for _, k := range keys {
		inner = protowire.AppendString(inner, k)
		inner = protowire.AppendString(inner, m[k])
	}
	e.Raw(inner)
}

// Decoder reads fields written by Encoder. The first failure sticks; later
// reads return zero values and Err reports the failure.
type Decoder struct {
	buf  []byte
	next protowire.Number
	err  error
}

// NewDecoder reads fields from b.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b, next: 1}
}

// Err returns the first decode failure.
func (d *Decoder) Err() error {
	return d.err
}

// Finish fails when unread bytes remain.
func (d *Decoder) Finish() error {
	if d.err == nil && len(d.buf) > 0 {
		d.err = fmt.Errorf("%d trailing bytes after field %d", len(d.buf), d.next-1)
	}
	return d.err
}

func (d *Decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("field %d: %s", d.next, fmt.Sprintf(format, args...))
	}
}

func (d *Decoder) tag(want protowire.Type) bool {
	if d.err != nil {
		return false
	}
	num, typ, n := protowire.ConsumeTag(d.buf)
	if n < 0 {
		d.fail("%v", protowire.ParseError(n))
		return false
	}
	if num != d.next {
		d.fail("got field %d", num)
		return false
	}
	if typ != want {
		d.fail("wire type %d, want %d", typ, want)
		return false
	}
	d.buf = d.buf[n:]
	return true
}

func (d *Decoder) varint() (uint64, bool) {
	if !d.tag(protowire.VarintType) {
		return 0, false
	}
	v, n := protowire.ConsumeVarint(d.buf)
	if n < 0 {
		d.fail("%v", protowire.ParseError(n))
		return 0, false
	}
	d.buf = d.buf[n:]
	d.next++
	return v, true
}

func (d *Decoder) bytes() ([]byte, bool) {
	if !d.tag(protowire.BytesType) {
		return nil, false
	}
	v, n := protowire.ConsumeBytes(d.buf)
	if n < 0 {
		d.fail("%v", protowire.ParseError(n))
		return nil, false
	}
	d.buf = d.buf[n:]
	d.next++
	return v, true
}

func (d *Decoder) bounded(max uint64) uint64 {
	v, ok := d.varint()
	if !ok {
		return 0
	}
	if v > max {
		d.next--
		d.fail("value %d exceeds %d", v, max)
		return 0
	}
	return v
}

// Uint64 reads an unsigned varint.
func (d *Decoder) Uint64() uint64 {
	return d.bounded(math.MaxUint64)
}

// Uint32 reads an unsigned varint no larger than 32 bits.
func (d *Decoder) Uint32() uint32 {
	return uint32(d.bounded(math.MaxUint32))
}

// Uint16 reads an unsigned varint no larger than 16 bits.
func (d *Decoder) Uint16() uint16 {
	return uint16(d.bounded(math.MaxUint16))
}

// Uint8 reads an unsigned varint no larger than 8 bits.
func (d *Decoder) Uint8() uint8 {
	return uint8(d.bounded(math.MaxUint8))
}

// Int64 reads a zigzag varint.
func (d *Decoder) Int64() int64 {
	v, ok := d.varint()
	if !ok {
		return 0
	}
	return protowire.DecodeZigZag(v)
}

// Int32 reads a zigzag varint that fits in 32 bits.
func (d *Decoder) Int32() int32 {
	v := d.Int64()
	if v < math.MinInt32 || v > math.MaxInt32 {
		d.next--
		d.fail("value %d out of int32 range", v)
		return 0
	}
	return int32(v)
}

// Bool reads 0 or 1.
func (d *Decoder) Bool() bool {
	return d.bounded(1) == 1
}

// String reads a length-prefixed string.
func (d *Decoder) String() string {
	v, _ := d.bytes()
	return string(v)
}

// Raw reads a length-prefixed byte slice. The result aliases the input.
func (d *Decoder) Raw() []byte {
	v, _ := d.bytes()
	return v
}

// StringMap reads a map written by Encoder.StringMap.
func (d *Decoder) StringMap() map[string]string {
	inner, ok := d.bytes()
	if !ok || len(inner) == 0 {
		return nil
	}
	out := make(map[string]string)
	prev := ""
	for len(inner) > 0 {
		k, n := protowire.ConsumeString(inner)
		if n < 0 {
			d.fail("map key: %v", protowire.ParseError(n))
			return nil
		}
		inner = inner[n:]
		v, n := protowire.ConsumeString(inner)
		if n < 0 {
			d.fail("map value: %v", protowire.ParseError(n))
			return nil
		}
		inner = inner[n:]
		if len(out) > 0 && k <= prev {
			d.fail("map keys out of order")
			return nil
		}
		out[k] = v
		prev = k
	}
	return out
}
