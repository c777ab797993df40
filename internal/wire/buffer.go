package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/pinegrid/internal/conv"
)

// MaxString bounds strings and byte blocks written by the buffer.
const MaxString = 1<<31 - 1

// Buffer is a little-endian payload buffer. The first error latches: all
// later calls become no-ops and Err reports it.
type Buffer struct {
	buf []byte
	pos int
	err error
}

// NewWriter returns an empty buffer with the given capacity hint.
func NewWriter(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, 0, capacity)}
}

// NewReader returns a buffer that decodes data.
func NewReader(data []byte) *Buffer {
	return &Buffer{buf: data}
}

// Bytes returns the encoded payload.
func (b *Buffer) Bytes() []byte { return b.buf }

// Err returns the first error encountered.
func (b *Buffer) Err() error { return b.err }

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int { return len(b.buf) - b.pos }

// Fail latches err unless an earlier error is already set.
func (b *Buffer) Fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Buffer) PutUint8(v uint8) {
	if b.err != nil {
		return
	}
	b.buf = append(b.buf, v)
}

func (b *Buffer) PutUint32(v uint32) {
	if b.err != nil {
		return
	}
	b.buf = binary.LittleEndian.AppendUint32(b.buf, v)
}

func (b *Buffer) PutUint64(v uint64) {
	if b.err != nil {
		return
	}
	b.buf = binary.LittleEndian.AppendUint64(b.buf, v)
}

func (b *Buffer) PutInt32(v int32) { b.PutUint32(uint32(v)) }

// PutLen writes a count or length as u32. Values outside the u32 range
// latch an error.
func (b *Buffer) PutLen(n int) {
	v, err := conv.IntToUint32(n)
	if err != nil {
		b.Fail(err)
		return
	}
	b.PutUint32(v)
}

func (b *Buffer) PutBool(v bool) {
	if v {
		b.PutUint8(1)
	} else {
		b.PutUint8(0)
	}
}

// PutFloat64 writes the raw IEEE-754 bits of v.
func (b *Buffer) PutFloat64(v float64) { b.PutUint64(math.Float64bits(v)) }

// PutFloat64s writes a length-prefixed float slice.
func (b *Buffer) PutFloat64s(vs []float64) {
	b.PutLen(len(vs))
	for _, v := range vs {
		b.PutFloat64(v)
	}
}

// PutBytes writes a length-prefixed byte block.
func (b *Buffer) PutBytes(p []byte) {
	if b.err != nil {
		return
	}
	if len(p) > MaxString {
		b.err = fmt.Errorf("block too long: %d", len(p))
		return
	}
	b.PutLen(len(p))
	b.buf = append(b.buf, p...)
}

// PutString writes a length-prefixed string.
func (b *Buffer) PutString(s string) {
	if b.err != nil {
		return
	}
	if len(s) > MaxString {
		b.err = fmt.Errorf("string too long: %d", len(s))
		return
	}
	b.PutLen(len(s))
	b.buf = append(b.buf, s...)
}

func (b *Buffer) take(n int) []byte {
	if b.err != nil {
		return nil
	}
	if n < 0 || b.pos+n > len(b.buf) {
		b.err = io.ErrUnexpectedEOF
		return nil
	}
	p := b.buf[b.pos : b.pos+n]
	b.pos += n
	return p
}

func (b *Buffer) Uint8() uint8 {
	p := b.take(1)
	if p == nil {
		return 0
	}
	return p[0]
}

func (b *Buffer) Uint32() uint32 {
	p := b.take(4)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(p)
}

func (b *Buffer) Uint64() uint64 {
	p := b.take(8)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(p)
}

func (b *Buffer) Int32() int32 { return int32(b.Uint32()) }

// Len reads a u32 count or length.
func (b *Buffer) Len() int {
	n, err := conv.Uint32ToInt(b.Uint32())
	if err != nil {
		b.Fail(err)
		return 0
	}
	return n
}

func (b *Buffer) Bool() bool {
	switch b.Uint8() {
	case 0:
		return false
	case 1:
		return true
	default:
		b.Fail(fmt.Errorf("invalid bool"))
		return false
	}
}

func (b *Buffer) Float64() float64 { return math.Float64frombits(b.Uint64()) }

// Float64s reads a length-prefixed float slice.
func (b *Buffer) Float64s() []float64 {
	n := b.Len()
	// Reject counts the payload can not hold before allocating.
	if b.err != nil || n > b.Remaining()/8 {
		b.Fail(io.ErrUnexpectedEOF)
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = b.Float64()
	}
	return out
}

// Count reads a u32 element count and checks that at least minSize bytes
// per element remain.
func (b *Buffer) Count(minSize int) int {
	n := b.Len()
	if b.err != nil {
		return 0
	}
	if minSize > 0 && n > b.Remaining()/minSize {
		b.err = io.ErrUnexpectedEOF
		return 0
	}
	return n
}

// Block reads a length-prefixed byte block. The result aliases the buffer.
func (b *Buffer) Block() []byte {
	return b.take(b.Len())
}

// Text reads a length-prefixed string.
func (b *Buffer) Text() string {
	return string(b.take(b.Len()))
}
