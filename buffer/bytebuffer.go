// File: buffer/bytebuffer.go
// Author: momentics <momentics@gmail.com>
//
// Position-tracked byte buffer: put/get, flip/rewind/clear, mark/reset.

package buffer

import (
	"fmt"

	"github.com/momentics/hioload-nio/api"
)

const noMark = -1

var _ api.ByteStore = (*ByteBuffer)(nil)

// ByteBuffer is a fixed-capacity, position-tracked byte store.
type ByteBuffer struct {
	hb       []byte
	limit    int
	position int
	mark     int

	direct   bool
	readOnly bool
	release  func([]byte) error
}

// Allocate returns a heap buffer with the given capacity in fill mode.
func Allocate(capacity int) (*ByteBuffer, error) {
	if capacity < 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "buffer: negative capacity").
			WithContext("capacity", capacity)
	}
	return newBuffer(make([]byte, capacity)), nil
}

// MustAllocate is Allocate for capacities known to be valid. It panics on a
// negative capacity.
func MustAllocate(capacity int) *ByteBuffer {
	b, err := Allocate(capacity)
	if err != nil {
		panic(err)
	}
	return b
}

// Wrap returns a buffer backed by p. Capacity and limit are len(p).
// Changes to the buffer are visible in p and vice versa.
func Wrap(p []byte) *ByteBuffer {
	return newBuffer(p[:len(p):len(p)])
}

// WrapRegion returns a direct buffer over an externally owned memory region
// such as a file mapping. release is called once by Free.
func WrapRegion(mem []byte, readOnly bool, release func([]byte) error) *ByteBuffer {
	b := newBuffer(mem)
	b.direct = true
	b.readOnly = readOnly
	b.release = release
	return b
}

func newBuffer(hb []byte) *ByteBuffer {
	return &ByteBuffer{hb: hb, limit: len(hb), mark: noMark}
}

// Capacity returns the fixed size of the buffer.
func (b *ByteBuffer) Capacity() int { return len(b.hb) }

// Limit returns the index of the first byte that must not be read or written.
func (b *ByteBuffer) Limit() int { return b.limit }

// Position returns the index of the next byte to be read or written.
func (b *ByteBuffer) Position() int { return b.position }

// IsDirect reports whether the storage lives outside the Go heap.
func (b *ByteBuffer) IsDirect() bool { return b.direct }

// IsReadOnly reports whether Put operations are rejected.
func (b *ByteBuffer) IsReadOnly() bool { return b.readOnly }

// SetLimit sets the limit. Position and mark are pulled back if they exceed it.
func (b *ByteBuffer) SetLimit(n int) error {
	if n < 0 || n > len(b.hb) {
		return api.NewError(api.ErrCodeInvalidArgument, "buffer: limit out of range").
			WithContext("limit", n).WithContext("capacity", len(b.hb))
	}
	b.limit = n
	if b.position > n {
		b.position = n
	}
	if b.mark > n {
		b.mark = noMark
	}
	return nil
}

// SetPosition sets the position. A mark beyond the new position is discarded.
func (b *ByteBuffer) SetPosition(n int) error {
	if n < 0 || n > b.limit {
		return api.NewError(api.ErrCodeInvalidArgument, "buffer: position out of range").
			WithContext("position", n).WithContext("limit", b.limit)
	}
	b.position = n
	if b.mark > n {
		b.mark = noMark
	}
	return nil
}

// Remaining returns limit - position.
func (b *ByteBuffer) Remaining() int { return b.limit - b.position }

// HasRemaining reports whether any bytes remain between position and limit.
func (b *ByteBuffer) HasRemaining() bool { return b.position < b.limit }

// Put writes p at the current position and advances it by len(p).
// Nothing is written if p does not fit before the limit.
func (b *ByteBuffer) Put(p []byte) error {
	if b.readOnly {
		return b.readOnlyErr()
	}
	if len(p) > b.Remaining() {
		return b.overflow(len(p))
	}
	b.position += copy(b.hb[b.position:b.limit], p)
	return nil
}

// PutString is Put for a string.
func (b *ByteBuffer) PutString(s string) error {
	if b.readOnly {
		return b.readOnlyErr()
	}
	if len(s) > b.Remaining() {
		return b.overflow(len(s))
	}
	b.position += copy(b.hb[b.position:b.limit], s)
	return nil
}

// PutByte writes a single byte.
func (b *ByteBuffer) PutByte(c byte) error {
	if b.readOnly {
		return b.readOnlyErr()
	}
	if b.position >= b.limit {
		return b.overflow(1)
	}
	b.hb[b.position] = c
	b.position++
	return nil
}

// Get returns a copy of the next n bytes and advances the position.
func (b *ByteBuffer) Get(n int) ([]byte, error) {
	if n < 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "buffer: negative count").
			WithContext("count", n)
	}
	if n > b.Remaining() {
		return nil, b.underflow(n)
	}
	out := make([]byte, n)
	b.position += copy(out, b.hb[b.position:b.position+n])
	return out, nil
}

// GetInto copies the next n bytes into dst[off:off+n].
func (b *ByteBuffer) GetInto(dst []byte, off, n int) error {
	if off < 0 || n < 0 || off+n > len(dst) {
		return api.NewError(api.ErrCodeInvalidArgument, "buffer: destination range out of bounds").
			WithContext("offset", off).WithContext("count", n).WithContext("len", len(dst))
	}
	if n > b.Remaining() {
		return b.underflow(n)
	}
	b.position += copy(dst[off:off+n], b.hb[b.position:b.position+n])
	return nil
}

// GetByte reads a single byte.
func (b *ByteBuffer) GetByte() (byte, error) {
	if b.position >= b.limit {
		return 0, b.underflow(1)
	}
	c := b.hb[b.position]
	b.position++
	return c, nil
}

// Flip switches from fill to drain mode: limit=position, position=0.
func (b *ByteBuffer) Flip() {
	b.limit = b.position
	b.position = 0
	b.mark = noMark
}

// Rewind sets position to zero so the drained region can be read again.
func (b *ByteBuffer) Rewind() {
	b.position = 0
	b.mark = noMark
}

// Clear returns to fill mode. The stored bytes are left in place.
func (b *ByteBuffer) Clear() {
	b.position = 0
	b.limit = len(b.hb)
	b.mark = noMark
}

// Compact moves the unread bytes to the front and prepares the buffer for
// more puts after them.
func (b *ByteBuffer) Compact() error {
	if b.readOnly {
		return b.readOnlyErr()
	}
	n := copy(b.hb, b.hb[b.position:b.limit])
	b.position = n
	b.limit = len(b.hb)
	b.mark = noMark
	return nil
}

// Mark records the current position.
func (b *ByteBuffer) Mark() {
	b.mark = b.position
}

// Reset restores the position saved by Mark.
func (b *ByteBuffer) Reset() error {
	if b.mark < 0 {
		return api.NewError(api.ErrCodeInvalidState, "buffer: reset without mark").
			WithContext("position", b.position)
	}
	b.position = b.mark
	return nil
}

// Bytes returns the region [position:limit] without copying.
func (b *ByteBuffer) Bytes() []byte {
	return b.hb[b.position:b.limit]
}

// Array returns the whole backing storage [0:capacity].
func (b *ByteBuffer) Array() []byte {
	return b.hb
}

// Advance moves the position forward by n after an external transfer into or
// out of Bytes().
func (b *ByteBuffer) Advance(n int) error {
	if n < 0 || n > b.Remaining() {
		return api.NewError(api.ErrCodeInvalidArgument, "buffer: advance out of range").
			WithContext("count", n).WithContext("remaining", b.Remaining())
	}
	b.position += n
	return nil
}

// Free releases direct storage and drops the backing array of any buffer.
// Afterwards capacity, limit and position are zero, for heap and direct
// buffers alike.
func (b *ByteBuffer) Free() error {
	var err error
	if b.release != nil && b.hb != nil {
		err = b.release(b.hb)
	}
	b.release = nil
	b.hb = nil
	b.limit, b.position, b.mark = 0, 0, noMark
	return err
}

func (b *ByteBuffer) String() string {
	return fmt.Sprintf("buffer[pos=%d lim=%d cap=%d direct=%t]", b.position, b.limit, len(b.hb), b.direct)
}

func (b *ByteBuffer) overflow(n int) error {
	return api.NewError(api.ErrCodeOverflow, "buffer: put exceeds limit").
		WithContext("position", b.position).WithContext("limit", b.limit).WithContext("count", n)
}

func (b *ByteBuffer) underflow(n int) error {
	return api.NewError(api.ErrCodeUnderflow, "buffer: get exceeds limit").
		WithContext("position", b.position).WithContext("limit", b.limit).WithContext("count", n)
}

func (b *ByteBuffer) readOnlyErr() error {
	return api.NewError(api.ErrCodeInvalidState, "buffer: read-only")
}
