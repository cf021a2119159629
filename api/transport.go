// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Channel abstractions. A channel never touches user data directly; it only
// moves bytes between an OS object and a position-tracked buffer.

package api

// ByteStore is the part of a position-tracked buffer a channel needs: the
// writable or readable window and a way to advance past transferred bytes.
type ByteStore interface {
	// Bytes returns the region [position:limit].
	Bytes() []byte

	// Advance moves position forward by n bytes.
	Advance(n int) error

	// Remaining returns limit - position.
	Remaining() int
}

// ReadableChannel fills a buffer from its source. It returns io.EOF once the
// source is exhausted.
type ReadableChannel interface {
	Read(dst ByteStore) (int, error)
	Close() error
}

// WritableChannel drains a buffer into its destination.
type WritableChannel interface {
	Write(src ByteStore) (int, error)
	Close() error
}
