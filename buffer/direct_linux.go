//go:build linux
// +build linux

// File: buffer/direct_linux.go
// Author: momentics <momentics@gmail.com>
//
// Direct buffers backed by anonymous private mappings.

package buffer

import (
	"fmt"

	"github.com/momentics/hioload-nio/api"
	"golang.org/x/sys/unix"
)

// AllocateDirect returns a buffer whose storage is an anonymous mmap region
// outside the Go heap. The caller must call Free when done.
func AllocateDirect(capacity int) (*ByteBuffer, error) {
	if capacity < 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "buffer: negative capacity").
			WithContext("capacity", capacity)
	}
	if capacity == 0 {
		// mmap rejects zero-length mappings.
		b := newBuffer([]byte{})
		b.direct = true
		return b, nil
	}
	mem, err := unix.Mmap(-1, 0, capacity, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("buffer: mmap %d bytes: %w", capacity, err)
	}
	return WrapRegion(mem, false, unix.Munmap), nil
}
