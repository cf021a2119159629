//go:build !linux
// +build !linux

// File: buffer/direct_other.go
// Author: momentics <momentics@gmail.com>
//
// Heap fallback for platforms without the mmap-backed allocator.

package buffer

// AllocateDirect falls back to heap storage; IsDirect reports false.
func AllocateDirect(capacity int) (*ByteBuffer, error) {
	return Allocate(capacity)
}
