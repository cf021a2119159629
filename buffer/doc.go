// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package buffer implements ByteBuffer, a fixed-capacity linear byte store
// tracked by capacity, limit, position and an optional mark.
//
// A buffer starts in fill mode (position=0, limit=capacity). Put advances the
// position toward the limit. Flip switches it to drain mode (limit=position,
// position=0) where Get advances toward the limit. Clear returns to fill mode
// without touching the stored bytes.
//
// The invariant 0 <= mark <= position <= limit <= capacity holds after every
// operation. A ByteBuffer has a single owner and performs no locking; hand it
// across goroutines only through a channel or another synchronization point.
//
// Heap buffers live in Go memory. Direct buffers are backed by an anonymous
// mmap region on Linux and must be released with Free.
package buffer
