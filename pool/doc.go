// Package pool
// Author: momentics <momentics@gmail.com>
//
// Reusable ByteBuffer storage for the channel, pipe and socket layers.
// Buffers are bucketed by capacity; direct (mmap-backed) buffers that do not
// fit back into their bucket are freed instead of being left to the GC.
package pool
