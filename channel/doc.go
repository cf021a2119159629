// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package channel moves bytes between files and position-tracked buffers.
//
// A FileChannel never exposes data directly: Read fills the buffer window
// [position:limit], Write drains it. On top of that the package offers three
// ways to copy a file (heap-buffered loop, memory-mapped, kernel transfer),
// scattering reads, gathering writes and charset transcoding of buffer
// contents.
package channel
