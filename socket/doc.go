// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package socket provides TCP and UDP channels on raw descriptors.
//
// Channels start in blocking mode. ConfigureBlocking(false) switches the
// descriptor to non-blocking mode; operations that cannot make progress then
// return api.ErrWouldBlock instead of waiting, and the channel can be
// registered with a selector. Reads report end-of-stream with io.EOF.
//
// Sockets are implemented for Linux; elsewhere every constructor returns
// api.ErrNotSupported.
package socket
