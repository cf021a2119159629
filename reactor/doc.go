// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the level-triggered readiness poller used by the
// selector package. The Linux implementation is built on epoll(7) with an
// eventfd for wake-ups; other platforms report api.ErrNotSupported.
package reactor
