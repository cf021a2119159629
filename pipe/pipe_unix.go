//go:build unix
// +build unix

// File: pipe/pipe_unix.go
// Author: momentics <momentics@gmail.com>
//
// Non-blocking pipe I/O through the raw descriptor.

package pipe

import (
	"errors"
	"io"
	"syscall"

	"github.com/momentics/hioload-nio/api"
)

// readNow performs one read without parking on the runtime poller.
func (e *end) readNow(p []byte) (int, error) {
	rc, err := e.f.SyscallConn()
	if err != nil {
		return 0, err
	}
	var (
		n    int
		rerr error
	)
	if err := rc.Read(func(fd uintptr) bool {
		n, rerr = syscall.Read(int(fd), p)
		return true
	}); err != nil {
		return 0, err
	}
	switch {
	case errors.Is(rerr, syscall.EAGAIN):
		return 0, api.ErrWouldBlock
	case rerr != nil:
		return 0, rerr
	case n == 0:
		return 0, io.EOF
	}
	return n, nil
}

// writeNow performs one write without parking on the runtime poller.
func (e *end) writeNow(p []byte) (int, error) {
	rc, err := e.f.SyscallConn()
	if err != nil {
		return 0, err
	}
	var (
		n    int
		werr error
	)
	if err := rc.Write(func(fd uintptr) bool {
		n, werr = syscall.Write(int(fd), p)
		return true
	}); err != nil {
		return 0, err
	}
	if errors.Is(werr, syscall.EAGAIN) {
		return 0, api.ErrWouldBlock
	}
	if n < 0 {
		n = 0
	}
	return n, werr
}
