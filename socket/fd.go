// File: socket/fd.go
// Author: momentics <momentics@gmail.com>
//
// Descriptor bookkeeping shared by all socket channels.

package socket

import (
	"net"
	"sync"

	"github.com/momentics/hioload-nio/api"
)

type sockType int

const (
	sockStream sockType = iota
	sockDatagram
)

// netFD holds a descriptor that may be created lazily, once the address
// family is known.
type netFD struct {
	mu       sync.Mutex
	fd       int
	blocking bool
	closed   bool
}

func newNetFD() netFD {
	return netFD{fd: -1, blocking: true}
}

// FD returns the descriptor, or -1 before the socket exists or after Close.
func (c *netFD) FD() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return -1
	}
	return c.fd
}

// IsBlocking reports the current mode.
func (c *netFD) IsBlocking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocking
}

// ConfigureBlocking switches between blocking and non-blocking mode. The mode
// is remembered and applied when the socket is created.
func (c *netFD) ConfigureBlocking(block bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return api.ErrClosed
	}
	if c.fd >= 0 {
		if err := sysSetNonblock(c.fd, !block); err != nil {
			return err
		}
	}
	c.blocking = block
	return nil
}

// ensure creates the descriptor for the family of ip if it does not exist.
func (c *netFD) ensure(ip net.IP, typ sockType) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return -1, api.ErrClosed
	}
	if c.fd >= 0 {
		return c.fd, nil
	}
	fd, err := sysSocket(ip, typ)
	if err != nil {
		return -1, err
	}
	if !c.blocking {
		if err := sysSetNonblock(fd, true); err != nil {
			sysClose(fd)
			return -1, err
		}
	}
	c.fd = fd
	return fd, nil
}

// live returns the descriptor or an error if it is missing or closed.
func (c *netFD) live() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return -1, api.ErrClosed
	}
	if c.fd < 0 {
		return -1, api.ErrNotConnected
	}
	return c.fd, nil
}

// Close shuts the socket down, waking blocked callers, and releases it.
func (c *netFD) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.fd < 0 {
		return nil
	}
	_ = sysShutdown(c.fd, shutRDWR)
	err := sysClose(c.fd)
	c.fd = -1
	return err
}

const (
	shutRD = iota
	shutWR
	shutRDWR
)

func resolveTCP(addr string) (*net.TCPAddr, error) {
	a, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "socket: bad tcp address").
			WithContext("addr", addr).WithContext("cause", err.Error())
	}
	return a, nil
}

func resolveUDP(addr string) (*net.UDPAddr, error) {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "socket: bad udp address").
			WithContext("addr", addr).WithContext("cause", err.Error())
	}
	return a, nil
}
