// File: socket/tcp.go
// Author: momentics <momentics@gmail.com>
//
// Stream channels: a listening ServerSocketChannel and a connected
// SocketChannel.

package socket

import (
	"errors"
	"net"

	"github.com/momentics/hioload-nio/api"
)

// DefaultBacklog is the listen queue length used when Bind gets backlog <= 0.
const DefaultBacklog = 128

var (
	_ api.Selectable      = (*ServerSocketChannel)(nil)
	_ api.Selectable      = (*SocketChannel)(nil)
	_ api.ReadableChannel = (*SocketChannel)(nil)
	_ api.WritableChannel = (*SocketChannel)(nil)
)

// ServerSocketChannel accepts stream connections.
type ServerSocketChannel struct {
	netFD
	bound bool
}

// OpenServer returns an unbound server channel in blocking mode.
func OpenServer() (*ServerSocketChannel, error) {
	if !supported {
		return nil, api.ErrNotSupported
	}
	return &ServerSocketChannel{netFD: newNetFD()}, nil
}

// Listen opens a server channel bound to addr.
func Listen(addr string, backlog int) (*ServerSocketChannel, error) {
	s, err := OpenServer()
	if err != nil {
		return nil, err
	}
	if err := s.Bind(addr, backlog); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Bind binds the channel to addr ("host:port", port 0 picks a free port) and
// starts listening.
func (s *ServerSocketChannel) Bind(addr string, backlog int) error {
	a, err := resolveTCP(addr)
	if err != nil {
		return err
	}
	if s.bound {
		return api.NewError(api.ErrCodeInvalidState, "socket: already bound").WithContext("addr", addr)
	}
	fd, err := s.ensure(a.IP, sockStream)
	if err != nil {
		return err
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if err := sysSetReuseAddr(fd); err != nil {
		return err
	}
	if err := sysBind(fd, a.IP, a.Port); err != nil {
		return api.NewError(api.ErrCodeInternal, "socket: bind").
			WithContext("addr", addr).WithContext("cause", err.Error())
	}
	if err := sysListen(fd, backlog); err != nil {
		return err
	}
	s.bound = true
	return nil
}

// Accept returns the next connection in blocking mode. In non-blocking mode it
// returns api.ErrWouldBlock when nothing is pending.
func (s *ServerSocketChannel) Accept() (*SocketChannel, error) {
	fd, err := s.live()
	if err != nil {
		return nil, err
	}
	nfd, err := sysAccept(fd)
	if err != nil {
		if s.FD() < 0 {
			return nil, api.ErrClosed
		}
		return nil, err
	}
	c := &SocketChannel{netFD: newNetFD(), connected: true}
	c.fd = nfd
	return c, nil
}

// LocalAddr returns the bound address.
func (s *ServerSocketChannel) LocalAddr() net.Addr {
	fd, err := s.live()
	if err != nil {
		return nil
	}
	ip, port, err := sysSockname(fd)
	if err != nil {
		return nil
	}
	return &net.TCPAddr{IP: ip, Port: port}
}

// ValidOps implements api.Selectable.
func (s *ServerSocketChannel) ValidOps() api.Op { return api.OpAccept }

// SocketChannel is a stream connection.
type SocketChannel struct {
	netFD
	connected bool
	pending   bool
}

// OpenSocket returns an unconnected channel in blocking mode. The descriptor
// is created by Connect.
func OpenSocket() (*SocketChannel, error) {
	if !supported {
		return nil, api.ErrNotSupported
	}
	return &SocketChannel{netFD: newNetFD()}, nil
}

// Dial opens a blocking channel connected to addr.
func Dial(addr string) (*SocketChannel, error) {
	c, err := OpenSocket()
	if err != nil {
		return nil, err
	}
	if _, err := c.Connect(addr); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Connect starts a connection to addr. In blocking mode it returns once the
// connection is established. In non-blocking mode it may return false, in
// which case FinishConnect completes the handshake after the channel becomes
// connectable.
func (c *SocketChannel) Connect(addr string) (bool, error) {
	a, err := resolveTCP(addr)
	if err != nil {
		return false, err
	}
	if c.connected || c.pending {
		return false, api.NewError(api.ErrCodeInvalidState, "socket: connect already started").
			WithContext("addr", addr)
	}
	fd, err := c.ensure(a.IP, sockStream)
	if err != nil {
		return false, err
	}
	err = sysConnect(fd, a.IP, a.Port)
	switch {
	case err == nil:
		c.connected = true
		return true, nil
	case errors.Is(err, api.ErrWouldBlock):
		c.pending = true
		if !c.IsBlocking() {
			return false, nil
		}
		return c.FinishConnect()
	}
	return false, api.NewError(api.ErrCodeInternal, "socket: connect").
		WithContext("addr", addr).WithContext("cause", err.Error())
}

// FinishConnect completes a pending connection. In non-blocking mode it
// returns false while the handshake is still in progress.
func (c *SocketChannel) FinishConnect() (bool, error) {
	if c.connected {
		return true, nil
	}
	if !c.pending {
		return false, api.ErrNotConnected
	}
	fd, err := c.live()
	if err != nil {
		return false, err
	}
	timeout := 0
	if c.IsBlocking() {
		timeout = -1
	}
	done, err := sysConnectDone(fd, timeout)
	if err != nil {
		c.pending = false
		return false, api.NewError(api.ErrCodeInternal, "socket: connect").WithContext("cause", err.Error())
	}
	if done {
		c.pending = false
		c.connected = true
	}
	return done, nil
}

// IsConnected reports whether the handshake has completed.
func (c *SocketChannel) IsConnected() bool { return c.connected }

// IsConnectionPending reports whether a non-blocking connect is in progress.
func (c *SocketChannel) IsConnectionPending() bool { return c.pending }

// Read fills dst from the connection. It returns io.EOF once the peer has
// shut down its side, and api.ErrWouldBlock in non-blocking mode when no
// data is available.
func (c *SocketChannel) Read(dst api.ByteStore) (int, error) {
	fd, err := c.live()
	if err != nil {
		return 0, err
	}
	if dst.Remaining() == 0 {
		return 0, nil
	}
	n, err := sysRead(fd, dst.Bytes())
	if err != nil {
		return 0, err
	}
	return n, dst.Advance(n)
}

// Write drains src into the connection. Blocking channels write everything;
// non-blocking channels write what the socket accepts and return
// api.ErrWouldBlock only when nothing could be written.
func (c *SocketChannel) Write(src api.ByteStore) (int, error) {
	fd, err := c.live()
	if err != nil {
		return 0, err
	}
	total := 0
	for src.Remaining() > 0 {
		n, err := sysWrite(fd, src.Bytes())
		if n > 0 {
			if aerr := src.Advance(n); aerr != nil {
				return total, aerr
			}
			total += n
		}
		if errors.Is(err, api.ErrWouldBlock) {
			if total > 0 {
				return total, nil
			}
			return 0, err
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ShutdownOutput half-closes the connection; the peer reads io.EOF.
func (c *SocketChannel) ShutdownOutput() error {
	fd, err := c.live()
	if err != nil {
		return err
	}
	return sysShutdown(fd, shutWR)
}

// ShutdownInput discards further input.
func (c *SocketChannel) ShutdownInput() error {
	fd, err := c.live()
	if err != nil {
		return err
	}
	return sysShutdown(fd, shutRD)
}

// SetNoDelay toggles Nagle's algorithm.
func (c *SocketChannel) SetNoDelay(on bool) error {
	fd, err := c.live()
	if err != nil {
		return err
	}
	return sysSetNoDelay(fd, on)
}

// LocalAddr returns the local endpoint, or nil before the socket exists.
func (c *SocketChannel) LocalAddr() net.Addr {
	fd, err := c.live()
	if err != nil {
		return nil
	}
	ip, port, err := sysSockname(fd)
	if err != nil {
		return nil
	}
	return &net.TCPAddr{IP: ip, Port: port}
}

// RemoteAddr returns the peer endpoint, or nil when not connected.
func (c *SocketChannel) RemoteAddr() net.Addr {
	fd, err := c.live()
	if err != nil {
		return nil
	}
	ip, port, err := sysPeername(fd)
	if err != nil {
		return nil
	}
	return &net.TCPAddr{IP: ip, Port: port}
}

// ValidOps implements api.Selectable.
func (c *SocketChannel) ValidOps() api.Op {
	return api.OpRead | api.OpWrite | api.OpConnect
}
