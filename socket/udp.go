// File: socket/udp.go
// Author: momentics <momentics@gmail.com>

package socket

import (
	"net"

	"github.com/momentics/hioload-nio/api"
)

var _ api.Selectable = (*DatagramChannel)(nil)

// DatagramChannel sends and receives UDP datagrams.
type DatagramChannel struct {
	netFD
}

// OpenDatagram returns an unbound datagram channel in blocking mode. The
// descriptor is created by the first Bind or Send.
func OpenDatagram() (*DatagramChannel, error) {
	if !supported {
		return nil, api.ErrNotSupported
	}
	return &DatagramChannel{netFD: newNetFD()}, nil
}

// Bind binds the channel to a local address.
func (d *DatagramChannel) Bind(addr string) error {
	a, err := resolveUDP(addr)
	if err != nil {
		return err
	}
	if d.FD() >= 0 {
		return api.NewError(api.ErrCodeInvalidState, "socket: already bound").WithContext("addr", addr)
	}
	fd, err := d.ensure(a.IP, sockDatagram)
	if err != nil {
		return err
	}
	if err := sysSetReuseAddr(fd); err != nil {
		return err
	}
	if err := sysBind(fd, a.IP, a.Port); err != nil {
		return api.NewError(api.ErrCodeInternal, "socket: bind").
			WithContext("addr", addr).WithContext("cause", err.Error())
	}
	return nil
}

// Send transmits the remaining bytes of src as one datagram to addr and
// advances src past them. It returns api.ErrWouldBlock in non-blocking mode
// when the send buffer is full; src is left untouched in that case.
func (d *DatagramChannel) Send(src api.ByteStore, addr string) (int, error) {
	a, err := resolveUDP(addr)
	if err != nil {
		return 0, err
	}
	fd, err := d.ensure(a.IP, sockDatagram)
	if err != nil {
		return 0, err
	}
	p := src.Bytes()
	if err := sysSendto(fd, p, a.IP, a.Port); err != nil {
		return 0, err
	}
	return len(p), src.Advance(len(p))
}

// Receive copies the next datagram into dst and returns its sender. Bytes
// that do not fit in dst are discarded. In non-blocking mode it returns
// api.ErrWouldBlock when nothing is queued.
func (d *DatagramChannel) Receive(dst api.ByteStore) (net.Addr, error) {
	fd, err := d.live()
	if err != nil {
		return nil, err
	}
	n, ip, port, err := sysRecvfrom(fd, dst.Bytes())
	if err != nil {
		return nil, err
	}
	if err := dst.Advance(n); err != nil {
		return nil, err
	}
	return &net.UDPAddr{IP: ip, Port: port}, nil
}

// LocalAddr returns the bound address, or nil before the socket exists.
func (d *DatagramChannel) LocalAddr() net.Addr {
	fd, err := d.live()
	if err != nil {
		return nil
	}
	ip, port, err := sysSockname(fd)
	if err != nil {
		return nil
	}
	return &net.UDPAddr{IP: ip, Port: port}
}

// ValidOps implements api.Selectable.
func (d *DatagramChannel) ValidOps() api.Op { return api.OpRead | api.OpWrite }
