//go:build linux

// File: socket/sys_linux.go
// Author: momentics <momentics@gmail.com>
//
// Raw socket syscalls. Every call that may block retries on EINTR, since the
// runtime preempts goroutines with signals.

package socket

import (
	"io"
	"net"

	"github.com/momentics/hioload-nio/api"
	"golang.org/x/sys/unix"
)

const supported = true

func ignoringEINTR(fn func() error) error {
	for {
		err := fn()
		if err != unix.EINTR {
			return err
		}
	}
}

func wouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}

func sysSocket(ip net.IP, typ sockType) (int, error) {
	family := unix.AF_INET
	if ip != nil && ip.To4() == nil {
		family = unix.AF_INET6
	}
	st := unix.SOCK_STREAM
	if typ == sockDatagram {
		st = unix.SOCK_DGRAM
	}
	fd, err := unix.Socket(family, st|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, api.NewError(api.ErrCodeInternal, "socket: create").WithContext("cause", err.Error())
	}
	return fd, nil
}

func sysSetNonblock(fd int, nonblocking bool) error {
	return unix.SetNonblock(fd, nonblocking)
}

func sysClose(fd int) error {
	return unix.Close(fd)
}

func sysShutdown(fd, how int) error {
	h := unix.SHUT_RDWR
	switch how {
	case shutRD:
		h = unix.SHUT_RD
	case shutWR:
		h = unix.SHUT_WR
	}
	return unix.Shutdown(fd, h)
}

func sysSetReuseAddr(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

func sysSetNoDelay(fd int, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, v)
}

func toSockaddr(ip net.IP, port int) unix.Sockaddr {
	if ip == nil || ip.To4() != nil {
		sa := &unix.SockaddrInet4{Port: port}
		if ip != nil {
			copy(sa.Addr[:], ip.To4())
		}
		return sa
	}
	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], ip.To16())
	return sa
}

func fromSockaddr(sa unix.Sockaddr) (net.IP, int) {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.IPv4(a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3]), a.Port
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, a.Addr[:])
		return ip, a.Port
	}
	return nil, 0
}

func sysBind(fd int, ip net.IP, port int) error {
	return unix.Bind(fd, toSockaddr(ip, port))
}

func sysListen(fd, backlog int) error {
	return unix.Listen(fd, backlog)
}

// sysAccept returns api.ErrWouldBlock on a non-blocking socket with nothing
// pending. Accepted sockets start in blocking mode.
func sysAccept(fd int) (int, error) {
	for {
		nfd, _, err := unix.Accept4(fd, unix.SOCK_CLOEXEC)
		switch {
		case err == nil:
			return nfd, nil
		case err == unix.EINTR, err == unix.ECONNABORTED:
			continue
		case wouldBlock(err):
			return -1, api.ErrWouldBlock
		default:
			return -1, err
		}
	}
}

// sysConnect starts a connection. It returns api.ErrWouldBlock when the
// handshake continues in the background.
func sysConnect(fd int, ip net.IP, port int) error {
	err := unix.Connect(fd, toSockaddr(ip, port))
	switch err {
	case nil, unix.EISCONN:
		return nil
	case unix.EINPROGRESS, unix.EALREADY, unix.EINTR:
		return api.ErrWouldBlock
	}
	return err
}

// sysConnectDone polls for writability and reports the handshake outcome.
// timeoutMs < 0 waits indefinitely.
func sysConnectDone(fd, timeoutMs int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	var n int
	err := ignoringEINTR(func() error {
		var perr error
		n, perr = unix.Poll(fds, timeoutMs)
		return perr
	})
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	soerr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return false, err
	}
	if soerr != 0 {
		return false, unix.Errno(soerr)
	}
	return true, nil
}

func sysRead(fd int, p []byte) (int, error) {
	var n int
	err := ignoringEINTR(func() error {
		var rerr error
		n, rerr = unix.Read(fd, p)
		return rerr
	})
	switch {
	case wouldBlock(err):
		return 0, api.ErrWouldBlock
	case err != nil:
		return 0, err
	case n == 0 && len(p) > 0:
		return 0, io.EOF
	}
	return n, nil
}

func sysWrite(fd int, p []byte) (int, error) {
	var n int
	err := ignoringEINTR(func() error {
		var werr error
		n, werr = unix.SendmsgN(fd, p, nil, nil, unix.MSG_NOSIGNAL)
		return werr
	})
	if wouldBlock(err) {
		return 0, api.ErrWouldBlock
	}
	return n, err
}

func sysSendto(fd int, p []byte, ip net.IP, port int) error {
	err := ignoringEINTR(func() error {
		return unix.Sendto(fd, p, 0, toSockaddr(ip, port))
	})
	if wouldBlock(err) {
		return api.ErrWouldBlock
	}
	return err
}

func sysRecvfrom(fd int, p []byte) (int, net.IP, int, error) {
	var (
		n    int
		from unix.Sockaddr
	)
	err := ignoringEINTR(func() error {
		var rerr error
		n, from, rerr = unix.Recvfrom(fd, p, 0)
		return rerr
	})
	if wouldBlock(err) {
		return 0, nil, 0, api.ErrWouldBlock
	}
	if err != nil {
		return 0, nil, 0, err
	}
	ip, port := fromSockaddr(from)
	return n, ip, port, nil
}

func sysSockname(fd int) (net.IP, int, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, 0, err
	}
	ip, port := fromSockaddr(sa)
	return ip, port, nil
}

func sysPeername(fd int) (net.IP, int, error) {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return nil, 0, err
	}
	ip, port := fromSockaddr(sa)
	return ip, port, nil
}
