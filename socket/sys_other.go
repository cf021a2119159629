//go:build !linux

// File: socket/sys_other.go
// Author: momentics <momentics@gmail.com>

package socket

import (
	"net"

	"github.com/momentics/hioload-nio/api"
)

const supported = false

func sysSocket(net.IP, sockType) (int, error) { return -1, api.ErrNotSupported }
func sysSetNonblock(int, bool) error { return api.ErrNotSupported }
func sysClose(int) error { return nil }
func sysShutdown(int, int) error { return nil }
func sysSetReuseAddr(int) error { return api.ErrNotSupported }
func sysSetNoDelay(int, bool) error { return api.ErrNotSupported }
func sysBind(int, net.IP, int) error { return api.ErrNotSupported }
func sysListen(int, int) error { return api.ErrNotSupported }
func sysAccept(int) (int, error) { return -1, api.ErrNotSupported }
func sysConnect(int, net.IP, int) error { return api.ErrNotSupported }
func sysConnectDone(int, int) (bool, error) { return false, api.ErrNotSupported }
func sysRead(int, []byte) (int, error) { return 0, api.ErrNotSupported }
func sysWrite(int, []byte) (int, error) { return 0, api.ErrNotSupported }
func sysSendto(int, []byte, net.IP, int) error { return api.ErrNotSupported }
func sysRecvfrom(int, []byte) (int, net.IP, int, error) { return 0, nil, 0, api.ErrNotSupported }
func sysSockname(int) (net.IP, int, error) { return nil, 0, api.ErrNotSupported }
func sysPeername(int) (net.IP, int, error) { return nil, 0, api.ErrNotSupported }
