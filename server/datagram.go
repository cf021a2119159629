// File: server/datagram.go
// Author: momentics <momentics@gmail.com>

package server

import (
	"context"
	"errors"
	"net"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/selector"
	"github.com/momentics/hioload-nio/socket"
	"k8s.io/klog/v2"
)

// DatagramReceiver delivers UDP datagrams from a selector loop.
type DatagramReceiver struct {
	settings
	ch      *socket.DatagramChannel
	sel     *selector.Selector
	handler MessageHandler
}

// NewDatagramReceiver binds addr and delivers each datagram to handler.
// Datagrams larger than the buffer size are truncated.
func NewDatagramReceiver(addr string, handler MessageHandler, opts ...Option) (*DatagramReceiver, error) {
	ch, err := socket.OpenDatagram()
	if err != nil {
		return nil, err
	}
	if err := ch.Bind(addr); err != nil {
		ch.Close()
		return nil, err
	}
	if err := ch.ConfigureBlocking(false); err != nil {
		ch.Close()
		return nil, err
	}
	sel, err := selector.Open()
	if err != nil {
		ch.Close()
		return nil, err
	}
	if _, err := sel.Register(ch, api.OpRead, nil); err != nil {
		sel.Close()
		ch.Close()
		return nil, err
	}
	r := &DatagramReceiver{settings: newSettings(opts), ch: ch, sel: sel, handler: handler}
	r.metrics.WatchSelector("datagram", sel)
	return r, nil
}

// Addr returns the bound address.
func (r *DatagramReceiver) Addr() net.Addr { return r.ch.LocalAddr() }

// Serve receives until ctx is done.
func (r *DatagramReceiver) Serve(ctx context.Context) error {
	defer func() {
		r.sel.Close()
		r.ch.Close()
	}()
	klog.Infof("datagram receiver bound to %v", r.Addr())
	return runSelectLoop(ctx, r.sel, r.settings, func(k *selector.SelectionKey) {
		if k.IsReadable() {
			r.drain()
		}
	})
}

func (r *DatagramReceiver) drain() {
	buf, err := r.pool.Get(r.bufferSize)
	if err != nil {
		klog.Errorf("datagram: %v", err)
		return
	}
	defer r.pool.Put(buf)
	for {
		from, err := r.ch.Receive(buf)
		if errors.Is(err, api.ErrWouldBlock) {
			return
		}
		if err != nil {
			klog.Errorf("datagram: receive: %v", err)
			return
		}
		buf.Flip()
		r.metrics.AddBytesRead("datagram", buf.Remaining())
		r.metrics.IncMessages("datagram")
		if r.handler != nil {
			r.handler(from, buf.Bytes())
		}
		buf.Clear()
	}
}
