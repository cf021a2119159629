// File: server/chat.go
// Author: momentics <momentics@gmail.com>
//
// Single-goroutine chat server multiplexing all connections on a selector.

package server

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/selector"
	"github.com/momentics/hioload-nio/socket"
	"k8s.io/klog/v2"
)

// MessageHandler receives every chunk read from a peer. msg is only valid
// for the duration of the call.
type MessageHandler func(from net.Addr, msg []byte)

// ChatServer reads messages from any number of non-blocking connections.
type ChatServer struct {
	settings
	ln      *socket.ServerSocketChannel
	sel     *selector.Selector
	handler MessageHandler
}

type chatPeer struct {
	conn   *socket.SocketChannel
	remote net.Addr
}

// NewChatServer listens on addr and delivers received chunks to handler.
func NewChatServer(addr string, handler MessageHandler, opts ...Option) (*ChatServer, error) {
	ln, err := socket.Listen(addr, 0)
	if err != nil {
		return nil, err
	}
	if err := ln.ConfigureBlocking(false); err != nil {
		ln.Close()
		return nil, err
	}
	sel, err := selector.Open()
	if err != nil {
		ln.Close()
		return nil, err
	}
	if _, err := sel.Register(ln, api.OpAccept, nil); err != nil {
		sel.Close()
		ln.Close()
		return nil, err
	}
	s := &ChatServer{settings: newSettings(opts), ln: ln, sel: sel, handler: handler}
	s.metrics.WatchSelector("chat", sel)
	return s, nil
}

// Addr returns the listening address.
func (s *ChatServer) Addr() net.Addr { return s.ln.LocalAddr() }

// Serve runs the selector loop until ctx is done, then closes every
// connection, the listener and the selector.
func (s *ChatServer) Serve(ctx context.Context) error {
	defer s.close()
	klog.Infof("chat server listening on %v", s.Addr())
	return runSelectLoop(ctx, s.sel, s.settings, func(k *selector.SelectionKey) {
		switch {
		case k.IsAcceptable():
			s.accept()
		case k.IsReadable():
			s.read(k)
		}
	})
}

func (s *ChatServer) accept() {
	for {
		conn, err := s.ln.Accept()
		if errors.Is(err, api.ErrWouldBlock) {
			return
		}
		if err != nil {
			klog.Errorf("chat accept: %v", err)
			return
		}
		peer := &chatPeer{conn: conn, remote: conn.RemoteAddr()}
		if err := conn.ConfigureBlocking(false); err != nil {
			klog.Errorf("chat: configure %v: %v", peer.remote, err)
			conn.Close()
			continue
		}
		if _, err := s.sel.Register(conn, api.OpRead, peer); err != nil {
			klog.Errorf("chat: register %v: %v", peer.remote, err)
			conn.Close()
			continue
		}
		s.metrics.IncAccepted("chat")
		klog.V(2).Infof("chat: %v connected", peer.remote)
	}
}

// read drains the connection until it would block.
func (s *ChatServer) read(k *selector.SelectionKey) {
	peer := k.Attachment().(*chatPeer)
	buf, err := s.pool.Get(s.bufferSize)
	if err != nil {
		klog.Errorf("chat: %v", err)
		return
	}
	defer s.pool.Put(buf)

	for {
		n, err := peer.conn.Read(buf)
		if n > 0 {
			buf.Flip()
			s.metrics.AddBytesRead("chat", n)
			s.metrics.IncMessages("chat")
			if s.handler != nil {
				s.handler(peer.remote, buf.Bytes())
			}
			buf.Clear()
		}
		switch {
		case err == nil:
			continue
		case errors.Is(err, api.ErrWouldBlock):
			return
		case err != io.EOF:
			klog.Errorf("chat: read from %v: %v", peer.remote, err)
		}
		klog.V(2).Infof("chat: %v disconnected", peer.remote)
		k.Cancel()
		peer.conn.Close()
		return
	}
}

func (s *ChatServer) close() {
	for _, k := range s.sel.Keys() {
		if peer, ok := k.Attachment().(*chatPeer); ok {
			peer.conn.Close()
		}
	}
	s.sel.Close()
	s.ln.Close()
}
