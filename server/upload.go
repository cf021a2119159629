// File: server/upload.go
// Author: momentics <momentics@gmail.com>
//
// Blocking upload server: one connection at a time per worker, streamed into
// a file through a pooled buffer.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/buffer"
	"github.com/momentics/hioload-nio/channel"
	"github.com/momentics/hioload-nio/internal/concurrency"
	"github.com/momentics/hioload-nio/socket"
	"k8s.io/klog/v2"
)

// AckMessage is written back after an upload when acknowledgements are on.
const AckMessage = "upload received"

// UploadResult describes a stored upload.
type UploadResult struct {
	Path   string
	Bytes  int64
	Remote net.Addr
}

// UploadServer accepts connections and stores each stream as a new file.
type UploadServer struct {
	settings
	dir      string
	ln       *socket.ServerSocketChannel
	onUpload func(UploadResult)
	seq      atomic.Int64

	mu    sync.Mutex
	conns map[*socket.SocketChannel]struct{}
}

// NewUploadServer listens on addr and writes uploads into dir. onUpload, if
// non-nil, is called after each file is stored.
func NewUploadServer(addr, dir string, onUpload func(UploadResult), opts ...Option) (*UploadServer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	ln, err := socket.Listen(addr, 0)
	if err != nil {
		return nil, err
	}
	return &UploadServer{
		settings: newSettings(opts),
		dir:      dir,
		ln:       ln,
		onUpload: onUpload,
		conns:    make(map[*socket.SocketChannel]struct{}),
	}, nil
}

// Addr returns the listening address.
func (s *UploadServer) Addr() net.Addr { return s.ln.LocalAddr() }

// Serve accepts uploads until ctx is done or the server is closed. In-flight
// transfers are aborted on shutdown.
func (s *UploadServer) Serve(ctx context.Context) error {
	exec := concurrency.NewExecutor("upload", s.workers, 0)
	defer func() {
		s.abortAll()
		exec.Close()
		exec.Wait()
	}()
	stop := context.AfterFunc(ctx, func() { s.ln.Close() })
	defer stop()

	klog.Infof("upload server listening on %v", s.Addr())
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.metrics.IncAccepted("upload")
		s.track(conn, true)
		if err := exec.Submit(func() { s.handle(ctx, conn) }); err != nil {
			s.track(conn, false)
			conn.Close()
			return err
		}
	}
}

// Close stops accepting connections.
func (s *UploadServer) Close() error {
	return s.ln.Close()
}

func (s *UploadServer) handle(ctx context.Context, conn *socket.SocketChannel) {
	defer func() {
		s.track(conn, false)
		conn.Close()
	}()
	remote := conn.RemoteAddr()
	path := filepath.Join(s.dir, fmt.Sprintf("upload-%d.bin", s.seq.Add(1)))

	buf, err := s.pool.Get(s.bufferSize)
	if err != nil {
		klog.Errorf("upload from %v: %v", remote, err)
		return
	}
	defer s.pool.Put(buf)

	n, err := s.receive(ctx, conn, path, buf)
	s.metrics.AddBytesRead("upload", int(n))
	if err != nil {
		if !errors.Is(err, api.ErrClosed) {
			klog.Errorf("upload from %v: %v", remote, err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	if s.ack {
		if err := s.acknowledge(conn); err != nil {
			klog.Errorf("ack to %v: %v", remote, err)
			return
		}
	}
	klog.V(2).Infof("stored %d bytes from %v in %s", n, remote, path)
	if s.onUpload != nil {
		s.onUpload(UploadResult{Path: path, Bytes: n, Remote: remote})
	}
}

func (s *UploadServer) receive(ctx context.Context, conn *socket.SocketChannel, path string, buf *buffer.ByteBuffer) (int64, error) {
	fc, err := channel.Create(path)
	if err != nil {
		return 0, err
	}
	defer fc.Close()
	return channel.CopyBuffered(ctx, fc, conn, buf)
}

func (s *UploadServer) acknowledge(conn *socket.SocketChannel) error {
	n, err := conn.Write(buffer.Wrap([]byte(AckMessage)))
	s.metrics.AddBytesWritten("upload", n)
	return err
}

func (s *UploadServer) track(conn *socket.SocketChannel, live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if live {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *UploadServer) abortAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}
