// File: client/upload.go
// Author: momentics <momentics@gmail.com>
//
// Blocking file upload with an optional server acknowledgement.

package client

import (
	"context"
	"io"

	"github.com/momentics/hioload-nio/buffer"
	"github.com/momentics/hioload-nio/channel"
	"github.com/momentics/hioload-nio/control"
	"github.com/momentics/hioload-nio/pool"
	"github.com/momentics/hioload-nio/socket"
	"k8s.io/klog/v2"
)

// UploadOptions tunes Upload.
type UploadOptions struct {
	// WaitAck half-closes the connection after the file and reads the reply.
	WaitAck bool
	// BufferSize is the transfer buffer capacity; 0 means 1024.
	BufferSize int
	// Pool supplies the buffer; nil means pool.Default().
	Pool    *pool.BufferPool
	Metrics *control.MetricsRegistry
}

// UploadResult reports a finished upload.
type UploadResult struct {
	Bytes int64
	Ack   string
}

// Upload streams the file at path to addr. Cancelling ctx aborts the
// transfer by closing the connection.
func Upload(ctx context.Context, addr, path string, opts UploadOptions) (UploadResult, error) {
	var res UploadResult
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1024
	}
	if opts.Pool == nil {
		opts.Pool = pool.Default()
	}

	fc, err := channel.OpenRead(path)
	if err != nil {
		return res, err
	}
	defer fc.Close()

	conn, err := socket.Dial(addr)
	if err != nil {
		return res, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	buf, err := opts.Pool.Get(opts.BufferSize)
	if err != nil {
		return res, err
	}
	defer opts.Pool.Put(buf)

	res.Bytes, err = channel.CopyBuffered(ctx, conn, fc, buf)
	opts.Metrics.AddBytesWritten("upload", int(res.Bytes))
	if err != nil {
		return res, ctxErr(ctx, err)
	}
	klog.V(2).Infof("uploaded %d bytes of %s to %s", res.Bytes, path, addr)
	if !opts.WaitAck {
		return res, nil
	}

	if err := conn.ShutdownOutput(); err != nil {
		return res, err
	}
	reply, err := readAll(ctx, conn, buf)
	if err != nil {
		return res, ctxErr(ctx, err)
	}
	res.Ack = reply
	return res, nil
}

// readAll reads until EOF, growing the result beyond buf's capacity.
func readAll(ctx context.Context, conn *socket.SocketChannel, buf *buffer.ByteBuffer) (string, error) {
	var out []byte
	buf.Clear()
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		_, err := conn.Read(buf)
		buf.Flip()
		out = append(out, buf.Bytes()...)
		buf.Clear()
		if err != nil {
			if err == io.EOF {
				return string(out), nil
			}
			return "", err
		}
	}
}

func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return err
}
