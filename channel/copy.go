// File: channel/copy.go
// Author: momentics <momentics@gmail.com>
//
// File copy strategies: heap-buffered loop, memory mapping and kernel transfer.

package channel

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/buffer"
	"k8s.io/klog/v2"
)

// CopyMode selects a copy strategy.
type CopyMode int

const (
	CopyBufferedMode CopyMode = iota
	CopyMappedMode
	CopyTransferMode
)

func (m CopyMode) String() string {
	switch m {
	case CopyBufferedMode:
		return "buffered"
	case CopyMappedMode:
		return "mapped"
	case CopyTransferMode:
		return "transfer"
	default:
		return fmt.Sprintf("CopyMode(%d)", int(m))
	}
}

// ParseCopyMode accepts "buffered", "mapped" or "transfer".
func ParseCopyMode(s string) (CopyMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buffered", "heap", "":
		return CopyBufferedMode, nil
	case "mapped", "mmap", "direct":
		return CopyMappedMode, nil
	case "transfer", "sendfile":
		return CopyTransferMode, nil
	}
	return 0, api.NewError(api.ErrCodeInvalidArgument, "channel: unknown copy mode").WithContext("mode", s)
}

// CopyResult describes a finished file copy.
type CopyResult struct {
	Mode    CopyMode
	Bytes   int64
	Elapsed time.Duration
}

// CopyBuffered pumps src into dst through buf: read, flip, write, clear.
// ctx is checked between iterations.
func CopyBuffered(ctx context.Context, dst api.WritableChannel, src api.ReadableChannel, buf *buffer.ByteBuffer) (int64, error) {
	if buf.Capacity() == 0 {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "channel: zero-capacity copy buffer")
	}
	buf.Clear()
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		_, rerr := src.Read(buf)
		buf.Flip()
		if buf.HasRemaining() {
			n, werr := dst.Write(buf)
			total += int64(n)
			if werr != nil {
				return total, werr
			}
		}
		buf.Clear()
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

// CopyMapped copies srcPath to dstPath by mapping both files and moving the
// bytes between the mappings.
func CopyMapped(dstPath, srcPath string) (int64, error) {
	in, err := OpenRead(srcPath)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := Create(dstPath)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	size, err := in.Size()
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, nil
	}
	if err := out.Truncate(size); err != nil {
		return 0, fmt.Errorf("channel: truncate %s: %w", dstPath, err)
	}

	inMap, err := in.Map(MapReadOnly, 0, int(size))
	if err != nil {
		return 0, err
	}
	defer inMap.Free()
	outMap, err := out.Map(MapReadWrite, 0, int(size))
	if err != nil {
		return 0, err
	}
	defer outMap.Free()

	if err := outMap.Put(inMap.Bytes()); err != nil {
		return 0, err
	}
	return size, nil
}

// CopyTransfer copies srcPath to dstPath with TransferTo.
func CopyTransfer(dstPath, srcPath string) (int64, error) {
	in, err := OpenRead(srcPath)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := Create(dstPath)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	size, err := in.Size()
	if err != nil {
		return 0, err
	}
	return in.TransferTo(0, size, out)
}

// CopyFile copies srcPath to dstPath using mode. bufSize only applies to the
// buffered mode.
func CopyFile(ctx context.Context, mode CopyMode, dstPath, srcPath string, bufSize int) (CopyResult, error) {
	start := time.Now()
	res := CopyResult{Mode: mode}
	var err error
	switch mode {
	case CopyBufferedMode:
		res.Bytes, err = copyBufferedFile(ctx, dstPath, srcPath, bufSize)
	case CopyMappedMode:
		res.Bytes, err = CopyMapped(dstPath, srcPath)
	case CopyTransferMode:
		res.Bytes, err = CopyTransfer(dstPath, srcPath)
	default:
		err = api.NewError(api.ErrCodeInvalidArgument, "channel: unknown copy mode").WithContext("mode", int(mode))
	}
	res.Elapsed = time.Since(start)
	if err != nil {
		return res, err
	}
	klog.V(2).Infof("copy %s -> %s (%s): %d bytes in %s", srcPath, dstPath, mode, res.Bytes, res.Elapsed)
	return res, nil
}

func copyBufferedFile(ctx context.Context, dstPath, srcPath string, bufSize int) (int64, error) {
	buf, err := buffer.Allocate(bufSize)
	if err != nil {
		return 0, err
	}
	in, err := OpenRead(srcPath)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := Create(dstPath)
	if err != nil {
		return 0, err
	}
	defer out.Close()
	return CopyBuffered(ctx, out, in, buf)
}
