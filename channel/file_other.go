//go:build !linux
// +build !linux

// File: channel/file_other.go
// Author: momentics <momentics@gmail.com>
//
// Portable fallbacks for the Linux fast paths.

package channel

import (
	"io"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/buffer"
)

// Map is not available on this platform.
func (c *FileChannel) Map(mode MapMode, off int64, length int) (*buffer.ByteBuffer, error) {
	return nil, api.ErrNotSupported
}

// ReadScatter fills bufs in order, one read per buffer.
func (c *FileChannel) ReadScatter(bufs ...api.ByteStore) (int64, error) {
	var total int64
	for _, b := range bufs {
		for b.Remaining() > 0 {
			n, err := c.Read(b)
			total += int64(n)
			if err == io.EOF {
				if total == 0 {
					return 0, io.EOF
				}
				return total, nil
			}
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// WriteGather drains bufs in order.
func (c *FileChannel) WriteGather(bufs ...api.ByteStore) (int64, error) {
	var total int64
	for _, b := range bufs {
		n, err := c.Write(b)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// TransferTo copies count bytes starting at off into dst.
func (c *FileChannel) TransferTo(off, count int64, dst *FileChannel) (int64, error) {
	if off < 0 || count < 0 {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "channel: negative offset or count")
	}
	return io.Copy(dst.f, io.NewSectionReader(c.f, off, count))
}
