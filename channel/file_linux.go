//go:build linux
// +build linux

// File: channel/file_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux fast paths: mmap, readv/writev and sendfile.

package channel

import (
	"errors"
	"fmt"
	"io"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/buffer"
	"golang.org/x/sys/unix"
)

// Map maps length bytes of the file starting at off into a direct buffer.
// The buffer must be released with Free.
func (c *FileChannel) Map(mode MapMode, off int64, length int) (*buffer.ByteBuffer, error) {
	if off < 0 || length < 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "channel: negative map range").
			WithContext("offset", off).WithContext("length", length)
	}
	if length == 0 {
		return buffer.WrapRegion([]byte{}, mode == MapReadOnly, nil), nil
	}
	prot, flags := unix.PROT_READ, unix.MAP_SHARED
	switch mode {
	case MapReadWrite:
		prot |= unix.PROT_WRITE
	case MapPrivate:
		prot |= unix.PROT_WRITE
		flags = unix.MAP_PRIVATE
	}
	var (
		mem  []byte
		merr error
	)
	if err := c.control(func(fd int) {
		mem, merr = unix.Mmap(fd, off, length, prot, flags)
	}); err != nil {
		return nil, err
	}
	if merr != nil {
		return nil, fmt.Errorf("channel: mmap %s: %w", c.f.Name(), merr)
	}
	return buffer.WrapRegion(mem, mode == MapReadOnly, unix.Munmap), nil
}

// ReadScatter fills bufs in order with a single readv call.
func (c *FileChannel) ReadScatter(bufs ...api.ByteStore) (int64, error) {
	iovs := make([][]byte, 0, len(bufs))
	for _, b := range bufs {
		iovs = append(iovs, b.Bytes())
	}
	var (
		n    int
		rerr error
	)
	if err := c.control(func(fd int) {
		n, rerr = unix.Readv(fd, iovs)
	}); err != nil {
		return 0, err
	}
	if rerr != nil {
		return 0, fmt.Errorf("channel: readv %s: %w", c.f.Name(), rerr)
	}
	if n == 0 && totalRemaining(bufs) > 0 {
		return 0, io.EOF
	}
	return int64(n), distribute(bufs, n)
}

// WriteGather drains bufs in order, issuing writev until all are empty.
func (c *FileChannel) WriteGather(bufs ...api.ByteStore) (int64, error) {
	var total int64
	for totalRemaining(bufs) > 0 {
		iovs := make([][]byte, 0, len(bufs))
		for _, b := range bufs {
			if b.Remaining() > 0 {
				iovs = append(iovs, b.Bytes())
			}
		}
		var (
			n    int
			werr error
		)
		if err := c.control(func(fd int) {
			n, werr = unix.Writev(fd, iovs)
		}); err != nil {
			return total, err
		}
		if werr != nil {
			return total, fmt.Errorf("channel: writev %s: %w", c.f.Name(), werr)
		}
		total += int64(n)
		if err := distribute(bufs, n); err != nil {
			return total, err
		}
	}
	return total, nil
}

// TransferTo copies count bytes starting at off into dst with sendfile(2).
// The file offset of c is not changed.
func (c *FileChannel) TransferTo(off, count int64, dst *FileChannel) (int64, error) {
	if off < 0 || count < 0 {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "channel: negative offset or count").
			WithContext("offset", off).WithContext("count", count)
	}
	var total int64
	for total < count {
		var (
			n    int
			serr error
		)
		chunk := count - total
		if chunk > 1<<30 {
			chunk = 1 << 30
		}
		var cerr error
		err := c.control(func(in int) {
			cerr = dst.control(func(out int) {
				pos := off + total
				n, serr = unix.Sendfile(out, in, &pos, int(chunk))
			})
		})
		if err == nil {
			err = cerr
		}
		if err != nil {
			return total, err
		}
		if errors.Is(serr, unix.EINVAL) || errors.Is(serr, unix.ENOSYS) {
			m, cerr := io.Copy(dst.f, io.NewSectionReader(c.f, off+total, count-total))
			return total + m, cerr
		}
		if serr != nil {
			return total, fmt.Errorf("channel: sendfile %s: %w", c.f.Name(), serr)
		}
		if n == 0 {
			break
		}
		total += int64(n)
	}
	return total, nil
}

// control runs fn with the raw descriptor without switching the file to
// blocking mode.
func (c *FileChannel) control(fn func(fd int)) error {
	rc, err := c.f.SyscallConn()
	if err != nil {
		return fmt.Errorf("channel: raw conn %s: %w", c.f.Name(), err)
	}
	return rc.Control(func(fd uintptr) { fn(int(fd)) })
}
