// File: channel/file.go
// Author: momentics <momentics@gmail.com>
//
// FileChannel: buffer-oriented access to an *os.File.

package channel

import (
	"fmt"
	"io"
	"os"

	"github.com/momentics/hioload-nio/api"
)

var (
	_ api.ReadableChannel = (*FileChannel)(nil)
	_ api.WritableChannel = (*FileChannel)(nil)
)

// FileChannel reads into and writes from buffers.
type FileChannel struct {
	f *os.File
}

// Open opens path with the given os.OpenFile flags.
func Open(path string, flag int, perm os.FileMode) (*FileChannel, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, fmt.Errorf("channel: open %s: %w", path, err)
	}
	return &FileChannel{f: f}, nil
}

// OpenRead opens path read-only.
func OpenRead(path string) (*FileChannel, error) {
	return Open(path, os.O_RDONLY, 0)
}

// Create opens path read-write, creating or truncating it.
func Create(path string) (*FileChannel, error) {
	return Open(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
}

// NewFileChannel wraps an already open file. Closing the channel closes f.
func NewFileChannel(f *os.File) *FileChannel {
	return &FileChannel{f: f}
}

// File returns the underlying file.
func (c *FileChannel) File() *os.File { return c.f }

// Name returns the file name.
func (c *FileChannel) Name() string { return c.f.Name() }

// Read fills dst[position:limit] with a single read. It returns io.EOF at end
// of file.
func (c *FileChannel) Read(dst api.ByteStore) (int, error) {
	if dst.Remaining() == 0 {
		return 0, nil
	}
	n, err := c.f.Read(dst.Bytes())
	if n > 0 {
		if aerr := dst.Advance(n); aerr != nil {
			return n, aerr
		}
	}
	return n, err
}

// Write drains src[position:limit] completely.
func (c *FileChannel) Write(src api.ByteStore) (int, error) {
	total := 0
	for src.Remaining() > 0 {
		n, err := c.f.Write(src.Bytes())
		if n > 0 {
			total += n
			if aerr := src.Advance(n); aerr != nil {
				return total, aerr
			}
		}
		if err != nil {
			return total, fmt.Errorf("channel: write %s: %w", c.f.Name(), err)
		}
	}
	return total, nil
}

// Size returns the current file size.
func (c *FileChannel) Size() (int64, error) {
	st, err := c.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("channel: stat %s: %w", c.f.Name(), err)
	}
	return st.Size(), nil
}

// Truncate changes the file size.
func (c *FileChannel) Truncate(size int64) error {
	return c.f.Truncate(size)
}

// Position returns the current file offset.
func (c *FileChannel) Position() (int64, error) {
	return c.f.Seek(0, io.SeekCurrent)
}

// SetPosition moves the file offset.
func (c *FileChannel) SetPosition(off int64) error {
	_, err := c.f.Seek(off, io.SeekStart)
	return err
}

// TransferFrom copies up to count bytes from src's current offset into this
// file at off. The file offset of c is not changed.
func (c *FileChannel) TransferFrom(src *FileChannel, off, count int64) (int64, error) {
	if off < 0 || count < 0 {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "channel: negative offset or count").
			WithContext("offset", off).WithContext("count", count)
	}
	n, err := io.Copy(io.NewOffsetWriter(c.f, off), io.LimitReader(src.f, count))
	if err != nil {
		return n, fmt.Errorf("channel: transfer into %s: %w", c.f.Name(), err)
	}
	return n, nil
}

// Close closes the file.
func (c *FileChannel) Close() error {
	return c.f.Close()
}

// MapMode selects the protection of a file mapping.
type MapMode int

const (
	MapReadOnly MapMode = iota
	MapReadWrite
	MapPrivate
)
