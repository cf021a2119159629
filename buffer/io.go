// File: buffer/io.go
// Author: momentics <momentics@gmail.com>
//
// Adapters between ByteBuffer and the io package.

package buffer

import (
	"io"
)

var (
	_ io.Reader = (*ByteBuffer)(nil)
	_ io.Writer = (*ByteBuffer)(nil)
)

// ReadFromReader fills [position:limit] with a single Read call on r and
// advances the position by the bytes read. It returns io.EOF from r as is,
// possibly together with n > 0.
func (b *ByteBuffer) ReadFromReader(r io.Reader) (int, error) {
	if b.readOnly {
		return 0, b.readOnlyErr()
	}
	if !b.HasRemaining() {
		return 0, nil
	}
	n, err := r.Read(b.hb[b.position:b.limit])
	if n > 0 {
		b.position += n
	}
	return n, err
}

// WriteToWriter drains [position:limit] with a single Write call on w and
// advances the position by the bytes written.
func (b *ByteBuffer) WriteToWriter(w io.Writer) (int, error) {
	if !b.HasRemaining() {
		return 0, nil
	}
	n, err := w.Write(b.hb[b.position:b.limit])
	if n > 0 {
		b.position += n
	}
	return n, err
}

// Read drains up to len(p) bytes. It returns io.EOF once nothing remains.
func (b *ByteBuffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !b.HasRemaining() {
		return 0, io.EOF
	}
	n := copy(p, b.hb[b.position:b.limit])
	b.position += n
	return n, nil
}

// Write puts as much of p as fits before the limit. A partial write returns
// io.ErrShortWrite.
func (b *ByteBuffer) Write(p []byte) (int, error) {
	if b.readOnly {
		return 0, b.readOnlyErr()
	}
	n := copy(b.hb[b.position:b.limit], p)
	b.position += n
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}
