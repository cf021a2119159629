// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package pipe exposes an OS pipe as a pair of buffer-oriented channels: the
// sink (write end) and the source (read end).
package pipe

import (
	"fmt"
	"os"
	"sync"

	"github.com/momentics/hioload-nio/api"
)

var (
	_ api.WritableChannel = (*SinkChannel)(nil)
	_ api.ReadableChannel = (*SourceChannel)(nil)
	_ api.Selectable      = (*SinkChannel)(nil)
	_ api.Selectable      = (*SourceChannel)(nil)
)

// Pipe is a unidirectional byte pipe.
type Pipe struct {
	sink   *SinkChannel
	source *SourceChannel
}

// Open creates a new OS pipe.
func Open() (*Pipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: open: %w", err)
	}
	return &Pipe{
		sink:   &SinkChannel{end: end{f: w, blocking: true}},
		source: &SourceChannel{end: end{f: r, blocking: true}},
	}, nil
}

// Sink returns the write end.
func (p *Pipe) Sink() *SinkChannel { return p.sink }

// Source returns the read end.
func (p *Pipe) Source() *SourceChannel { return p.source }

// Close closes both ends.
func (p *Pipe) Close() error {
	err1 := p.sink.Close()
	err2 := p.source.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

type end struct {
	mu       sync.Mutex
	f        *os.File
	blocking bool
}

// ConfigureBlocking switches the end between blocking and non-blocking mode.
func (e *end) ConfigureBlocking(block bool) error {
	e.mu.Lock()
	e.blocking = block
	e.mu.Unlock()
	return nil
}

// IsBlocking reports the current mode.
func (e *end) IsBlocking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.blocking
}

// FD returns the OS descriptor of this end, or -1 once closed.
func (e *end) FD() int {
	fd := -1
	rc, err := e.f.SyscallConn()
	if err != nil {
		return fd
	}
	_ = rc.Control(func(raw uintptr) { fd = int(raw) })
	return fd
}

// Close closes this end.
func (e *end) Close() error {
	return e.f.Close()
}

// SinkChannel is the write end of a pipe.
type SinkChannel struct {
	end
}

// ValidOps reports the selectable operations of a sink.
func (s *SinkChannel) ValidOps() api.Op { return api.OpWrite }

// Write drains src. In non-blocking mode it stops early with
// api.ErrWouldBlock once the pipe is full.
func (s *SinkChannel) Write(src api.ByteStore) (int, error) {
	total := 0
	for src.Remaining() > 0 {
		var (
			n   int
			err error
		)
		if s.IsBlocking() {
			n, err = s.f.Write(src.Bytes())
		} else {
			n, err = s.writeNow(src.Bytes())
		}
		if n > 0 {
			total += n
			if aerr := src.Advance(n); aerr != nil {
				return total, aerr
			}
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// SourceChannel is the read end of a pipe.
type SourceChannel struct {
	end
}

// ValidOps reports the selectable operations of a source.
func (s *SourceChannel) ValidOps() api.Op { return api.OpRead }

// Read fills dst with what is currently available, waiting for data in
// blocking mode. It returns io.EOF once the sink is closed and drained, and
// api.ErrWouldBlock in non-blocking mode when the pipe is empty.
func (s *SourceChannel) Read(dst api.ByteStore) (int, error) {
	if dst.Remaining() == 0 {
		return 0, nil
	}
	var (
		n   int
		err error
	)
	if s.IsBlocking() {
		n, err = s.f.Read(dst.Bytes())
	} else {
		n, err = s.readNow(dst.Bytes())
	}
	if n > 0 {
		if aerr := dst.Advance(n); aerr != nil {
			return n, aerr
		}
	}
	return n, err
}
