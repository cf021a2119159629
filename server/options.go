// File: server/options.go
// Author: momentics <momentics@gmail.com>
//
// Functional options shared by all servers.

package server

import (
	"time"

	"github.com/momentics/hioload-nio/control"
	"github.com/momentics/hioload-nio/pool"
)

// Option customizes server initialization.
type Option func(*settings)

type settings struct {
	pool          *pool.BufferPool
	bufferSize    int
	metrics       *control.MetricsRegistry
	selectTimeout time.Duration
	workers       int
	ack           bool
}

func newSettings(opts []Option) settings {
	s := settings{
		pool:          pool.Default(),
		bufferSize:    1024,
		selectTimeout: 500 * time.Millisecond,
		workers:       1,
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// WithPool sets the buffer pool used for per-connection buffers.
func WithPool(p *pool.BufferPool) Option {
	return func(s *settings) {
		if p != nil {
			s.pool = p
		}
	}
}

// WithBufferSize overrides the transfer buffer capacity.
func WithBufferSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// WithMetrics records traffic in mr.
func WithMetrics(mr *control.MetricsRegistry) Option {
	return func(s *settings) {
		s.metrics = mr
	}
}

// WithSelectTimeout bounds each selector wait.
func WithSelectTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.selectTimeout = d
		}
	}
}

// WithWorkers sets how many uploads are handled concurrently.
func WithWorkers(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithAck makes the upload server answer every stored file with AckMessage.
func WithAck(ack bool) Option {
	return func(s *settings) {
		s.ack = ack
	}
}

// FromConfig maps the shared configuration onto server options.
func FromConfig(cfg control.Config) []Option {
	return []Option{
		WithBufferSize(cfg.BufferSize),
		WithSelectTimeout(time.Duration(cfg.SelectTimeoutMs) * time.Millisecond),
		WithAck(cfg.Ack),
	}
}
