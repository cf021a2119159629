// File: pipe/relay.go
// Author: momentics <momentics@gmail.com>
//
// Relay runs a producer and a consumer on two workers connected by a pipe.
// The producer writes a clock reading per tick into the sink; the consumer
// drains the source until the sink is closed.

package pipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-nio/buffer"
	"github.com/momentics/hioload-nio/internal/concurrency"
	"k8s.io/klog/v2"
)

// DefaultTimeLayout is the stamp format written by the producer.
const DefaultTimeLayout = "15:04:05"

// RelayConfig configures a Relay.
type RelayConfig struct {
	Count      int
	Interval   time.Duration
	BufferSize int
	TimeLayout string
	Clock      func() time.Time
}

// RelayStats summarizes a finished relay.
type RelayStats struct {
	Sent          int
	BytesSent     int64
	BytesReceived int64
	Chunks        int
}

// Relay moves timestamps through a pipe between two workers.
type Relay struct {
	cfg     RelayConfig
	onChunk func([]byte)

	sent, chunks  atomic.Int64
	bytesSent     atomic.Int64
	bytesReceived atomic.Int64
}

// NewRelay returns a relay that hands every chunk read from the pipe to
// onChunk. onChunk runs on the consumer worker and receives a private copy.
func NewRelay(cfg RelayConfig, onChunk func([]byte)) *Relay {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.TimeLayout == "" {
		cfg.TimeLayout = DefaultTimeLayout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if onChunk == nil {
		onChunk = func([]byte) {}
	}
	return &Relay{cfg: cfg, onChunk: onChunk}
}

// Run opens a pipe, starts both workers and waits for them. Cancelling ctx
// stops the producer, which closes the sink and lets the consumer finish.
func (r *Relay) Run(ctx context.Context) (RelayStats, error) {
	p, err := Open()
	if err != nil {
		return RelayStats{}, err
	}

	exec := concurrency.NewExecutor("pipe-relay", 2, 2)
	errs := make(chan error, 2)
	if err := exec.Submit(func() { errs <- r.produce(ctx, p.Sink()) }); err != nil {
		p.Close()
		return RelayStats{}, err
	}
	if err := exec.Submit(func() { errs <- r.consume(p.Source()) }); err != nil {
		p.Close()
		return RelayStats{}, err
	}
	exec.Close()
	exec.Wait()
	close(errs)

	var first error
	for e := range errs {
		if e != nil && first == nil {
			first = e
		}
	}
	return r.stats(), first
}

func (r *Relay) stats() RelayStats {
	return RelayStats{
		Sent:          int(r.sent.Load()),
		BytesSent:     r.bytesSent.Load(),
		BytesReceived: r.bytesReceived.Load(),
		Chunks:        int(r.chunks.Load()),
	}
}

func (r *Relay) produce(ctx context.Context, sink *SinkChannel) (err error) {
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("pipe: close sink: %w", cerr)
		}
	}()
	buf, err := buffer.Allocate(r.cfg.BufferSize)
	if err != nil {
		return err
	}
	for i := 0; i < r.cfg.Count; i++ {
		if r.cfg.Interval > 0 {
			t := time.NewTimer(r.cfg.Interval)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := buf.PutString(r.cfg.Clock().Format(r.cfg.TimeLayout)); err != nil {
			return err
		}
		buf.Flip()
		n, err := sink.Write(buf)
		r.bytesSent.Add(int64(n))
		if err != nil {
			return fmt.Errorf("pipe: write sink: %w", err)
		}
		buf.Clear()
		r.sent.Add(1)
	}
	klog.V(2).Infof("pipe relay: producer done after %d ticks", r.sent.Load())
	return nil
}

func (r *Relay) consume(source *SourceChannel) error {
	defer source.Close()
	buf, err := buffer.Allocate(r.cfg.BufferSize)
	if err != nil {
		return err
	}
	for {
		n, err := source.Read(buf)
		if n > 0 {
			buf.Flip()
			chunk, _ := buf.Get(buf.Remaining())
			r.bytesReceived.Add(int64(n))
			r.chunks.Add(1)
			r.onChunk(chunk)
			buf.Clear()
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("pipe: read source: %w", err)
		}
	}
}
