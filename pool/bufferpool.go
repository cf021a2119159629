// File: pool/bufferpool.go
// Author: momentics <momentics@gmail.com>
//
// Capacity-bucketed ByteBuffer pool with allocation accounting.

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/buffer"
	"k8s.io/klog/v2"
)

// DefaultDepth is the number of idle buffers kept per capacity bucket.
const DefaultDepth = 1024

// BufferPool hands out cleared ByteBuffers of an exact capacity.
type BufferPool struct {
	mu      sync.Mutex
	buckets map[int]chan *buffer.ByteBuffer
	out     map[*buffer.ByteBuffer]struct{}
	direct  bool
	depth   int

	totalAlloc atomic.Int64
	totalFree  atomic.Int64
	inUse      atomic.Int64
	reused     atomic.Int64
}

// NewBufferPool creates a pool. direct selects mmap-backed buffers; depth <= 0
// uses DefaultDepth.
func NewBufferPool(direct bool, depth int) *BufferPool {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &BufferPool{
		buckets: make(map[int]chan *buffer.ByteBuffer),
		out:     make(map[*buffer.ByteBuffer]struct{}),
		direct:  direct,
		depth:   depth,
	}
}

func (p *BufferPool) bucket(capacity int) chan *buffer.ByteBuffer {
	p.mu.Lock()
	ch, ok := p.buckets[capacity]
	if !ok {
		ch = make(chan *buffer.ByteBuffer, p.depth)
		p.buckets[capacity] = ch
	}
	p.mu.Unlock()
	return ch
}

// Get returns a buffer in fill mode with exactly the requested capacity.
func (p *BufferPool) Get(capacity int) (*buffer.ByteBuffer, error) {
	if capacity < 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "pool: negative capacity").
			WithContext("capacity", capacity)
	}
	select {
	case b := <-p.bucket(capacity):
		p.reused.Add(1)
		p.checkout(b)
		return b, nil
	default:
	}
	var (
		b   *buffer.ByteBuffer
		err error
	)
	if p.direct {
		b, err = buffer.AllocateDirect(capacity)
	} else {
		b, err = buffer.Allocate(capacity)
	}
	if err != nil {
		return nil, err
	}
	p.totalAlloc.Add(1)
	p.checkout(b)
	return b, nil
}

func (p *BufferPool) checkout(b *buffer.ByteBuffer) {
	p.mu.Lock()
	p.out[b] = struct{}{}
	p.mu.Unlock()
	p.inUse.Add(1)
}

// Put clears b and returns it to its bucket. b must not be used afterwards.
// Only buffers handed out by Get and not yet returned are accepted; anything
// else is rejected with api.ErrInvalidArgument and left untouched.
func (p *BufferPool) Put(b *buffer.ByteBuffer) error {
	if b == nil {
		return nil
	}
	p.mu.Lock()
	_, ok := p.out[b]
	delete(p.out, b)
	p.mu.Unlock()
	if !ok {
		return api.NewError(api.ErrCodeInvalidArgument, "pool: buffer not checked out from this pool").
			WithContext("capacity", b.Capacity())
	}
	p.inUse.Add(-1)
	b.Clear()
	capacity := b.Capacity()
	select {
	case p.bucket(capacity) <- b:
	default:
		if err := b.Free(); err != nil {
			klog.Errorf("pool: free buffer (cap=%d): %v", capacity, err)
		}
		p.totalFree.Add(1)
	}
	return nil
}

// Drain frees every idle buffer held by the pool.
func (p *BufferPool) Drain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for capacity, ch := range p.buckets {
	loop:
		for {
			select {
			case b := <-ch:
				if err := b.Free(); err != nil {
					klog.Errorf("pool: free buffer (cap=%d): %v", capacity, err)
				}
				p.totalFree.Add(1)
			default:
				break loop
			}
		}
	}
}

// Stats exposes allocation counters.
func (p *BufferPool) Stats() api.BufferPoolStats {
	return api.BufferPoolStats{
		TotalAlloc: p.totalAlloc.Load(),
		TotalFree:  p.totalFree.Load(),
		InUse:      p.inUse.Load(),
		Reused:     p.reused.Load(),
	}
}
