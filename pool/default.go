package pool

import "sync"

var (
	defaultOnce sync.Once
	defaultPool *BufferPool
)

// Default returns the process-wide heap buffer pool.
func Default() *BufferPool {
	defaultOnce.Do(func() {
		defaultPool = NewBufferPool(false, DefaultDepth)
	})
	return defaultPool
}
