// File: internal/concurrency/executor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor runs tasks on a fixed set of worker goroutines fed by a bounded
// queue. Close stops intake, lets queued tasks finish and Wait blocks until
// every worker has exited.

package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"

	"k8s.io/klog/v2"
)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// Executor manages a pool of worker goroutines.
type Executor struct {
	name    string
	queue   chan TaskFunc
	closeMu sync.RWMutex
	closed  bool
	wg      sync.WaitGroup

	numWorkers     int
	totalTasks     atomic.Int64
	completedTasks atomic.Int64
	panics         atomic.Int64
}

// NewExecutor starts numWorkers workers. If numWorkers <= 0, defaults to
// runtime.NumCPU(). queueSize <= 0 uses numWorkers*4.
func NewExecutor(name string, numWorkers, queueSize int) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = numWorkers * 4
	}
	e := &Executor{
		name:       name,
		queue:      make(chan TaskFunc, queueSize),
		numWorkers: numWorkers,
	}
	e.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go e.run(i)
	}
	return e
}

// Submit enqueues a task, blocking while the queue is full. It returns
// ErrExecutorClosed once Close has been called.
func (e *Executor) Submit(task TaskFunc) error {
	e.closeMu.RLock()
	defer e.closeMu.RUnlock()
	if e.closed {
		return ErrExecutorClosed
	}
	e.totalTasks.Add(1)
	e.queue <- task
	return nil
}

// NumWorkers returns the number of workers.
func (e *Executor) NumWorkers() int {
	return e.numWorkers
}

// Close stops accepting tasks. Already queued tasks still run.
func (e *Executor) Close() {
	e.closeMu.Lock()
	defer e.closeMu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.queue)
}

// Wait blocks until all workers have exited. Call Close first.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	total := e.totalTasks.Load()
	done := e.completedTasks.Load()
	return map[string]int64{
		"total_tasks":     total,
		"completed_tasks": done,
		"pending_tasks":   total - done,
		"panics":          e.panics.Load(),
		"num_workers":     int64(e.numWorkers),
	}
}

func (e *Executor) run(id int) {
	defer e.wg.Done()
	for task := range e.queue {
		e.execute(id, task)
	}
}

// execute runs the task, recovering from panics to keep the worker alive.
func (e *Executor) execute(id int, task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			e.panics.Add(1)
			klog.Errorf("[%s] worker %d: task panic: %v", e.name, id, r)
		}
		e.completedTasks.Add(1)
	}()
	task()
}
