// File: selector/selector.go
// Author: momentics <momentics@gmail.com>
//
// Selector: registration table, interest sets and the selected-key set.

package selector

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/reactor"
	"k8s.io/klog/v2"
)

const maxEvents = 128

// Selector is a readiness multiplexer over registered channels.
type Selector struct {
	poller reactor.Poller

	mu       sync.Mutex
	keys     map[int]*SelectionKey
	selected *queue.Queue // *SelectionKey, FIFO in readiness order
	inSet    map[*SelectionKey]struct{}
	events   []reactor.Event
	closed   bool

	selects atomic.Int64
	wakeups atomic.Int64
}

// Stats is a snapshot of selector counters.
type Stats struct {
	Registered int
	Selected   int
	Selects    int64
	// Wakeups counts Select calls that returned with no ready channel.
	Wakeups    int64
}

// Open creates a selector.
func Open() (*Selector, error) {
	p, err := reactor.NewPoller()
	if err != nil {
		return nil, err
	}
	return &Selector{
		poller:   p,
		keys:     make(map[int]*SelectionKey),
		selected: queue.New(),
		inSet:    make(map[*SelectionKey]struct{}),
		events:   make([]reactor.Event, maxEvents),
	}, nil
}

// Register adds ch with the given interest set and attachment. Registering a
// channel twice updates the interest set and attachment of its existing key.
func (s *Selector) Register(ch api.Selectable, ops api.Op, attachment any) (*SelectionKey, error) {
	if ch.IsBlocking() {
		return nil, api.ErrIllegalBlockingMode
	}
	if ops&^ch.ValidOps() != 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "selector: unsupported interest ops").
			WithContext("ops", ops.String()).WithContext("valid", ch.ValidOps().String())
	}
	fd := ch.FD()
	if fd < 0 {
		return nil, api.ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, api.ErrClosed
	}
	if k, ok := s.keys[fd]; ok {
		if k.ch == ch {
			if err := s.poller.Modify(fd, toReadiness(ops)); err != nil {
				return nil, err
			}
			k.interest = ops
			k.attachment = attachment
			return k, nil
		}
		// The descriptor was closed and reused without cancelling the old key.
		k.valid = false
		delete(s.keys, fd)
		_ = s.poller.Remove(fd)
	}
	if err := s.poller.Add(fd, toReadiness(ops)); err != nil {
		return nil, err
	}
	k := &SelectionKey{sel: s, ch: ch, fd: fd, interest: ops, attachment: attachment, valid: true}
	s.keys[fd] = k
	klog.V(4).Infof("selector: registered fd=%d ops=%s", fd, ops)
	return k, nil
}

// Select waits for ready channels. A negative timeout blocks until at least
// one channel is ready or Wakeup is called; zero does not block. It returns
// the number of keys added to the selected set or whose ready set changed.
func (s *Selector) Select(timeout time.Duration) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, api.ErrClosed
	}
	s.purgeLocked()
	events := s.events
	s.mu.Unlock()

	s.selects.Add(1)
	n, err := s.poller.Wait(events, toMillis(timeout))
	if err != nil {
		return 0, err
	}
	if n == 0 {
		s.wakeups.Add(1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	updated := 0
	for _, ev := range events[:n] {
		k, ok := s.keys[ev.Fd]
		if !ok || !k.valid {
			continue
		}
		ready := fromReadiness(ev.Ready, k.interest)
		if ready == 0 {
			continue
		}
		if _, in := s.inSet[k]; in {
			if k.ready|ready != k.ready {
				k.ready |= ready
				updated++
			}
			continue
		}
		k.ready = ready
		s.inSet[k] = struct{}{}
		s.selected.Add(k)
		updated++
	}
	return updated, nil
}

// SelectNow is Select without blocking.
func (s *Selector) SelectNow() (int, error) {
	return s.Select(0)
}

// SelectedKeys returns an iterator over the selected set.
func (s *Selector) SelectedKeys() *KeyIterator {
	return &KeyIterator{sel: s}
}

// Keys returns the currently registered keys.
func (s *Selector) Keys() []*SelectionKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*SelectionKey, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, k)
	}
	return out
}

// Wakeup makes a blocked Select return immediately. It may be called from any
// goroutine and returns api.ErrClosed after Close.
func (s *Selector) Wakeup() error {
	return s.poller.Wakeup()
}

// Stats returns selector counters.
func (s *Selector) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Registered: len(s.keys),
		Selected:   s.selected.Length(),
		Selects:    s.selects.Load(),
		Wakeups:    s.wakeups.Load(),
	}
}

// Close invalidates all keys and releases the poller. Registered channels
// are not closed.
func (s *Selector) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for fd, k := range s.keys {
		k.valid = false
		delete(s.keys, fd)
	}
	s.selected = queue.New()
	s.inSet = make(map[*SelectionKey]struct{})
	s.mu.Unlock()
	return s.poller.Close()
}

func (s *Selector) cancel(k *SelectionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !k.valid {
		return
	}
	k.valid = false
	if cur, ok := s.keys[k.fd]; ok && cur == k {
		delete(s.keys, k.fd)
		if err := s.poller.Remove(k.fd); err != nil {
			klog.V(2).Infof("selector: deregister fd=%d: %v", k.fd, err)
		}
	}
}

func (s *Selector) setInterest(k *SelectionKey, ops api.Op) error {
	if ops&^k.ch.ValidOps() != 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "selector: unsupported interest ops").
			WithContext("ops", ops.String())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !k.valid {
		return api.ErrCancelledKey
	}
	if err := s.poller.Modify(k.fd, toReadiness(ops)); err != nil {
		return err
	}
	k.interest = ops
	return nil
}

// purgeLocked drops cancelled keys from the selected set.
func (s *Selector) purgeLocked() {
	if s.selected.Length() == 0 {
		return
	}
	n := s.selected.Length()
	for i := 0; i < n; i++ {
		k := s.selected.Remove().(*SelectionKey)
		if k.valid {
			s.selected.Add(k)
		} else {
			delete(s.inSet, k)
		}
	}
}

// removeAt removes the i-th selected key, keeping the order of the others.
func (s *Selector) removeAt(i int) {
	n := s.selected.Length()
	if i < 0 || i >= n {
		return
	}
	if i == 0 {
		k := s.selected.Remove().(*SelectionKey)
		delete(s.inSet, k)
		return
	}
	rest := queue.New()
	for j := 0; j < n; j++ {
		k := s.selected.Remove().(*SelectionKey)
		if j == i {
			delete(s.inSet, k)
			continue
		}
		rest.Add(k)
	}
	s.selected = rest
}

func toReadiness(ops api.Op) reactor.Readiness {
	var r reactor.Readiness
	if ops&(api.OpRead|api.OpAccept) != 0 {
		r |= reactor.Readable
	}
	if ops&(api.OpWrite|api.OpConnect) != 0 {
		r |= reactor.Writable
	}
	return r
}

// fromReadiness maps poller conditions back onto the interest set. Errors and
// hang-ups make every interested operation ready so the owner observes them
// on its next read, write, accept or connect.
func fromReadiness(r reactor.Readiness, interest api.Op) api.Op {
	if r&(reactor.Hangup|reactor.Failed) != 0 {
		return interest
	}
	var ops api.Op
	if r&reactor.Readable != 0 {
		ops |= interest & (api.OpRead | api.OpAccept)
	}
	if r&reactor.Writable != 0 {
		ops |= interest & (api.OpWrite | api.OpConnect)
	}
	return ops
}

func toMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	return int(ms)
}

func (s *Selector) String() string {
	st := s.Stats()
	return fmt.Sprintf("selector[registered=%d selected=%d]", st.Registered, st.Selected)
}
