//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based poller.

package reactor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-nio/api"
	"golang.org/x/sys/unix"
)

// linuxPoller is a level-triggered epoll poller. fdMu is read-held by every
// use of epfd or wakefd and write-held by Close while it releases them.
type linuxPoller struct {
	epfd   int
	wakefd int

	fdMu   sync.RWMutex
	closed atomic.Bool

	rawMu sync.Mutex
	raw   []unix.EpollEvent
}

// NewPoller constructs a new epoll poller.
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add wakefd: %w", err)
	}
	return &linuxPoller{epfd: epfd, wakefd: wakefd}, nil
}

func toEpoll(r Readiness) uint32 {
	var ev uint32
	if r&Readable != 0 {
		ev |= unix.EPOLLIN
	}
	if r&Writable != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func fromEpoll(ev uint32) Readiness {
	var r Readiness
	if ev&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
		r |= Readable
	}
	if ev&unix.EPOLLOUT != 0 {
		r |= Writable
	}
	if ev&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		r |= Hangup
	}
	if ev&unix.EPOLLERR != 0 {
		r |= Failed
	}
	return r
}

// Add registers fd with epoll.
func (p *linuxPoller) Add(fd int, interest Readiness) error {
	p.fdMu.RLock()
	defer p.fdMu.RUnlock()
	if p.closed.Load() {
		return api.ErrClosed
	}
	ev := unix.EpollEvent{Events: toEpoll(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

// Modify changes the interest set of fd.
func (p *linuxPoller) Modify(fd int, interest Readiness) error {
	p.fdMu.RLock()
	defer p.fdMu.RUnlock()
	if p.closed.Load() {
		return api.ErrClosed
	}
	ev := unix.EpollEvent{Events: toEpoll(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	return nil
}

// Remove deregisters fd. A descriptor that was already closed is not an error.
func (p *linuxPoller) Remove(fd int) error {
	p.fdMu.RLock()
	defer p.fdMu.RUnlock()
	if p.closed.Load() {
		return nil
	}
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err != nil && !errors.Is(err, unix.EBADF) && !errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// Wait blocks for readiness events. timeoutMs < 0 means block infinitely.
func (p *linuxPoller) Wait(events []Event, timeoutMs int) (int, error) {
	p.fdMu.RLock()
	defer p.fdMu.RUnlock()
	if p.closed.Load() {
		return 0, api.ErrClosed
	}

	p.rawMu.Lock()
	defer p.rawMu.Unlock()
	if cap(p.raw) < len(events) {
		p.raw = make([]unix.EpollEvent, len(events))
	}
	raw := p.raw[:len(events)]

	if timeoutMs < 0 {
		timeoutMs = -1
	}
	n, err := unix.EpollWait(p.epfd, raw, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil // interrupted by signal, normal
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	out := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		if fd == p.wakefd {
			p.drainWake()
			continue
		}
		events[out] = Event{Fd: fd, Ready: fromEpoll(raw[i].Events)}
		out++
	}
	return out, nil
}

func (p *linuxPoller) drainWake() {
	var b [8]byte
	for {
		if _, err := unix.Read(p.wakefd, b[:]); err != nil {
			return
		}
	}
}

// Wakeup makes a blocked Wait return. It returns api.ErrClosed once the
// poller is closed.
func (p *linuxPoller) Wakeup() error {
	p.fdMu.RLock()
	defer p.fdMu.RUnlock()
	if p.closed.Load() {
		return api.ErrClosed
	}
	return p.signal()
}

func (p *linuxPoller) signal() error {
	var b [8]byte
	binary.NativeEndian.PutUint64(b[:], 1)
	_, err := unix.Write(p.wakefd, b[:])
	if err != nil && err != unix.EAGAIN {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

// Close releases the epoll and eventfd descriptors. A Wait blocked in another
// goroutine is woken and returns before the descriptors are closed.
func (p *linuxPoller) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = p.signal()

	p.fdMu.Lock()
	defer p.fdMu.Unlock()
	err := unix.Close(p.epfd)
	if cerr := unix.Close(p.wakefd); err == nil {
		err = cerr
	}
	return err
}
