// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness poller interface.

package reactor

// Readiness is a set of descriptor conditions.
type Readiness uint32

const (
	Readable Readiness = 1 << iota
	Writable
	Hangup
	Failed
)

// Event is one readiness notification returned by Wait.
type Event struct {
	Fd    int
	Ready Readiness
}

// Poller multiplexes readiness of many descriptors.
type Poller interface {
	// Add starts watching fd for the given conditions.
	Add(fd int, interest Readiness) error

	// Modify replaces the watched conditions of fd.
	Modify(fd int, interest Readiness) error

	// Remove stops watching fd.
	Remove(fd int) error

	// Wait blocks up to timeoutMs (negative blocks forever) and fills events.
	// A Wakeup call makes it return early with zero events.
	Wait(events []Event, timeoutMs int) (int, error)

	// Wakeup interrupts a blocked Wait. Safe to call from any goroutine.
	Wakeup() error

	// Close releases the poller.
	Close() error
}
