// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Interest-set bits and the contract a channel must satisfy to be
// multiplexed by a readiness selector.

package api

import "fmt"

// Op is a bit set of readiness operations.
type Op uint32

const (
	OpRead Op = 1 << iota
	OpWrite
	OpConnect
	OpAccept
)

func (o Op) String() string {
	if o == 0 {
		return "none"
	}
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if o&OpRead != 0 {
		add("read")
	}
	if o&OpWrite != 0 {
		add("write")
	}
	if o&OpConnect != 0 {
		add("connect")
	}
	if o&OpAccept != 0 {
		add("accept")
	}
	if rest := o &^ (OpRead | OpWrite | OpConnect | OpAccept); rest != 0 {
		add(fmt.Sprintf("0x%x", uint32(rest)))
	}
	return s
}

// Selectable is a channel that can be registered with a selector.
type Selectable interface {
	// FD returns the underlying OS descriptor.
	FD() int

	// IsBlocking reports whether the channel is in blocking mode.
	IsBlocking() bool

	// ValidOps returns the operations this channel supports.
	ValidOps() Op
}
