// control/platform.go
// Author: momentics <momentics@gmail.com>
//
// Process-level probes.

package control

import (
	"runtime"

	"github.com/momentics/hioload-nio/pool"
)

// RegisterPlatformProbes adds CPU, goroutine and OS probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.os", func() any {
		return runtime.GOOS + "/" + runtime.GOARCH
	})
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
}

// RegisterPoolProbe exposes the statistics of p under name.
func RegisterPoolProbe(dp *DebugProbes, name string, p *pool.BufferPool) {
	dp.RegisterProbe(name, func() any {
		return p.Stats()
	})
}
