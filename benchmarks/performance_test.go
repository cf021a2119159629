// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for hioload-nio components.

package benchmarks

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/buffer"
	"github.com/momentics/hioload-nio/channel"
	"github.com/momentics/hioload-nio/internal/concurrency"
	"github.com/momentics/hioload-nio/pipe"
	"github.com/momentics/hioload-nio/pool"
	"github.com/momentics/hioload-nio/selector"
)

// BenchmarkBufferPoolAllocation tests buffer pool get/put performance.
func BenchmarkBufferPoolAllocation(b *testing.B) {
	p := pool.NewBufferPool(false, pool.DefaultDepth)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf, err := p.Get(4096)
			if err != nil {
				b.Error(err)
				return
			}
			p.Put(buf)
		}
	})
}

// BenchmarkByteBufferCycle measures a put/flip/get/clear round.
func BenchmarkByteBufferCycle(b *testing.B) {
	buf := buffer.MustAllocate(1024)
	payload := bytes.Repeat([]byte{'x'}, 512)
	dst := make([]byte, len(payload))

	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = buf.Put(payload)
		buf.Flip()
		_ = buf.GetInto(dst, 0, len(dst))
		buf.Clear()
	}
}

// BenchmarkCopyModes compares the file copy strategies on a 4 MiB file.
func BenchmarkCopyModes(b *testing.B) {
	dir := b.TempDir()
	src := filepath.Join(dir, "src.bin")
	const size = 4 << 20
	if err := os.WriteFile(src, bytes.Repeat([]byte{7}, size), 0o644); err != nil {
		b.Fatal(err)
	}
	modes := []channel.CopyMode{channel.CopyBufferedMode, channel.CopyTransferMode}
	if runtime.GOOS == "linux" {
		modes = append(modes, channel.CopyMappedMode)
	}
	for _, mode := range modes {
		b.Run(mode.String(), func(b *testing.B) {
			b.SetBytes(size)
			for i := 0; i < b.N; i++ {
				if _, err := channel.CopyFile(context.Background(), mode, filepath.Join(dir, "dst.bin"), src, 64<<10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkPipeThroughput pushes fixed chunks through an OS pipe.
func BenchmarkPipeThroughput(b *testing.B) {
	p, err := pipe.Open()
	if err != nil {
		b.Skip(err)
	}
	defer p.Close()

	exec := concurrency.NewExecutor("bench-pipe", 1, 1)
	defer func() {
		exec.Close()
		exec.Wait()
	}()
	_ = exec.Submit(func() {
		in := buffer.MustAllocate(64 << 10)
		for {
			_, err := p.Source().Read(in)
			in.Clear()
			if err != nil {
				return
			}
		}
	})

	out := buffer.MustAllocate(16 << 10)
	b.SetBytes(int64(out.Capacity()))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		out.Clear()
		if _, err := p.Sink().Write(out); err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()
	p.Sink().Close()
}

// BenchmarkSelectorSelectNow tests selector polling speed with ready keys.
func BenchmarkSelectorSelectNow(b *testing.B) {
	sel, err := selector.Open()
	if err != nil {
		b.Skip(err)
	}
	defer sel.Close()
	p, err := pipe.Open()
	if err != nil {
		b.Skip(err)
	}
	defer p.Close()
	if err := p.Sink().ConfigureBlocking(false); err != nil {
		b.Fatal(err)
	}
	if _, err := sel.Register(p.Sink(), api.OpWrite, nil); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := sel.SelectNow(); err != nil {
			b.Fatal(err)
		}
		it := sel.SelectedKeys()
		for it.Next() {
			it.Remove()
		}
	}
}
