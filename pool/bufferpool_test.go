package pool_test

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/buffer"
	"github.com/momentics/hioload-nio/pool"
)

func TestBufferPoolReuse(t *testing.T) {
	bp := pool.NewBufferPool(false, 4)
	b1, err := bp.Get(128)
	if err != nil {
		t.Fatal(err)
	}
	_ = b1.PutString("dirty")
	bp.Put(b1)

	b2, err := bp.Get(128)
	if err != nil {
		t.Fatal(err)
	}
	if b2 != b1 {
		t.Error("expected the released buffer to be reused")
	}
	if b2.Position() != 0 || b2.Limit() != 128 {
		t.Errorf("reused buffer not cleared: %s", b2)
	}
	st := bp.Stats()
	if st.TotalAlloc != 1 || st.Reused != 1 || st.InUse != 1 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestBufferPoolBucketsByCapacity(t *testing.T) {
	bp := pool.NewBufferPool(false, 4)
	b, _ := bp.Get(64)
	bp.Put(b)
	other, _ := bp.Get(32)
	if other.Capacity() != 32 {
		t.Fatalf("capacity = %d, want 32", other.Capacity())
	}
	if other == b {
		t.Fatal("buffer of a different capacity handed out")
	}
}

func TestBufferPoolOverflowFrees(t *testing.T) {
	bp := pool.NewBufferPool(true, 1)
	a, err := bp.Get(4096)
	if err != nil {
		t.Fatal(err)
	}
	b, err := bp.Get(4096)
	if err != nil {
		t.Fatal(err)
	}
	bp.Put(a)
	bp.Put(b)
	if st := bp.Stats(); st.TotalFree != 1 || st.InUse != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
	bp.Drain()
	if st := bp.Stats(); st.TotalFree != 2 {
		t.Fatalf("TotalFree after drain = %d, want 2", st.TotalFree)
	}
}

func TestBufferPoolNegativeCapacity(t *testing.T) {
	if _, err := pool.Default().Get(-5); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestBufferPoolRejectsForeignBuffers(t *testing.T) {
	bp := pool.NewBufferPool(false, 4)
	foreign := []*buffer.ByteBuffer{
		buffer.Wrap(make([]byte, 16)),
		buffer.WrapRegion(make([]byte, 16), true, nil),
		buffer.MustAllocate(16),
	}
	for _, b := range foreign {
		if err := bp.Put(b); !errors.Is(err, api.ErrInvalidArgument) {
			t.Fatalf("Put(%s) = %v, want ErrInvalidArgument", b, err)
		}
	}
	if st := bp.Stats(); st.InUse != 0 {
		t.Fatalf("InUse = %d after rejected puts", st.InUse)
	}
	got, _ := bp.Get(16)
	for _, b := range foreign {
		if got == b {
			t.Fatal("pool handed out a buffer it never owned")
		}
	}
}

func TestBufferPoolDoublePut(t *testing.T) {
	bp := pool.NewBufferPool(false, 4)
	b, _ := bp.Get(32)
	if err := bp.Put(b); err != nil {
		t.Fatal(err)
	}
	if err := bp.Put(b); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("second Put = %v, want ErrInvalidArgument", err)
	}
	if st := bp.Stats(); st.InUse != 0 {
		t.Fatalf("InUse = %d, want 0", st.InUse)
	}
	first, _ := bp.Get(32)
	second, _ := bp.Get(32)
	if first == second {
		t.Fatal("same buffer handed out twice")
	}
}
