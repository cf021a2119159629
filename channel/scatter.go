package channel

import "github.com/momentics/hioload-nio/api"

func totalRemaining(bufs []api.ByteStore) int {
	n := 0
	for _, b := range bufs {
		n += b.Remaining()
	}
	return n
}

// distribute advances bufs in order by a total of n transferred bytes.
func distribute(bufs []api.ByteStore, n int) error {
	for _, b := range bufs {
		if n == 0 {
			return nil
		}
		step := b.Remaining()
		if step > n {
			step = n
		}
		if err := b.Advance(step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
