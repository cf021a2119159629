// File: server/loop.go
// Author: momentics <momentics@gmail.com>

package server

import (
	"context"
	"errors"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/selector"
)

// runSelectLoop selects until ctx is done, handing every selected key to
// handle and removing it from the selected set first.
func runSelectLoop(ctx context.Context, sel *selector.Selector, st settings, handle func(*selector.SelectionKey)) error {
	stop := context.AfterFunc(ctx, func() { _ = sel.Wakeup() })
	defer stop()
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := sel.Select(st.selectTimeout)
		if err != nil {
			if errors.Is(err, api.ErrClosed) && ctx.Err() != nil {
				return nil
			}
			return err
		}
		if n == 0 {
			continue
		}
		it := sel.SelectedKeys()
		for it.Next() {
			k := it.Key()
			it.Remove()
			if k.Valid() {
				handle(k)
			}
		}
	}
}
