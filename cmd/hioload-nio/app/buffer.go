package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-nio/buffer"
)

func newBufferCommand(rt *env) *cobra.Command {
	capacity := 10
	cmd := &cobra.Command{
		Use:   "buffer-demo",
		Short: "Walk a buffer through put, flip, get, rewind, clear, mark and reset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBufferDemo(cmd.OutOrStdout(), capacity, rt.config().Direct)
		},
	}
	cmd.Flags().IntVar(&capacity, "capacity", capacity, "Buffer capacity.")
	return cmd
}

func printState(w io.Writer, step string, b *buffer.ByteBuffer) {
	fmt.Fprintf(w, "%-8s capacity=%d limit=%d position=%d remaining=%d\n",
		step, b.Capacity(), b.Limit(), b.Position(), b.Remaining())
}

func runBufferDemo(w io.Writer, capacity int, direct bool) error {
	var (
		b   *buffer.ByteBuffer
		err error
	)
	if direct {
		b, err = buffer.AllocateDirect(capacity)
	} else {
		b, err = buffer.Allocate(capacity)
	}
	if err != nil {
		return err
	}
	defer b.Free()
	printState(w, "allocate", b)
	fmt.Fprintf(w, "direct   %t\n", b.IsDirect())

	if err := b.PutString("abcde"); err != nil {
		return err
	}
	printState(w, "put", b)

	b.Flip()
	printState(w, "flip", b)

	got, err := b.Get(b.Limit())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "get      %q\n", got)
	printState(w, "get", b)

	b.Rewind()
	printState(w, "rewind", b)

	b.Clear()
	printState(w, "clear", b)
	c, err := b.GetByte()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "cleared  first byte still %q\n", c)

	b.Rewind()
	if err := b.SetLimit(5); err != nil {
		return err
	}
	dst := make([]byte, b.Limit())
	if err := b.GetInto(dst, 0, 2); err != nil {
		return err
	}
	b.Mark()
	fmt.Fprintf(w, "mark     position=%d read=%q\n", b.Position(), dst[:2])
	if err := b.GetInto(dst, b.Position(), 2); err != nil {
		return err
	}
	fmt.Fprintf(w, "get      position=%d read=%q\n", b.Position(), dst[:4])
	if err := b.Reset(); err != nil {
		return err
	}
	c, err = b.GetByte()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "reset    position=%d next=%q\n", b.Position()-1, c)
	fmt.Fprintf(w, "%s\n", b)
	return nil
}
