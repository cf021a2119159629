package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/buffer"
	"github.com/momentics/hioload-nio/channel"
)

func newCopyCommand(rt *env) *cobra.Command {
	mode := ""
	cmd := &cobra.Command{
		Use:   "copy SRC DST",
		Short: "Copy a file with buffered, mapped or transfer channels",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rt.config()
			if mode == "" {
				mode = cfg.CopyMode
			}
			m, err := channel.ParseCopyMode(mode)
			if err != nil {
				return err
			}
			res, err := channel.CopyFile(cmd.Context(), m, args[1], args[0], cfg.BufferSize)
			if err != nil {
				return err
			}
			rt.metrics.AddBytesCopied(res.Bytes)
			fmt.Fprintf(cmd.OutOrStdout(), "%s copy: %d bytes in %v\n", res.Mode, res.Bytes, res.Elapsed)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", mode, "Copy mode: buffered, mapped or transfer. Defaults to the configured mode.")
	return cmd
}

func newScatterCommand(rt *env) *cobra.Command {
	sizes := []int{26, 102}
	cmd := &cobra.Command{
		Use:   "scatter SRC DST",
		Short: "Scatter-read a file into several buffers and gather-write them back",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bufs := make([]*buffer.ByteBuffer, 0, len(sizes))
			for _, n := range sizes {
				b, err := rt.pool.Get(n)
				if err != nil {
					return err
				}
				defer rt.pool.Put(b)
				bufs = append(bufs, b)
			}
			n, err := scatterGather(args[0], args[1], bufs)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, b := range bufs {
				b.Rewind()
				fmt.Fprintf(out, "buffer %d: %q\n", i, b.Bytes())
			}
			fmt.Fprintf(out, "gathered %d bytes into %s\n", n, args[1])
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&sizes, "sizes", sizes, "Capacities of the scatter buffers.")
	return cmd
}

func scatterGather(src, dst string, bufs []*buffer.ByteBuffer) (int64, error) {
	in, err := channel.OpenRead(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := channel.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	stores := make([]api.ByteStore, len(bufs))
	for i, b := range bufs {
		stores[i] = b
	}
	if _, err := in.ReadScatter(stores...); err != nil {
		return 0, err
	}
	for _, b := range bufs {
		b.Flip()
	}
	return out.WriteGather(stores...)
}

func newDecodeCommand(rt *env) *cobra.Command {
	charset := ""
	cmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "Read a file through a buffer and decode it from a legacy charset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if charset == "" {
				charset = rt.config().Charset
			}
			fc, err := channel.OpenRead(args[0])
			if err != nil {
				return err
			}
			defer fc.Close()
			size, err := fc.Size()
			if err != nil {
				return err
			}
			b, err := buffer.Allocate(int(size))
			if err != nil {
				return err
			}
			for b.HasRemaining() {
				if _, err := fc.Read(b); err != nil {
					return err
				}
			}
			b.Flip()
			fmt.Fprintf(cmd.OutOrStdout(), "raw:     %q\n", b.Bytes())
			text, err := channel.Decode(charset, b)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", charset, text)
			return nil
		},
	}
	cmd.Flags().StringVar(&charset, "charset", charset, "Source charset. Defaults to the configured charset.")
	return cmd
}
