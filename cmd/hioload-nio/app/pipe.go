package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-nio/pipe"
)

func newPipeCommand(rt *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipe",
		Short: "Relay clock readings from a producer to a consumer through a pipe",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rt.config()
			out := cmd.OutOrStdout()
			relay := pipe.NewRelay(pipe.RelayConfig{
				Count:      cfg.RelayCount,
				Interval:   time.Duration(cfg.RelayIntervalMs) * time.Millisecond,
				BufferSize: cfg.BufferSize,
			}, func(chunk []byte) {
				fmt.Fprintf(out, "received %s\n", chunk)
			})
			stats, err := relay.Run(cmd.Context())
			if err != nil {
				return err
			}
			rt.metrics.AddBytesWritten("pipe", int(stats.BytesSent))
			rt.metrics.AddBytesRead("pipe", int(stats.BytesReceived))
			fmt.Fprintf(out, "sent %d readings, %d bytes in %d chunks\n", stats.Sent, stats.BytesReceived, stats.Chunks)
			return nil
		},
	}
	cmd.Flags().IntVar(&rt.opts.Config.RelayCount, "count", rt.opts.Config.RelayCount, "Number of readings to send.")
	cmd.Flags().IntVar(&rt.opts.Config.RelayIntervalMs, "interval-ms", rt.opts.Config.RelayIntervalMs, "Delay between readings.")
	return cmd
}
