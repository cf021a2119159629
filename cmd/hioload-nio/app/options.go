package app

import (
	"errors"
	"flag"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/momentics/hioload-nio/control"
)

// Options carries the global flags and the effective configuration.
type Options struct {
	ConfigFile  string
	WatchConfig bool
	Config      *control.Config
}

// NewOptions returns options seeded with the default configuration.
func NewOptions() *Options {
	return &Options{Config: control.NewDefaultConfig()}
}

// AddFlags binds the global flags. Flags override values from the config file.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	c := o.Config
	fs.StringVar(&o.ConfigFile, "config-file", o.ConfigFile, "The path to the configuration file. Flags override values in this file.")
	fs.BoolVar(&o.WatchConfig, "watch-config", o.WatchConfig, "Reload the configuration file when it changes.")
	fs.IntVar(&c.BufferSize, "buffer-size", c.BufferSize, "Capacity of transfer buffers in bytes.")
	fs.BoolVar(&c.Direct, "direct", c.Direct, "Use mmap-backed direct buffers.")
	fs.IntVar(&c.PoolDepth, "pool-depth", c.PoolDepth, "Idle buffers kept per capacity.")
	fs.StringVar(&c.ListenAddr, "listen-addr", c.ListenAddr, "TCP address of the upload and chat servers.")
	fs.StringVar(&c.DatagramAddr, "datagram-addr", c.DatagramAddr, "UDP address of the datagram receiver.")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Serve /metrics and /debug/probes on this address.")
	fs.IntVar(&c.SelectTimeoutMs, "select-timeout-ms", c.SelectTimeoutMs, "Upper bound of one selector wait.")

	gofs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(gofs)
	fs.AddGoFlagSet(gofs)
}

// Complete loads the config file, re-applies explicitly set flags on top of
// it and validates the result.
func (o *Options) Complete(cmd *cobra.Command) error {
	if o.ConfigFile != "" {
		changed := map[string]string{}
		cmd.Flags().Visit(func(f *pflag.Flag) {
			changed[f.Name] = f.Value.String()
		})
		if err := o.Config.Parse(o.ConfigFile); err != nil {
			return err
		}
		for name, value := range changed {
			if err := cmd.Flags().Set(name, value); err != nil {
				return err
			}
		}
	}
	if errs := o.Config.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
