package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/momentics/hioload-nio/control"
	"github.com/momentics/hioload-nio/pool"
)

// env is the shared state every sub-command works with.
type env struct {
	opts    *Options
	store   *control.ConfigStore
	pool    *pool.BufferPool
	metrics *control.MetricsRegistry
	probes  *control.DebugProbes
}

// NewRootCommand builds the hioload-nio command tree.
func NewRootCommand() *cobra.Command {
	opts := NewOptions()
	rt := &env{opts: opts}
	cmd := &cobra.Command{
		Use:          "hioload-nio",
		Long:         `hioload-nio demonstrates position-tracked buffers, file channels, pipes, selectors and sockets.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Complete(cmd); err != nil {
				return err
			}
			return rt.start(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.pool.Drain()
		},
	}
	opts.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newBufferCommand(rt),
		newCopyCommand(rt),
		newScatterCommand(rt),
		newDecodeCommand(rt),
		newPipeCommand(rt),
		newUploadServerCommand(rt),
		newUploadClientCommand(rt),
		newChatServerCommand(rt),
		newChatClientCommand(rt),
		newDatagramReceiverCommand(rt),
		newDatagramSenderCommand(rt),
	)
	return cmd
}

func (rt *env) start(ctx context.Context) error {
	cfg := rt.opts.Config
	rt.store = control.NewConfigStore(cfg)
	rt.pool = pool.NewBufferPool(cfg.Direct, cfg.PoolDepth)
	rt.metrics = control.NewMetricsRegistry()
	rt.metrics.WatchPool(rt.pool)
	rt.probes = control.NewDebugProbes()
	control.RegisterPlatformProbes(rt.probes)
	control.RegisterPoolProbe(rt.probes, "pool", rt.pool)

	rt.store.OnReload(func(c control.Config) {
		klog.Infof("Configuration reloaded: bufferSize=%d selectTimeoutMs=%d", c.BufferSize, c.SelectTimeoutMs)
	})
	if rt.opts.WatchConfig && rt.opts.ConfigFile != "" {
		w, err := control.NewWatcher(rt.opts.ConfigFile, rt.store)
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				klog.Errorf("config watcher stopped: %v", err)
			}
		}()
	}
	if cfg.MetricsAddr != "" {
		rt.serveMetrics(ctx, cfg.MetricsAddr)
	}
	return nil
}

func (rt *env) serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.Handle("/debug/probes", rt.probes.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		klog.Infof("Serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.Errorf("metrics server: %v", err)
		}
	}()
	context.AfterFunc(ctx, func() {
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	})
}

// config returns the current configuration snapshot.
func (rt *env) config() control.Config {
	return rt.store.Get()
}
