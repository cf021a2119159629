// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus-backed counters for transfers, buffers and selectors.
// All methods are safe on a nil registry, which records nothing.

package control

import (
	"net/http"

	"github.com/momentics/hioload-nio/pool"
	"github.com/momentics/hioload-nio/selector"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"
)

const namespace = "hioload_nio"

// MetricsRegistry owns a private prometheus registry.
type MetricsRegistry struct {
	reg *prometheus.Registry

	bytesCopied  prometheus.Counter
	bytesRead    *prometheus.CounterVec
	bytesWritten *prometheus.CounterVec
	accepted     *prometheus.CounterVec
	messages     *prometheus.CounterVec
}

// NewMetricsRegistry creates a registry with the transfer counters and the
// Go runtime collectors.
func NewMetricsRegistry() *MetricsRegistry {
	mr := &MetricsRegistry{
		reg: prometheus.NewRegistry(),
		bytesCopied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_copied_total",
			Help:      "Bytes copied between files.",
		}),
		bytesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_read_total",
			Help:      "Bytes read from channels.",
		}, []string{"component"}),
		bytesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Bytes written to channels.",
		}, []string{"component"}),
		accepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Accepted stream connections.",
		}, []string{"component"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Chat and datagram messages delivered.",
		}, []string{"component"}),
	}
	mr.reg.MustRegister(
		mr.bytesCopied, mr.bytesRead, mr.bytesWritten, mr.accepted, mr.messages,
		collectors.NewGoCollector(),
	)
	return mr
}

// AddBytesCopied counts a finished file copy.
func (mr *MetricsRegistry) AddBytesCopied(n int64) {
	if mr == nil || n <= 0 {
		return
	}
	mr.bytesCopied.Add(float64(n))
}

// AddBytesRead counts bytes a component read.
func (mr *MetricsRegistry) AddBytesRead(component string, n int) {
	if mr == nil || n <= 0 {
		return
	}
	mr.bytesRead.WithLabelValues(component).Add(float64(n))
}

// AddBytesWritten counts bytes a component wrote.
func (mr *MetricsRegistry) AddBytesWritten(component string, n int) {
	if mr == nil || n <= 0 {
		return
	}
	mr.bytesWritten.WithLabelValues(component).Add(float64(n))
}

// IncAccepted counts an accepted connection.
func (mr *MetricsRegistry) IncAccepted(component string) {
	if mr == nil {
		return
	}
	mr.accepted.WithLabelValues(component).Inc()
}

// IncMessages counts a delivered message.
func (mr *MetricsRegistry) IncMessages(component string) {
	if mr == nil {
		return
	}
	mr.messages.WithLabelValues(component).Inc()
}

// WatchPool exports the allocation counters of p.
func (mr *MetricsRegistry) WatchPool(p *pool.BufferPool) {
	if mr == nil || p == nil {
		return
	}
	mr.register(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffers_allocated_total",
			Help:      "Buffers allocated by the pool.",
		}, func() float64 { return float64(p.Stats().TotalAlloc) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffers_reused_total",
			Help:      "Pool gets served from an idle buffer.",
		}, func() float64 { return float64(p.Stats().Reused) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffers_in_use",
			Help:      "Buffers handed out and not yet returned.",
		}, func() float64 { return float64(p.Stats().InUse) }),
	)
}

// WatchSelector exports the select and wake-up counters of s under the
// given component label.
func (mr *MetricsRegistry) WatchSelector(component string, s *selector.Selector) {
	if mr == nil || s == nil {
		return
	}
	labels := prometheus.Labels{"component": component}
	mr.register(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "selector_selects_total",
			Help:        "Completed select calls.",
			ConstLabels: labels,
		}, func() float64 { return float64(s.Stats().Selects) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "selector_wakeups_total",
			Help:        "Select calls that returned with nothing ready.",
			ConstLabels: labels,
		}, func() float64 { return float64(s.Stats().Wakeups) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "selector_registered_keys",
			Help:        "Keys registered with the selector.",
			ConstLabels: labels,
		}, func() float64 { return float64(s.Stats().Registered) }),
	)
}

// register adds collectors, skipping any that collide with an existing one.
func (mr *MetricsRegistry) register(cs ...prometheus.Collector) {
	for _, c := range cs {
		if err := mr.reg.Register(c); err != nil {
			klog.V(2).Infof("metrics: skip collector: %v", err)
		}
	}
}

// Handler serves the registry in the prometheus text format.
func (mr *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(mr.reg, promhttp.HandlerOpts{})
}

// GetSnapshot returns the current value of every counter and gauge, keyed by
// metric name. Labelled series are summed.
func (mr *MetricsRegistry) GetSnapshot() map[string]float64 {
	out := make(map[string]float64)
	if mr == nil {
		return out
	}
	families, err := mr.reg.Gather()
	if err != nil {
		return out
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[mf.GetName()] += m.GetGauge().GetValue()
			}
		}
	}
	return out
}
