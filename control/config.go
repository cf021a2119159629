// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Runtime configuration: defaults, YAML loading, validation, and a
// thread-safe store that notifies listeners on reload.

package control

import (
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/momentics/hioload-nio/channel"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

// Config holds the settings shared by the demo servers, clients and tools.
type Config struct {
	// BufferSize is the capacity of transfer buffers.
	BufferSize int `json:"bufferSize"`
	// Direct selects mmap-backed buffers.
	Direct bool `json:"direct"`
	// PoolDepth bounds the number of idle buffers kept per capacity.
	PoolDepth int `json:"poolDepth"`

	// ListenAddr is the TCP address of the upload and chat servers.
	ListenAddr string `json:"listenAddr"`
	// DatagramAddr is the UDP address of the datagram receiver.
	DatagramAddr string `json:"datagramAddr"`
	// UploadDir receives files written by the upload server.
	UploadDir string `json:"uploadDir"`
	// Ack makes the upload server reply once a file is stored.
	Ack bool `json:"ack"`
	// Nickname prefixes chat and datagram messages.
	Nickname string `json:"nickname"`
	// Charset decodes file contents in the decode tool.
	Charset string `json:"charset"`
	// CopyMode is buffered, mapped or transfer.
	CopyMode string `json:"copyMode"`

	RelayCount      int `json:"relayCount"`
	RelayIntervalMs int `json:"relayIntervalMs"`

	// SelectTimeoutMs bounds each selector wait so servers notice shutdown.
	SelectTimeoutMs int `json:"selectTimeoutMs"`

	// MetricsAddr serves /metrics when non-empty.
	MetricsAddr string `json:"metricsAddr"`
}

// NewDefaultConfig returns the built-in settings.
func NewDefaultConfig() *Config {
	return &Config{
		BufferSize:      1024,
		PoolDepth:       1024,
		ListenAddr:      "127.0.0.1:7001",
		DatagramAddr:    "127.0.0.1:7001",
		UploadDir:       "resources/server",
		Nickname:        "anonymous",
		Charset:         "GBK",
		CopyMode:        "buffered",
		RelayCount:      10,
		RelayIntervalMs: 1000,
		SelectTimeoutMs: 500,
	}
}

// LoadConfig reads a YAML file over the defaults. Keys missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := cfg.Parse(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse unmarshals the YAML file at path into c.
func (c *Config) Parse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		klog.Errorf("Failed to read config file %s: %v", path, err)
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		klog.Errorf("Failed to unmarshal config file %s: %v", path, err)
		return err
	}
	return nil
}

// Validate reports every invalid field.
func (c *Config) Validate() []error {
	var errs []error
	if c.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("bufferSize: must be positive, got %d", c.BufferSize))
	}
	if c.PoolDepth < 0 {
		errs = append(errs, fmt.Errorf("poolDepth: must not be negative, got %d", c.PoolDepth))
	}
	for name, addr := range map[string]string{"listenAddr": c.ListenAddr, "datagramAddr": c.DatagramAddr} {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			errs = append(errs, fmt.Errorf("metricsAddr: %w", err))
		}
	}
	if _, err := channel.LookupCharset(c.Charset); err != nil {
		errs = append(errs, fmt.Errorf("charset: %w", err))
	}
	if _, err := channel.ParseCopyMode(c.CopyMode); err != nil {
		errs = append(errs, fmt.Errorf("copyMode: %w", err))
	}
	if c.RelayCount < 0 {
		errs = append(errs, fmt.Errorf("relayCount: must not be negative, got %d", c.RelayCount))
	}
	if c.RelayIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("relayIntervalMs: must not be negative, got %d", c.RelayIntervalMs))
	}
	if c.SelectTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("selectTimeoutMs: must be positive, got %d", c.SelectTimeoutMs))
	}
	return errs
}

// ConfigStore holds the current configuration and its reload listeners.
type ConfigStore struct {
	mu        sync.RWMutex
	config    Config
	listeners []func(Config)
}

// NewConfigStore initializes a store with cfg, or the defaults when cfg is nil.
func NewConfigStore(cfg *Config) *ConfigStore {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	return &ConfigStore{config: *cfg}
}

// Get returns a copy of the current configuration.
func (cs *ConfigStore) Get() Config {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config
}

// Set validates cfg, installs it, and notifies listeners synchronously.
// An invalid configuration is rejected and the current one is kept.
func (cs *ConfigStore) Set(cfg Config) []error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return errs
	}
	cs.mu.Lock()
	cs.config = cfg
	listeners := append([]func(Config){}, cs.listeners...)
	cs.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
	return nil
}

// OnReload registers a listener called after every successful Set.
func (cs *ConfigStore) OnReload(fn func(Config)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
