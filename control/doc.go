// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, hot reload, metrics and debug introspection.
//
// Provides:
//   - Config with defaults, YAML loading and validation
//   - ConfigStore snapshots with reload listeners, fed by a file Watcher
//   - MetricsRegistry exporting transfer, pool and selector counters
//   - DebugProbes for named runtime state
package control
