// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for hiosock.
//
// Provides concurrent-safe state handling primitives including:
//   - TOML configuration with validation and snapshot reads
//   - Reload listeners notified when the live config changes
//   - Prometheus-backed operation counters and timers
//   - Named debug probes exported as JSON
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
