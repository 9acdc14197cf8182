// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics for socket operations. Counters and timers are exported
// through docker/go-metrics (prometheus); a snapshot map mirrors the counts
// for in-process inspection.

package control

import (
	"sync"
	"time"

	metrics "github.com/docker/go-metrics"
	"github.com/momentics/hiosock/api"
)

// Metrics records one observation per socket operation.
type Metrics struct {
	ns         *metrics.Namespace
	operations metrics.LabeledCounter
	failures   metrics.LabeledCounter
	durations  metrics.LabeledTimer

	mu      sync.RWMutex
	counts  map[string]int64
	updated time.Time
}

// NewMetrics creates an unregistered metrics set.
func NewMetrics() *Metrics {
	ns := metrics.NewNamespace("hiosock", "socket", nil)
	return &Metrics{
		ns:         ns,
		operations: ns.NewLabeledCounter("operations", "The number of socket operations performed", "op"),
		failures:   ns.NewLabeledCounter("failures", "The number of failed socket operations", "op", "category"),
		durations:  ns.NewLabeledTimer("operation_duration", "The number of seconds each socket operation takes", "op"),
		counts:     make(map[string]int64),
	}
}

// Namespace exposes the prometheus collector for custom registries.
func (m *Metrics) Namespace() *metrics.Namespace { return m.ns }

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// DefaultMetrics returns the process-wide set, registered with the
// prometheus default registry on first use.
func DefaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics()
		metrics.Register(defaultMetrics.ns)
	})
	return defaultMetrics
}

// Observe records an operation that started at start and ended with err.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	m.operations.WithValues(op).Inc()
	m.durations.WithValues(op).UpdateSince(start)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts["ops."+op]++
	if err != nil {
		cat := api.CategoryOf(err).String()
		m.failures.WithValues(op, cat).Inc()
		m.counts["failures."+op+"."+cat]++
	}
	m.updated = time.Now()
}

// Snapshot returns the latest counts keyed "ops.<op>" and
// "failures.<op>.<category>".
func (m *Metrics) Snapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}

// Updated returns the time of the last observation.
func (m *Metrics) Updated() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}
