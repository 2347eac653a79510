package obs

import (
	"sort"
	"strings"
	"sync"
)

// Label is a key/value pair attached to measurements.
type Label struct {
	Key   string
	Value string
}

// Meter is a very small interface for emitting counters/histograms.
// Implementations may no-op or bridge to a metrics system.
type Meter interface {
	Counter(name string, value float64, labels ...Label)
	Histogram(name string, value float64, labels ...Label)
}

// NopMeter is a Meter that discards all measurements.
type NopMeter struct{}

func (NopMeter) Counter(name string, value float64, labels ...Label)   {}
func (NopMeter) Histogram(name string, value float64, labels ...Label) {}

// MemMeter keeps running totals in memory. Series are keyed by name plus
// labels in the form name{k=v,...}; histograms record count and sum.
type MemMeter struct {
	mu     sync.Mutex
	totals map[string]float64
}

func (m *MemMeter) Counter(name string, value float64, labels ...Label) {
	m.add(seriesKey(name, labels), value)
}

func (m *MemMeter) Histogram(name string, value float64, labels ...Label) {
	key := seriesKey(name, labels)
	m.add(key+"_count", 1)
	m.add(key+"_sum", value)
}

func (m *MemMeter) add(key string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.totals == nil {
		m.totals = make(map[string]float64)
	}
	m.totals[key] += v
}

// Snapshot returns a copy of all series.
func (m *MemMeter) Snapshot() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.totals))
	for k, v := range m.totals {
		out[k] = v
	}
	return out
}

func seriesKey(name string, labels []Label) string {
	if len(labels) == 0 {
		return name
	}
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.Key + "=" + l.Value
	}
	sort.Strings(parts)
	return name + "{" + strings.Join(parts, ",") + "}"
}
