package telemetry

import (
	"sync"
	"time"
)

// StateLister provides listener counts per connection state
type StateLister interface {
	ListenerStates() map[string]int
}

// MetricsCollector periodically collects listener states and updates telemetry gauges
type MetricsCollector struct {
	listers  []StateLister
	states   []string
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewMetricsCollector creates a new metrics collector. states lists every state
// label so that states with no listeners are reported as zero.
func NewMetricsCollector(interval time.Duration, states []string, listers ...StateLister) *MetricsCollector {
	return &MetricsCollector{
		listers:  listers,
		states:   states,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic collection
func (mc *MetricsCollector) Start() {
	mc.wg.Add(1)
	go mc.collectLoop()
}

// Stop stops the collector
func (mc *MetricsCollector) Stop() {
	close(mc.stopCh)
	mc.wg.Wait()
}

func (mc *MetricsCollector) collectLoop() {
	defer mc.wg.Done()

	ticker := time.NewTicker(mc.interval)
	defer ticker.Stop()

	mc.collect()

	for {
		select {
		case <-ticker.C:
			mc.collect()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MetricsCollector) collect() {
	totals := mc.Snapshot()
	for _, state := range mc.states {
		ListenersByState.With(state).Set(float64(totals[state]))
	}
}

// Snapshot sums listener states across all listers
func (mc *MetricsCollector) Snapshot() map[string]int {
	totals := make(map[string]int, len(mc.states))
	for _, lister := range mc.listers {
		if lister == nil {
			continue
		}
		for state, n := range lister.ListenerStates() {
			totals[state] += n
		}
	}
	return totals
}
