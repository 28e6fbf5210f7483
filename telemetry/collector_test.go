package telemetry

import (
	"testing"
	"time"
)

type staticLister map[string]int

func (s staticLister) ListenerStates() map[string]int { return s }

func TestMetricsCollector_Snapshot(t *testing.T) {
	mc := NewMetricsCollector(time.Hour, []string{"idle", "streaming", "reconnecting"},
		staticLister{"streaming": 2, "reconnecting": 1},
		nil,
		staticLister{"streaming": 3},
	)

	got := mc.Snapshot()
	if got["streaming"] != 5 {
		t.Errorf("expected 5 streaming, got %d", got["streaming"])
	}
	if got["reconnecting"] != 1 {
		t.Errorf("expected 1 reconnecting, got %d", got["reconnecting"])
	}
	if got["idle"] != 0 {
		t.Errorf("expected 0 idle, got %d", got["idle"])
	}
}

func TestMetricsCollector_StartStop(t *testing.T) {
	mc := NewMetricsCollector(time.Millisecond, []string{"streaming"}, staticLister{"streaming": 1})
	mc.Start()
	time.Sleep(5 * time.Millisecond)
	mc.Stop()
}

func TestNoopMetricsBeforeInit(t *testing.T) {
	// Metrics default to no-ops and must be safe to use
	ListenersActive.With("stream").Inc()
	EventsTotal.With("added", "stream").Inc()
	ConnectDurationSeconds.Observe(0.1)
	RelayPublishSeconds.With("sink").Observe(0.01)

	if GetMetricsHandler() != nil {
		t.Error("expected no metrics handler before initialization")
	}
}
