package telemetry

// Histogram bucket definitions for different latency profiles
var (
	// ConnectBuckets for listen stream connection attempts (dial + response headers)
	ConnectBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

	// PublishBuckets for relay sink publishes
	PublishBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5}
)

// Listener Metrics
var (
	// ListenersActive tracks registered listeners by transport (stream, managed)
	ListenersActive GaugeVec = noopGaugeVec{}

	// ListenersByState tracks listeners per state machine state, refreshed by MetricsCollector
	ListenersByState GaugeVec = noopGaugeVec{}

	// ListenerStopsTotal counts listener terminations by reason (explicit, exhausted, failed)
	ListenerStopsTotal CounterVec = noopCounterVec{}

	// EventsTotal counts change events emitted by kind and transport
	EventsTotal CounterVec = noopCounterVec{}
)

// Stream Transport Metrics
var (
	// ConnectAttemptsTotal counts listen stream connection attempts by result (success, failed)
	ConnectAttemptsTotal CounterVec = noopCounterVec{}

	// ConnectDurationSeconds measures connection attempt latency
	ConnectDurationSeconds Histogram = NoopStat{}

	// ReconnectsTotal counts scheduled reconnect waits
	ReconnectsTotal Counter = NoopStat{}

	// FramesTotal counts received protocol frames by type
	FramesTotal CounterVec = noopCounterVec{}

	// FramesSkippedTotal counts malformed frames dropped from the stream
	FramesSkippedTotal Counter = NoopStat{}
)

// Event Bus Metrics
var (
	// BusHandlerFailuresTotal counts subscriber failures (error or panic) by event kind
	BusHandlerFailuresTotal CounterVec = noopCounterVec{}

	// BusChannelDropsTotal counts events dropped because a channel subscriber was full
	BusChannelDropsTotal Counter = NoopStat{}
)

// Relay Metrics
var (
	// RelayPublishedTotal counts relay publishes by sink and result (success, failed)
	RelayPublishedTotal CounterVec = noopCounterVec{}

	// RelayDroppedTotal counts events dropped by sink because the queue was full
	RelayDroppedTotal CounterVec = noopCounterVec{}

	// RelayPublishSeconds measures sink publish latency
	RelayPublishSeconds HistogramVec = noopHistogramVec{}
)

// InitMetrics initializes all Prometheus metrics.
// Must be called after InitializeTelemetry().
func InitMetrics() {
	// Listener Metrics
	ListenersActive = NewGaugeVec(
		"listeners_active",
		"Number of registered listeners by transport",
		[]string{"transport"},
	)
	ListenersByState = NewGaugeVec(
		"listeners_by_state",
		"Number of listeners per connection state",
		[]string{"state"},
	)
	ListenerStopsTotal = NewCounterVec(
		"listener_stops_total",
		"Listener terminations by reason",
		[]string{"reason"},
	)
	EventsTotal = NewCounterVec(
		"events_total",
		"Change events emitted by kind and transport",
		[]string{"kind", "transport"},
	)

	// Stream Transport Metrics
	ConnectAttemptsTotal = NewCounterVec(
		"connect_attempts_total",
		"Listen stream connection attempts by result",
		[]string{"result"},
	)
	ConnectDurationSeconds = NewHistogram(
		"connect_duration_seconds",
		"Listen stream connection attempt duration in seconds",
		ConnectBuckets,
	)
	ReconnectsTotal = NewCounter(
		"reconnects_total",
		"Total scheduled reconnect waits",
	)
	FramesTotal = NewCounterVec(
		"frames_total",
		"Protocol frames received by type",
		[]string{"type"},
	)
	FramesSkippedTotal = NewCounter(
		"frames_skipped_total",
		"Malformed protocol frames skipped",
	)

	// Event Bus Metrics
	BusHandlerFailuresTotal = NewCounterVec(
		"bus_handler_failures_total",
		"Event bus subscriber failures by event kind",
		[]string{"kind"},
	)
	BusChannelDropsTotal = NewCounter(
		"bus_channel_drops_total",
		"Events dropped because a channel subscriber was full",
	)

	// Relay Metrics
	RelayPublishedTotal = NewCounterVec(
		"relay_published_total",
		"Relay publishes by sink and result",
		[]string{"sink", "result"},
	)
	RelayDroppedTotal = NewCounterVec(
		"relay_dropped_total",
		"Relay events dropped due to a full queue",
		[]string{"sink"},
	)
	RelayPublishSeconds = NewHistogramVec(
		"relay_publish_seconds",
		"Relay sink publish duration in seconds",
		[]string{"sink"},
		PublishBuckets,
	)
}
