package relay

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vothanachyes/telegram-user-tracking-sub004/cfg"
	"github.com/vothanachyes/telegram-user-tracking-sub004/event"
)

// RegistryConfig configures the relay registry
type RegistryConfig struct {
	Source      string                  // Instance ID stamped on every record
	SinkConfigs []cfg.SinkConfiguration // From config
}

// Registry fans bus events out to one worker per sink
type Registry struct {
	source  string
	workers []*Worker
	running atomic.Bool
	mu      sync.Mutex
}

var _ event.Handler = (*Registry)(nil)

// NewRegistry creates a registry with a worker per configured sink
func NewRegistry(config RegistryConfig) (*Registry, error) {
	registry := &Registry{
		source:  config.Source,
		workers: make([]*Worker, 0, len(config.SinkConfigs)),
	}

	for _, sinkCfg := range config.SinkConfigs {
		if err := registry.AddSink(sinkCfg); err != nil {
			registry.closeSinks()
			return nil, fmt.Errorf("failed to add sink %q: %w", sinkCfg.Name, err)
		}
	}

	log.Info().
		Int("workers", len(registry.workers)).
		Msg("Relay registry initialized")

	return registry, nil
}

// AddSink creates and adds a new worker for the given sink configuration
func (r *Registry) AddSink(config cfg.SinkConfiguration) error {
	snk, err := createSink(config)
	if err != nil {
		return fmt.Errorf("failed to create sink: %w", err)
	}
	return r.addWorker(config, snk)
}

func (r *Registry) addWorker(config cfg.SinkConfiguration, snk Sink) error {
	format := config.Format
	if format == "" {
		format = cfg.FormatJSON
	}

	trans, err := createTransformer(format)
	if err != nil {
		snk.Close()
		return fmt.Errorf("failed to create transformer: %w", err)
	}

	filter, err := NewGlobFilter(config.FilterCollections)
	if err != nil {
		snk.Close()
		return fmt.Errorf("failed to create filter: %w", err)
	}

	worker, err := NewWorker(WorkerConfig{
		Name:            config.Name,
		Sink:            snk,
		Transformer:     trans,
		Filter:          filter,
		TopicPrefix:     config.TopicPrefix,
		QueueSize:       config.QueueSize,
		RetryInitial:    time.Duration(config.RetryInitialMS) * time.Millisecond,
		RetryMax:        time.Duration(config.RetryMaxMS) * time.Millisecond,
		RetryMultiplier: config.RetryMultiplier,
		MaxRetries:      config.MaxRetries,
	})
	if err != nil {
		snk.Close()
		return fmt.Errorf("failed to create worker: %w", err)
	}

	r.mu.Lock()
	r.workers = append(r.workers, worker)
	running := r.running.Load()
	r.mu.Unlock()

	if running {
		worker.Start()
	}

	log.Info().
		Str("sink", config.Name).
		Str("type", config.Type).
		Str("format", format).
		Msg("Added relay sink")

	return nil
}

// Start starts all workers
func (r *Registry) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running.Load() {
		return fmt.Errorf("registry already running")
	}

	log.Info().Int("workers", len(r.workers)).Msg("Starting relay registry")

	for _, worker := range r.workers {
		worker.Start()
	}

	r.running.Store(true)
	return nil
}

// Stop stops all workers and closes their sinks
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running.Swap(false) {
		return
	}

	log.Info().Msg("Stopping relay registry")

	for _, worker := range r.workers {
		worker.Stop()
	}
	r.closeSinks()

	log.Info().Msg("Relay registry stopped")
}

func (r *Registry) closeSinks() {
	for _, worker := range r.workers {
		if err := worker.config.Sink.Close(); err != nil {
			log.Warn().Err(err).Str("sink", worker.Name()).Msg("Failed to close relay sink")
		}
	}
}

// Handle implements event.Handler. It never blocks on a sink.
func (r *Registry) Handle(e event.Event) error {
	if !r.running.Load() {
		return nil
	}

	rec, ok := RecordFromEvent(r.source, e)
	if !ok {
		return nil
	}

	r.mu.Lock()
	workers := r.workers
	r.mu.Unlock()

	for _, worker := range workers {
		worker.Enqueue(rec)
	}
	return nil
}

// Attach subscribes the registry to every change event on bus
func (r *Registry) Attach(bus *event.Bus) (cancel func()) {
	return bus.Subscribe(event.KindChange, r)
}

// createSink creates a sink based on the configuration
func createSink(config cfg.SinkConfiguration) (Sink, error) {
	factoryMu.RLock()
	factory, exists := sinkFactories[config.Type]
	factoryMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown sink type: %s", config.Type)
	}

	return factory(config)
}

// SinkFactory is a function that creates a Sink from a configuration
type SinkFactory func(cfg.SinkConfiguration) (Sink, error)

// TransformerFactory is a function that creates a Transformer
type TransformerFactory func() Transformer

var (
	sinkFactories        = make(map[string]SinkFactory)
	transformerFactories = make(map[string]TransformerFactory)
	factoryMu            sync.RWMutex
)

// RegisterSink registers a sink factory for a type
func RegisterSink(sinkType string, factory SinkFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	sinkFactories[sinkType] = factory
}

// RegisterTransformer registers a transformer factory for a format
func RegisterTransformer(format string, factory TransformerFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	transformerFactories[format] = factory
}

// createTransformer creates a transformer based on the format
func createTransformer(format string) (Transformer, error) {
	factoryMu.RLock()
	factory, exists := transformerFactories[format]
	factoryMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	return factory(), nil
}
