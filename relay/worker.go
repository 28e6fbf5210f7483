package relay

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vothanachyes/telegram-user-tracking-sub004/telemetry"
)

const (
	// Default number of records buffered per sink
	DefaultQueueSize = 1024
	// Default initial retry delay for failed publish operations
	DefaultRetryInitial = 100 * time.Millisecond
	// Default maximum retry delay (exponential backoff cap)
	DefaultRetryMax = 30 * time.Second
	// Default exponential backoff multiplier
	DefaultRetryMultiplier = 2.0
	// Maximum number of attempts before a record is dropped
	DefaultMaxRetries = 10
)

// WorkerConfig configures a relay worker
type WorkerConfig struct {
	Name            string        // Sink name
	Sink            Sink          // Destination sink
	Transformer     Transformer   // Record encoder
	Filter          Filter        // Collection filter
	TopicPrefix     string        // Topic prefix (e.g., "docwatch")
	QueueSize       int           // Buffered records
	RetryInitial    time.Duration // Initial retry delay
	RetryMax        time.Duration // Max retry delay
	RetryMultiplier float64       // Backoff multiplier
	MaxRetries      int           // Attempts per message before dropping it
}

// Worker drains a bounded queue of records into one sink
type Worker struct {
	config      WorkerConfig
	queue       chan Record
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     atomic.Bool
	lifecycleMu sync.Mutex
}

// NewWorker creates a relay worker
func NewWorker(config WorkerConfig) (*Worker, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("worker name is required")
	}
	if config.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if config.Transformer == nil {
		return nil, fmt.Errorf("transformer is required")
	}
	if config.Filter == nil {
		return nil, fmt.Errorf("filter is required")
	}

	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	if config.RetryInitial <= 0 {
		config.RetryInitial = DefaultRetryInitial
	}
	if config.RetryMax <= 0 {
		config.RetryMax = DefaultRetryMax
	}
	if config.RetryMultiplier <= 0 {
		config.RetryMultiplier = DefaultRetryMultiplier
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}

	return &Worker{
		config: config,
		queue:  make(chan Record, config.QueueSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// Name returns the sink name
func (w *Worker) Name() string { return w.config.Name }

// Enqueue offers a record without blocking. Returns false when the record
// was filtered out or the queue is full.
func (w *Worker) Enqueue(rec Record) bool {
	if !w.config.Filter.Match(rec.Collection) {
		return false
	}

	select {
	case w.queue <- rec:
		return true
	default:
		telemetry.RelayDroppedTotal.With(w.config.Name).Inc()
		log.Warn().
			Str("worker", w.config.Name).
			Str("document", rec.Path()).
			Msg("Relay queue full, dropping record")
		return false
	}
}

// Start starts the worker goroutine
func (w *Worker) Start() {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if w.running.Load() {
		return
	}

	w.running.Store(true)
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	log.Info().Str("worker", w.config.Name).Msg("Starting relay worker")

	go w.loop()
}

// Stop stops the worker and waits for it. Queued records are discarded.
func (w *Worker) Stop() {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if !w.running.Load() {
		return
	}

	log.Info().Str("worker", w.config.Name).Msg("Stopping relay worker")

	close(w.stopCh)
	<-w.doneCh
	w.running.Store(false)

	if pending := len(w.queue); pending > 0 {
		log.Warn().Str("worker", w.config.Name).Int("pending", pending).Msg("Relay worker stopped with queued records")
	}
	log.Info().Str("worker", w.config.Name).Msg("Relay worker stopped")
}

func (w *Worker) loop() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case rec := <-w.queue:
			if err := w.processRecord(rec); err != nil {
				log.Error().
					Err(err).
					Str("worker", w.config.Name).
					Str("document", rec.Path()).
					Msg("Failed to relay record")
			}
		}
	}
}

// processRecord publishes one record, followed by a tombstone for deletes
func (w *Worker) processRecord(rec Record) error {
	data, err := w.config.Transformer.Transform(rec)
	if err != nil {
		return fmt.Errorf("failed to transform record: %w", err)
	}

	topic := w.buildTopic(rec.Collection)

	if err := w.publishWithRetry(topic, rec.DocumentID, data); err != nil {
		return err
	}

	if rec.Operation == OpDeleted {
		tombstone := w.config.Transformer.Tombstone(rec.DocumentID)
		if err := w.publishWithRetry(topic, rec.DocumentID, tombstone); err != nil {
			return err
		}
	}

	return nil
}

// buildTopic maps a collection path to a topic name
func (w *Worker) buildTopic(collection string) string {
	name := strings.ReplaceAll(collection, "/", ".")
	if w.config.TopicPrefix == "" {
		return name
	}
	return w.config.TopicPrefix + "." + name
}

// publishWithRetry publishes data with exponential backoff retry.
// Returns error if max retries exhausted or worker stopped.
func (w *Worker) publishWithRetry(topic, key string, data []byte) error {
	delay := w.config.RetryInitial
	attempts := 0

	for {
		start := time.Now()
		err := w.config.Sink.Publish(topic, key, data)
		telemetry.RelayPublishSeconds.With(w.config.Name).Observe(time.Since(start).Seconds())
		if err == nil {
			telemetry.RelayPublishedTotal.With(w.config.Name, "success").Inc()
			return nil
		}
		telemetry.RelayPublishedTotal.With(w.config.Name, "failed").Inc()

		attempts++
		if attempts >= w.config.MaxRetries {
			return fmt.Errorf("exhausted max retries (%d) for topic %s: %w", w.config.MaxRetries, topic, err)
		}

		log.Warn().
			Err(err).
			Str("worker", w.config.Name).
			Str("topic", topic).
			Int("attempt", attempts).
			Dur("retry_delay", delay).
			Msg("Failed to publish record, retrying")

		if !w.sleep(delay) {
			return fmt.Errorf("worker stopped during retry")
		}

		delay = time.Duration(float64(delay) * w.config.RetryMultiplier)
		if delay > w.config.RetryMax {
			delay = w.config.RetryMax
		}
	}
}

// sleep sleeps for the given duration, checking stopCh.
// Returns true if sleep completed, false if stopped.
func (w *Worker) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-w.stopCh:
		return false
	case <-timer.C:
		return true
	}
}
