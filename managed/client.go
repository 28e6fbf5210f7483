package managed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vothanachyes/telegram-user-tracking-sub004/classify"
	"github.com/vothanachyes/telegram-user-tracking-sub004/document"
	"github.com/vothanachyes/telegram-user-tracking-sub004/event"
	"github.com/vothanachyes/telegram-user-tracking-sub004/id"
	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
	"github.com/vothanachyes/telegram-user-tracking-sub004/watch"
)

// Transport is the label used in telemetry and listener info
const Transport = "managed"

const drainTimeout = 5 * time.Second

// Config controls the managed transport
type Config struct {
	PreviousCacheSize int // documents remembered per listener for Updated.Previous; 0 disables
}

// Options carries the client's collaborators
type Options struct {
	Publisher watch.Publisher
	IDs       id.Generator
}

// Client watches targets through a Source
type Client struct {
	source   Source
	conf     Config
	ids      id.Generator
	registry *watch.Registry
	emitter  *watch.Emitter
	closed   atomic.Bool
}

var _ watch.Service = (*Client)(nil)
var _ watch.Inspector = (*Client)(nil)

// NewClient creates a managed watch client over source
func NewClient(source Source, conf Config, opts Options) *Client {
	if opts.IDs == nil {
		opts.IDs = id.NewULIDGenerator()
	}
	return &Client{
		source:   source,
		conf:     conf,
		ids:      opts.IDs,
		registry: watch.NewRegistry(Transport),
		emitter:  watch.NewEmitter(opts.Publisher, Transport),
	}
}

// Available reports whether a source is configured and the client is open
func (c *Client) Available() bool {
	return c.source != nil && !c.closed.Load()
}

// WatchCollection registers a query snapshot listener
func (c *Client) WatchCollection(ctx context.Context, path string, cb watch.Callbacks, filters ...target.Filter) (watch.ListenerID, error) {
	if !c.Available() {
		return watch.NoListener, nil
	}

	t, err := target.Collection(path, filters...)
	if err != nil {
		return watch.NoListener, err
	}

	l, lctx := c.newListener(t, cb)
	it, err := c.source.Query(lctx, t)
	if err != nil {
		l.handle.Stop()
		return watch.NoListener, fmt.Errorf("open snapshot listener for %s: %w", t, err)
	}

	if !c.start(l, func() { l.runQuery(lctx, it) }) {
		return watch.NoListener, nil
	}
	return l.handle.ID(), nil
}

// WatchDocument registers a document snapshot listener
func (c *Client) WatchDocument(ctx context.Context, path string, onUpdated func(event.Updated)) (watch.ListenerID, error) {
	if !c.Available() {
		return watch.NoListener, nil
	}

	t, err := target.Document(path)
	if err != nil {
		return watch.NoListener, err
	}

	l, lctx := c.newListener(t, watch.DocumentCallbacks(onUpdated))
	it, err := c.source.Document(lctx, t)
	if err != nil {
		l.handle.Stop()
		return watch.NoListener, fmt.Errorf("open snapshot listener for %s: %w", t, err)
	}

	if !c.start(l, func() { l.runDocument(lctx, it) }) {
		return watch.NoListener, nil
	}
	return l.handle.ID(), nil
}

func (c *Client) newListener(t target.Target, cb watch.Callbacks) (*listener, context.Context) {
	lctx, cancel := context.WithCancel(context.Background())
	h := watch.NewHandle(watch.ListenerID(c.ids.NextID()), t, Transport, cb, cancel)
	h.SetState(watch.StateConnecting)

	l := &listener{
		client:     c,
		handle:     h,
		classifier: classify.New(t),
		logger:     log.With().Str("listener", string(h.ID())).Str("target", t.String()).Logger(),
	}
	if c.conf.PreviousCacheSize > 0 {
		// Size is positive so New cannot fail
		l.previous, _ = lru.New[string, document.Snapshot](c.conf.PreviousCacheSize)
	}
	return l, lctx
}

// start registers and runs l. Returns false when Close raced the
// registration, in which case l is already released.
func (c *Client) start(l *listener, run func()) bool {
	c.registry.Add(l.handle)
	go run()
	if c.closed.Load() {
		c.registry.Release(l.handle, watch.StopClosed)
		return false
	}
	l.logger.Info().Msg("Listener started")
	return true
}

// StopListener stops a listener without waiting for its goroutine
func (c *Client) StopListener(id watch.ListenerID) bool {
	stopped := c.registry.StopListener(id)
	if stopped {
		log.Info().Str("listener", string(id)).Msg("Listener stopped")
	}
	return stopped
}

// StopAllListeners stops every listener
func (c *Client) StopAllListeners() {
	c.registry.StopAllListeners()
}

// IsListenerActive reports whether id is running
func (c *Client) IsListenerActive(id watch.ListenerID) bool {
	return c.registry.IsListenerActive(id)
}

// ActiveListeners returns the running listener ids
func (c *Client) ActiveListeners() []watch.ListenerID {
	return c.registry.ActiveListeners()
}

// Listeners returns diagnostics for every listener
func (c *Client) Listeners() []watch.Info {
	return c.registry.Listeners()
}

// ListenerStates implements telemetry.StateLister
func (c *Client) ListenerStates() map[string]int {
	return c.registry.ListenerStates()
}

// Close stops every listener, waits briefly for them and closes the source
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	if !c.registry.Drain(drainTimeout) {
		errs = append(errs, fmt.Errorf("managed listeners did not exit within %s", drainTimeout))
	}
	if c.source != nil {
		if err := c.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close snapshot source: %w", err))
		}
	}
	return errors.Join(errs...)
}

// listener owns one snapshot iterator. Only its goroutine touches the
// classifier and cache.
type listener struct {
	client     *Client
	handle     *watch.Handle
	classifier *classify.Classifier
	previous   *lru.Cache[string, document.Snapshot]
	logger     zerolog.Logger
}

func (l *listener) stopped(ctx context.Context) bool {
	return !l.handle.Active() || ctx.Err() != nil
}

func (l *listener) runQuery(ctx context.Context, it QueryIterator) {
	defer l.handle.Finish()
	defer it.Stop()

	for {
		snap, err := it.Next()
		if l.stopped(ctx) {
			return
		}
		if err != nil {
			l.terminate(err)
			return
		}
		l.handle.SetState(watch.StateStreaming)
		l.applyQuery(snap)
	}
}

func (l *listener) runDocument(ctx context.Context, it DocumentIterator) {
	defer l.handle.Finish()
	defer it.Stop()

	for {
		snap, err := it.Next()
		if l.stopped(ctx) {
			return
		}
		if err != nil {
			l.terminate(err)
			return
		}
		l.handle.SetState(watch.StateStreaming)

		if snap.Exists {
			l.presence(snap.Doc)
		} else {
			l.absence(snap.ID)
		}
	}
}

// applyQuery classifies every discrete change, then reconciles against the
// full result set to catch documents that left without a removal record
func (l *listener) applyQuery(snap *QuerySnapshot) {
	for _, ch := range snap.Changes {
		if ch.Kind == ChangeRemoved {
			l.absence(ch.Doc.ID)
			continue
		}
		l.presence(ch.Doc)
	}

	for _, d := range l.classifier.Reconcile(snap.Present) {
		l.forget(d.DocumentID())
		l.client.emitter.Emit(l.handle, d)
	}
}

func (l *listener) presence(doc document.Snapshot) {
	e := l.classifier.ClassifyPresence(doc)
	if l.previous != nil {
		if u, ok := e.(event.Updated); ok {
			if prev, found := l.previous.Get(doc.ID); found {
				e = u.WithPrevious(prev)
			}
		}
		l.previous.Add(doc.ID, doc)
	}
	l.client.emitter.Emit(l.handle, e)
}

func (l *listener) absence(documentID string) {
	l.forget(documentID)
	if d, ok := l.classifier.ClassifyAbsence(documentID); ok {
		l.client.emitter.Emit(l.handle, d)
	}
}

func (l *listener) forget(documentID string) {
	if l.previous != nil {
		l.previous.Remove(documentID)
	}
}

// terminate stops the listener after the iterator failed. The SDK retries
// transient errors itself, so anything surfacing here is final.
func (l *listener) terminate(err error) {
	if errors.Is(err, ErrIteratorDone) || errors.Is(err, context.Canceled) {
		l.logger.Info().Err(err).Msg("Snapshot listener ended")
	} else {
		l.logger.Error().Err(err).Msg("Snapshot listener failed")
	}
	l.client.registry.Release(l.handle, watch.StopFailed)
}
