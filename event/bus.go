package event

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/vothanachyes/telegram-user-tracking-sub004/telemetry"
)

// Handler receives published events
type Handler interface {
	Handle(e Event) error
}

// HandlerFunc adapts a function to Handler. Function handlers cannot be
// compared, so they are removed through the cancel func returned by Subscribe.
type HandlerFunc func(e Event) error

func (f HandlerFunc) Handle(e Event) error { return f(e) }

// ErrorHandler observes handler failures after they are logged
type ErrorHandler func(e Event, err error)

// subscriptionKey identifies a non-comparable handler
type subscriptionKey struct{ id uint64 }

type subscription struct {
	id      uint64
	kind    Kind
	handler Handler
	key     any
	onClose func()
}

// Bus is a synchronous publish/subscribe hub keyed by event kind.
// Thread-safe. Handlers run on the publishing goroutine in subscription order.
type Bus struct {
	mu      sync.RWMutex
	subs    map[Kind][]*subscription
	nextID  atomic.Uint64
	onError ErrorHandler
}

// BusOption configures a Bus
type BusOption func(*Bus)

// WithErrorHandler installs a hook called for every failed handler invocation
func WithErrorHandler(fn ErrorHandler) BusOption {
	return func(b *Bus) { b.onError = fn }
}

// NewBus creates an empty bus
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{subs: make(map[Kind][]*subscription)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// handlerKey returns the identity used for dedup. Handlers whose value can be
// compared without panicking are identified by value, everything else by
// subscription.
func handlerKey(h Handler, id uint64) any {
	if comparableHandler(h) {
		return h
	}
	return subscriptionKey{id: id}
}

// comparableHandler inspects the dynamic value, so a struct holding a func in an
// interface field is rejected even though its type is comparable
func comparableHandler(h Handler) bool {
	return reflect.ValueOf(h).Comparable()
}

// Subscribe registers h for kind and every kind below it. Subscribing the same
// comparable handler twice for one kind is a no-op. The returned cancel func
// is idempotent.
func (b *Bus) Subscribe(kind Kind, h Handler) (cancel func()) {
	return b.subscribe(kind, h, nil)
}

// SubscribeFunc is Subscribe for plain functions
func (b *Bus) SubscribeFunc(kind Kind, fn func(e Event) error) (cancel func()) {
	return b.subscribe(kind, HandlerFunc(fn), nil)
}

func (b *Bus) subscribe(kind Kind, h Handler, onClose func()) func() {
	if h == nil {
		return func() {}
	}

	id := b.nextID.Add(1)
	sub := &subscription{id: id, kind: kind, handler: h, key: handlerKey(h, id), onClose: onClose}

	existing := b.insert(sub)
	return func() { b.remove(kind, existing) }
}

// insert adds sub unless an equal handler is already subscribed to its kind.
// Returns the id of the subscription that holds the handler.
func (b *Bus) insert(sub *subscription) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.subs[sub.kind] {
		if existing.key == sub.key {
			return existing.id
		}
	}
	b.subs[sub.kind] = append(b.subs[sub.kind], sub)
	return sub.id
}

// Unsubscribe removes h from kind. Absent handlers are ignored. Only handlers
// that compare by value can be found this way; function handlers and structs
// holding funcs must be removed with the cancel func returned by Subscribe.
func (b *Bus) Unsubscribe(kind Kind, h Handler) {
	if h == nil {
		return
	}
	if !comparableHandler(h) {
		log.Debug().
			Str("kind", string(kind)).
			Str("handler", fmt.Sprintf("%T", h)).
			Msg("Unsubscribe ignored for non-comparable handler, use the cancel func")
		return
	}

	if id := b.lookup(kind, h); id != 0 {
		b.remove(kind, id)
	}
}

func (b *Bus) lookup(kind Kind, h Handler) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs[kind] {
		if sub.key == any(h) {
			return sub.id
		}
	}
	return 0
}

func (b *Bus) remove(kind Kind, id uint64) {
	if removed := b.detach(kind, id); removed != nil && removed.onClose != nil {
		removed.onClose()
	}
}

func (b *Bus) detach(kind Kind, id uint64) *subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[kind]
	for i, sub := range subs {
		if sub.id != id {
			continue
		}
		b.subs[kind] = append(subs[:i:i], subs[i+1:]...)
		if len(b.subs[kind]) == 0 {
			delete(b.subs, kind)
		}
		return sub
	}
	return nil
}

// Publish delivers e to every handler subscribed along its kind chain,
// most specific kind first. A handler registered at several levels runs
// once. Handler errors and panics are isolated and reported.
func (b *Bus) Publish(e Event) {
	if e == nil {
		return
	}

	for _, sub := range b.targets(e.Kind()) {
		b.invoke(sub, e)
	}
}

// targets snapshots the subscriptions along kind's chain, most specific first
func (b *Bus) targets(kind Kind) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*subscription
	seen := make(map[any]struct{})
	for _, k := range kind.Chain() {
		for _, sub := range b.subs[k] {
			if _, dup := seen[sub.key]; dup {
				continue
			}
			seen[sub.key] = struct{}{}
			out = append(out, sub)
		}
	}
	return out
}

func (b *Bus) invoke(sub *subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.fail(sub, e, fmt.Errorf("handler panic: %v", r))
		}
	}()

	if err := sub.handler.Handle(e); err != nil {
		b.fail(sub, e, err)
	}
}

func (b *Bus) fail(sub *subscription, e Event, err error) {
	telemetry.BusHandlerFailuresTotal.With(string(e.Kind())).Inc()

	log.Warn().
		Err(err).
		Str("kind", string(e.Kind())).
		Str("subscribed_kind", string(sub.kind)).
		Str("target", e.Target().String()).
		Str("document_id", e.DocumentID()).
		Msg("Event handler failed")

	if b.onError != nil {
		b.onError(e, err)
	}
}

// Clear drops every subscription. Channel subscribers are closed.
func (b *Bus) Clear() {
	for _, subs := range b.reset() {
		for _, sub := range subs {
			if sub.onClose != nil {
				sub.onClose()
			}
		}
	}
}

func (b *Bus) reset() map[Kind][]*subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	old := b.subs
	b.subs = make(map[Kind][]*subscription)
	return old
}

// SubscriberCount returns the number of handlers subscribed directly to kind
func (b *Bus) SubscriberCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}
