package watch

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vothanachyes/telegram-user-tracking-sub004/event"
	"github.com/vothanachyes/telegram-user-tracking-sub004/telemetry"
)

// Emitter delivers classified events to a listener's callbacks and to the
// shared publisher
type Emitter struct {
	publisher Publisher
	transport string
}

// NewEmitter creates an emitter. publisher may be nil.
func NewEmitter(publisher Publisher, transport string) *Emitter {
	return &Emitter{publisher: publisher, transport: transport}
}

// Emit delivers e for h. Events for stopped handles are dropped. A panicking
// callback is logged and does not affect the publisher or the listener.
func (em *Emitter) Emit(h *Handle, e event.Event) {
	if e == nil || !h.Active() {
		return
	}

	telemetry.EventsTotal.With(e.Kind().Short(), em.transport).Inc()
	em.callback(h, e)

	if em.publisher != nil {
		em.publisher.Publish(e)
	}
}

func (em *Emitter) callback(h *Handle, e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Err(fmt.Errorf("callback panic: %v", r)).
				Str("listener", string(h.ID())).
				Str("kind", string(e.Kind())).
				Str("document_id", e.DocumentID()).
				Msg("Listener callback failed")
		}
	}()

	cb := h.Callbacks()
	switch ev := e.(type) {
	case event.Added:
		if cb.OnAdded != nil {
			cb.OnAdded(ev)
		}
	case event.Updated:
		if cb.OnUpdated != nil {
			cb.OnUpdated(ev)
		}
	case event.Deleted:
		if cb.OnDeleted != nil {
			cb.OnDeleted(ev)
		}
	}
}
