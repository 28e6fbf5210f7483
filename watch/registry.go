package watch

import (
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"

	"github.com/vothanachyes/telegram-user-tracking-sub004/telemetry"
)

// Registry tracks the live listeners of one transport. Safe for concurrent
// insert, removal and lookup from any goroutine.
type Registry struct {
	transport string
	handles   *xsync.MapOf[ListenerID, *Handle]
}

// NewRegistry creates an empty registry labelled with the transport name
func NewRegistry(transport string) *Registry {
	return &Registry{
		transport: transport,
		handles:   xsync.NewMapOf[ListenerID, *Handle](),
	}
}

// Add registers an active handle
func (r *Registry) Add(h *Handle) {
	if _, loaded := r.handles.LoadOrStore(h.ID(), h); loaded {
		log.Warn().Str("listener", string(h.ID())).Msg("Duplicate listener ID ignored")
		return
	}
	telemetry.ListenersActive.With(r.transport).Inc()
}

// Get returns the handle for id
func (r *Registry) Get(id ListenerID) (*Handle, bool) {
	return r.handles.Load(id)
}

// Release stops h and removes it from the registry, recording reason.
// Returns false when h was already released.
func (r *Registry) Release(h *Handle, reason string) bool {
	h.Stop()

	removed := false
	r.handles.Compute(h.ID(), func(cur *Handle, loaded bool) (*Handle, bool) {
		if loaded && cur == h {
			removed = true
			return nil, true
		}
		return cur, !loaded
	})
	if !removed {
		return false
	}

	telemetry.ListenersActive.With(r.transport).Dec()
	telemetry.ListenerStopsTotal.With(reason).Inc()
	log.Debug().
		Str("listener", string(h.ID())).
		Str("target", h.Target().String()).
		Str("reason", reason).
		Msg("Listener released")
	return true
}

// StopListener stops and removes the listener. Unknown or already stopped
// ids return false.
func (r *Registry) StopListener(id ListenerID) bool {
	h, ok := r.handles.Load(id)
	if !ok {
		return false
	}
	return r.Release(h, StopExplicit)
}

// StopAllListeners stops every registered listener
func (r *Registry) StopAllListeners() {
	r.stopAll(StopExplicit)
}

func (r *Registry) stopAll(reason string) []*Handle {
	var handles []*Handle
	r.handles.Range(func(_ ListenerID, h *Handle) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		r.Release(h, reason)
	}
	return handles
}

// Drain stops every listener and waits up to timeout for their goroutines
// to exit. Returns false on timeout.
func (r *Registry) Drain(timeout time.Duration) bool {
	handles := r.stopAll(StopClosed)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for _, h := range handles {
		select {
		case <-h.Done():
		case <-deadline.C:
			log.Warn().Int("listeners", len(handles)).Msg("Timed out waiting for listeners to exit")
			return false
		}
	}
	return true
}

// IsListenerActive reports whether id is registered and active
func (r *Registry) IsListenerActive(id ListenerID) bool {
	h, ok := r.handles.Load(id)
	return ok && h.Active()
}

// ActiveListeners returns the ids of active listeners in creation order
func (r *Registry) ActiveListeners() []ListenerID {
	ids := make([]ListenerID, 0, r.handles.Size())
	r.handles.Range(func(id ListenerID, h *Handle) bool {
		if h.Active() {
			ids = append(ids, id)
		}
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of registered listeners
func (r *Registry) Len() int {
	return r.handles.Size()
}

// Listeners implements Inspector
func (r *Registry) Listeners() []Info {
	infos := make([]Info, 0, r.handles.Size())
	r.handles.Range(func(_ ListenerID, h *Handle) bool {
		infos = append(infos, h.Info())
		return true
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// ListenerStates implements telemetry.StateLister
func (r *Registry) ListenerStates() map[string]int {
	states := make(map[string]int)
	r.handles.Range(func(_ ListenerID, h *Handle) bool {
		states[string(h.State())]++
		return true
	})
	return states
}
