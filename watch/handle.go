package watch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
)

// Handle is the runtime record of one listener. The active flag and state may
// be read from any goroutine; everything else belongs to the listener's goroutine.
type Handle struct {
	id        ListenerID
	target    target.Target
	transport string
	callbacks Callbacks
	startedAt time.Time

	active atomic.Bool
	state  atomic.Value // State
	cancel context.CancelFunc

	done     chan struct{}
	doneOnce sync.Once

	releaseMu sync.Mutex
	onRelease []func()
}

// NewHandle creates an active handle. cancel aborts the listener's context.
func NewHandle(id ListenerID, t target.Target, transport string, cb Callbacks, cancel context.CancelFunc) *Handle {
	h := &Handle{
		id:        id,
		target:    t,
		transport: transport,
		callbacks: cb,
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	h.active.Store(true)
	h.state.Store(StateIdle)
	return h
}

func (h *Handle) ID() ListenerID        { return h.id }
func (h *Handle) Target() target.Target { return h.target }
func (h *Handle) Transport() string     { return h.transport }
func (h *Handle) Callbacks() Callbacks  { return h.callbacks }
func (h *Handle) StartedAt() time.Time  { return h.startedAt }
func (h *Handle) Active() bool          { return h.active.Load() }
func (h *Handle) Done() <-chan struct{} { return h.done }
func (h *Handle) State() State          { return h.state.Load().(State) }

// SetState records a state transition. Stopped is sticky.
func (h *Handle) SetState(s State) {
	if !h.active.Load() && s != StateStopped {
		return
	}
	h.state.Store(s)
}

// OnRelease registers fn to run once when the handle stops. If the handle is
// already stopped, fn runs immediately.
func (h *Handle) OnRelease(fn func()) {
	h.releaseMu.Lock()
	if h.active.Load() {
		h.onRelease = append(h.onRelease, fn)
		h.releaseMu.Unlock()
		return
	}
	h.releaseMu.Unlock()
	fn()
}

// Stop deactivates the handle, cancels its context and runs release hooks.
// It does not wait for the listener goroutine. Returns false if already stopped.
func (h *Handle) Stop() bool {
	if !h.active.CompareAndSwap(true, false) {
		return false
	}
	h.state.Store(StateStopped)

	if h.cancel != nil {
		h.cancel()
	}

	h.releaseMu.Lock()
	hooks := h.onRelease
	h.onRelease = nil
	h.releaseMu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return true
}

// Finish marks the listener goroutine as exited
func (h *Handle) Finish() {
	h.doneOnce.Do(func() { close(h.done) })
}

// Info describes the handle for diagnostics
func (h *Handle) Info() Info {
	return Info{
		ID:        h.id,
		Target:    h.target.String(),
		Kind:      h.target.Kind().String(),
		Transport: h.transport,
		State:     h.State(),
		StartedAt: h.startedAt,
	}
}
