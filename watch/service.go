// Package watch defines the contract shared by the watch transports, along
// with the listener bookkeeping both of them use.
package watch

import (
	"context"
	"errors"

	"github.com/vothanachyes/telegram-user-tracking-sub004/event"
	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
)

var (
	// ErrUnavailable is returned when a transport was requested explicitly but cannot run
	ErrUnavailable = errors.New("real-time watch unavailable")

	// ErrNoCredentials is returned when no credential source is configured
	ErrNoCredentials = errors.New("no watch credentials configured")

	// ErrInvalidPath and ErrInvalidFilter are returned synchronously by watch calls
	ErrInvalidPath   = target.ErrInvalidPath
	ErrInvalidFilter = target.ErrInvalidFilter
)

// ListenerID is an opaque, process-unique listener handle
type ListenerID string

// NoListener is returned by watch calls when watching is unavailable
const NoListener ListenerID = ""

// Callbacks receive the events of one listener on its own goroutine, in
// wire order. Nil callbacks are skipped.
type Callbacks struct {
	OnAdded   func(event.Added)
	OnUpdated func(event.Updated)
	OnDeleted func(event.Deleted)
}

// DocumentCallbacks routes every presence of a watched document to onUpdated,
// including the first sighting.
func DocumentCallbacks(onUpdated func(event.Updated)) Callbacks {
	if onUpdated == nil {
		return Callbacks{}
	}
	return Callbacks{
		OnAdded: func(e event.Added) {
			onUpdated(event.NewUpdated(e.Target(), e.Data()))
		},
		OnUpdated: onUpdated,
	}
}

// Service is the watch facade implemented by every transport.
//
// While Available reports false, watch calls return NoListener and a nil
// error without touching the network, so callers can fall back to polling.
// After a watch call succeeds, stream failures are handled internally and
// never reported to the caller.
type Service interface {
	WatchCollection(ctx context.Context, path string, cb Callbacks, filters ...target.Filter) (ListenerID, error)
	WatchDocument(ctx context.Context, path string, onUpdated func(event.Updated)) (ListenerID, error)
	StopListener(id ListenerID) bool
	StopAllListeners()
	IsListenerActive(id ListenerID) bool
	ActiveListeners() []ListenerID
	Available() bool
	Close() error
}

// Publisher receives every emitted event, typically an *event.Bus
type Publisher interface {
	Publish(e event.Event)
}
