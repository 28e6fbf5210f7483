package watch

import (
	"context"

	"github.com/vothanachyes/telegram-user-tracking-sub004/event"
	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
)

// Noop is the transport used when real-time watching is disabled or cannot
// be configured. Every call returns immediately with an empty result.
type Noop struct{}

var _ Service = Noop{}

func (Noop) WatchCollection(context.Context, string, Callbacks, ...target.Filter) (ListenerID, error) {
	return NoListener, nil
}

func (Noop) WatchDocument(context.Context, string, func(event.Updated)) (ListenerID, error) {
	return NoListener, nil
}

func (Noop) StopListener(ListenerID) bool     { return false }
func (Noop) StopAllListeners()                {}
func (Noop) IsListenerActive(ListenerID) bool { return false }
func (Noop) ActiveListeners() []ListenerID    { return nil }
func (Noop) Available() bool                  { return false }
func (Noop) Close() error                     { return nil }
func (Noop) Listeners() []Info                { return nil }
