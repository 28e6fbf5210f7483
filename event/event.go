// Package event defines the change events emitted by watch transports and the
// bus that delivers them to in-process subscribers.
package event

import (
	"time"

	"github.com/vothanachyes/telegram-user-tracking-sub004/document"
	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
)

// Event is one of Added, Updated or Deleted
type Event interface {
	Kind() Kind
	Target() target.Target
	DocumentID() string
	CreatedAt() time.Time
}

// now is swapped by tests
var now = time.Now

type header struct {
	target     target.Target
	documentID string
	createdAt  time.Time
}

func newHeader(t target.Target, documentID string) header {
	return header{target: t, documentID: documentID, createdAt: now()}
}

func (h header) Target() target.Target { return h.target }
func (h header) DocumentID() string    { return h.documentID }
func (h header) CreatedAt() time.Time  { return h.createdAt }

// Added reports a document entering the watched result set. After a
// reconnect, documents already known to the consumer are reported again.
type Added struct {
	header
	data document.Snapshot
}

// NewAdded builds an Added event
func NewAdded(t target.Target, data document.Snapshot) Added {
	return Added{header: newHeader(t, data.ID), data: data}
}

func (Added) Kind() Kind                { return KindAdded }
func (e Added) Data() document.Snapshot { return e.data }

// Updated reports a new version of an already observed document
type Updated struct {
	header
	data        document.Snapshot
	previous    document.Snapshot
	hasPrevious bool
}

// NewUpdated builds an Updated event without previous data
func NewUpdated(t target.Target, data document.Snapshot) Updated {
	return Updated{header: newHeader(t, data.ID), data: data}
}

func (Updated) Kind() Kind                { return KindUpdated }
func (e Updated) Data() document.Snapshot { return e.data }

// Previous returns the prior version when the transport could supply it
func (e Updated) Previous() (document.Snapshot, bool) {
	return e.previous, e.hasPrevious
}

// WithPrevious returns a copy carrying prior data
func (e Updated) WithPrevious(p document.Snapshot) Updated {
	e.previous = p
	e.hasPrevious = true
	return e
}

// Deleted reports a document leaving the watched result set
type Deleted struct {
	header
}

// NewDeleted builds a Deleted event
func NewDeleted(t target.Target, documentID string) Deleted {
	return Deleted{header: newHeader(t, documentID)}
}

func (Deleted) Kind() Kind { return KindDeleted }
