// Package classify turns presence and absence signals from a watch stream into
// added, updated and deleted events using a per-listener seen-set.
package classify

import (
	"sort"

	"github.com/vothanachyes/telegram-user-tracking-sub004/document"
	"github.com/vothanachyes/telegram-user-tracking-sub004/event"
	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
)

// Classifier tracks which documents a listener has reported present.
// Not safe for concurrent use; each listener goroutine owns its classifier.
type Classifier struct {
	target target.Target
	seen   map[string]struct{}
}

// New creates an empty classifier for t
func New(t target.Target) *Classifier {
	return &Classifier{target: t, seen: make(map[string]struct{})}
}

// Target returns the watched target
func (c *Classifier) Target() target.Target { return c.target }

// ClassifyPresence reports data as present. Unseen documents yield Added and
// are marked seen, seen documents yield Updated without previous data.
func (c *Classifier) ClassifyPresence(data document.Snapshot) event.Event {
	if _, ok := c.seen[data.ID]; ok {
		return event.NewUpdated(c.target, data)
	}
	c.seen[data.ID] = struct{}{}
	return event.NewAdded(c.target, data)
}

// ClassifyAbsence reports a document as gone. Only seen documents yield a
// Deleted event, so repeated removals are reported once.
func (c *Classifier) ClassifyAbsence(documentID string) (event.Deleted, bool) {
	if _, ok := c.seen[documentID]; !ok {
		return event.Deleted{}, false
	}
	delete(c.seen, documentID)
	return event.NewDeleted(c.target, documentID), true
}

// Reconcile compares the seen-set against the full set of ids in the latest
// snapshot. Every seen id missing from current is removed and reported,
// ordered by id.
func (c *Classifier) Reconcile(current map[string]struct{}) []event.Deleted {
	var gone []string
	for id := range c.seen {
		if _, ok := current[id]; !ok {
			gone = append(gone, id)
		}
	}
	if len(gone) == 0 {
		return nil
	}

	sort.Strings(gone)
	out := make([]event.Deleted, len(gone))
	for i, id := range gone {
		delete(c.seen, id)
		out[i] = event.NewDeleted(c.target, id)
	}
	return out
}

// Reset forgets every document. The next presence of any document yields Added.
func (c *Classifier) Reset() {
	clear(c.seen)
}

// Len returns the number of documents currently marked seen
func (c *Classifier) Len() int { return len(c.seen) }

// Seen reports whether documentID is marked seen
func (c *Classifier) Seen(documentID string) bool {
	_, ok := c.seen[documentID]
	return ok
}

// IDs builds a set from document ids, for Reconcile
func IDs(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
