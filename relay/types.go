package relay

import (
	"github.com/vothanachyes/telegram-user-tracking-sub004/document"
	"github.com/vothanachyes/telegram-user-tracking-sub004/event"
)

// Operation types for relay records
const (
	OpAdded   uint8 = 0
	OpUpdated uint8 = 1
	OpDeleted uint8 = 2
)

// Record is the broker-facing form of a change event
type Record struct {
	Operation  uint8          `msgpack:"op"`
	Source     string         `msgpack:"src"`  // Instance that observed the change
	Target     string         `msgpack:"tgt"`  // Listener target, e.g. collection:notes
	Collection string         `msgpack:"coll"` // Collection path of the document
	DocumentID string         `msgpack:"id"`
	Before     map[string]any `msgpack:"before"` // Previous data when known
	After      map[string]any `msgpack:"after"`  // Nil for deletes
	ObservedMS int64          `msgpack:"ts"`     // Event creation time (unix ms)
}

// Path returns the document path relative to the database root
func (r Record) Path() string {
	if r.Collection == "" {
		return r.DocumentID
	}
	return r.Collection + "/" + r.DocumentID
}

// RecordFromEvent converts a change event. The second result is false for
// events that are not document changes.
func RecordFromEvent(source string, e event.Event) (Record, bool) {
	rec := Record{
		Source:     source,
		Target:     e.Target().String(),
		Collection: e.Target().CollectionPath(),
		DocumentID: e.DocumentID(),
		ObservedMS: e.CreatedAt().UnixMilli(),
	}

	switch ev := e.(type) {
	case event.Added:
		rec.Operation = OpAdded
		rec.Collection = collectionOf(ev.Data(), rec.Collection)
		rec.After = ev.Data().Data()
	case event.Updated:
		rec.Operation = OpUpdated
		rec.Collection = collectionOf(ev.Data(), rec.Collection)
		rec.After = ev.Data().Data()
		if prev, ok := ev.Previous(); ok {
			rec.Before = prev.Data()
		}
	case event.Deleted:
		rec.Operation = OpDeleted
	default:
		return Record{}, false
	}
	return rec, true
}

func collectionOf(snap document.Snapshot, fallback string) string {
	if snap.Path == "" {
		return fallback
	}
	return document.Parent(snap.Path)
}

// Sink represents a destination for relay records (e.g., Kafka, NATS)
type Sink interface {
	// Publish sends a message to the sink. A nil value is a tombstone.
	Publish(topic string, key string, value []byte) error
	// Close releases any resources held by the sink
	Close() error
}

// Transformer converts records to a sink payload
type Transformer interface {
	// Transform encodes a record for publishing
	Transform(rec Record) ([]byte, error)
	// Tombstone creates a delete marker for the given key
	Tombstone(key string) []byte
}

// Filter determines whether a record should be published
type Filter interface {
	// Match returns true if records for the collection should be published
	Match(collection string) bool
}
