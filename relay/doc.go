// Package relay mirrors change events from the event bus to external
// brokers.
//
// Each configured sink gets a Worker with its own bounded queue. The bus
// handler never blocks: when a sink's queue is full the record is dropped
// and counted. Workers publish with exponential backoff and, for deletes,
// follow the delete record with a tombstone so compacted topics forget the
// document.
//
// # Topics
//
// Records are published to
//
//	{topic_prefix}.{collection path with "/" replaced by "."}
//
// keyed by document id. A change to users/u1/notifications/n7 with prefix
// "docwatch" lands on docwatch.users.u1.notifications under key n7.
//
// # Filters
//
// GlobFilter restricts a sink to collection paths matching
// github.com/gobwas/glob patterns, with "/" as the separator:
//
//	filter, err := NewGlobFilter([]string{"users/*/notifications", "settings"})
//
// An empty pattern list matches every collection.
//
// # Extending
//
// Sinks and transformers register themselves by name from init functions,
// see RegisterSink and RegisterTransformer. The relay/sink and
// relay/transformer packages provide nats, kafka, json and msgpack.
package relay
