// Package managed implements the watch contract on top of an SDK snapshot
// listener, which already delivers typed change records per snapshot.
package managed

import (
	"context"
	"errors"

	"github.com/vothanachyes/telegram-user-tracking-sub004/document"
	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
)

// ErrIteratorDone is returned by iterators that ended without error
var ErrIteratorDone = errors.New("snapshot iterator done")

// ChangeKind is the SDK's label for a change. It is treated as a hint only.
type ChangeKind uint8

const (
	ChangeAdded ChangeKind = iota
	ChangeModified
	ChangeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is one discrete change in a query snapshot
type Change struct {
	Kind ChangeKind
	Doc  document.Snapshot
}

// QuerySnapshot is one delivery of a collection listener: the discrete
// changes plus the ids of every document currently in the result set
type QuerySnapshot struct {
	Changes []Change
	Present map[string]struct{}
}

// DocumentSnapshot is one delivery of a document listener
type DocumentSnapshot struct {
	ID     string
	Exists bool
	Doc    document.Snapshot
}

// QueryIterator yields query snapshots. Next blocks; Stop must not be called
// concurrently with Next.
type QueryIterator interface {
	Next() (*QuerySnapshot, error)
	Stop()
}

// DocumentIterator yields document snapshots
type DocumentIterator interface {
	Next() (*DocumentSnapshot, error)
	Stop()
}

// Source opens native snapshot listeners. Iterators end when ctx is cancelled.
type Source interface {
	Query(ctx context.Context, t target.Target) (QueryIterator, error)
	Document(ctx context.Context, t target.Target) (DocumentIterator, error)
	Close() error
}
