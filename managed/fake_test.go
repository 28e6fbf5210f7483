package managed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vothanachyes/telegram-user-tracking-sub004/document"
	"github.com/vothanachyes/telegram-user-tracking-sub004/event"
	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
	"github.com/vothanachyes/telegram-user-tracking-sub004/watch"
)

type delivery[T any] struct {
	snap *T
	err  error
}

// fakeIterator hands out scripted deliveries until its context ends
type fakeIterator[T any] struct {
	ctx     context.Context
	ch      chan delivery[T]
	stopped atomic.Bool
}

func (it *fakeIterator[T]) Next() (*T, error) {
	select {
	case d := <-it.ch:
		return d.snap, d.err
	case <-it.ctx.Done():
		return nil, context.Canceled
	}
}

func (it *fakeIterator[T]) Stop() { it.stopped.Store(true) }

// fakeSource records every iterator it opens
type fakeSource struct {
	mu       sync.Mutex
	queries  []*fakeIterator[QuerySnapshot]
	docs     []*fakeIterator[DocumentSnapshot]
	targets  []target.Target
	openErr  error
	onOpen   func()
	closed   atomic.Bool
	closeErr error
}

func (s *fakeSource) Query(ctx context.Context, t target.Target) (QueryIterator, error) {
	if s.onOpen != nil {
		s.onOpen()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	it := &fakeIterator[QuerySnapshot]{ctx: ctx, ch: make(chan delivery[QuerySnapshot], 8)}
	s.queries = append(s.queries, it)
	s.targets = append(s.targets, t)
	return it, nil
}

func (s *fakeSource) Document(ctx context.Context, t target.Target) (DocumentIterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	it := &fakeIterator[DocumentSnapshot]{ctx: ctx, ch: make(chan delivery[DocumentSnapshot], 8)}
	s.docs = append(s.docs, it)
	s.targets = append(s.targets, t)
	return it, nil
}

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return s.closeErr
}

func (s *fakeSource) query(i int) *fakeIterator[QuerySnapshot] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[i]
}

func (s *fakeSource) doc(i int) *fakeIterator[DocumentSnapshot] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[i]
}

func snapshot(path, title string) document.Snapshot {
	return document.NewSnapshot(path, map[string]document.Value{"title": document.StringValue(title)})
}

func changes(present []string, cs ...Change) delivery[QuerySnapshot] {
	p := make(map[string]struct{}, len(present))
	for _, id := range present {
		p[id] = struct{}{}
	}
	return delivery[QuerySnapshot]{snap: &QuerySnapshot{Changes: cs, Present: p}}
}

func added(path, title string) Change {
	return Change{Kind: ChangeAdded, Doc: snapshot(path, title)}
}

func modified(path, title string) Change {
	return Change{Kind: ChangeModified, Doc: snapshot(path, title)}
}

func removed(path string) Change {
	return Change{Kind: ChangeRemoved, Doc: document.NewSnapshot(path, nil)}
}

var errBoom = errors.New("boom")

// recorder collects callback events in order
type recorder struct {
	events chan event.Event
}

func newRecorder() *recorder {
	return &recorder{events: make(chan event.Event, 64)}
}

func (r *recorder) callbacks() watch.Callbacks {
	return watch.Callbacks{
		OnAdded:   func(e event.Added) { r.events <- e },
		OnUpdated: func(e event.Updated) { r.events <- e },
		OnDeleted: func(e event.Deleted) { r.events <- e },
	}
}

func (r *recorder) next(t *testing.T) event.Event {
	t.Helper()
	select {
	case e := <-r.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

func (r *recorder) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case e := <-r.events:
		t.Fatalf("unexpected event %s for %s", e.Kind(), e.DocumentID())
	case <-time.After(wait):
	}
}
