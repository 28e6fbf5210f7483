package stream

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/vothanachyes/telegram-user-tracking-sub004/event"
	"github.com/vothanachyes/telegram-user-tracking-sub004/watch"
)

// fakeClock records requested waits and fires immediately
type fakeClock struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (c *fakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

// scriptedServer answers the n-th listen request with handlers[n], repeating
// the last handler once the script runs out
type scriptedServer struct {
	*httptest.Server
	requests atomic.Int32
	handlers []http.HandlerFunc
}

func newScriptedServer(t *testing.T, handlers ...http.HandlerFunc) *scriptedServer {
	t.Helper()
	s := &scriptedServer{handlers: handlers}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(s.requests.Add(1)) - 1
		if n >= len(s.handlers) {
			n = len(s.handlers) - 1
		}
		s.handlers[n](w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

const docPrefix = "projects/demo/databases/(default)/documents/"

func docChange(path string, title string) string {
	return fmt.Sprintf(`{"documentChange":{"document":{"name":"%s%s","fields":{"title":{"stringValue":%q}},"updateTime":"2024-01-01T00:00:00Z"},"targetIds":[1]}}`,
		docPrefix, path, title)
}

func docDelete(path string) string {
	return fmt.Sprintf(`{"documentDelete":{"document":"%s%s","removedTargetIds":[1]}}`, docPrefix, path)
}

func targetChangeFrame(kind string) string {
	return fmt.Sprintf(`{"targetChange":{"targetChangeType":%q,"targetIds":[1]}}`, kind)
}

// serve writes frames, flushes, then holds the stream open until the client leaves
func serve(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		for _, f := range frames {
			fmt.Fprintln(w, f)
		}
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}
}

// serveAndClose writes frames then ends the response
func serveAndClose(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		for _, f := range frames {
			fmt.Fprintln(w, f)
		}
	}
}

func fail(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", code)
	}
}

func newTestClient(t *testing.T, baseURL string, clock Clock) *Client {
	t.Helper()
	c := NewClient(Config{
		ProjectID:      "demo",
		BaseURL:        baseURL,
		ConnectTimeout: 2 * time.Second,
		InitialBackoff: time.Second,
		Multiplier:     2,
		MaxRetries:     3,
	}, Options{
		Tokens: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}),
		Clock:  clock,
	})
	t.Cleanup(func() { c.Close() })
	return c
}

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

func requireStopped(t *testing.T, c *Client, id watch.ListenerID) {
	t.Helper()
	require.Eventually(t, func() bool { return !c.IsListenerActive(id) }, 2*time.Second, 5*time.Millisecond)
}
