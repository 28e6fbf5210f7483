package stream

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vothanachyes/telegram-user-tracking-sub004/event"
)

func TestTargetReset_ReplaysAsAdded(t *testing.T) {
	srv := newScriptedServer(t, serve(
		docChange("notes/a", "x"),
		targetChangeFrame("RESET"),
		docChange("notes/a", "x"),
		targetChangeFrame("CURRENT"),
	))
	c := newTestClient(t, srv.URL, &fakeClock{})
	rec := newRecorder()

	_, err := c.WatchCollection(context.Background(), "notes", rec.callbacks())
	require.NoError(t, err)

	assert.IsType(t, event.Added{}, rec.next(t))
	assert.IsType(t, event.Added{}, rec.next(t))
	rec.expectNone(t, 30*time.Millisecond)
}

func TestTargetRemove_TriggersReconnect(t *testing.T) {
	srv := newScriptedServer(t,
		serve(`{"targetChange":{"targetChangeType":"REMOVE","targetIds":[1],"cause":{"code":7,"message":"permission denied"}}}`),
		serve(docChange("notes/a", "x")),
	)
	clock := &fakeClock{}
	c := newTestClient(t, srv.URL, clock)
	rec := newRecorder()

	id, err := c.WatchCollection(context.Background(), "notes", rec.callbacks())
	require.NoError(t, err)

	assert.IsType(t, event.Added{}, rec.next(t))
	assert.True(t, c.IsListenerActive(id))
	assert.Equal(t, []time.Duration{time.Second}, clock.Waits())
	assert.Equal(t, int32(2), srv.requests.Load())
}

func TestDocumentChange_RemovedTargetIsAbsence(t *testing.T) {
	srv := newScriptedServer(t, serve(
		docChange("notes/a", "x"),
		`{"documentChange":{"document":{"name":"`+docPrefix+`notes/a"},"removedTargetIds":[1]}}`,
		`{"documentRemove":{"document":"`+docPrefix+`notes/a","removedTargetIds":[1]}}`,
		`{"documentChange":{"document":{"name":"`+docPrefix+`notes/zzz"},"removedTargetIds":[1]}}`,
	))
	c := newTestClient(t, srv.URL, &fakeClock{})
	rec := newRecorder()

	_, err := c.WatchCollection(context.Background(), "notes", rec.callbacks())
	require.NoError(t, err)

	assert.IsType(t, event.Added{}, rec.next(t))
	deleted := rec.next(t)
	require.IsType(t, event.Deleted{}, deleted)
	assert.Equal(t, "a", deleted.DocumentID())
	rec.expectNone(t, 30*time.Millisecond)
}

func TestMalformedFrames_DoNotCountAgainstRetries(t *testing.T) {
	frames := make([]string, 0, 20)
	for i := 0; i < 10; i++ {
		frames = append(frames, "{broken")
	}
	frames = append(frames, docChange("notes/a", "x"))

	srv := newScriptedServer(t, serve(frames...))
	clock := &fakeClock{}
	c := newTestClient(t, srv.URL, clock)
	rec := newRecorder()

	id, err := c.WatchCollection(context.Background(), "notes", rec.callbacks())
	require.NoError(t, err)

	assert.IsType(t, event.Added{}, rec.next(t))
	assert.True(t, c.IsListenerActive(id))
	assert.Empty(t, clock.Waits())
}

func TestListenerStates(t *testing.T) {
	srv := newScriptedServer(t, serve(targetChangeFrame("CURRENT")))
	c := newTestClient(t, srv.URL, &fakeClock{})

	_, err := c.WatchCollection(context.Background(), "notes", newRecorder().callbacks())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.ListenerStates()["streaming"] == 1
	}, time.Second, 5*time.Millisecond)

	infos := c.Listeners()
	require.Len(t, infos, 1)
	assert.Equal(t, Transport, infos[0].Transport)
	assert.Equal(t, "collection:notes", infos[0].Target)
}

func TestStatusError(t *testing.T) {
	err := &StatusError{Code: http.StatusUnauthorized, Body: "token expired"}
	assert.Equal(t, "listen request failed with HTTP 401: token expired", err.Error())
	assert.Equal(t, "listen request failed with HTTP 500", (&StatusError{Code: 500}).Error())
}

func TestTargetRemove_WithCauseExhaustsRetries(t *testing.T) {
	srv := newScriptedServer(t,
		serve(`{"targetChange":{"targetChangeType":"REMOVE","targetIds":[1],"cause":{"code":7,"message":"permission denied"}}}`),
	)
	clock := &fakeClock{}
	c := newTestClient(t, srv.URL, clock)

	id, err := c.WatchCollection(context.Background(), "notes", newRecorder().callbacks())
	require.NoError(t, err)
	requireStopped(t, c, id)

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, clock.Waits())
	assert.Equal(t, int32(4), srv.requests.Load())
}

func TestTargetRemove_WithoutCauseKeepsRetrying(t *testing.T) {
	srv := newScriptedServer(t,
		serve(targetChangeFrame("REMOVE")),
		serve(targetChangeFrame("REMOVE")),
		serve(targetChangeFrame("REMOVE")),
		serve(targetChangeFrame("REMOVE")),
		serve(docChange("notes/a", "x")),
	)
	clock := &fakeClock{}
	c := newTestClient(t, srv.URL, clock)
	rec := newRecorder()

	id, err := c.WatchCollection(context.Background(), "notes", rec.callbacks())
	require.NoError(t, err)

	assert.IsType(t, event.Added{}, rec.next(t))
	assert.True(t, c.IsListenerActive(id))
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second, time.Second}, clock.Waits())
}
