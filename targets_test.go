package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vothanachyes/telegram-user-tracking-sub004/cfg"
	"github.com/vothanachyes/telegram-user-tracking-sub004/event"
	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
	"github.com/vothanachyes/telegram-user-tracking-sub004/watch"
)

type recordingService struct {
	watch.Noop
	collections []string
	documents   []string
	filters     [][]target.Filter
}

func (r *recordingService) WatchCollection(_ context.Context, path string, _ watch.Callbacks, filters ...target.Filter) (watch.ListenerID, error) {
	if _, err := target.Collection(path, filters...); err != nil {
		return watch.NoListener, err
	}
	r.collections = append(r.collections, path)
	r.filters = append(r.filters, filters)
	return watch.ListenerID("c-" + path), nil
}

func (r *recordingService) WatchDocument(_ context.Context, path string, _ func(event.Updated)) (watch.ListenerID, error) {
	r.documents = append(r.documents, path)
	return watch.ListenerID("d-" + path), nil
}

func TestBuildFilters(t *testing.T) {
	filters, err := buildFilters([]cfg.FilterConfiguration{
		{Field: "read", Op: "==", Value: false},
		{Field: "priority", Op: ">=", Value: int64(2)},
	})
	require.NoError(t, err)
	require.Len(t, filters, 2)
	assert.Equal(t, target.OpEqual, filters[0].Op)
	assert.Equal(t, "priority", filters[1].Field)

	_, err = buildFilters([]cfg.FilterConfiguration{{Field: "x", Op: "~=", Value: 1}})
	assert.ErrorIs(t, err, target.ErrInvalidFilter)
}

func TestStartTargets(t *testing.T) {
	svc := &recordingService{}
	started := startTargets(context.Background(), svc, []cfg.TargetConfiguration{
		{Collection: "users/u1/notifications", Filters: []cfg.FilterConfiguration{{Field: "read", Op: "==", Value: false}}},
		{Document: "settings/app"},
		{Collection: "users/u1"}, // document path, rejected
		{Collection: "notes", Filters: []cfg.FilterConfiguration{{Field: "x", Op: "bogus"}}},
	})

	assert.Equal(t, 2, started)
	assert.Equal(t, []string{"users/u1/notifications"}, svc.collections)
	assert.Equal(t, []string{"settings/app"}, svc.documents)
	require.Len(t, svc.filters[0], 1)
}

func TestStartTargets_Noop(t *testing.T) {
	started := startTargets(context.Background(), watch.Noop{}, []cfg.TargetConfiguration{{Collection: "notes"}})
	assert.Zero(t, started)
}
