package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vothanachyes/telegram-user-tracking-sub004/cfg"
	"github.com/vothanachyes/telegram-user-tracking-sub004/event"
	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
	"github.com/vothanachyes/telegram-user-tracking-sub004/watch"
)

// buildFilters converts configured where-clauses
func buildFilters(in []cfg.FilterConfiguration) ([]target.Filter, error) {
	filters := make([]target.Filter, 0, len(in))
	for _, f := range in {
		filter, err := target.Where(f.Field, target.Op(f.Op), f.Value)
		if err != nil {
			return nil, fmt.Errorf("filter on %q: %w", f.Field, err)
		}
		filters = append(filters, filter)
	}
	return filters, nil
}

// startTargets starts the configured watches. Events reach the bus, so
// the per-listener callbacks only log. Returns the number started.
func startTargets(ctx context.Context, svc watch.Service, targets []cfg.TargetConfiguration) int {
	started := 0
	for _, tc := range targets {
		id, err := startTarget(ctx, svc, tc)
		if err != nil {
			log.Error().Err(err).Str("collection", tc.Collection).Str("document", tc.Document).Msg("Failed to start watch")
			continue
		}
		if id == watch.NoListener {
			continue
		}
		started++
	}
	return started
}

func startTarget(ctx context.Context, svc watch.Service, tc cfg.TargetConfiguration) (watch.ListenerID, error) {
	if tc.Document != "" {
		return svc.WatchDocument(ctx, tc.Document, func(e event.Updated) {
			log.Debug().Str("document", e.Data().Path).Msg("Watched document changed")
		})
	}

	filters, err := buildFilters(tc.Filters)
	if err != nil {
		return watch.NoListener, err
	}

	return svc.WatchCollection(ctx, tc.Collection, watch.Callbacks{
		OnDeleted: func(e event.Deleted) {
			log.Debug().Str("target", e.Target().String()).Str("document_id", e.DocumentID()).Msg("Document left watch")
		},
	}, filters...)
}
