// Package transport picks the watch implementation for a configuration.
package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/vothanachyes/telegram-user-tracking-sub004/cfg"
	"github.com/vothanachyes/telegram-user-tracking-sub004/id"
	"github.com/vothanachyes/telegram-user-tracking-sub004/managed"
	"github.com/vothanachyes/telegram-user-tracking-sub004/stream"
	"github.com/vothanachyes/telegram-user-tracking-sub004/watch"
)

// SourceFactory opens the managed transport's snapshot source
type SourceFactory func(ctx context.Context, projectID, databaseID string, creds *managed.Credentials) (managed.Source, error)

// Deps carries collaborators shared by every transport. Zero values fall
// back to the environment and the production SDK.
type Deps struct {
	Publisher  watch.Publisher
	Tokens     oauth2.TokenSource // raw stream credentials; defaults to the configured env var
	HTTPClient *http.Client
	IDs        id.Generator
	Clock      stream.Clock
	NewSource  SourceFactory
}

func openFirestore(ctx context.Context, projectID, databaseID string, creds *managed.Credentials) (managed.Source, error) {
	return managed.NewFirestoreSource(ctx, projectID, databaseID, creds)
}

// New resolves the transport once. A disabled configuration yields
// watch.Noop without touching the network or credentials.
func New(ctx context.Context, conf cfg.WatchConfiguration, deps Deps) (watch.Service, error) {
	if !conf.Enabled {
		log.Info().Msg("Real-time watch disabled")
		return watch.Noop{}, nil
	}
	if deps.IDs == nil {
		deps.IDs = id.NewULIDGenerator()
	}
	if deps.NewSource == nil {
		deps.NewSource = openFirestore
	}

	switch conf.Mode {
	case cfg.ModeManaged:
		creds, err := managed.ResolveCredentials(conf.Managed.CredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", watch.ErrUnavailable, err)
		}
		return newManaged(ctx, conf, deps, creds)

	case cfg.ModeStream:
		tokens := tokenSource(conf, deps)
		if tokens == nil {
			return nil, fmt.Errorf("%w: %w: set %s", watch.ErrUnavailable, watch.ErrNoCredentials, conf.Stream.TokenEnv)
		}
		return newStream(conf, deps, tokens), nil

	case cfg.ModeAuto, "":
		creds, err := managed.ResolveCredentials(conf.Managed.CredentialsPath)
		if err == nil {
			svc, err := newManaged(ctx, conf, deps, creds)
			if err == nil {
				return svc, nil
			}
			log.Warn().Err(err).Msg("Managed transport failed, trying raw stream")
		} else {
			log.Debug().Err(err).Msg("Managed transport not configured")
		}

		if tokens := tokenSource(conf, deps); tokens != nil {
			return newStream(conf, deps, tokens), nil
		}

		log.Warn().Msg("No watch credentials available, real-time watch disabled")
		return watch.Noop{}, nil

	default:
		return nil, fmt.Errorf("invalid watch mode: %q", conf.Mode)
	}
}

func tokenSource(conf cfg.WatchConfiguration, deps Deps) oauth2.TokenSource {
	if deps.Tokens != nil {
		return deps.Tokens
	}
	if tok := conf.TokenFromEnv(); tok != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"})
	}
	return nil
}

func newManaged(ctx context.Context, conf cfg.WatchConfiguration, deps Deps, creds *managed.Credentials) (watch.Service, error) {
	src, err := deps.NewSource(ctx, conf.ProjectID, conf.DatabaseID, creds)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", watch.ErrUnavailable, err)
	}

	log.Info().
		Str("project", conf.ProjectID).
		Str("database", conf.DatabaseID).
		Str("account", creds.ClientEmail).
		Msg("Using managed watch transport")

	return managed.NewClient(src, managed.Config{
		PreviousCacheSize: conf.Managed.PreviousCacheSize,
	}, managed.Options{
		Publisher: deps.Publisher,
		IDs:       deps.IDs,
	}), nil
}

func newStream(conf cfg.WatchConfiguration, deps Deps, tokens oauth2.TokenSource) watch.Service {
	log.Info().
		Str("project", conf.ProjectID).
		Str("database", conf.DatabaseID).
		Str("base_url", conf.BaseURL).
		Msg("Using raw stream watch transport")

	return stream.NewClient(stream.ConfigFromWatch(conf), stream.Options{
		Tokens:     tokens,
		HTTPClient: deps.HTTPClient,
		Publisher:  deps.Publisher,
		IDs:        deps.IDs,
		Clock:      deps.Clock,
	})
}
