package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/vothanachyes/telegram-user-tracking-sub004/cfg"
	"github.com/vothanachyes/telegram-user-tracking-sub004/event"
	"github.com/vothanachyes/telegram-user-tracking-sub004/managed"
	"github.com/vothanachyes/telegram-user-tracking-sub004/stream"
	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
	"github.com/vothanachyes/telegram-user-tracking-sub004/watch"
)

type stubSource struct{ closed atomic.Bool }

func (s *stubSource) Query(context.Context, target.Target) (managed.QueryIterator, error) {
	return nil, errors.New("not implemented")
}

func (s *stubSource) Document(context.Context, target.Target) (managed.DocumentIterator, error) {
	return nil, errors.New("not implemented")
}

func (s *stubSource) Close() error {
	s.closed.Store(true)
	return nil
}

func watchConfig(t *testing.T, mode string) cfg.WatchConfiguration {
	t.Helper()
	t.Setenv(managed.CredentialsEnv, "")

	w := cfg.Default().Watch
	w.Mode = mode
	w.ProjectID = "demo"
	w.Stream.TokenEnv = "DOCWATCH_TEST_TOKEN"
	t.Setenv(w.Stream.TokenEnv, "")
	return w
}

func credentialsFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"service_account","client_email":"svc@demo"}`), 0600))
	return path
}

func stubFactory(src managed.Source, calls *atomic.Int32) SourceFactory {
	return func(context.Context, string, string, *managed.Credentials) (managed.Source, error) {
		calls.Add(1)
		return src, nil
	}
}

func closeService(t *testing.T, svc watch.Service) {
	t.Cleanup(func() { svc.Close() })
}

func TestNew_DisabledIsInertAndOffline(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	w := watchConfig(t, cfg.ModeAuto)
	w.Enabled = false
	w.BaseURL = srv.URL
	w.Managed.CredentialsPath = credentialsFile(t)

	var opened atomic.Int32
	svc, err := New(context.Background(), w, Deps{
		Tokens:    oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"}),
		NewSource: stubFactory(&stubSource{}, &opened),
	})
	require.NoError(t, err)
	assert.IsType(t, watch.Noop{}, svc)
	assert.False(t, svc.Available())

	id, err := svc.WatchCollection(context.Background(), "notes", watch.Callbacks{})
	assert.NoError(t, err)
	assert.Equal(t, watch.NoListener, id)

	id, err = svc.WatchDocument(context.Background(), "notes/a", func(event.Updated) {})
	assert.NoError(t, err)
	assert.Equal(t, watch.NoListener, id)

	assert.Zero(t, requests.Load())
	assert.Zero(t, opened.Load())
}

func TestNew_ManagedRequiresCredentials(t *testing.T) {
	w := watchConfig(t, cfg.ModeManaged)

	_, err := New(context.Background(), w, Deps{})
	assert.ErrorIs(t, err, watch.ErrUnavailable)
	assert.ErrorIs(t, err, watch.ErrNoCredentials)
}

func TestNew_ManagedWithCredentials(t *testing.T) {
	w := watchConfig(t, cfg.ModeManaged)
	w.Managed.CredentialsPath = credentialsFile(t)

	src := &stubSource{}
	var opened atomic.Int32
	svc, err := New(context.Background(), w, Deps{NewSource: stubFactory(src, &opened)})
	require.NoError(t, err)
	closeService(t, svc)

	assert.IsType(t, &managed.Client{}, svc)
	assert.True(t, svc.Available())
	assert.Equal(t, int32(1), opened.Load())

	require.NoError(t, svc.Close())
	assert.True(t, src.closed.Load())
}

func TestNew_ManagedSourceFailure(t *testing.T) {
	w := watchConfig(t, cfg.ModeManaged)
	w.Managed.CredentialsPath = credentialsFile(t)

	_, err := New(context.Background(), w, Deps{
		NewSource: func(context.Context, string, string, *managed.Credentials) (managed.Source, error) {
			return nil, errors.New("dial failed")
		},
	})
	assert.ErrorIs(t, err, watch.ErrUnavailable)
}

func TestNew_StreamRequiresToken(t *testing.T) {
	w := watchConfig(t, cfg.ModeStream)

	_, err := New(context.Background(), w, Deps{})
	assert.ErrorIs(t, err, watch.ErrUnavailable)
	assert.ErrorIs(t, err, watch.ErrNoCredentials)
}

func TestNew_StreamTokenFromEnv(t *testing.T) {
	w := watchConfig(t, cfg.ModeStream)
	t.Setenv(w.Stream.TokenEnv, "env-token")

	svc, err := New(context.Background(), w, Deps{})
	require.NoError(t, err)
	closeService(t, svc)

	assert.IsType(t, &stream.Client{}, svc)
	assert.True(t, svc.Available())
}

func TestNew_AutoPrefersManaged(t *testing.T) {
	w := watchConfig(t, cfg.ModeAuto)
	w.Managed.CredentialsPath = credentialsFile(t)

	var opened atomic.Int32
	svc, err := New(context.Background(), w, Deps{
		Tokens:    oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"}),
		NewSource: stubFactory(&stubSource{}, &opened),
	})
	require.NoError(t, err)
	closeService(t, svc)

	assert.IsType(t, &managed.Client{}, svc)
}

func TestNew_AutoFallsBackToStream(t *testing.T) {
	w := watchConfig(t, cfg.ModeAuto)

	svc, err := New(context.Background(), w, Deps{
		Tokens: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t"}),
	})
	require.NoError(t, err)
	closeService(t, svc)

	assert.IsType(t, &stream.Client{}, svc)
}

func TestNew_AutoWithoutCredentialsIsNoop(t *testing.T) {
	w := watchConfig(t, cfg.ModeAuto)

	svc, err := New(context.Background(), w, Deps{})
	require.NoError(t, err)
	assert.IsType(t, watch.Noop{}, svc)
}

func TestNew_InvalidMode(t *testing.T) {
	w := watchConfig(t, "polling")

	_, err := New(context.Background(), w, Deps{})
	assert.Error(t, err)
}
