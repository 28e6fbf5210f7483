package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vothanachyes/telegram-user-tracking-sub004/classify"
	"github.com/vothanachyes/telegram-user-tracking-sub004/document"
	"github.com/vothanachyes/telegram-user-tracking-sub004/event"
	"github.com/vothanachyes/telegram-user-tracking-sub004/target"
	"github.com/vothanachyes/telegram-user-tracking-sub004/telemetry"
	"github.com/vothanachyes/telegram-user-tracking-sub004/watch"
)

// maxErrorBody bounds how much of a failed response is kept for logs
const maxErrorBody = 4 << 10

// drainTimeout bounds how long Close waits for listener goroutines
const drainTimeout = 5 * time.Second

// Client watches targets over raw HTTP listen streams
type Client struct {
	conf     Config
	opts     Options
	endpoint string
	registry *watch.Registry
	emitter  *watch.Emitter
	closed   atomic.Bool
}

var _ watch.Service = (*Client)(nil)
var _ watch.Inspector = (*Client)(nil)

// NewClient creates a raw HTTP watch client
func NewClient(conf Config, opts Options) *Client {
	conf = conf.withDefaults()
	opts = opts.withDefaults()
	database := document.DatabaseName(conf.ProjectID, conf.DatabaseID)

	return &Client{
		conf:     conf,
		opts:     opts,
		endpoint: fmt.Sprintf("%s/v1/%s/documents:listen", conf.BaseURL, database),
		registry: watch.NewRegistry(Transport),
		emitter:  watch.NewEmitter(opts.Publisher, Transport),
	}
}

// Available reports whether a credential source is configured and the
// client is open
func (c *Client) Available() bool {
	return c.opts.Tokens != nil && c.conf.ProjectID != "" && !c.closed.Load()
}

// WatchCollection opens a listen stream for a collection query. The first
// connection attempt completes before returning; its failure is returned and
// no listener is created.
func (c *Client) WatchCollection(ctx context.Context, path string, cb watch.Callbacks, filters ...target.Filter) (watch.ListenerID, error) {
	if !c.Available() {
		return watch.NoListener, nil
	}

	t, err := target.Collection(path, filters...)
	if err != nil {
		return watch.NoListener, err
	}
	return c.watch(ctx, t, cb)
}

// WatchDocument opens a listen stream for one document
func (c *Client) WatchDocument(ctx context.Context, path string, onUpdated func(event.Updated)) (watch.ListenerID, error) {
	if !c.Available() {
		return watch.NoListener, nil
	}

	t, err := target.Document(path)
	if err != nil {
		return watch.NoListener, err
	}
	return c.watch(ctx, t, watch.DocumentCallbacks(onUpdated))
}

func (c *Client) watch(ctx context.Context, t target.Target, cb watch.Callbacks) (watch.ListenerID, error) {
	// The listener outlives the caller's context
	lctx, cancel := context.WithCancel(context.Background())
	h := watch.NewHandle(watch.ListenerID(c.opts.IDs.NextID()), t, Transport, cb, cancel)
	h.SetState(watch.StateConnecting)

	conn, err := c.connect(lctx, ctx, t)
	if err != nil {
		cancel()
		return watch.NoListener, fmt.Errorf("open listen stream for %s: %w", t, err)
	}

	c.registry.Add(h)
	l := &listener{
		client:     c,
		handle:     h,
		classifier: classify.New(t),
	}
	go l.run(lctx, conn)

	// Close may have drained the registry while the connect was in flight
	if c.closed.Load() {
		c.registry.Release(h, watch.StopClosed)
		return watch.NoListener, nil
	}

	log.Info().
		Str("listener", string(h.ID())).
		Str("target", t.String()).
		Msg("Listener started")
	return h.ID(), nil
}

// connection is an open listen response body
type connection struct {
	body   io.ReadCloser
	cancel context.CancelFunc
}

func (c *connection) Close() {
	c.cancel()
	c.body.Close()
}

// connect issues the listen POST and waits for the response headers.
// The request lives as long as ctx; callerCtx (optional) and the connect
// timeout only bound the wait for headers.
func (c *Client) connect(ctx, callerCtx context.Context, t target.Target) (conn *connection, err error) {
	start := time.Now()
	defer func() {
		telemetry.ConnectDurationSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			telemetry.ConnectAttemptsTotal.With("failed").Inc()
		} else {
			telemetry.ConnectAttemptsTotal.With("success").Inc()
		}
	}()

	reqCtx, reqCancel := context.WithCancel(ctx)

	timer := time.AfterFunc(c.conf.ConnectTimeout, reqCancel)
	stopCaller := func() bool { return true }
	if callerCtx != nil {
		stopCaller = context.AfterFunc(callerCtx, reqCancel)
	}

	resp, err := c.post(reqCtx, t)
	timedOut := !timer.Stop()
	callerDone := !stopCaller()

	if err == nil && (timedOut || callerDone) {
		resp.Body.Close()
		err = context.Canceled
	}
	if err != nil {
		reqCancel()
		switch {
		case timedOut:
			return nil, fmt.Errorf("connect timed out after %s: %w", c.conf.ConnectTimeout, context.DeadlineExceeded)
		case callerDone:
			return nil, callerCtx.Err()
		}
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer reqCancel()
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	body := resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		body = newGzipBody(body)
	}
	return &connection{body: body, cancel: reqCancel}, nil
}

func (c *Client) post(ctx context.Context, t target.Target) (*http.Response, error) {
	payload, err := buildListenRequest(c.conf, t)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode listen request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	// Setting Accept-Encoding disables transparent decompression; gzipBody handles it
	req.Header.Set("Accept-Encoding", "gzip")

	tok, err := c.opts.Tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", watch.ErrNoCredentials, err)
	}
	tok.SetAuthHeader(req)

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return resp, nil
}

// StopListener stops a listener without waiting for its goroutine. Safe to
// call from inside a callback.
func (c *Client) StopListener(id watch.ListenerID) bool {
	stopped := c.registry.StopListener(id)
	if stopped {
		log.Info().Str("listener", string(id)).Msg("Listener stopped")
	}
	return stopped
}

// StopAllListeners stops every listener
func (c *Client) StopAllListeners() {
	c.registry.StopAllListeners()
}

// IsListenerActive reports whether id is running
func (c *Client) IsListenerActive(id watch.ListenerID) bool {
	return c.registry.IsListenerActive(id)
}

// ActiveListeners returns the running listener ids
func (c *Client) ActiveListeners() []watch.ListenerID {
	return c.registry.ActiveListeners()
}

// Listeners returns diagnostics for every listener
func (c *Client) Listeners() []watch.Info {
	return c.registry.Listeners()
}

// ListenerStates implements telemetry.StateLister
func (c *Client) ListenerStates() map[string]int {
	return c.registry.ListenerStates()
}

// Close stops every listener and waits briefly for their goroutines. The
// client reports unavailable afterwards.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if !c.registry.Drain(drainTimeout) {
		return fmt.Errorf("stream listeners did not exit within %s", drainTimeout)
	}
	return nil
}
