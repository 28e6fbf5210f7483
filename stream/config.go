// Package stream implements the watch contract over the REST listen endpoint:
// a long-lived POST whose response body carries one JSON frame per line.
package stream

import (
	"net/http"
	"strings"
	"time"

	"github.com/juju/clock"
	"golang.org/x/oauth2"

	"github.com/vothanachyes/telegram-user-tracking-sub004/cfg"
	"github.com/vothanachyes/telegram-user-tracking-sub004/id"
	"github.com/vothanachyes/telegram-user-tracking-sub004/watch"
)

// Transport is the label used in telemetry and listener info
const Transport = "stream"

// watchTargetID is the only target added per listen request
const watchTargetID = 1

// NoRetry disables reconnects: a listener stops on its first interruption
const NoRetry = -1

// Clock schedules reconnect waits
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

// Config controls endpoint and reconnect behavior
type Config struct {
	ProjectID  string
	DatabaseID string
	BaseURL    string

	ConnectTimeout time.Duration // dial and response headers only
	InitialBackoff time.Duration
	Multiplier     float64
	MaxRetries     int // consecutive failures tolerated after the last successful connect; 0 means 3
}

// ConfigFromWatch maps the [watch] configuration section
func ConfigFromWatch(w cfg.WatchConfiguration) Config {
	return Config{
		ProjectID:      w.ProjectID,
		DatabaseID:     w.DatabaseID,
		BaseURL:        w.BaseURL,
		ConnectTimeout: time.Duration(w.ConnectTimeoutSeconds) * time.Second,
		InitialBackoff: time.Duration(w.ReconnectInitialMS) * time.Millisecond,
		Multiplier:     w.ReconnectMultiplier,
		MaxRetries:     maxRetries(w.MaxRetries),
	}
}

// maxRetries maps the configured count, where 0 is an explicit opt-out
func maxRetries(n int) int {
	if n == 0 {
		return NoRetry
	}
	return n
}

func (c Config) withDefaults() Config {
	if c.DatabaseID == "" {
		c.DatabaseID = "(default)"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://firestore.googleapis.com"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	return c
}

// backoff returns the wait before reconnect attempt n, counting from 1
func (c Config) backoff(n int) time.Duration {
	d := float64(c.InitialBackoff)
	for i := 1; i < n; i++ {
		d *= c.Multiplier
	}
	return time.Duration(d)
}

// Options carries the client's collaborators. Only Tokens is required for
// the client to report itself available.
type Options struct {
	Tokens     oauth2.TokenSource // consulted once per connection attempt
	HTTPClient *http.Client
	Publisher  watch.Publisher
	IDs        id.Generator
	Clock      Clock
}

func (o Options) withDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	if o.IDs == nil {
		o.IDs = id.NewULIDGenerator()
	}
	if o.Clock == nil {
		o.Clock = clock.WallClock
	}
	return o
}
