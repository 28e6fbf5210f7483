package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/vothanachyes/telegram-user-tracking-sub004/classify"
	"github.com/vothanachyes/telegram-user-tracking-sub004/document"
	"github.com/vothanachyes/telegram-user-tracking-sub004/telemetry"
	"github.com/vothanachyes/telegram-user-tracking-sub004/watch"
)

// readBufferSize is the initial line buffer; longer lines grow it
const readBufferSize = 64 << 10

// listener owns one listen stream. Only its goroutine touches the classifier.
type listener struct {
	client     *Client
	handle     *watch.Handle
	classifier *classify.Classifier
}

func (l *listener) stopped(ctx context.Context) bool {
	return !l.handle.Active() || ctx.Err() != nil
}

// run streams frames until stopped, reconnecting with exponential backoff.
// The retry budget counts consecutive failures since the last successful
// connect; exhausting it stops the listener for good. A target removed with
// a cause counts as a failure even though its stream was accepted.
func (l *listener) run(ctx context.Context, conn *connection) {
	defer l.handle.Finish()

	conf := l.client.conf
	logger := log.With().Str("listener", string(l.handle.ID())).Str("target", l.handle.Target().String()).Logger()

	failures := 0
	for {
		l.handle.SetState(watch.StateStreaming)
		err := l.stream(ctx, conn)
		if l.stopped(ctx) {
			logger.Debug().Msg("Listener exited")
			return
		}
		if !rejected(err) {
			failures = 0
		}
		logger.Warn().Err(err).Msg("Listen stream interrupted, will reconnect")

		for {
			failures++
			if failures > conf.MaxRetries {
				logger.Error().
					Err(err).
					Int("failures", failures).
					Msg("Listener stopped after exhausting reconnect attempts")
				l.client.registry.Release(l.handle, watch.StopExhausted)
				return
			}

			backoff := conf.backoff(failures)
			l.handle.SetState(watch.StateReconnecting)
			telemetry.ReconnectsTotal.Inc()
			logger.Info().Int("attempt", failures).Dur("retry_in", backoff).Msg("Reconnecting listen stream")

			select {
			case <-l.client.opts.Clock.After(backoff):
			case <-ctx.Done():
				return
			}
			if l.stopped(ctx) {
				return
			}

			l.handle.SetState(watch.StateConnecting)
			conn, err = l.client.connect(ctx, nil, l.handle.Target())
			if err == nil {
				break
			}
			if l.stopped(ctx) {
				return
			}
			logger.Warn().Err(err).Int("attempt", failures).Msg("Reconnect failed")
		}

		// The server replays the full result set on a fresh stream
		l.classifier.Reset()
		logger.Info().Msg("Listen stream reconnected")
	}
}

// rejected reports a stream that ended because the server refused the target
func rejected(err error) bool {
	var removed *TargetRemovedError
	return errors.As(err, &removed) && removed.Code != 0
}

// stream reads frames until the body ends, fails or the listener stops
func (l *listener) stream(ctx context.Context, conn *connection) error {
	defer conn.Close()

	r := bufio.NewReaderSize(conn.body, readBufferSize)
	for {
		if l.stopped(ctx) {
			return context.Canceled
		}

		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			if ferr := l.handleLine(line); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errStreamClosed
			}
			return fmt.Errorf("read listen stream: %w", err)
		}
	}
}

// handleLine processes one frame. Only server-side target removal is
// returned as an error; malformed frames are counted and skipped.
func (l *listener) handleLine(line []byte) error {
	f, err := parseFrame(line)
	if err != nil {
		telemetry.FramesSkippedTotal.Inc()
		log.Debug().Err(err).Str("listener", string(l.handle.ID())).Msg("Skipping malformed frame")
		return nil
	}
	if f == nil {
		return nil
	}

	telemetry.FramesTotal.With(f.frameType()).Inc()

	switch {
	case f.TargetChange != nil:
		return l.onTargetChange(f.TargetChange)
	case f.DocumentChange != nil:
		l.onDocumentChange(f.DocumentChange)
	case f.DocumentDelete != nil:
		l.onAbsence(f.DocumentDelete.Document)
	case f.DocumentRemove != nil:
		l.onAbsence(f.DocumentRemove.Document)
	case f.Filter != nil:
		// Existence filter counts are not verified
	default:
		telemetry.FramesSkippedTotal.Inc()
	}
	return nil
}

func (l *listener) onTargetChange(tc *targetChange) error {
	switch tc.TargetChangeType {
	case targetCurrent:
		log.Debug().Str("listener", string(l.handle.ID())).Int("documents", l.classifier.Len()).Msg("Listen stream caught up")
	case targetReset:
		log.Debug().Str("listener", string(l.handle.ID())).Msg("Listen target reset, expecting full replay")
		l.classifier.Reset()
	case targetRemove:
		rerr := &TargetRemovedError{}
		if tc.Cause != nil {
			rerr.Code = tc.Cause.Code
			rerr.Message = tc.Cause.Message
		}
		return rerr
	case targetAdd, targetNoChange, "":
	}
	return nil
}

func (l *listener) onDocumentChange(dc *documentChange) {
	if len(dc.RemovedTargetIDs) > 0 {
		l.onAbsence(dc.Document.Name)
		return
	}

	snap, err := document.FromWire(dc.Document)
	if err != nil {
		telemetry.FramesSkippedTotal.Inc()
		log.Debug().Err(err).Str("listener", string(l.handle.ID())).Msg("Skipping undecodable document")
		return
	}
	l.client.emitter.Emit(l.handle, l.classifier.ClassifyPresence(snap))
}

func (l *listener) onAbsence(name string) {
	if name == "" {
		return
	}
	if deleted, ok := l.classifier.ClassifyAbsence(document.ID(name)); ok {
		l.client.emitter.Emit(l.handle, deleted)
	}
}
