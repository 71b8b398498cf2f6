// Package middleware wraps inbound message handling with logging and
// metrics, the way the teacher repo wrapped gRPC calls with interceptors.
package middleware

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"translate-relay/internal/observability/metrics"
)

// Handler processes one inbound bus message.
type Handler func(ctx context.Context, topic string, payload []byte) error

// LogPolicy classifies an error returned by a wrapped Handler: ok reports
// whether it should be logged at all, and level at what severity. Routine,
// expected drops (an event addressed to a different translator, say) should
// return ok=false so they produce no log line.
type LogPolicy func(err error) (level zerolog.Level, ok bool)

// WithLogging returns a Handler that logs errors from the wrapped handler
// according to policy. A successful call (nil error) is not logged here —
// downstream processing logs what it does with the message.
func WithLogging(policy LogPolicy, next Handler) Handler {
	return func(ctx context.Context, topic string, payload []byte) error {
		err := next(ctx, topic, payload)
		if err == nil {
			return nil
		}

		level, ok := policy(err)
		if !ok {
			return err
		}

		log.WithLevel(level).
			Err(err).
			Str("topic", topic).
			Int("payloadBytes", len(payload)).
			Msg("inbound message dropped")

		return err
	}
}

// WithMetrics returns a Handler that records a dropped-event metric whenever
// the wrapped handler returns an error, labeled by reasonFor(err). A nil m
// disables recording (the handler still runs).
func WithMetrics(m *metrics.Metrics, reasonFor func(error) string, next Handler) Handler {
	return func(ctx context.Context, topic string, payload []byte) error {
		err := next(ctx, topic, payload)
		if err != nil && m != nil {
			m.RecordEventDropped(reasonFor(err))
		}
		return err
	}
}

// Chain composes handlers so the first wraps the last: Chain(a, b)(h) is
// a(b(h)).
func Chain(mws ...func(Handler) Handler) func(Handler) Handler {
	return func(h Handler) Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}
