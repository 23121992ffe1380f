// Package logging turns execution events into zerolog records.
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hanpama/projector/internal/eventbus"
	"github.com/hanpama/projector/internal/events"
	"github.com/hanpama/projector/internal/execid"
)

// New builds a logger writing to w at the named level ("debug", "info",
// "warn", "error"). pretty switches to zerolog's console format.
func New(w io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
		}
		lvl = parsed
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Subscribe logs execution and resolver events from bus with logger.
// Executions are logged at info, resolver calls at debug, and failures at
// error (executions) or warn (resolvers).
func Subscribe(bus *eventbus.Bus, logger zerolog.Logger) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.On(bus, func(ctx context.Context, e events.ExecutionStart) {
			ev := withExec(ctx, logger.Info())
			if parent, ok := execid.ParentFromContext(ctx); ok {
				ev = ev.Int64("parent", parent)
			}
			ev = ev.Str("type", e.Type).Interface("args", e.Args)
			if e.Fields != nil {
				ev = ev.Strs("fields", e.Fields)
			}
			ev.Msg("execution started")
		}),
		eventbus.On(bus, func(ctx context.Context, e events.ExecutionFinish) {
			ev := logger.Info()
			if e.Err != nil {
				ev = logger.Error().Err(e.Err)
			}
			withExec(ctx, ev).
				Str("type", e.Type).
				Bool("found", e.Found).
				Dur("duration", e.Duration).
				Msg("execution finished")
		}),
		eventbus.On(bus, func(ctx context.Context, e events.ResolverFinish) {
			ev := logger.Debug()
			if e.Err != nil {
				ev = logger.Warn().Err(e.Err)
			}
			ev = withExec(ctx, ev).
				Uint64("call", e.CallID).
				Str("kind", string(e.Kind)).
				Str("type", e.Type).
				Str("path", e.Path).
				Dur("duration", e.Duration)
			if e.Field != "" {
				ev = ev.Str("field", e.Field)
			}
			ev.Msg("resolver finished")
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func withExec(ctx context.Context, ev *zerolog.Event) *zerolog.Event {
	if id, ok := execid.FromContext(ctx); ok {
		return ev.Int64("exec", id)
	}
	return ev
}
