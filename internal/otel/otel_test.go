package otel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hanpama/projector/internal/eventbus"
	"github.com/hanpama/projector/internal/events"
	"github.com/hanpama/projector/internal/execid"
	"github.com/hanpama/projector/internal/executor"
	"github.com/hanpama/projector/internal/query"
	"github.com/hanpama/projector/internal/registry"
	"github.com/hanpama/projector/internal/schema"
)

func newRecorder(t *testing.T, bus *eventbus.Bus) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	t.Cleanup(Register(bus, tp.Tracer("test")))
	return sr
}

func attr(span sdktrace.ReadOnlySpan, key string) attribute.Value {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestSubscriberSpans(t *testing.T) {
	bus := eventbus.New()
	sr := newRecorder(t, bus)
	ctx, _ := execid.NewContext(context.Background())
	boom := errors.New("boom")

	eventbus.Emit(bus, ctx, events.ExecutionStart{Type: "post", Args: map[string]any{"id": "1"}})
	eventbus.Emit(bus, ctx, events.ResolverStart{CallID: 1, Kind: events.ResolverRoot, Type: "post", Path: "post"})
	eventbus.Emit(bus, ctx, events.ResolverFinish{CallID: 1, Kind: events.ResolverRoot, Type: "post", Path: "post"})
	eventbus.Emit(bus, ctx, events.ResolverStart{CallID: 2, Kind: events.ResolverField, Type: "post", Field: "author", Path: "post.author"})
	eventbus.Emit(bus, ctx, events.ResolverFinish{CallID: 2, Kind: events.ResolverField, Type: "post", Field: "author", Path: "post.author", Err: boom})
	eventbus.Emit(bus, ctx, events.ExecutionFinish{Type: "post", Err: boom})

	spans := sr.Ended()
	require.Len(t, spans, 3)

	root, field, exec := spans[0], spans[1], spans[2]
	require.Equal(t, "projector.resolve.root", root.Name())
	require.Equal(t, "projector.resolve.field", field.Name())
	require.Equal(t, "projector.execute", exec.Name())

	require.Equal(t, exec.SpanContext().SpanID(), root.Parent().SpanID())
	require.Equal(t, exec.SpanContext().SpanID(), field.Parent().SpanID())
	require.Equal(t, exec.SpanContext().TraceID(), field.SpanContext().TraceID())

	require.Equal(t, "post.author", attr(field, "projector.resolver.path").AsString())
	require.Equal(t, "author", attr(field, "projector.resolver.field").AsString())
	require.Equal(t, int64(1), attr(exec, "projector.query.args").AsInt64())
	require.False(t, attr(exec, "projector.result.found").AsBool())

	require.Equal(t, codes.Unset, root.Status().Code)
	require.Equal(t, codes.Error, field.Status().Code)
	require.Equal(t, codes.Error, exec.Status().Code)
}

func TestSubscriberSeparatesExecutions(t *testing.T) {
	bus := eventbus.New()
	sr := newRecorder(t, bus)
	ctxA, _ := execid.NewContext(context.Background())
	ctxB, _ := execid.NewContext(context.Background())

	eventbus.Emit(bus, ctxA, events.ExecutionStart{Type: "a"})
	eventbus.Emit(bus, ctxB, events.ExecutionStart{Type: "b"})
	eventbus.Emit(bus, ctxA, events.ResolverStart{CallID: 1, Kind: events.ResolverRoot, Type: "a", Path: "a"})
	eventbus.Emit(bus, ctxB, events.ResolverStart{CallID: 1, Kind: events.ResolverRoot, Type: "b", Path: "b"})
	eventbus.Emit(bus, ctxB, events.ResolverFinish{CallID: 1, Kind: events.ResolverRoot, Type: "b", Path: "b"})
	eventbus.Emit(bus, ctxA, events.ResolverFinish{CallID: 1, Kind: events.ResolverRoot, Type: "a", Path: "a"})
	eventbus.Emit(bus, ctxB, events.ExecutionFinish{Type: "b", Found: true})
	eventbus.Emit(bus, ctxA, events.ExecutionFinish{Type: "a", Found: true})

	spans := sr.Ended()
	require.Len(t, spans, 4)
	require.Equal(t, "b", attr(spans[0], "projector.resolver.type").AsString())
	require.Equal(t, "a", attr(spans[1], "projector.resolver.type").AsString())
	require.Equal(t, "b", attr(spans[2], "projector.query.type").AsString())
	require.Equal(t, spans[2].SpanContext().SpanID(), spans[0].Parent().SpanID())
	require.Equal(t, spans[3].SpanContext().SpanID(), spans[1].Parent().SpanID())
}

func TestRegisterUnsubscribes(t *testing.T) {
	bus := eventbus.New()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	unregister := Register(bus, tp.Tracer("test"))
	unregister()

	ctx, _ := execid.NewContext(context.Background())
	eventbus.Emit(bus, ctx, events.ExecutionStart{Type: "post"})
	eventbus.Emit(bus, ctx, events.ExecutionFinish{Type: "post"})
	require.Empty(t, sr.Ended())
	require.Empty(t, sr.Started())
}

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), eventbus.New(), "", "projector")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestOverlappingExecutionsShareContext(t *testing.T) {
	bus := eventbus.New()
	sr := newRecorder(t, bus)

	var started sync.WaitGroup
	started.Add(2)
	reg := registry.New(nil)
	require.NoError(t, reg.RegisterQuery(schema.SingleOf("post"), func(ctx context.Context, args map[string]any) (any, error) {
		// both root resolvers are in flight before either returns
		started.Done()
		started.Wait()
		return schema.Entity{"id": args["id"]}, nil
	}))
	exec := executor.NewExecutor(reg, executor.WithEventBus(bus))
	ctx, caller := execid.NewContext(context.Background())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"1", "2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = exec.Execute(ctx, &query.Query{
				Type:   schema.SingleOf("post"),
				Args:   map[string]any{"id": id},
				Fields: query.Leaves("id"),
			})
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	require.Len(t, sr.Started(), 4)
	ended := sr.Ended()
	require.Len(t, ended, 4)

	execSpans := map[string]bool{}
	var roots []sdktrace.ReadOnlySpan
	for _, span := range ended {
		switch span.Name() {
		case "projector.execute":
			execSpans[span.SpanContext().SpanID().String()] = true
			require.Equal(t, caller, attr(span, "projector.parent_exec").AsInt64())
		case "projector.resolve.root":
			roots = append(roots, span)
		}
	}
	require.Len(t, execSpans, 2)
	require.Len(t, roots, 2)
	require.NotEqual(t, roots[0].Parent().SpanID(), roots[1].Parent().SpanID())
	for _, root := range roots {
		require.True(t, execSpans[root.Parent().SpanID().String()], "root span parented by an execute span")
	}
}
