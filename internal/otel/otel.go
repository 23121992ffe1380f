package otel

import (
	"context"
	"sync"

	"github.com/hanpama/projector/internal/eventbus"
	"github.com/hanpama/projector/internal/events"
	"github.com/hanpama/projector/internal/execid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const instrumentationName = "github.com/hanpama/projector"

// Setup configures OpenTelemetry and attaches subscribers to bus.
// If endpoint is empty, no telemetry is configured.
func Setup(ctx context.Context, bus *eventbus.Bus, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unregister := Register(bus, otel.Tracer(instrumentationName))
	return func(ctx context.Context) error {
		unregister()
		return tp.Shutdown(ctx)
	}, nil
}

type callKey struct {
	exec int64
	call uint64
}

type subscriber struct {
	tracer    trace.Tracer
	execSpans sync.Map // exec id -> trace.Span
	callSpans sync.Map // callKey -> trace.Span
}

// Register starts one span per execution and one child span per resolver
// call, using events published on bus. The returned func detaches it.
func Register(bus *eventbus.Bus, tracer trace.Tracer) (unregister func()) {
	s := &subscriber{tracer: tracer}
	unsubs := []func(){
		eventbus.On(bus, s.executionStart),
		eventbus.On(bus, s.executionFinish),
		eventbus.On(bus, s.resolverStart),
		eventbus.On(bus, s.resolverFinish),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (s *subscriber) executionStart(ctx context.Context, e events.ExecutionStart) {
	eid, _ := execid.FromContext(ctx)
	_, span := s.tracer.Start(ctx, "projector.execute")
	span.SetAttributes(
		attribute.String("projector.query.type", e.Type),
		attribute.Int("projector.query.args", len(e.Args)),
	)
	if parent, ok := execid.ParentFromContext(ctx); ok {
		span.SetAttributes(attribute.Int64("projector.parent_exec", parent))
	}
	s.execSpans.Store(eid, span)
}

func (s *subscriber) executionFinish(ctx context.Context, e events.ExecutionFinish) {
	eid, _ := execid.FromContext(ctx)
	v, ok := s.execSpans.LoadAndDelete(eid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(attribute.Bool("projector.result.found", e.Found))
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
	span.End()
}

func (s *subscriber) resolverStart(ctx context.Context, e events.ResolverStart) {
	eid, _ := execid.FromContext(ctx)
	parent := ctx
	if v, ok := s.execSpans.Load(eid); ok {
		parent = trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	_, span := s.tracer.Start(parent, "projector.resolve."+string(e.Kind))
	span.SetAttributes(
		attribute.String("projector.resolver.type", e.Type),
		attribute.String("projector.resolver.path", e.Path),
	)
	if e.Field != "" {
		span.SetAttributes(attribute.String("projector.resolver.field", e.Field))
	}
	s.callSpans.Store(callKey{exec: eid, call: e.CallID}, span)
}

func (s *subscriber) resolverFinish(ctx context.Context, e events.ResolverFinish) {
	eid, _ := execid.FromContext(ctx)
	v, ok := s.callSpans.LoadAndDelete(callKey{exec: eid, call: e.CallID})
	if !ok {
		return
	}
	span := v.(trace.Span)
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
	span.End()
}
