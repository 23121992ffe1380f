package executor

import (
	"context"
	"sync"
	"testing"

	"github.com/hanpama/projector/internal/registry"
	"github.com/hanpama/projector/internal/schema"
	"github.com/stretchr/testify/require"
)

// Call represents a single resolver invocation observed by a recorder.
type Call struct {
	Kind   string // "root" or "field"
	Type   string
	Field  string
	Parent schema.Entity // snapshot at call time, nil for root calls
	Args   map[string]any
}

// recorder wraps resolvers so tests can assert which ones ran, in which
// order and with which inputs.
type recorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *recorder) add(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

func (r *recorder) query(ref schema.TypeRef, fn registry.QueryResolver) registry.QueryResolver {
	return func(ctx context.Context, args map[string]any) (any, error) {
		r.add(Call{Kind: "root", Type: ref.String(), Args: args})
		return fn(ctx, args)
	}
}

func (r *recorder) field(owner, field string, fn registry.FieldResolver) registry.FieldResolver {
	return func(ctx context.Context, parent schema.Entity, args map[string]any) (any, error) {
		r.add(Call{Kind: "field", Type: owner, Field: field, Parent: parent.Clone(), Args: args})
		return fn(ctx, parent, args)
	}
}

// testEnv bundles a registry with a recorder that wraps everything
// registered through it.
type testEnv struct {
	t   *testing.T
	reg *registry.Registry
	rec *recorder
}

func newTestEnv(t *testing.T, sch *schema.Schema) *testEnv {
	t.Helper()
	return &testEnv{t: t, reg: registry.New(sch), rec: &recorder{}}
}

func (e *testEnv) Query(ref schema.TypeRef, fn registry.QueryResolver) *testEnv {
	e.t.Helper()
	require.NoError(e.t, e.reg.RegisterQuery(ref, e.rec.query(ref, fn)))
	return e
}

func (e *testEnv) Field(owner, field string, produced schema.TypeRef, fn registry.FieldResolver) *testEnv {
	e.t.Helper()
	require.NoError(e.t, e.reg.RegisterResolver(owner, field, produced, e.rec.field(owner, field, fn)))
	return e
}

func (e *testEnv) Executor(opts ...Option) *Executor {
	opts = append([]Option{WithEventBus(nil)}, opts...)
	return NewExecutor(e.reg, opts...)
}

func valueQuery(v any) registry.QueryResolver {
	return func(ctx context.Context, args map[string]any) (any, error) { return v, nil }
}

func errorQuery(err error) registry.QueryResolver {
	return func(ctx context.Context, args map[string]any) (any, error) { return nil, err }
}

func valueField(v any) registry.FieldResolver {
	return func(ctx context.Context, parent schema.Entity, args map[string]any) (any, error) { return v, nil }
}

func errorField(err error) registry.FieldResolver {
	return func(ctx context.Context, parent schema.Entity, args map[string]any) (any, error) { return nil, err }
}
