package executor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/projector/internal/eventbus"
	"github.com/hanpama/projector/internal/events"
	"github.com/hanpama/projector/internal/execid"
	"github.com/hanpama/projector/internal/query"
	"github.com/hanpama/projector/internal/registry"
	"github.com/hanpama/projector/internal/schema"
)

const defaultMaxDepth = 32

type Options struct {
	// Concurrency bounds how many list elements resolve at once. Values
	// below 2 resolve strictly in index order.
	Concurrency int
	// MaxDepth bounds selection nesting. 0 uses the default of 32.
	MaxDepth int
	// Bus receives execution and resolver events. When unset the global
	// bus is used; see WithEventBus.
	Bus    *eventbus.Bus
	busSet bool
}

type Option func(*Options)

// WithConcurrency resolves up to n list elements concurrently. Output order
// always matches input order. Resolvers must then be safe for concurrent use.
func WithConcurrency(n int) Option { return func(o *Options) { o.Concurrency = n } }

func WithMaxDepth(n int) Option { return func(o *Options) { o.MaxDepth = n } }

// WithEventBus publishes events to b instead of the global bus. A nil b
// disables events.
func WithEventBus(b *eventbus.Bus) Option {
	return func(o *Options) { o.Bus = b; o.busSet = true }
}

type Executor struct {
	registry *registry.Registry
	opt      Options
}

func NewExecutor(reg *registry.Registry, opts ...Option) *Executor {
	op := Options{Concurrency: 1, MaxDepth: defaultMaxDepth}
	for _, f := range opts {
		f(&op)
	}
	if op.MaxDepth <= 0 {
		op.MaxDepth = defaultMaxDepth
	}
	return &Executor{registry: reg, opt: op}
}

// executionState holds the state of one Execute call.
type executionState struct {
	registry    *registry.Registry
	bus         *eventbus.Bus
	concurrency int
	maxDepth    int
	// args of the root query, forwarded to field resolvers
	args   map[string]any
	nextID atomic.Uint64
}

// Execute runs q and returns its projected result: a schema.Entity for a
// single result, a []any of projected elements for a list result, or nil
// when the root resolver (or Manipulate) produced nothing.
//
// The first error aborts the call. Resolver failures are returned as
// *ResolverError; an unregistered root type yields ErrQueryNotFound.
func (e *Executor) Execute(ctx context.Context, q *query.Query) (any, error) {
	if q == nil {
		return nil, errors.New("nil query")
	}
	bus := e.opt.Bus
	if !e.opt.busSet {
		bus = eventbus.Global()
	}
	// A caller's id becomes the parent; each call gets its own.
	ctx, _ = execid.NewContext(ctx)
	state := &executionState{
		registry:    e.registry,
		bus:         bus,
		concurrency: e.opt.Concurrency,
		maxDepth:    e.opt.MaxDepth,
		args:        q.Args,
	}

	start := time.Now()
	eventbus.Emit(bus, ctx, events.ExecutionStart{
		Type:   q.Type.String(),
		Args:   q.Args,
		Fields: q.FieldNames(),
	})
	result, err := executeQuery(ctx, state, q)
	eventbus.Emit(bus, ctx, events.ExecutionFinish{
		Type:     q.Type.String(),
		Err:      err,
		Found:    err == nil && result != nil,
		Duration: time.Since(start),
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExecuteAll runs queries one after another and returns their results in
// order. It stops at the first error.
func (e *Executor) ExecuteAll(ctx context.Context, qs []*query.Query) ([]any, error) {
	out := make([]any, len(qs))
	for i, q := range qs {
		res, err := e.Execute(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("query %d (%s): %w", i, q.Type, err)
		}
		out[i] = res
	}
	return out, nil
}

func executeQuery(ctx context.Context, state *executionState, q *query.Query) (any, error) {
	desc, ok := state.registry.LookupQuery(q.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrQueryNotFound, q.Type)
	}
	typeName := q.Type.Elem()
	path := Path{typeName}

	result, err := state.call(ctx, events.ResolverRoot, typeName, "", path, func(ctx context.Context) (any, error) {
		return desc.Resolver(ctx, q.Args)
	})
	if err != nil {
		return nil, err
	}
	if q.Manipulate != nil {
		result, err = state.call(ctx, events.ResolverManipulate, typeName, "", path, func(ctx context.Context) (any, error) {
			return q.Manipulate(ctx, result)
		})
		if err != nil {
			return nil, err
		}
	}
	if isNullish(result) {
		return nil, nil
	}

	items, isList := asList(result)
	if q.Type.IsCollection() && !isList {
		return nil, fmt.Errorf("%w: %s returned %T", ErrNotCollection, q.Type, result)
	}

	// Without a selection everything present is returned and no field
	// resolver runs.
	if q.Fields == nil {
		if isList {
			out := make([]any, len(items))
			for i, item := range items {
				if ent, ok := toEntity(item); ok {
					out[i] = projectAll(typeName, ent)
				} else {
					out[i] = item
				}
			}
			return out, nil
		}
		ent, ok := toEntity(result)
		if !ok {
			return nil, fmt.Errorf("%w: %s returned %T", ErrNotEntity, q.Type, result)
		}
		return projectAll(typeName, ent), nil
	}

	if isList {
		return state.resolveList(ctx, items, q, typeName, path, 0)
	}
	ent, ok := toEntity(result)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T", ErrNotEntity, q.Type, result)
	}
	return state.resolveEntity(ctx, ent, q, typeName, path, 0)
}

// resolveList resolves and projects every element with q. Elements that are
// not entities are kept as they are. Results keep the input order.
func (s *executionState) resolveList(ctx context.Context, items []any, q *query.Query, typeName string, path Path, depth int) ([]any, error) {
	out := make([]any, len(items))
	if s.concurrency < 2 || len(items) < 2 {
		for i, item := range items {
			v, err := s.resolveElement(ctx, item, q, typeName, appendPath(path, i), depth)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, item := range items {
		g.Go(func() error {
			v, err := s.resolveElement(gctx, item, q, typeName, appendPath(path, i), depth)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *executionState) resolveElement(ctx context.Context, item any, q *query.Query, typeName string, path Path, depth int) (any, error) {
	if isNullish(item) {
		return nil, nil
	}
	ent, ok := toEntity(item)
	if !ok {
		return item, nil
	}
	return s.resolveEntity(ctx, ent, q, typeName, path, depth)
}

// resolveEntity fills requested-but-absent fields of a copy of ent from the
// registered field resolvers, resolves nested selections, and projects the
// copy down to the selection.
func (s *executionState) resolveEntity(ctx context.Context, ent schema.Entity, q *query.Query, typeName string, path Path, depth int) (schema.Entity, error) {
	if typeName == "" {
		return nil, fmt.Errorf("%w at %s", ErrUnknownNestedType, path)
	}
	if depth > s.maxDepth {
		return nil, fmt.Errorf("%w (%d) at %s", ErrMaxDepth, s.maxDepth, path)
	}
	if q.Fields == nil {
		return projectAll(typeName, ent), nil
	}
	args := s.args
	if q.Args != nil {
		args = q.Args
	}

	working := ent.Clone()
	selection := q.Selection()
	for _, f := range selection {
		fieldPath := appendPath(path, f.Name)
		desc, hasResolver := s.registry.LookupFieldResolver(typeName, f.Name)

		if !working.Has(f.Name) && hasResolver {
			v, err := s.call(ctx, events.ResolverField, typeName, f.Name, fieldPath, func(ctx context.Context) (any, error) {
				return desc.Resolver(ctx, working, args)
			})
			if err != nil {
				return nil, err
			}
			if !isNullish(v) {
				working[f.Name] = v
			}
		}

		if !f.IsNested() {
			continue
		}
		value, present := working[f.Name]
		if !present || isNullish(value) {
			continue
		}
		if f.Query.Manipulate != nil {
			v, err := s.call(ctx, events.ResolverManipulate, typeName, f.Name, fieldPath, func(ctx context.Context) (any, error) {
				return f.Query.Manipulate(ctx, value)
			})
			if err != nil {
				return nil, err
			}
			if isNullish(v) {
				delete(working, f.Name)
				continue
			}
			value = v
		}

		nestedType := s.nestedType(typeName, f, desc, hasResolver)
		if items, ok := asList(value); ok {
			resolved, err := s.resolveList(ctx, items, f.Query, nestedType, fieldPath, depth+1)
			if err != nil {
				return nil, err
			}
			working[f.Name] = resolved
			continue
		}
		if child, ok := toEntity(value); ok {
			resolved, err := s.resolveEntity(ctx, child, f.Query, nestedType, fieldPath, depth+1)
			if err != nil {
				return nil, err
			}
			working[f.Name] = resolved
			continue
		}
		working[f.Name] = value
	}

	names := make([]string, len(selection))
	for i, f := range selection {
		names[i] = f.Name
	}
	return project(typeName, working, names), nil
}

// nestedType picks the type tag of a nested selection: the nested query's own
// type, else the produced type of the field resolver, else the schema's
// declared field type. It returns "" when none is known.
func (s *executionState) nestedType(owner string, f query.Field, desc *registry.FieldDescriptor, hasResolver bool) string {
	if !f.Query.Type.IsZero() {
		return f.Query.Type.Elem()
	}
	if hasResolver && !desc.Produces.IsZero() {
		return desc.Produces.Elem()
	}
	if sch := s.registry.Schema(); sch != nil {
		if t := sch.Types[owner]; t != nil {
			if fd := t.Field(f.Name); fd != nil && sch.Has(fd.Type.Elem()) {
				return fd.Type.Elem()
			}
		}
	}
	return ""
}

// call runs one resolver callback, publishing start and finish events. A
// cancelled context stops execution before the callback is invoked.
func (s *executionState) call(ctx context.Context, kind events.ResolverKind, typeName, field string, path Path, fn func(context.Context) (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := s.nextID.Add(1)
	p := path.String()
	eventbus.Emit(s.bus, ctx, events.ResolverStart{CallID: id, Kind: kind, Type: typeName, Field: field, Path: p})
	start := time.Now()
	v, err := fn(ctx)
	eventbus.Emit(s.bus, ctx, events.ResolverFinish{
		CallID:   id,
		Kind:     kind,
		Type:     typeName,
		Field:    field,
		Path:     p,
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		return nil, &ResolverError{Kind: kind, Type: typeName, Field: field, Path: path, Err: err}
	}
	return v, nil
}

// project returns a fresh entity holding the type tag and the selected
// fields present on ent.
func project(typeName string, ent schema.Entity, selected []string) schema.Entity {
	out := make(schema.Entity, len(selected)+1)
	out[schema.TypeField] = typeName
	for _, name := range selected {
		if name == schema.TypeField {
			continue
		}
		if v, ok := ent[name]; ok {
			out[name] = v
		}
	}
	return out
}

func projectAll(typeName string, ent schema.Entity) schema.Entity {
	out := ent.Clone()
	out[schema.TypeField] = typeName
	return out
}
