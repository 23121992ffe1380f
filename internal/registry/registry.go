// Package registry stores the resolvers the executor dispatches to: one root
// query resolver per type reference and field resolvers keyed by owner type
// and field name.
//
// Registration is meant to happen at setup time, before any query runs.
// Both keyspaces are last-write-wins; there is no removal.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hanpama/projector/internal/schema"
)

// ErrInvalidRegistration is returned for empty names or nil resolver functions.
var ErrInvalidRegistration = errors.New("invalid registration")

// QueryResolver produces the root value for a query: a single entity, a list
// of entities, or nil for "not found".
type QueryResolver func(ctx context.Context, args map[string]any) (any, error)

// FieldResolver produces the value of one field of parent. parent is the
// entity being resolved, already holding every field resolved before this one.
type FieldResolver func(ctx context.Context, parent schema.Entity, args map[string]any) (any, error)

type QueryDescriptor struct {
	Type     schema.TypeRef
	Resolver QueryResolver
}

type FieldDescriptor struct {
	Owner    string
	Field    string
	Produces schema.TypeRef
	Resolver FieldResolver
}

type Registry struct {
	schema *schema.Schema

	mu        sync.RWMutex
	queries   map[schema.TypeRef]*QueryDescriptor
	resolvers map[string]map[string]*FieldDescriptor // owner -> field -> descriptor
}

// New creates an empty Registry. When sch is non-nil every registered type
// name must be declared in it.
func New(sch *schema.Schema) *Registry {
	return &Registry{
		schema:    sch,
		queries:   make(map[schema.TypeRef]*QueryDescriptor),
		resolvers: make(map[string]map[string]*FieldDescriptor),
	}
}

// Schema returns the schema the registry validates against, possibly nil.
func (r *Registry) Schema() *schema.Schema { return r.schema }

// RegisterQuery stores fn as the root resolver for ref, replacing any
// previous one. post and [post] are distinct keys.
func (r *Registry) RegisterQuery(ref schema.TypeRef, fn QueryResolver) error {
	if ref.IsZero() || fn == nil {
		return fmt.Errorf("%w: query %q", ErrInvalidRegistration, ref.String())
	}
	if err := r.schema.Check(ref.Elem()); err != nil {
		return fmt.Errorf("register query %s: %w", ref, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries[ref] = &QueryDescriptor{Type: ref, Resolver: fn}
	return nil
}

// RegisterResolver stores fn as the resolver of owner.field, which produces
// values of type produced. A zero produced marks a scalar field. A later
// registration for the same pair wins.
func (r *Registry) RegisterResolver(owner, field string, produced schema.TypeRef, fn FieldResolver) error {
	if owner == "" || field == "" || fn == nil {
		return fmt.Errorf("%w: resolver %s.%s", ErrInvalidRegistration, owner, field)
	}
	if err := r.schema.Check(owner); err != nil {
		return fmt.Errorf("register resolver %s.%s: %w", owner, field, err)
	}
	if !produced.IsZero() {
		if err := r.schema.Check(produced.Elem()); err != nil {
			return fmt.Errorf("register resolver %s.%s: %w", owner, field, err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fields := r.resolvers[owner]
	if fields == nil {
		fields = make(map[string]*FieldDescriptor)
		r.resolvers[owner] = fields
	}
	fields[field] = &FieldDescriptor{Owner: owner, Field: field, Produces: produced, Resolver: fn}
	return nil
}

// LookupQuery returns the root resolver registered for ref.
func (r *Registry) LookupQuery(ref schema.TypeRef) (*QueryDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.queries[ref]
	return d, ok
}

// LookupFieldResolver returns the resolver registered for owner.field.
// Absence is a normal outcome.
func (r *Registry) LookupFieldResolver(owner, field string) (*FieldDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.resolvers[owner][field]
	return d, ok
}

// Queries lists registered root query types, sorted by their bracket notation.
func (r *Registry) Queries() []schema.TypeRef {
	r.mu.RLock()
	out := make([]schema.TypeRef, 0, len(r.queries))
	for ref := range r.queries {
		out = append(out, ref)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Fields lists the fields of owner that have a registered resolver, sorted.
func (r *Registry) Fields(owner string) []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.resolvers[owner]))
	for name := range r.resolvers[owner] {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
