// Package query defines the declarative request shape consumed by the
// executor: a target type, optional arguments, an optional transform of the
// root result, and a field-selection tree.
package query

import (
	"context"

	"github.com/hanpama/projector/internal/schema"
)

// Transform rewrites a resolver result before any field resolution. It
// receives and returns the same shape: a single entity, a list, or nil. On a
// root query it also receives a nil result.
type Transform func(ctx context.Context, result any) (any, error)

type Query struct {
	// Type names the root entity type to fetch. For a nested query it may be
	// left zero, in which case the produced type of the field resolver is used.
	Type schema.TypeRef
	// Args is forwarded verbatim to the root resolver and to every field
	// resolver invoked while answering this query. Args set on a nested query
	// replace the root arguments for the field resolvers of that level only.
	Args map[string]any
	// Manipulate, when set, is applied to the root result before projection.
	// On a nested query it is applied to the non-nil field value before that
	// value is resolved and projected.
	Manipulate Transform
	// Fields is the selection tree. A nil slice selects every field present
	// on the root result without running field resolvers; a non-nil empty
	// slice selects no fields at all.
	Fields []Field
}

// Field selects one field. A nil Query includes the value as is; a non-nil
// Query resolves and projects the value with that nested query.
type Field struct {
	Name  string
	Query *Query
}

// IsNested reports whether the field carries a nested selection.
func (f Field) IsNested() bool { return f.Query != nil }

// Leaf selects a field verbatim.
func Leaf(name string) Field { return Field{Name: name} }

// Leaves selects each name verbatim, in order.
func Leaves(names ...string) []Field {
	out := make([]Field, len(names))
	for i, n := range names {
		out[i] = Leaf(n)
	}
	return out
}

// Nested selects a field whose value is resolved and projected with q.
func Nested(name string, q *Query) Field { return Field{Name: name, Query: q} }

// Fields builds a selection from individual fields.
func Fields(fields ...Field) []Field { return fields }

// Selection returns the selection with duplicate names merged: the first
// occurrence keeps its position and the last occurrence's query wins. It
// returns nil when Fields is nil.
func (q *Query) Selection() []Field {
	if q.Fields == nil {
		return nil
	}
	out := make([]Field, 0, len(q.Fields))
	index := make(map[string]int, len(q.Fields))
	for _, f := range q.Fields {
		if i, ok := index[f.Name]; ok {
			out[i] = f
			continue
		}
		index[f.Name] = len(out)
		out = append(out, f)
	}
	return out
}

// FieldNames returns the selected field names, de-duplicated, in order.
func (q *Query) FieldNames() []string {
	sel := q.Selection()
	if sel == nil {
		return nil
	}
	names := make([]string, len(sel))
	for i, f := range sel {
		names[i] = f.Name
	}
	return names
}
