package query

import (
	"errors"
	"fmt"

	"github.com/hanpama/projector/internal/language"
	"github.com/hanpama/projector/internal/schema"
)

// ErrInvalidDocument is returned for selection documents that cannot be
// mapped onto queries.
var ErrInvalidDocument = errors.New("invalid selection document")

// CollectionDirective marks a root selection as a collection query.
const CollectionDirective = "collection"

type ParseOptions struct {
	// Schema, when set, restricts root selections to declared types.
	Schema *schema.Schema
	// OperationName picks the operation when the document has several.
	OperationName string
	// Variables supplies $variable values used in root arguments.
	Variables map[string]any
}

// Parse reads a GraphQL selection document and returns one Query per root
// selection, in document order:
//
//	query {
//	  post(id: "1") { id title comments { id text } }
//	  post @collection { title }
//	}
//
// The root field name is the entity type, its arguments become Args and the
// @collection directive selects the collection kind. A root selection
// without a selection set yields a nil Fields (select everything available).
// Nested selections become nested queries with a zero Type.
func Parse(src string, opts ParseOptions) ([]*Query, error) {
	doc, err := language.ParseQuery(src)
	if err != nil {
		return nil, err
	}
	if len(doc.Fragments) > 0 {
		return nil, fmt.Errorf("%w: fragments are not supported", ErrInvalidDocument)
	}
	op, err := pickOperation(doc, opts.OperationName)
	if err != nil {
		return nil, err
	}
	if op.Operation != language.Query {
		return nil, fmt.Errorf("%w: unsupported operation type %s", ErrInvalidDocument, op.Operation)
	}

	out := make([]*Query, 0, len(op.SelectionSet))
	for _, sel := range op.SelectionSet {
		field, ok := sel.(*language.Field)
		if !ok {
			return nil, fmt.Errorf("%w: fragments are not supported", ErrInvalidDocument)
		}
		q, err := rootQuery(field, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func pickOperation(doc *language.QueryDocument, name string) (*language.OperationDefinition, error) {
	if name == "" {
		if len(doc.Operations) == 1 {
			return doc.Operations[0], nil
		}
		return nil, fmt.Errorf("%w: operation name required when the document has %d operations", ErrInvalidDocument, len(doc.Operations))
	}
	if op := doc.Operations.ForName(name); op != nil {
		return op, nil
	}
	return nil, fmt.Errorf("%w: operation %q not found", ErrInvalidDocument, name)
}

func rootQuery(field *language.Field, opts ParseOptions) (*Query, error) {
	if field.Alias != "" && field.Alias != field.Name {
		return nil, fmt.Errorf("%w: aliases are not supported (%s: %s)", ErrInvalidDocument, field.Alias, field.Name)
	}
	if err := opts.Schema.Check(field.Name); err != nil {
		return nil, fmt.Errorf("%w: root selection: %w", ErrInvalidDocument, err)
	}

	ref := schema.SingleOf(field.Name)
	for _, d := range field.Directives {
		if d.Name != CollectionDirective {
			return nil, fmt.Errorf("%w: unknown directive @%s on %s", ErrInvalidDocument, d.Name, field.Name)
		}
		ref = schema.CollectionOf(field.Name)
	}

	q := &Query{Type: ref}
	if len(field.Arguments) > 0 {
		q.Args = make(map[string]any, len(field.Arguments))
		for _, arg := range field.Arguments {
			v, err := language.ValueToGo(arg.Value, opts.Variables)
			if err != nil {
				return nil, fmt.Errorf("%w: argument %s.%s: %w", ErrInvalidDocument, field.Name, arg.Name, err)
			}
			q.Args[arg.Name] = v
		}
	}
	if len(field.SelectionSet) > 0 {
		fields, err := selectionFields(field.Name, field.SelectionSet)
		if err != nil {
			return nil, err
		}
		q.Fields = fields
	}
	return q, nil
}

func selectionFields(parent string, set language.SelectionSet) ([]Field, error) {
	fields := make([]Field, 0, len(set))
	for _, sel := range set {
		f, ok := sel.(*language.Field)
		if !ok {
			return nil, fmt.Errorf("%w: fragments are not supported (in %s)", ErrInvalidDocument, parent)
		}
		path := parent + "." + f.Name
		switch {
		case f.Alias != "" && f.Alias != f.Name:
			return nil, fmt.Errorf("%w: aliases are not supported (%s)", ErrInvalidDocument, path)
		case len(f.Arguments) > 0:
			return nil, fmt.Errorf("%w: arguments are only allowed on root selections (%s)", ErrInvalidDocument, path)
		case len(f.Directives) > 0:
			return nil, fmt.Errorf("%w: directives are only allowed on root selections (%s)", ErrInvalidDocument, path)
		}
		if len(f.SelectionSet) == 0 {
			fields = append(fields, Leaf(f.Name))
			continue
		}
		sub, err := selectionFields(path, f.SelectionSet)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Nested(f.Name, &Query{Fields: sub}))
	}
	return fields, nil
}
