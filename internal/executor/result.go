package executor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hanpama/projector/internal/events"
)

var (
	// ErrQueryNotFound is returned when no root resolver is registered for
	// the query type.
	ErrQueryNotFound = errors.New("query not found")
	// ErrNotCollection is returned when a collection query's result is not a list.
	ErrNotCollection = errors.New("collection query did not produce a list")
	// ErrNotEntity is returned when a root result is neither an entity nor a list.
	ErrNotEntity = errors.New("result is not an entity")
	// ErrUnknownNestedType is returned when a nested selection has no type
	// and neither the registry nor the schema can supply one.
	ErrUnknownNestedType = errors.New("cannot determine type of nested selection")
	// ErrMaxDepth is returned when selections nest deeper than the configured limit.
	ErrMaxDepth = errors.New("maximum selection depth exceeded")
)

// ResolverError wraps a failure returned by a root, field or manipulate
// callback. It unwraps to the callback's error unchanged.
type ResolverError struct {
	Kind  events.ResolverKind
	Type  string
	Field string
	Path  Path
	Err   error
}

func (e *ResolverError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" resolver ")
	b.WriteString(e.Type)
	if e.Field != "" {
		b.WriteString(".")
		b.WriteString(e.Field)
	}
	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(e.Path.String())
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *ResolverError) Unwrap() error { return e.Err }

// Path locates a value in the result: field names and list indexes.
type Path []PathElement

type PathElement any

func (p Path) String() string {
	var b strings.Builder
	for i, elem := range p {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				b.WriteString(".")
			}
			b.WriteString(v)
		case int:
			fmt.Fprintf(&b, "[%d]", v)
		}
	}
	return b.String()
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}
