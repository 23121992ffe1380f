package schema

import (
	"errors"
	"fmt"
	"strings"
)

// TypeField is the key under which every projected entity carries its
// (unwrapped) entity type name.
const TypeField = "__type"

// ErrUnknownType is returned when a type name is not part of the schema.
var ErrUnknownType = errors.New("unknown entity type")

// Entity is a loosely-typed record: field name to value. A key that is
// present with a nil value is still present.
type Entity map[string]any

// Has reports whether the field is present on the entity, regardless of its value.
func (e Entity) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Clone returns a shallow copy of the entity.
func (e Entity) Clone() Entity {
	out := make(Entity, len(e)+1)
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Kind distinguishes a single entity from a collection of entities.
type Kind uint8

const (
	Single Kind = iota
	Collection
)

func (k Kind) String() string {
	switch k {
	case Single:
		return "SINGLE"
	case Collection:
		return "COLLECTION"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// TypeRef names an entity type, optionally as a collection of that type.
// It is comparable and used directly as a map key.
type TypeRef struct {
	Kind Kind
	Name string
}

func SingleOf(name string) TypeRef     { return TypeRef{Kind: Single, Name: name} }
func CollectionOf(name string) TypeRef { return TypeRef{Kind: Collection, Name: name} }

// IsZero reports whether no type name is set.
func (t TypeRef) IsZero() bool { return t.Name == "" }

// IsCollection reports whether t refers to a collection.
func (t TypeRef) IsCollection() bool { return t.Kind == Collection }

// Elem returns the element type name, with any collection wrapping removed.
func (t TypeRef) Elem() string { return t.Name }

// String renders t in bracket notation: "post" or "[post]".
func (t TypeRef) String() string {
	if t.Kind == Collection {
		return "[" + t.Name + "]"
	}
	return t.Name
}

// ParseTypeRef parses the bracket notation produced by TypeRef.String.
func ParseTypeRef(s string) (TypeRef, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") || strings.HasSuffix(s, "]") {
		if len(s) < 3 || !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
			return TypeRef{}, fmt.Errorf("invalid type reference %q", s)
		}
		name := strings.TrimSpace(s[1 : len(s)-1])
		if name == "" || strings.ContainsAny(name, "[]") {
			return TypeRef{}, fmt.Errorf("invalid type reference %q", s)
		}
		return CollectionOf(name), nil
	}
	if s == "" {
		return TypeRef{}, fmt.Errorf("empty type reference")
	}
	return SingleOf(s), nil
}

// Schema is the closed set of entity types known at setup time.
type Schema struct {
	Types       map[string]*Type
	Description string

	order []string
}

// Type is a named entity type.
type Type struct {
	Name        string
	Description string
	Fields      []*Field
}

// Field describes one field of an entity type. Type.Name is either another
// entity type or a scalar name the schema does not track.
type Field struct {
	Name        string
	Description string
	Type        TypeRef
	NonNull     bool
	Directives  []*Directive
}

// Directive is a parsed directive use on a field, with literal argument values.
type Directive struct {
	Name      string
	Arguments map[string]any
}

func NewSchema(types ...*Type) *Schema {
	s := &Schema{Types: make(map[string]*Type)}
	for _, t := range types {
		s.AddType(t)
	}
	return s
}

// AddType adds or replaces a type. Declaration order is kept for TypeNames.
func (s *Schema) AddType(t *Type) *Schema {
	if _, exists := s.Types[t.Name]; !exists {
		s.order = append(s.order, t.Name)
	}
	s.Types[t.Name] = t
	return s
}

// Has reports whether name is a declared entity type.
func (s *Schema) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Types[name]
	return ok
}

// Check returns ErrUnknownType (wrapped) if name is not declared. A nil
// schema accepts every name.
func (s *Schema) Check(name string) error {
	if s == nil || s.Has(name) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// TypeNames returns declared type names in declaration order.
func (s *Schema) TypeNames() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func NewType(name, description string, fields ...*Field) *Type {
	t := &Type{Name: name, Description: description}
	for _, f := range fields {
		t.AddField(f)
	}
	return t
}

func (t *Type) AddField(f *Field) *Type {
	t.Fields = append(t.Fields, f)
	return t
}

// Field returns the named field, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func NewField(name string, typ TypeRef) *Field {
	return &Field{Name: name, Type: typ}
}

// Directive returns the first directive with the given name, or nil.
func (f *Field) Directive(name string) *Directive {
	for _, d := range f.Directives {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// StringArg returns a string argument of the directive.
func (d *Directive) StringArg(name string) (string, bool) {
	s, ok := d.Arguments[name].(string)
	return s, ok
}
