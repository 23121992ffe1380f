package schema

import (
	"fmt"

	"github.com/hanpama/projector/internal/language"
)

// BuildFromSDL parses SDL and returns the entity schema it declares.
// Every object type (including `extend type` additions, merged into their
// base) becomes an entity type; scalars, enums and other kinds are not
// entity types and are ignored.
func BuildFromSDL(sdl string) (*Schema, error) {
	return BuildFromSDLNamed("schema.graphql", sdl)
}

// BuildFromSDLNamed is BuildFromSDL with a source name used in parse errors.
func BuildFromSDLNamed(name, sdl string) (*Schema, error) {
	doc, err := language.ParseSchema(name, sdl)
	if err != nil {
		return nil, err
	}
	s := NewSchema()
	for _, def := range doc.Definitions {
		if def.Kind != language.Object {
			continue
		}
		if s.Has(def.Name) {
			return nil, fmt.Errorf("type %q declared more than once", def.Name)
		}
		t, err := buildType(def)
		if err != nil {
			return nil, err
		}
		s.AddType(t)
	}
	for _, ext := range doc.Extensions {
		if ext.Kind != language.Object {
			continue
		}
		base, ok := s.Types[ext.Name]
		if !ok {
			return nil, fmt.Errorf("cannot extend %w: %q", ErrUnknownType, ext.Name)
		}
		for _, fd := range ext.Fields {
			if base.Field(fd.Name) != nil {
				return nil, fmt.Errorf("field %s.%s declared more than once", ext.Name, fd.Name)
			}
			f, err := buildField(ext.Name, fd)
			if err != nil {
				return nil, err
			}
			base.AddField(f)
		}
	}
	return s, nil
}

func buildType(def *language.Definition) (*Type, error) {
	t := NewType(def.Name, def.Description)
	for _, fd := range def.Fields {
		f, err := buildField(def.Name, fd)
		if err != nil {
			return nil, err
		}
		t.AddField(f)
	}
	return t, nil
}

func buildField(owner string, def *language.FieldDefinition) (*Field, error) {
	ref, nonNull, err := buildTypeRef(def.Type)
	if err != nil {
		return nil, fmt.Errorf("field %s.%s: %w", owner, def.Name, err)
	}
	f := NewField(def.Name, ref)
	f.Description = def.Description
	f.NonNull = nonNull
	for _, d := range def.Directives {
		dir := &Directive{Name: d.Name, Arguments: make(map[string]any, len(d.Arguments))}
		for _, arg := range d.Arguments {
			v, err := language.ValueToGo(arg.Value, nil)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: directive @%s: %w", owner, def.Name, d.Name, err)
			}
			dir.Arguments[arg.Name] = v
		}
		f.Directives = append(f.Directives, dir)
	}
	return f, nil
}

// buildTypeRef maps a GraphQL type expression onto a TypeRef. Only one list
// level is representable.
func buildTypeRef(t *language.Type) (TypeRef, bool, error) {
	if t.Elem == nil {
		return SingleOf(t.NamedType), t.NonNull, nil
	}
	if t.Elem.Elem != nil {
		return TypeRef{}, false, fmt.Errorf("nested list type %s is not supported", t.String())
	}
	return CollectionOf(t.Elem.NamedType), t.NonNull, nil
}
