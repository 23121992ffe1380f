package executor

import (
	"reflect"
	"strings"

	"github.com/hanpama/projector/internal/schema"
)

// toEntity normalizes a resolver value into an entity. It accepts
// schema.Entity, maps with string keys and structs (or non-nil pointers to
// structs). Struct fields use their json tag name when present; nil pointer,
// slice, map and interface fields are treated as absent.
func toEntity(v any) (schema.Entity, bool) {
	switch direct := v.(type) {
	case schema.Entity:
		return direct, direct != nil
	case map[string]any:
		return schema.Entity(direct), direct != nil
	}
	if isNullish(v) {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		out := make(schema.Entity, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out, true
	case reflect.Struct:
		out := make(schema.Entity, rv.NumField())
		structFields(rv, out)
		return out, true
	}
	return nil, false
}

func structFields(rv reflect.Value, out schema.Entity) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		fv := rv.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, tagged := jsonName(sf)
		if name == "-" {
			continue
		}
		if sf.Anonymous && !tagged {
			inner := fv
			if inner.Kind() == reflect.Ptr {
				if inner.IsNil() {
					continue
				}
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct {
				structFields(inner, out)
				continue
			}
		}
		if isNullish(fv.Interface()) {
			continue
		}
		out[name] = fv.Interface()
	}
}

func jsonName(sf reflect.StructField) (string, bool) {
	tag, ok := sf.Tag.Lookup("json")
	if !ok {
		return sf.Name, false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return sf.Name, false
	}
	return name, true
}

// asList returns the elements of a slice or array value. Byte slices are
// treated as scalars, not lists.
func asList(v any) ([]any, bool) {
	switch direct := v.(type) {
	case []any:
		return direct, true
	case []schema.Entity:
		items := make([]any, len(direct))
		for i, e := range direct {
			items[i] = e
		}
		return items, true
	case []map[string]any:
		items := make([]any, len(direct))
		for i, e := range direct {
			items[i] = schema.Entity(e)
		}
		return items, true
	case []byte:
		return nil, false
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
