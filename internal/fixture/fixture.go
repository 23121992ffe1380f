// Package fixture is an in-memory data source backed by YAML records. It
// registers a root query for every entity type of a schema and a field
// resolver for every field annotated with @join.
//
// A fixture file maps type names to lists of records:
//
//	post:
//	  - {id: "1", title: Post 1}
//	comment:
//	  - {id: "1", text: Comment 1, postId: "1"}
package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hanpama/projector/internal/registry"
	"github.com/hanpama/projector/internal/schema"
)

// JoinDirective marks a field resolved from fixture records of its type:
// @join(on: "postId", from: "id") selects records whose postId equals the
// parent's id. from defaults to "id".
const JoinDirective = "join"

var ErrInvalidFixture = errors.New("invalid fixture")

// Data holds records per type name. Records are shared with resolvers and
// must not be modified after Register.
type Data map[string][]schema.Entity

// Load decodes YAML fixture data from r.
func Load(r io.Reader) (Data, error) {
	var raw map[string][]map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Data{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	data := make(Data, len(raw))
	for typ, records := range raw {
		out := make([]schema.Entity, len(records))
		for i, rec := range records {
			if rec == nil {
				return nil, fmt.Errorf("%w: %s[%d] is empty", ErrInvalidFixture, typ, i)
			}
			out[i] = schema.Entity(rec)
		}
		data[typ] = out
	}
	return data, nil
}

// LoadFile reads fixture data from the YAML file at path.
func LoadFile(path string) (Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// Register adds resolvers for sch backed by data to reg:
//   - T returns the first record of T whose fields equal every argument, or nil;
//   - [T] returns every record of T matching every argument;
//   - fields with @join return the matching records of the field's type,
//     all of them for a list field and the first one otherwise.
func Register(reg *registry.Registry, sch *schema.Schema, data Data) error {
	if sch == nil {
		return fmt.Errorf("%w: a schema is required", ErrInvalidFixture)
	}
	for typ := range data {
		if !sch.Has(typ) {
			return fmt.Errorf("%w: records for undeclared type %q", ErrInvalidFixture, typ)
		}
	}
	for _, name := range sch.TypeNames() {
		records := data[name]
		if err := reg.RegisterQuery(schema.SingleOf(name), findOne(records)); err != nil {
			return err
		}
		if err := reg.RegisterQuery(schema.CollectionOf(name), findAll(records)); err != nil {
			return err
		}
		for _, f := range sch.Types[name].Fields {
			d := f.Directive(JoinDirective)
			if d == nil {
				continue
			}
			fn, err := joinResolver(sch, name, f, d, data)
			if err != nil {
				return err
			}
			if err := reg.RegisterResolver(name, f.Name, f.Type, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func findOne(records []schema.Entity) registry.QueryResolver {
	return func(ctx context.Context, args map[string]any) (any, error) {
		for _, rec := range records {
			if matches(rec, args) {
				return rec, nil
			}
		}
		return nil, nil
	}
}

func findAll(records []schema.Entity) registry.QueryResolver {
	return func(ctx context.Context, args map[string]any) (any, error) {
		out := []schema.Entity{}
		for _, rec := range records {
			if matches(rec, args) {
				out = append(out, rec)
			}
		}
		return out, nil
	}
}

func joinResolver(sch *schema.Schema, owner string, f *schema.Field, d *schema.Directive, data Data) (registry.FieldResolver, error) {
	on, ok := d.StringArg("on")
	if !ok || on == "" {
		return nil, fmt.Errorf("%w: %s.%s: @join requires a string \"on\" argument", ErrInvalidFixture, owner, f.Name)
	}
	from, ok := d.StringArg("from")
	if !ok {
		from = "id"
	}
	target := f.Type.Elem()
	if !sch.Has(target) {
		return nil, fmt.Errorf("%w: %s.%s: @join on non-entity type %s", ErrInvalidFixture, owner, f.Name, f.Type)
	}
	records := data[target]
	many := f.Type.IsCollection()

	return func(ctx context.Context, parent schema.Entity, args map[string]any) (any, error) {
		key, ok := parent[from]
		if !ok || key == nil {
			return nil, nil
		}
		var out []schema.Entity
		for _, rec := range records {
			if v, ok := rec[on]; ok && equal(v, key) {
				if !many {
					return rec, nil
				}
				out = append(out, rec)
			}
		}
		if !many {
			return nil, nil
		}
		if out == nil {
			out = []schema.Entity{}
		}
		return out, nil
	}, nil
}

func matches(rec schema.Entity, args map[string]any) bool {
	for k, want := range args {
		got, ok := rec[k]
		if !ok || !equal(got, want) {
			return false
		}
	}
	return true
}

// equal compares fixture and argument values. Numbers compare by value
// regardless of their Go type, so YAML ints match int64 query literals.
func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// Types lists the type names that have records, sorted.
func (d Data) Types() []string {
	out := make([]string, 0, len(d))
	for t := range d {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
