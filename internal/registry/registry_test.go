package registry

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/projector/internal/schema"
	"github.com/stretchr/testify/require"
)

func constQuery(v any) QueryResolver {
	return func(ctx context.Context, args map[string]any) (any, error) { return v, nil }
}

func constField(v any) FieldResolver {
	return func(ctx context.Context, parent schema.Entity, args map[string]any) (any, error) { return v, nil }
}

func TestRegisterQuery_DistinctKeyspaces(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.RegisterQuery(schema.SingleOf("post"), constQuery("one")))
	require.NoError(t, r.RegisterQuery(schema.CollectionOf("post"), constQuery("many")))

	single, ok := r.LookupQuery(schema.SingleOf("post"))
	require.True(t, ok)
	got, _ := single.Resolver(context.Background(), nil)
	require.Equal(t, "one", got)

	coll, ok := r.LookupQuery(schema.CollectionOf("post"))
	require.True(t, ok)
	got, _ = coll.Resolver(context.Background(), nil)
	require.Equal(t, "many", got)

	_, ok = r.LookupQuery(schema.SingleOf("comment"))
	require.False(t, ok)

	want := []schema.TypeRef{schema.CollectionOf("post"), schema.SingleOf("post")}
	if diff := cmp.Diff(want, r.Queries()); diff != "" {
		t.Fatalf("Queries mismatch (-want +got):\n%s", diff)
	}
}

func TestRegister_LastWriteWins(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.RegisterQuery(schema.SingleOf("post"), constQuery("first")))
	require.NoError(t, r.RegisterQuery(schema.SingleOf("post"), constQuery("second")))
	d, _ := r.LookupQuery(schema.SingleOf("post"))
	got, _ := d.Resolver(context.Background(), nil)
	require.Equal(t, "second", got)

	require.NoError(t, r.RegisterResolver("post", "comments", schema.CollectionOf("comment"), constField("first")))
	require.NoError(t, r.RegisterResolver("post", "comments", schema.SingleOf("note"), constField("second")))
	fd, ok := r.LookupFieldResolver("post", "comments")
	require.True(t, ok)
	require.Equal(t, schema.SingleOf("note"), fd.Produces)
	got, _ = fd.Resolver(context.Background(), nil, nil)
	require.Equal(t, "second", got)
}

func TestLookupFieldResolver_Absent(t *testing.T) {
	r := New(nil)
	_, ok := r.LookupFieldResolver("post", "comments")
	require.False(t, ok)

	require.NoError(t, r.RegisterResolver("post", "comments", schema.CollectionOf("comment"), constField(nil)))
	_, ok = r.LookupFieldResolver("post", "author")
	require.False(t, ok)
	_, ok = r.LookupFieldResolver("comment", "comments")
	require.False(t, ok)
	require.Equal(t, []string{"comments"}, r.Fields("post"))
}

func TestRegister_SchemaValidation(t *testing.T) {
	sch := schema.NewSchema(schema.NewType("post", ""), schema.NewType("comment", ""))
	r := New(sch)

	require.NoError(t, r.RegisterQuery(schema.CollectionOf("post"), constQuery(nil)))
	require.ErrorIs(t, r.RegisterQuery(schema.SingleOf("user"), constQuery(nil)), schema.ErrUnknownType)

	require.NoError(t, r.RegisterResolver("post", "comments", schema.CollectionOf("comment"), constField(nil)))
	require.ErrorIs(t, r.RegisterResolver("user", "posts", schema.CollectionOf("post"), constField(nil)), schema.ErrUnknownType)
	require.ErrorIs(t, r.RegisterResolver("post", "author", schema.SingleOf("user"), constField(nil)), schema.ErrUnknownType)
}

func TestRegister_Invalid(t *testing.T) {
	r := New(nil)
	require.ErrorIs(t, r.RegisterQuery(schema.TypeRef{}, constQuery(nil)), ErrInvalidRegistration)
	require.ErrorIs(t, r.RegisterQuery(schema.SingleOf("post"), nil), ErrInvalidRegistration)
	require.ErrorIs(t, r.RegisterResolver("", "f", schema.SingleOf("x"), constField(nil)), ErrInvalidRegistration)
	require.ErrorIs(t, r.RegisterResolver("post", "", schema.SingleOf("x"), constField(nil)), ErrInvalidRegistration)
	require.NoError(t, r.RegisterResolver("post", "f", schema.TypeRef{}, constField(nil)), "scalar fields have no produced type")
	require.ErrorIs(t, r.RegisterResolver("post", "f", schema.SingleOf("x"), nil), ErrInvalidRegistration)
}
