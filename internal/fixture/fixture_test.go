package fixture

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/projector/internal/executor"
	"github.com/hanpama/projector/internal/query"
	"github.com/hanpama/projector/internal/registry"
	"github.com/hanpama/projector/internal/schema"
)

const blogSDL = `
type post {
  id: ID!
  title: String
  rank: Int
  comments: [comment] @join(on: "postId")
}

type comment {
  id: ID!
  text: String
  postId: ID!
  post: post @join(on: "id", from: "postId")
}
`

const blogData = `
post:
  - {id: "1", title: Post 1, rank: 2}
  - {id: "2", title: Post 2, rank: 1}
  - {id: "3", title: Post 3, rank: 2}
comment:
  - {id: "1", text: Comment 1, postId: "1"}
  - {id: "2", text: Comment 2, postId: "1"}
  - {id: "3", text: Comment 3, postId: "2"}
`

func setup(t *testing.T) *registry.Registry {
	t.Helper()
	sch, err := schema.BuildFromSDL(blogSDL)
	require.NoError(t, err)
	data, err := Load(strings.NewReader(blogData))
	require.NoError(t, err)
	reg := registry.New(sch)
	require.NoError(t, Register(reg, sch, data))
	return reg
}

func TestLoad(t *testing.T) {
	data, err := Load(strings.NewReader(blogData))
	require.NoError(t, err)
	require.Equal(t, []string{"comment", "post"}, data.Types())
	require.Len(t, data["post"], 3)
	require.Equal(t, schema.Entity{"id": "1", "title": "Post 1", "rank": 2}, data["post"][0])

	data, err = Load(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestLoad_Invalid(t *testing.T) {
	for name, src := range map[string]string{
		"not a mapping":  "- 1\n- 2\n",
		"scalar records": "post: [1, 2]\n",
		"syntax":         "post: [\n",
		"empty record":   "post:\n  - \n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(src))
			require.ErrorIs(t, err, ErrInvalidFixture)
		})
	}
}

func TestRegister_RootQueries(t *testing.T) {
	reg := setup(t)
	require.Equal(t, []schema.TypeRef{
		schema.CollectionOf("comment"),
		schema.CollectionOf("post"),
		schema.SingleOf("comment"),
		schema.SingleOf("post"),
	}, reg.Queries())

	one, ok := reg.LookupQuery(schema.SingleOf("post"))
	require.True(t, ok)
	got, err := one.Resolver(context.Background(), map[string]any{"id": "2"})
	require.NoError(t, err)
	require.Equal(t, schema.Entity{"id": "2", "title": "Post 2", "rank": 1}, got)

	got, err = one.Resolver(context.Background(), map[string]any{"id": "9"})
	require.NoError(t, err)
	require.Nil(t, got)

	all, ok := reg.LookupQuery(schema.CollectionOf("post"))
	require.True(t, ok)
	got, err = all.Resolver(context.Background(), map[string]any{"rank": int64(2)})
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = all.Resolver(context.Background(), map[string]any{"rank": 5.0})
	require.NoError(t, err)
	require.Equal(t, []schema.Entity{}, got)
}

func TestRegister_EndToEnd(t *testing.T) {
	exec := executor.NewExecutor(setup(t), executor.WithEventBus(nil))

	got, err := exec.Execute(context.Background(), &query.Query{
		Type: schema.SingleOf("post"),
		Args: map[string]any{"id": "1"},
		Fields: query.Fields(
			query.Leaf("title"),
			query.Nested("comments", &query.Query{
				Fields: query.Fields(
					query.Leaf("text"),
					query.Nested("post", &query.Query{Fields: query.Leaves("id")}),
				),
			}),
		),
	})
	require.NoError(t, err)

	want := schema.Entity{
		"__type": "post",
		"title":  "Post 1",
		"comments": []any{
			schema.Entity{"__type": "comment", "text": "Comment 1", "post": schema.Entity{"__type": "post", "id": "1"}},
			schema.Entity{"__type": "comment", "text": "Comment 2", "post": schema.Entity{"__type": "post", "id": "1"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	got, err = exec.Execute(context.Background(), &query.Query{
		Type: schema.SingleOf("post"),
		Args: map[string]any{"id": "3"},
		Fields: query.Fields(
			query.Nested("comments", &query.Query{Fields: query.Leaves("id")}),
		),
	})
	require.NoError(t, err)
	if diff := cmp.Diff(schema.Entity{"__type": "post", "comments": []any{}}, got); diff != "" {
		t.Errorf("empty join mismatch (-want +got):\n%s", diff)
	}
}

func TestRegister_Invalid(t *testing.T) {
	tests := []struct {
		name string
		sdl  string
		data Data
	}{
		{
			name: "undeclared type",
			sdl:  `type post { id: ID }`,
			data: Data{"user": {{"id": "1"}}},
		},
		{
			name: "join without on",
			sdl:  `type post { id: ID, parent: post @join(from: "id") }`,
		},
		{
			name: "join on scalar",
			sdl:  `type post { id: ID, title: String @join(on: "id") }`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sch, err := schema.BuildFromSDL(tt.sdl)
			require.NoError(t, err)
			err = Register(registry.New(sch), sch, tt.data)
			require.ErrorIs(t, err, ErrInvalidFixture)
		})
	}

	require.ErrorIs(t, Register(registry.New(nil), nil, nil), ErrInvalidFixture)
}

func TestEqual(t *testing.T) {
	require.True(t, equal(1, int64(1)))
	require.True(t, equal(2.0, 2))
	require.False(t, equal(1, "1"))
	require.True(t, equal("a", "a"))
	require.True(t, equal([]any{1}, []any{1}))
	require.False(t, equal(nil, 0))
}
