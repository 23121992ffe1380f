package execid

import (
	"context"
	"math/rand/v2"
)

// key is the context key for the execution ID.
type key struct{}

// parentKey is the context key for the ID that was current when NewContext
// was called.
type parentKey struct{}

// NewContext returns a copy of parent with a new random execution ID stored.
// It also returns the generated ID. An ID already present in parent is kept
// as the parent ID of the new one.
func NewContext(parent context.Context) (context.Context, int64) {
	id := rand.Int64()
	ctx := parent
	if prev, ok := FromContext(parent); ok {
		ctx = context.WithValue(ctx, parentKey{}, prev)
	}
	return context.WithValue(ctx, key{}, id), id
}

// FromContext extracts the execution ID from ctx.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(key{})
	id, ok := v.(int64)
	return id, ok
}

// ParentFromContext returns the ID that was in scope when the current one
// was created.
func ParentFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(parentKey{})
	id, ok := v.(int64)
	return id, ok
}
