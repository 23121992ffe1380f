// Package executor resolves a query.Query against a registry.Registry and
// projects the result down to the requested fields.
//
// # Overview
//
// Execution of one query proceeds as follows:
//  1. Look up the root resolver for the query type. Single and collection
//     references are distinct keys; a missing one is ErrQueryNotFound.
//  2. Call the root resolver with the query arguments.
//  3. Apply the query's Manipulate transform, if any, to the raw result.
//  4. A nil result ends execution with a nil value and no error.
//  5. A query with nil Fields returns every field present on the result,
//     tagged, without consulting field resolvers.
//  6. A list result (always, for collection queries) is resolved element by
//     element; the output is a []any in the same order.
//  7. For each entity, every selected field that is absent is looked up in
//     the registry under (type, field) and, if found, resolved. Nested
//     selections are then resolved on the field value, per element for lists.
//  8. The entity is projected: a new schema.Entity holding the type tag
//     (schema.TypeField) and exactly the selected fields that are present.
//
// # Values
//
// Resolvers may return schema.Entity, map[string]any, other maps with string
// keys, structs (json tag names apply) and slices or arrays of those. Field
// presence is key presence: a field that exists with a nil or zero value is
// never passed to a field resolver. Structs are the exception: a nil pointer,
// slice or map field counts as absent, so a field resolver registered for it
// runs. Return a map to keep such a field present. The executor never mutates
// resolver output; it works on shallow copies and builds fresh projected
// entities.
//
// # Type tags
//
// A projected entity carries the unwrapped type name: elements of a
// collection query for [post] are tagged "post". For nested selections the
// tag comes from the nested query's Type, else from the produced type of the
// field resolver, else from the schema attached to the registry.
//
// # Ordering and concurrency
//
// By default all resolver calls happen one at a time: fields in selection
// order, list elements in index order. WithConcurrency(n) lets up to n
// elements of each list resolve at once; fields of a single entity stay
// sequential because a field resolver may read fields resolved before it.
// Output order never depends on completion order.
//
// # Errors
//
// The first failure aborts the call; there is no partial result. Failures
// from resolvers and transforms are returned as *ResolverError, which unwraps
// to the original error. A requested field with no resolver and no value is
// simply left out of the projection.
//
// Result shapes are checked against the query: a collection query whose
// resolver returns anything but a list fails with ErrNotCollection (a single
// entity is not promoted to a one-element list), and a selection on a value
// that is not an entity fails with ErrNotEntity.
package executor
