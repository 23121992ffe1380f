package events

import "time"

// ExecutionStart is emitted before a query is executed.
// Fields holds the root selection, nil when everything present is returned.
type ExecutionStart struct {
	Type   string
	Args   map[string]any
	Fields []string
}

// ExecutionFinish is emitted after a query has been executed.
type ExecutionFinish struct {
	Type     string
	Err      error
	Found    bool
	Duration time.Duration
}

// ResolverKind identifies what kind of callback an event refers to.
type ResolverKind string

const (
	ResolverRoot       ResolverKind = "root"
	ResolverField      ResolverKind = "field"
	ResolverManipulate ResolverKind = "manipulate"
)

// ResolverStart is emitted before a root, field or manipulate callback runs.
// CallID is unique within one execution and pairs it with ResolverFinish.
type ResolverStart struct {
	CallID uint64
	Kind   ResolverKind
	Type   string
	Field  string
	Path   string
}

// ResolverFinish is emitted after the callback returned.
type ResolverFinish struct {
	CallID   uint64
	Kind     ResolverKind
	Type     string
	Field    string
	Path     string
	Err      error
	Duration time.Duration
}
