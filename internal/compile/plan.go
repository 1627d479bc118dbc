package compile

import "github.com/olapwire/pgshim/internal/compile/types"

// PlanKind tags the QueryPlan variant, mirroring the three-armed union
// spec.md §3 describes: a command with no rows, a small precomputed tabular
// result, and a streaming, schema-typed result.
type PlanKind int

const (
	// KindMetaOK carries only a command completion tag; no rows.
	KindMetaOK PlanKind = iota
	// KindMetaTabular carries a small in-memory frame whose columns are all
	// reported as TEXT, e.g. the result of a catalog introspection query.
	KindMetaTabular
	// KindStreaming carries a typed schema and a row source that is
	// consumed incrementally by a Portal.
	KindStreaming
)

// SchemaField is one column of a Streaming plan's output schema.
type SchemaField struct {
	Name string
	Type types.DataType
}

// QueryPlan is the planner's output: exactly one of its payload fields is
// meaningful, selected by Kind.
type QueryPlan struct {
	Kind PlanKind

	// KindMetaOK
	CommandTag string

	// KindMetaTabular
	TabularColumns []string
	TabularRows    [][]string

	// KindStreaming
	Schema []SchemaField
	Rows   [][]any
}
