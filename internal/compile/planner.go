// Package compile defines the planner collaborator: the bridge from raw SQL
// or a parsed Statement to an executable QueryPlan, resolved against a
// transport-provided catalog and a session. This is the Go shape of
// spec.md §6's "Planner interface", kept intentionally small — the real
// parsing and logical planning work is an external collaborator; the shim
// only drives the two operations below.
package compile

import (
	"context"

	"github.com/olapwire/pgshim/internal/session"
	"github.com/olapwire/pgshim/internal/transport"
)

// Planner converts SQL text, or an already-parsed Statement, into a
// QueryPlan scoped to the caller's session and the transport's current
// metadata snapshot.
type Planner interface {
	// ConvertSQLToPlan plans raw SQL text directly, used by the simple-query
	// path (spec.md §4.11).
	ConvertSQLToPlan(ctx context.Context, sql string, meta *transport.Metadata, sess *session.Session) (*QueryPlan, error)

	// ConvertStatementToPlan plans an already-parsed (and, for Bind, already
	// value-substituted) Statement, used by Parse's description derivation
	// and by Bind (spec.md §4.5, §4.6).
	ConvertStatementToPlan(ctx context.Context, stmt *Statement, meta *transport.Metadata, sess *session.Session) (*QueryPlan, error)
}
