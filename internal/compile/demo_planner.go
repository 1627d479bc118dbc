package compile

import (
	"context"
	"fmt"
	"strings"

	"github.com/olapwire/pgshim/internal/session"
	"github.com/olapwire/pgshim/internal/transport"
)

// DemoPlanner is a minimal, in-process stand-in for the real analytics
// engine's query-planning pipeline: it resolves a "SELECT ... FROM table"
// shape against the transport's metadata and echoes back whatever rows the
// transport's catalog carries for that table, and treats every other
// statement as a no-op command completion. It exists so cmd/pgshimd and the
// test suite have something real to plan against without a network
// dependency; it is not meant to be a SQL engine.
type DemoPlanner struct{}

// NewDemoPlanner constructs a DemoPlanner.
func NewDemoPlanner() *DemoPlanner { return &DemoPlanner{} }

// ConvertSQLToPlan implements Planner.
func (p *DemoPlanner) ConvertSQLToPlan(ctx context.Context, sql string, meta *transport.Metadata, sess *session.Session) (*QueryPlan, error) {
	stmt, err := ParseStatement(sql)
	if err != nil {
		return nil, err
	}
	return p.ConvertStatementToPlan(ctx, stmt, meta, sess)
}

// ConvertStatementToPlan implements Planner.
func (p *DemoPlanner) ConvertStatementToPlan(_ context.Context, stmt *Statement, meta *transport.Metadata, _ *session.Session) (*QueryPlan, error) {
	if stmt.Kind != KindSelect {
		return &QueryPlan{Kind: KindMetaOK, CommandTag: commandTagFor(stmt.Raw)}, nil
	}

	table, ok := lookupTable(meta, stmt.FromTable)
	if !ok {
		return nil, fmt.Errorf("relation %q does not exist", stmt.FromTable)
	}

	cols, err := resolveColumns(table, stmt.SelectCols)
	if err != nil {
		return nil, err
	}

	schema := make([]SchemaField, len(cols))
	for i, c := range cols {
		schema[i] = SchemaField{Name: c.Name, Type: c.Type}
	}

	rows := projectRows(table, cols)

	return &QueryPlan{Kind: KindStreaming, Schema: schema, Rows: rows}, nil
}

func lookupTable(meta *transport.Metadata, name string) (transport.Table, bool) {
	if meta == nil {
		return transport.Table{}, false
	}

	if t, ok := meta.Tables[name]; ok {
		return t, true
	}

	for key, t := range meta.Tables {
		if strings.EqualFold(key, name) {
			return t, true
		}
	}

	return transport.Table{}, false
}

func resolveColumns(table transport.Table, requested []string) ([]transport.Column, error) {
	if len(requested) == 1 && requested[0] == "*" {
		return table.Columns, nil
	}

	resolved := make([]transport.Column, 0, len(requested))
	for _, name := range requested {
		found := false
		for _, c := range table.Columns {
			if strings.EqualFold(c.Name, name) {
				resolved = append(resolved, c)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("column %q does not exist on relation %q", name, table.Name)
		}
	}

	return resolved, nil
}

func projectRows(table transport.Table, cols []transport.Column) [][]any {
	if len(table.Rows) == 0 {
		return nil
	}

	indexByName := make(map[string]int, len(table.Columns))
	for i, c := range table.Columns {
		indexByName[strings.ToLower(c.Name)] = i
	}

	projected := make([][]any, len(table.Rows))
	for r, row := range table.Rows {
		out := make([]any, len(cols))
		for i, c := range cols {
			if idx, ok := indexByName[strings.ToLower(c.Name)]; ok && idx < len(row) {
				out[i] = row[idx]
			}
		}
		projected[r] = out
	}

	return projected
}

// commandTagFor derives a generic completion tag from a non-SELECT
// statement's leading keyword, e.g. "SET x = 1" -> "SET".
func commandTagFor(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "OK"
	}

	fields := strings.Fields(trimmed)
	return strings.ToUpper(fields[0])
}
