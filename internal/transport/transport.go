// Package transport defines the metadata-fetching collaborator the planner
// needs to resolve tables and columns for a given authenticated context.
// Grounded on the teacher pack's db-bouncer health checker: an external,
// context-bound call with its own timeout, treated as a black box by the
// caller.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/olapwire/pgshim/internal/authctx"
	"github.com/olapwire/pgshim/internal/compile/types"
)

// Column describes one column of one table in the catalog.
type Column struct {
	Name string
	Type types.DataType
}

// Table describes one queryable table. Rows holds a small in-memory sample
// of its data; a production transport would not inline data here, but the
// demo planner this shim ships with needs some row source and the catalog
// snapshot is the only thing Transport hands back.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// Metadata is the catalog snapshot returned by Meta, scoped to the caller's
// authenticated context.
type Metadata struct {
	Tables map[string]Table
}

// Transport fetches metadata for a given auth context. Real deployments back
// this with a call to an external analytics engine; Meta is expected to
// apply its own timeout rather than rely on the caller's context deadline
// alone.
type Transport interface {
	Meta(ctx context.Context, auth *authctx.Context) (*Metadata, error)
}

// InMemory is a Transport backed by an in-process catalog that is set at
// construction and can be swapped whole through Replace. Used by the demo
// server and by tests in place of a real analytics-engine round trip.
type InMemory struct {
	mu      sync.RWMutex
	tables  map[string]Table
	Timeout time.Duration
}

// NewInMemory constructs an InMemory transport from a list of tables.
func NewInMemory(tables ...Table) *InMemory {
	m := make(map[string]Table, len(tables))
	for _, t := range tables {
		m[t.Name] = t
	}
	return &InMemory{tables: m, Timeout: 2 * time.Second}
}

// Replace swaps the entire table catalog atomically, used by the config
// watcher to apply a hot-reloaded set of tables without disrupting
// in-flight Meta calls.
func (t *InMemory) Replace(tables []Table) {
	m := make(map[string]Table, len(tables))
	for _, tbl := range tables {
		m[tbl.Name] = tbl
	}

	t.mu.Lock()
	t.tables = m
	t.mu.Unlock()
}

// Meta implements Transport.
func (t *InMemory) Meta(ctx context.Context, auth *authctx.Context) (*Metadata, error) {
	if auth == nil {
		return nil, fmt.Errorf("transport: meta requested without an auth context")
	}

	deadline, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	if err := deadline.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := make(map[string]Table, len(t.tables))
	for name, table := range t.tables {
		snapshot[name] = table
	}

	return &Metadata{Tables: snapshot}, nil
}
