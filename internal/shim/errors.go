package shim

import (
	"errors"
	"fmt"

	"github.com/olapwire/pgshim/codes"
	"github.com/olapwire/pgshim/internal/pgerr"
)

// errUnknownStatement is returned by Bind/Describe(Statement) when name is
// not in the statement catalog.
func errUnknownStatement(name string) error {
	return pgerr.WithCode(fmt.Errorf("no statement named %q", name), codes.InvalidSQLStatementName)
}

// errUnknownCursor is returned by Describe(Portal) when name is not in the
// portal catalog.
func errUnknownCursor(_ string) error {
	return pgerr.WithCode(errors.New("missing cursor"), codes.InvalidCursorName)
}

// errNotAuthenticated guards the simple-query and extended-query planning
// paths against a session whose auth context was never set; this should be
// unreachable once startup has completed, but a collaborator bug upstream
// should not panic the connection.
func errNotAuthenticated() error {
	return pgerr.WithCode(errors.New("connection must be authenticated before executing a query"), codes.Internal)
}
