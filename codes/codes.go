// Package codes defines the PostgreSQL SQLSTATE error codes this shim and
// its collaborators can raise.
// http://www.postgresql.org/docs/9.5/static/errcodes-appendix.html
package codes

// Code represents a Postgres SQLSTATE error code.
type Code string

const (
	SuccessfulCompletion Code = "00000"

	ConnectionException     Code = "08000"
	ConnectionDoesNotExist  Code = "08003"
	ConnectionFailure       Code = "08006"
	ProtocolViolation       Code = "08P01"

	FeatureNotSupported Code = "0A000"

	InvalidAuthorizationSpecification Code = "28000"
	InvalidPassword                   Code = "28P01"

	InvalidCursorName Code = "34000"

	InvalidSQLStatementName Code = "26000"

	Syntax        Code = "42601"
	Uncategorized Code = "XX000"
	Internal      Code = "XX000"
)
