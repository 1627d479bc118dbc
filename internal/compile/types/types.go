// Package types defines the small set of logical data types this shim's
// planner collaborator works with, plus the mapping onto Postgres type OIDs
// the wire protocol needs (the spec's df_type_to_pg_tid codec helper).
package types

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// DataType is the logical column type carried by a query plan's schema.
type DataType int

const (
	Unknown DataType = iota
	Text
	Int8
	Float8
	Bool
	Timestamp
)

func (t DataType) String() string {
	switch t {
	case Text:
		return "text"
	case Int8:
		return "bigint"
	case Float8:
		return "double"
	case Bool:
		return "boolean"
	case Timestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// ToPgOID maps a logical DataType onto its Postgres wire type OID, pulling
// the constants from jackc/pgx's pgtype package the way the teacher's own
// examples (examples/auth/main.go) type their demo columns. Returns an error
// for Unknown, mirroring the original's fallible df_type_to_pg_tid.
func ToPgOID(t DataType) (uint32, error) {
	switch t {
	case Text:
		return pgtype.TextOID, nil
	case Int8:
		return pgtype.Int8OID, nil
	case Float8:
		return pgtype.Float8OID, nil
	case Bool:
		return pgtype.BoolOID, nil
	case Timestamp:
		return pgtype.TimestampOID, nil
	default:
		return 0, fmt.Errorf("no known Postgres type OID for data type %q", t)
	}
}

// ParseDataType maps a column type name, as written in configuration, onto
// its DataType. Unrecognized names return Unknown with an error rather than
// silently falling back, since an unrecognized column type would otherwise
// surface much later as an opaque ToPgOID failure.
func ParseDataType(name string) (DataType, error) {
	switch name {
	case "text", "":
		return Text, nil
	case "int8", "bigint":
		return Int8, nil
	case "float8", "double":
		return Float8, nil
	case "bool", "boolean":
		return Bool, nil
	case "timestamp":
		return Timestamp, nil
	default:
		return Unknown, fmt.Errorf("unrecognized column type %q", name)
	}
}

// WireSize returns the RowDescription TypeSize Postgres reports for a fixed
// width type, or -1 for a variable width one, matching pg_type.typlen.
func WireSize(t DataType) int16 {
	switch t {
	case Int8, Float8, Timestamp:
		return 8
	case Bool:
		return 1
	default:
		return -1
	}
}
