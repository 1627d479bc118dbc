package types

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

func TestToPgOIDKnownTypes(t *testing.T) {
	t.Parallel()

	oid, err := ToPgOID(Int8)
	require.NoError(t, err)
	require.EqualValues(t, pgtype.Int8OID, oid)
}

func TestToPgOIDUnknownErrors(t *testing.T) {
	t.Parallel()

	_, err := ToPgOID(Unknown)
	require.Error(t, err)
}

func TestParseDataTypeAcceptsAliases(t *testing.T) {
	t.Parallel()

	dt, err := ParseDataType("bigint")
	require.NoError(t, err)
	require.Equal(t, Int8, dt)

	dt, err = ParseDataType("")
	require.NoError(t, err)
	require.Equal(t, Text, dt)
}

func TestParseDataTypeRejectsUnknown(t *testing.T) {
	t.Parallel()

	_, err := ParseDataType("not-a-type")
	require.Error(t, err)
}

func TestWireSize(t *testing.T) {
	t.Parallel()

	require.EqualValues(t, 8, WireSize(Int8))
	require.EqualValues(t, 1, WireSize(Bool))
	require.EqualValues(t, -1, WireSize(Text))
}
