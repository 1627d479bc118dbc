package portal

import (
	"bytes"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/olapwire/pgshim/pkg/buffer"
	"github.com/olapwire/pgshim/pkg/protocol"
)

func TestBatchWriterWriteTextRowWithNull(t *testing.T) {
	t.Parallel()

	bw := NewBatchWriter()
	require.NoError(t, bw.WriteTextRow([]string{"a", ""}, []bool{false, true}))
	require.True(t, bw.HasData())
	require.EqualValues(t, 1, bw.Written())

	r := buffer.NewReader(nil, bytes.NewReader(bw.Bytes()), buffer.DefaultBufferSize)
	typ, _, err := r.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, byte(protocol.ServerDataRow), typ)

	count, err := r.GetUint16()
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	length, err := r.GetInt32()
	require.NoError(t, err)
	require.EqualValues(t, 1, length)

	val, err := r.GetBytes(1)
	require.NoError(t, err)
	require.Equal(t, "a", string(val))

	nullLength, err := r.GetInt32()
	require.NoError(t, err)
	require.EqualValues(t, -1, nullLength)
}

func TestBatchWriterWriteTypedRowEncodesValues(t *testing.T) {
	t.Parallel()

	bw := NewBatchWriter()
	err := bw.WriteTypedRow(
		[]uint32{pgtype.Int8OID, pgtype.TextOID},
		[]protocol.FormatCode{protocol.TextFormat},
		[]any{int64(42), "hello"},
	)
	require.NoError(t, err)
	require.EqualValues(t, 1, bw.Written())
}

func TestBatchWriterWriteTypedRowNilValueIsNull(t *testing.T) {
	t.Parallel()

	bw := NewBatchWriter()
	err := bw.WriteTypedRow(
		[]uint32{pgtype.TextOID},
		nil,
		[]any{nil},
	)
	require.NoError(t, err)

	r := buffer.NewReader(nil, bytes.NewReader(bw.Bytes()), buffer.DefaultBufferSize)
	_, _, err = r.ReadTypedMsg()
	require.NoError(t, err)
	_, err = r.GetUint16()
	require.NoError(t, err)

	length, err := r.GetInt32()
	require.NoError(t, err)
	require.EqualValues(t, -1, length)
}

func TestBatchWriterWriteTypedRowMismatchedLengthErrors(t *testing.T) {
	t.Parallel()

	bw := NewBatchWriter()
	err := bw.WriteTypedRow([]uint32{pgtype.TextOID}, nil, []any{"a", "b"})
	require.Error(t, err)
}
