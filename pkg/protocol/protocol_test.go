package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/olapwire/pgshim/codes"
	"github.com/olapwire/pgshim/internal/pgerr"
	"github.com/olapwire/pgshim/pkg/buffer"
)

func roundTrip(t *testing.T, typ byte, build func(w *buffer.Writer)) *buffer.Reader {
	t.Helper()
	out := &bytes.Buffer{}
	w := buffer.NewWriter(nil, out)
	w.Start(typ)
	build(w)
	require.NoError(t, w.End())

	r := buffer.NewReader(nil, bytes.NewReader(out.Bytes()), buffer.DefaultBufferSize)
	_, _, err := r.ReadTypedMsg()
	require.NoError(t, err)
	return r
}

func TestReadQuery(t *testing.T) {
	t.Parallel()

	r := roundTrip(t, byte(ClientSimpleQuery), func(w *buffer.Writer) {
		w.AddString("select 1")
		w.AddNullTerminate()
	})

	q, err := ReadQuery(r)
	require.NoError(t, err)
	require.Equal(t, "select 1", q.SQL)
}

func TestReadParseWithParameterOIDs(t *testing.T) {
	t.Parallel()

	r := roundTrip(t, byte(ClientParse), func(w *buffer.Writer) {
		w.AddString("stmt1")
		w.AddNullTerminate()
		w.AddString("select $1")
		w.AddNullTerminate()
		w.AddInt16(1)
		w.AddInt32(25)
	})

	p, err := ReadParse(r)
	require.NoError(t, err)
	require.Equal(t, "stmt1", p.Name)
	require.Equal(t, "select $1", p.Query)
	require.Equal(t, []uint32{25}, p.ParameterOIDs)
}

func TestReadBindWithNullParameter(t *testing.T) {
	t.Parallel()

	r := roundTrip(t, byte(ClientBind), func(w *buffer.Writer) {
		w.AddString("portal1")
		w.AddNullTerminate()
		w.AddString("stmt1")
		w.AddNullTerminate()
		w.AddInt16(0) // use default text format for all params
		w.AddInt16(1) // one parameter value
		w.AddInt32(-1)
		w.AddInt16(0) // default result format
	})

	b, err := ReadBind(r)
	require.NoError(t, err)
	require.Equal(t, "portal1", b.Portal)
	require.Equal(t, "stmt1", b.Statement)
	require.Len(t, b.Parameters, 1)
	require.True(t, b.Parameters[0].IsNull)
}

func TestReadBindWithTextParameter(t *testing.T) {
	t.Parallel()

	r := roundTrip(t, byte(ClientBind), func(w *buffer.Writer) {
		w.AddString("")
		w.AddNullTerminate()
		w.AddString("stmt1")
		w.AddNullTerminate()
		w.AddInt16(0)
		w.AddInt16(1)
		w.AddInt32(5)
		w.AddBytes([]byte("hello"))
		w.AddInt16(0)
	})

	b, err := ReadBind(r)
	require.NoError(t, err)
	require.Len(t, b.Parameters, 1)
	require.False(t, b.Parameters[0].IsNull)
	require.Equal(t, "hello", string(b.Parameters[0].Value))
}

func TestReadExecute(t *testing.T) {
	t.Parallel()

	r := roundTrip(t, byte(ClientExecute), func(w *buffer.Writer) {
		w.AddString("portal1")
		w.AddNullTerminate()
		w.AddInt32(10)
	})

	e, err := ReadExecute(r)
	require.NoError(t, err)
	require.Equal(t, "portal1", e.Portal)
	require.EqualValues(t, 10, e.MaxRows)
}

func TestReadDescribeStatement(t *testing.T) {
	t.Parallel()

	r := roundTrip(t, byte(ClientDescribe), func(w *buffer.Writer) {
		w.AddByte(byte(DescribeStatement))
		w.AddString("stmt1")
		w.AddNullTerminate()
	})

	d, err := ReadDescribe(r)
	require.NoError(t, err)
	require.Equal(t, DescribeStatement, d.Kind)
	require.Equal(t, "stmt1", d.Name)
}

func TestReadClosePortal(t *testing.T) {
	t.Parallel()

	r := roundTrip(t, byte(ClientClose), func(w *buffer.Writer) {
		w.AddByte(byte(ClosePortal))
		w.AddString("portal1")
		w.AddNullTerminate()
	})

	c, err := ReadClose(r)
	require.NoError(t, err)
	require.Equal(t, ClosePortal, c.Kind)
	require.Equal(t, "portal1", c.Name)
}

func TestWriteReadyForQuery(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	w := buffer.NewWriter(nil, out)
	require.NoError(t, WriteReadyForQuery(w, Idle))

	r := buffer.NewReader(nil, bytes.NewReader(out.Bytes()), buffer.DefaultBufferSize)
	typ, _, err := r.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, byte(ServerReady), typ)

	status, err := r.GetBytes(1)
	require.NoError(t, err)
	require.Equal(t, byte(Idle), status[0])
}

func TestWriteRowDescriptionAndCommandComplete(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	w := buffer.NewWriter(nil, out)
	require.NoError(t, WriteRowDescription(w, []RowDescriptionField{
		{Name: "id", TypeOID: 20, TypeSize: 8, Format: TextFormat},
	}))
	require.NoError(t, WriteCommandComplete(w, "SELECT 1"))

	r := buffer.NewReader(nil, bytes.NewReader(out.Bytes()), buffer.DefaultBufferSize)

	typ, _, err := r.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, byte(ServerRowDescription), typ)

	count, err := r.GetUint16()
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	name, err := r.GetString()
	require.NoError(t, err)
	require.Equal(t, "id", name)

	typ, _, err = r.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, byte(ServerCommandComplete), typ)

	tag, err := r.GetString()
	require.NoError(t, err)
	require.Equal(t, "SELECT 1", tag)
}

func TestWriteErrorResponse(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	w := buffer.NewWriter(nil, out)

	flattened := pgerr.Flatten(pgerr.WithCode(pgerrTestError{}, codes.Syntax))
	require.NoError(t, WriteErrorResponse(w, flattened))

	r := buffer.NewReader(nil, bytes.NewReader(out.Bytes()), buffer.DefaultBufferSize)
	typ, _, err := r.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, byte(ServerErrorResponse), typ)
}

type pgerrTestError struct{}

func (pgerrTestError) Error() string { return "boom" }
