package portal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/olapwire/pgshim/internal/compile"
	"github.com/olapwire/pgshim/internal/compile/types"
	"github.com/olapwire/pgshim/pkg/protocol"
)

func streamingPlan(rowCount int) *compile.QueryPlan {
	rows := make([][]any, rowCount)
	for i := range rows {
		rows[i] = []any{int64(i), "row"}
	}
	return &compile.QueryPlan{
		Kind:   compile.KindStreaming,
		Schema: []compile.SchemaField{{Name: "id", Type: types.Int8}, {Name: "label", Type: types.Text}},
		Rows:   rows,
	}
}

func TestPortalExecuteUnboundedExhaustsPlan(t *testing.T) {
	t.Parallel()

	p := NewPortal("", "", streamingPlan(3), []protocol.FormatCode{protocol.TextFormat})
	bw := NewBatchWriter()

	tag, suspended, err := p.Execute(bw, 0)
	require.NoError(t, err)
	require.False(t, suspended)
	require.Equal(t, "SELECT 3", tag)
	require.True(t, p.Done())
	require.EqualValues(t, 3, bw.Written())
}

func TestPortalExecuteSuspendsAtMaxRows(t *testing.T) {
	t.Parallel()

	p := NewPortal("", "", streamingPlan(5), []protocol.FormatCode{protocol.TextFormat})
	bw := NewBatchWriter()

	tag, suspended, err := p.Execute(bw, 2)
	require.NoError(t, err)
	require.True(t, suspended)
	require.Equal(t, "", tag)
	require.False(t, p.Done())
	require.EqualValues(t, 2, bw.Written())

	bw2 := NewBatchWriter()
	tag, suspended, err = p.Execute(bw2, 10)
	require.NoError(t, err)
	require.False(t, suspended)
	require.Equal(t, "SELECT 5", tag)
	require.True(t, p.Done())
}

func TestPortalExecuteMetaOKReturnsTagImmediately(t *testing.T) {
	t.Parallel()

	p := NewPortal("", "", &compile.QueryPlan{Kind: compile.KindMetaOK, CommandTag: "SET"}, nil)
	bw := NewBatchWriter()

	tag, suspended, err := p.Execute(bw, 0)
	require.NoError(t, err)
	require.False(t, suspended)
	require.Equal(t, "SET", tag)
	require.False(t, bw.HasData())
}

func TestPortalExecuteMetaTabularWritesTextRows(t *testing.T) {
	t.Parallel()

	plan := &compile.QueryPlan{
		Kind:           compile.KindMetaTabular,
		TabularColumns: []string{"name"},
		TabularRows:    [][]string{{"a"}, {"b"}},
	}
	p := NewPortal("", "", plan, nil)
	bw := NewBatchWriter()

	tag, suspended, err := p.Execute(bw, 0)
	require.NoError(t, err)
	require.False(t, suspended)
	require.Equal(t, "SELECT", tag)
	require.EqualValues(t, 2, bw.Written())
}

func TestPortalRowDescriptionResolvesFormatsPerColumn(t *testing.T) {
	t.Parallel()

	p := NewPortal("", "", streamingPlan(1), []protocol.FormatCode{protocol.TextFormat, protocol.BinaryFormat})
	fields, err := p.RowDescription()
	require.NoError(t, err)
	require.Len(t, fields, 2)
	require.Equal(t, protocol.TextFormat, fields[0].Format)
	require.Equal(t, protocol.BinaryFormat, fields[1].Format)
}

func TestPreparedStatementRowDescriptionAlwaysText(t *testing.T) {
	t.Parallel()

	ps := &PreparedStatement{Plan: streamingPlan(1)}
	fields, err := ps.RowDescription()
	require.NoError(t, err)
	for _, f := range fields {
		require.Equal(t, protocol.TextFormat, f.Format)
	}
}

func TestPreparedStatementEmptyQuerySentinelHasNoRowDescription(t *testing.T) {
	t.Parallel()

	ps := &PreparedStatement{Plan: nil}
	fields, err := ps.RowDescription()
	require.NoError(t, err)
	require.Nil(t, fields)
}

func TestLiteralsFromBindQuotesAndNulls(t *testing.T) {
	t.Parallel()

	literals, err := LiteralsFromBind([]protocol.BindParameter{
		{IsNull: true},
		{Value: []byte("o'clock")},
	})
	require.NoError(t, err)
	require.Equal(t, "NULL", literals[0])
	require.Equal(t, "'o''clock'", literals[1])
}

func TestLiteralsFromBindRejectsBinaryFormat(t *testing.T) {
	t.Parallel()

	_, err := LiteralsFromBind([]protocol.BindParameter{
		{Format: protocol.BinaryFormat, Value: []byte{1, 2, 3}},
	})
	require.Error(t, err)
}

func TestQuoteLiteralDoublesEmbeddedQuotes(t *testing.T) {
	t.Parallel()
	require.Equal(t, "'it''s'", QuoteLiteral("it's"))
}
