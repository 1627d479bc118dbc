package portal

import (
	"fmt"
	"time"

	"github.com/olapwire/pgshim/internal/compile"
	"github.com/olapwire/pgshim/internal/compile/types"
	"github.com/olapwire/pgshim/pkg/protocol"
)

// PreparedStatement is the catalog entry created by Parse and consumed by
// Describe(Statement)/Bind. Plan is derived once, from the statement with
// every placeholder substituted by a blank TEXT literal, so Describe can
// answer without a real Bind; Bind discards this Plan and re-plans with the
// client's actual values.
type PreparedStatement struct {
	Name          string
	AST           *compile.Statement
	ParameterOIDs []uint32
	Plan          *compile.QueryPlan // nil for the empty-query sentinel
}

// RowDescription renders the statement's planned schema as RowDescription
// fields, with a zeroed (Text) format code: the real format is not known
// until Bind. Returns nil for a plan with no output columns.
func (ps *PreparedStatement) RowDescription() ([]protocol.RowDescriptionField, error) {
	if ps.Plan == nil {
		return nil, nil
	}
	return planRowDescription(ps.Plan, nil)
}

// Portal is the catalog entry created by Bind: a statement bound to concrete
// parameter values and a plan, with a cursor tracking how much of the plan
// has already been sent to the client across successive bounded Executes.
type Portal struct {
	Name          string
	Statement     string
	Plan          *compile.QueryPlan
	ResultFormats []protocol.FormatCode
	cursor        int
}

// NewPortal constructs a Portal from a freshly planned QueryPlan.
func NewPortal(name, statement string, plan *compile.QueryPlan, formats []protocol.FormatCode) *Portal {
	return &Portal{Name: name, Statement: statement, Plan: plan, ResultFormats: formats}
}

// RowDescription renders the portal's plan schema as RowDescription fields.
// A MetaOK plan has none; callers should send NoData instead.
func (p *Portal) RowDescription() ([]protocol.RowDescriptionField, error) {
	return planRowDescription(p.Plan, p)
}

// textOID mirrors pgtype.TextOID without importing pgtype here, since
// MetaTabular rows are always TEXT and never go through the typed encoder.
const textOID = 25

// planRowDescription derives RowDescription fields from a QueryPlan's shape.
// p, when non-nil, resolves the wire format for a Streaming plan's
// column i (a bound Portal knows its client-requested formats); a
// PreparedStatement passes nil and always reports Text, since Describe runs
// before Bind assigns a format.
func planRowDescription(plan *compile.QueryPlan, p *Portal) ([]protocol.RowDescriptionField, error) {
	switch plan.Kind {
	case compile.KindMetaOK:
		return nil, nil

	case compile.KindMetaTabular:
		fields := make([]protocol.RowDescriptionField, len(plan.TabularColumns))
		for i, name := range plan.TabularColumns {
			fields[i] = protocol.RowDescriptionField{
				Name:     name,
				AttrNo:   int16(i + 1),
				TypeOID:  textOID,
				TypeSize: -1,
				Format:   protocol.TextFormat,
			}
		}
		return fields, nil

	default:
		fields := make([]protocol.RowDescriptionField, len(plan.Schema))
		for i, f := range plan.Schema {
			oid, err := types.ToPgOID(f.Type)
			if err != nil {
				return nil, fmt.Errorf("describing column %q: %w", f.Name, err)
			}

			format := protocol.TextFormat
			if p != nil {
				format = p.resultFormat(i)
			}

			fields[i] = protocol.RowDescriptionField{
				Name:     f.Name,
				AttrNo:   int16(i + 1),
				TypeOID:  oid,
				TypeSize: types.WireSize(f.Type),
				Format:   format,
			}
		}
		return fields, nil
	}
}

func (p *Portal) resultFormat(col int) protocol.FormatCode {
	if len(p.ResultFormats) == 0 {
		return protocol.TextFormat
	}
	if len(p.ResultFormats) == 1 {
		return p.ResultFormats[0]
	}
	if col < len(p.ResultFormats) {
		return p.ResultFormats[col]
	}
	return protocol.TextFormat
}

// Done reports whether the portal has no more rows to send.
func (p *Portal) Done() bool {
	switch p.Plan.Kind {
	case compile.KindMetaOK:
		return true
	case compile.KindMetaTabular:
		return p.cursor >= len(p.Plan.TabularRows)
	default:
		return p.cursor >= len(p.Plan.Rows)
	}
}

// Execute appends up to maxRows (0 meaning unlimited) of the portal's
// remaining output to bw, advances the cursor, and reports the completion
// tag to send plus whether the portal was suspended before exhaustion. This
// mirrors the rust original's Portal::execute resumable-cursor behavior
// (spec.md §4.7/§4.9): a suspended portal is re-entered by a later Execute
// rather than replanned.
func (p *Portal) Execute(bw *BatchWriter, maxRows uint32) (tag string, suspended bool, err error) {
	switch p.Plan.Kind {
	case compile.KindMetaOK:
		return p.Plan.CommandTag, false, nil

	case compile.KindMetaTabular:
		total := len(p.Plan.TabularRows)
		limit := total
		if maxRows > 0 && p.cursor+int(maxRows) < total {
			limit = p.cursor + int(maxRows)
		}

		for ; p.cursor < limit; p.cursor++ {
			row := p.Plan.TabularRows[p.cursor]
			nulls := make([]bool, len(row))
			if err := bw.WriteTextRow(row, nulls); err != nil {
				return "", false, err
			}
		}

		if p.cursor < total {
			return "", true, nil
		}
		return "SELECT", false, nil

	default:
		oids := make([]uint32, len(p.Plan.Schema))
		for i, f := range p.Plan.Schema {
			oid, oerr := types.ToPgOID(f.Type)
			if oerr != nil {
				return "", false, oerr
			}
			oids[i] = oid
		}

		total := len(p.Plan.Rows)
		limit := total
		if maxRows > 0 && p.cursor+int(maxRows) < total {
			limit = p.cursor + int(maxRows)
		}

		for ; p.cursor < limit; p.cursor++ {
			row := normalizeRow(p.Plan.Rows[p.cursor])
			if err := bw.WriteTypedRow(oids, p.ResultFormats, row); err != nil {
				return "", false, err
			}
		}

		if p.cursor < total {
			return "", true, nil
		}
		return fmt.Sprintf("SELECT %d", p.cursor), false, nil
	}
}

// normalizeRow widens values the demo planner's in-memory rows might carry
// (ints, string timestamps) into the concrete types pgx's type map knows how
// to encode, so callers of Transport.InMemory don't need to hand-construct
// int64/time.Time values for every sample row.
func normalizeRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch val := v.(type) {
		case int:
			out[i] = int64(val)
		case string:
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				out[i] = t
				continue
			}
			out[i] = val
		default:
			out[i] = v
		}
	}
	return out
}

// LiteralsFromBind decodes a Bind's raw parameter bytes into safe SQL literal
// fragments ready for compile.BindValues: NULL for a null parameter, a
// quoted string for a text-format one. All declared parameters are TEXT
// (spec.md §4.5); binary-format bind parameters are rejected since the shim
// has no type information to decode them against.
func LiteralsFromBind(params []protocol.BindParameter) ([]string, error) {
	values := make([]string, len(params))
	for i, p := range params {
		if p.IsNull {
			values[i] = "NULL"
			continue
		}
		if p.Format == protocol.BinaryFormat {
			return nil, fmt.Errorf("parameter %d: binary-format bind parameters are not supported", i+1)
		}
		values[i] = QuoteLiteral(string(p.Value))
	}
	return values, nil
}

// QuoteLiteral escapes a single-quoted SQL string literal, doubling embedded
// quotes per the standard SQL escaping rule.
func QuoteLiteral(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	out = append(out, '\'')
	return string(out)
}
