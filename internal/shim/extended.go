package shim

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/olapwire/pgshim/codes"
	"github.com/olapwire/pgshim/internal/compile"
	"github.com/olapwire/pgshim/internal/pgerr"
	"github.com/olapwire/pgshim/internal/portal"
	"github.com/olapwire/pgshim/pkg/protocol"
)

// handleParse implements spec.md §4.5. Client-declared parameter type OIDs
// are read but discarded; every placeholder is treated as TEXT (see
// DESIGN.md's Open Question decisions).
func (c *Conn) handleParse(ctx context.Context) error {
	msg, err := protocol.ReadParse(c.reader)
	if err != nil {
		return err
	}

	if strings.TrimSpace(msg.Query) == "" {
		c.statements[msg.Name] = nil
		return protocol.WriteParseComplete(c.writer)
	}

	stmt, err := compile.ParseStatement(msg.Query)
	if err != nil {
		return pgerr.WithCode(fmt.Errorf("parsing statement: %w", err), codes.Syntax)
	}

	paramOIDs := make([]uint32, len(stmt.Placeholders))
	for i := range paramOIDs {
		paramOIDs[i] = pgtype.TextOID
	}

	plan, err := c.planStatement(ctx, compile.ReplacePlaceholders(stmt))
	if err != nil {
		return err
	}

	c.statements[msg.Name] = &portal.PreparedStatement{
		Name:          msg.Name,
		AST:           stmt,
		ParameterOIDs: paramOIDs,
		Plan:          plan,
	}

	return protocol.WriteParseComplete(c.writer)
}

// handleBind implements spec.md §4.6.
func (c *Conn) handleBind(ctx context.Context) error {
	msg, err := protocol.ReadBind(c.reader)
	if err != nil {
		return err
	}

	ps, ok := c.statements[msg.Statement]
	if !ok {
		return errUnknownStatement(msg.Statement)
	}

	if ps == nil {
		c.portals[msg.Portal] = nil
		return protocol.WriteBindComplete(c.writer)
	}

	literals, err := portal.LiteralsFromBind(msg.Parameters)
	if err != nil {
		return pgerr.WithCode(err, codes.Syntax)
	}

	plan, err := c.planStatement(ctx, compile.BindValues(ps.AST, literals))
	if err != nil {
		return err
	}

	c.portals[msg.Portal] = portal.NewPortal(msg.Portal, msg.Statement, plan, msg.ResultFormats)
	return protocol.WriteBindComplete(c.writer)
}

// planStatement is the shared metadata-fetch-then-plan step used by both
// Parse (against a placeholder-replaced statement) and Bind (against a
// value-substituted one).
func (c *Conn) planStatement(ctx context.Context, stmt *compile.Statement) (*compile.QueryPlan, error) {
	authCtx := c.session.AuthContext()
	if authCtx == nil {
		return nil, errNotAuthenticated()
	}

	meta, err := c.session.Server.Transport.Meta(ctx, authCtx)
	if err != nil {
		return nil, pgerr.Internal("fetching metadata", err)
	}

	plan, err := c.planner.ConvertStatementToPlan(ctx, stmt, meta, c.session)
	if err != nil {
		return nil, pgerr.Internal("planning statement", err)
	}

	return plan, nil
}

// handleExecute implements spec.md §4.7, including the Open Question's
// chosen behavior for an unknown portal name: a conservative ReadyForQuery
// rather than an error.
func (c *Conn) handleExecute(ctx context.Context) error {
	msg, err := protocol.ReadExecute(c.reader)
	if err != nil {
		return err
	}

	p, ok := c.portals[msg.Portal]
	if !ok {
		return protocol.WriteReadyForQuery(c.writer, protocol.Idle)
	}

	if p == nil {
		return protocol.WriteEmptyQueryResponse(c.writer)
	}

	return c.executePortal(p, msg.MaxRows)
}

// executePortal drives one bounded Execute against an already-bound portal,
// flushing any buffered rows before the completion message, per spec.md §5's
// ordering guarantee.
func (c *Conn) executePortal(p *portal.Portal, maxRows uint32) error {
	bw := portal.NewBatchWriter()

	tag, suspended, err := p.Execute(bw, maxRows)
	if err != nil {
		return pgerr.Internal("executing portal", err)
	}

	if bw.HasData() {
		c.metrics.RowsStreamed(int(bw.Written()))
		if err := c.writer.WriteDirect(bw.Bytes()); err != nil {
			return err
		}
	}

	if suspended {
		return protocol.WritePortalSuspended(c.writer)
	}

	return protocol.WriteCommandComplete(c.writer, tag)
}

// handleDescribe implements spec.md §4.8.
func (c *Conn) handleDescribe(_ context.Context) error {
	msg, err := protocol.ReadDescribe(c.reader)
	if err != nil {
		return err
	}

	switch msg.Kind {
	case protocol.DescribePortal:
		return c.describePortal(msg.Name)
	case protocol.DescribeStatement:
		return c.describeStatement(msg.Name)
	default:
		return fmt.Errorf("unknown describe kind %q", byte(msg.Kind))
	}
}

func (c *Conn) describePortal(name string) error {
	p, ok := c.portals[name]
	if !ok {
		return errUnknownCursor(name)
	}
	if p == nil {
		return protocol.WriteNoData(c.writer)
	}

	fields, err := p.RowDescription()
	if err != nil {
		return pgerr.Internal("describing portal", err)
	}
	if len(fields) == 0 {
		return protocol.WriteNoData(c.writer)
	}
	return protocol.WriteRowDescription(c.writer, fields)
}

func (c *Conn) describeStatement(name string) error {
	ps, ok := c.statements[name]
	if !ok {
		return errUnknownStatement(name)
	}

	if ps == nil {
		if err := protocol.WriteParameterDescription(c.writer, nil); err != nil {
			return err
		}
		return protocol.WriteNoData(c.writer)
	}

	if err := protocol.WriteParameterDescription(c.writer, ps.ParameterOIDs); err != nil {
		return err
	}

	fields, err := ps.RowDescription()
	if err != nil {
		return pgerr.Internal("describing statement", err)
	}
	if len(fields) == 0 {
		return protocol.WriteNoData(c.writer)
	}
	return protocol.WriteRowDescription(c.writer, fields)
}

// handleClose implements spec.md §4.9: removing an absent name is not an
// error, and the reply is unconditional.
func (c *Conn) handleClose(_ context.Context) error {
	msg, err := protocol.ReadClose(c.reader)
	if err != nil {
		return err
	}

	switch msg.Kind {
	case protocol.CloseStatement:
		delete(c.statements, msg.Name)
	case protocol.ClosePortal:
		delete(c.portals, msg.Name)
	}

	return protocol.WriteCloseComplete(c.writer)
}
