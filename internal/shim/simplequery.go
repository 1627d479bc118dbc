package shim

import (
	"context"

	"github.com/olapwire/pgshim/internal/pgerr"
	"github.com/olapwire/pgshim/internal/portal"
	"github.com/olapwire/pgshim/pkg/protocol"
)

// handleSimpleQuery implements spec.md §4.11. Unlike the extended-query
// handlers, a failure here does not just produce an ErrorResponse: the
// handler must still emit the trailing ReadyForQuery itself, since the
// simple-query path owns its own command cycle.
func (c *Conn) handleSimpleQuery(ctx context.Context) error {
	msg, err := protocol.ReadQuery(c.reader)
	if err != nil {
		return err
	}

	if err := c.runSimpleQuery(ctx, msg.SQL); err != nil {
		c.logger.Error("simple query failed", "err", err)
		flattened := pgerr.Flatten(err)
		c.metrics.ErrorSent(string(flattened.Code))
		if writeErr := protocol.WriteErrorResponse(c.writer, flattened); writeErr != nil {
			return writeErr
		}
	}

	return protocol.WriteReadyForQuery(c.writer, protocol.Idle)
}

func (c *Conn) runSimpleQuery(ctx context.Context, sql string) error {
	authCtx := c.session.AuthContext()
	if authCtx == nil {
		return errNotAuthenticated()
	}

	meta, err := c.session.Server.Transport.Meta(ctx, authCtx)
	if err != nil {
		return pgerr.Internal("fetching metadata", err)
	}

	plan, err := c.planner.ConvertSQLToPlan(ctx, sql, meta, c.session)
	if err != nil {
		return pgerr.Internal("planning query", err)
	}

	p := portal.NewPortal("", "", plan, []protocol.FormatCode{protocol.TextFormat})

	fields, err := p.RowDescription()
	if err != nil {
		return pgerr.Internal("describing result", err)
	}

	if len(fields) == 0 {
		if err := protocol.WriteNoData(c.writer); err != nil {
			return err
		}
	} else if err := protocol.WriteRowDescription(c.writer, fields); err != nil {
		return err
	}

	bw := portal.NewBatchWriter()
	tag, _, err := p.Execute(bw, 0)
	if err != nil {
		return pgerr.Internal("executing query", err)
	}

	if bw.HasData() {
		c.metrics.RowsStreamed(int(bw.Written()))
		if err := c.writer.WriteDirect(bw.Bytes()); err != nil {
			return err
		}
	}

	return protocol.WriteCommandComplete(c.writer, tag)
}
