package protocol

import (
	"github.com/olapwire/pgshim/internal/pgerr"
	"github.com/olapwire/pgshim/pkg/buffer"
)

// authType is the AuthenticationRequest sub-code.
type authType int32

const (
	authOK                authType = 0
	authClearTextPassword authType = 3
)

// WriteSSLResponse replies to an SSLRequest with a single byte: 'N' declines
// the upgrade, 'S' would accept it (unused; TLS upgrade is out of scope).
func WriteSSLResponse(w *buffer.Writer, accept bool) error {
	b := byte('N')
	if accept {
		b = 'S'
	}
	return w.WriteDirect([]byte{b})
}

// WriteAuthenticationCleartextPassword asks the client to send a
// PasswordMessage containing the password in the clear.
func WriteAuthenticationCleartextPassword(w *buffer.Writer) error {
	w.Start(byte(ServerAuth))
	w.AddInt32(int32(authClearTextPassword))
	return w.End()
}

// WriteAuthenticationOk announces successful authentication.
func WriteAuthenticationOk(w *buffer.Writer) error {
	w.Start(byte(ServerAuth))
	w.AddInt32(int32(authOK))
	return w.End()
}

// WriteParameterStatus writes one ParameterStatus key/value pair.
func WriteParameterStatus(w *buffer.Writer, key, value string) error {
	w.Start(byte(ServerParameterStatus))
	w.AddString(key)
	w.AddNullTerminate()
	w.AddString(value)
	w.AddNullTerminate()
	return w.End()
}

// WriteReadyForQuery announces the server is ready for a new command cycle.
func WriteReadyForQuery(w *buffer.Writer, status TransactionStatus) error {
	w.Start(byte(ServerReady))
	w.AddByte(byte(status))
	return w.End()
}

// WriteParseComplete acknowledges a successful Parse.
func WriteParseComplete(w *buffer.Writer) error {
	w.Start(byte(ServerParseComplete))
	return w.End()
}

// WriteBindComplete acknowledges a successful Bind.
func WriteBindComplete(w *buffer.Writer) error {
	w.Start(byte(ServerBindComplete))
	return w.End()
}

// WriteCloseComplete acknowledges a Close, whether or not the name existed.
func WriteCloseComplete(w *buffer.Writer) error {
	w.Start(byte(ServerCloseComplete))
	return w.End()
}

// WriteNoData announces that a statement/portal produces no output columns.
func WriteNoData(w *buffer.Writer) error {
	w.Start(byte(ServerNoData))
	return w.End()
}

// WriteEmptyQueryResponse announces execution of the empty-query sentinel.
func WriteEmptyQueryResponse(w *buffer.Writer) error {
	w.Start(byte(ServerEmptyQuery))
	return w.End()
}

// WriteCommandComplete announces the completion tag for a finished command,
// e.g. "SELECT 3" or "SET".
func WriteCommandComplete(w *buffer.Writer, tag string) error {
	w.Start(byte(ServerCommandComplete))
	w.AddString(tag)
	w.AddNullTerminate()
	return w.End()
}

// WritePortalSuspended announces that Execute's max_rows limit was hit
// before the portal was exhausted.
func WritePortalSuspended(w *buffer.Writer) error {
	w.Start(byte(ServerPortalSuspended))
	return w.End()
}

// WriteParameterDescription describes a prepared statement's parameter type
// OIDs, in declaration order.
func WriteParameterDescription(w *buffer.Writer, oids []uint32) error {
	w.Start(byte(ServerParameterDescription))
	w.AddInt16(int16(len(oids)))
	for _, oid := range oids {
		w.AddInt32(int32(oid))
	}
	return w.End()
}

// RowDescriptionField describes a single output column.
type RowDescriptionField struct {
	Name         string
	TableOID     int32
	AttrNo       int16
	TypeOID      uint32
	TypeSize     int16
	TypeModifier int32
	Format       FormatCode
}

// WriteRowDescription describes the shape of the rows that follow.
func WriteRowDescription(w *buffer.Writer, fields []RowDescriptionField) error {
	w.Start(byte(ServerRowDescription))
	w.AddInt16(int16(len(fields)))

	for _, f := range fields {
		w.AddString(f.Name)
		w.AddNullTerminate()
		w.AddInt32(f.TableOID)
		w.AddInt16(f.AttrNo)
		w.AddInt32(int32(f.TypeOID))
		w.AddInt16(f.TypeSize)
		w.AddInt32(f.TypeModifier)
		w.AddInt16(int16(f.Format))
	}

	return w.End()
}

// errField tags the fields of an ErrorResponse/NoticeResponse message.
// http://www.postgresql.org/docs/current/static/protocol-error-fields.html
type errField byte

const (
	errFieldSeverity   errField = 'S'
	errFieldCode       errField = 'C'
	errFieldMessage    errField = 'M'
)

// WriteErrorResponse writes a flattened error out as an ErrorResponse.
func WriteErrorResponse(w *buffer.Writer, desc pgerr.Flattened) error {
	w.Start(byte(ServerErrorResponse))

	w.AddByte(byte(errFieldSeverity))
	w.AddString(string(desc.Severity))
	w.AddNullTerminate()

	w.AddByte(byte(errFieldCode))
	w.AddString(string(desc.Code))
	w.AddNullTerminate()

	w.AddByte(byte(errFieldMessage))
	w.AddString(desc.Message)
	w.AddNullTerminate()

	w.AddNullTerminate() // terminates the field list
	return w.End()
}
