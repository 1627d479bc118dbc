// Package protocol implements the PostgreSQL v3 frontend/backend message
// shapes this shim consumes and produces, on top of the framing provided by
// pkg/buffer.
package protocol

// ClientMessage identifies a frontend (client->server) message type byte.
// http://www.postgresql.org/docs/9.4/static/protocol-message-formats.html
type ClientMessage byte

// ServerMessage identifies a backend (server->client) message type byte.
type ServerMessage byte

const (
	ClientBind        ClientMessage = 'B'
	ClientClose       ClientMessage = 'C'
	ClientDescribe    ClientMessage = 'D'
	ClientExecute     ClientMessage = 'E'
	ClientFlush       ClientMessage = 'H'
	ClientParse       ClientMessage = 'P'
	ClientPassword    ClientMessage = 'p'
	ClientSimpleQuery ClientMessage = 'Q'
	ClientSync        ClientMessage = 'S'
	ClientTerminate   ClientMessage = 'X'
)

const (
	ServerAuth                 ServerMessage = 'R'
	ServerBindComplete         ServerMessage = '2'
	ServerCloseComplete        ServerMessage = '3'
	ServerCommandComplete      ServerMessage = 'C'
	ServerDataRow              ServerMessage = 'D'
	ServerEmptyQuery           ServerMessage = 'I'
	ServerErrorResponse        ServerMessage = 'E'
	ServerNoData               ServerMessage = 'n'
	ServerParameterDescription ServerMessage = 't'
	ServerParameterStatus      ServerMessage = 'S'
	ServerParseComplete        ServerMessage = '1'
	ServerPortalSuspended      ServerMessage = 's'
	ServerReady                ServerMessage = 'Z'
	ServerRowDescription       ServerMessage = 'T'
)

func (m ClientMessage) String() string {
	switch m {
	case ClientBind:
		return "Bind"
	case ClientClose:
		return "Close"
	case ClientDescribe:
		return "Describe"
	case ClientExecute:
		return "Execute"
	case ClientFlush:
		return "Flush"
	case ClientParse:
		return "Parse"
	case ClientPassword:
		return "Password"
	case ClientSimpleQuery:
		return "SimpleQuery"
	case ClientSync:
		return "Sync"
	case ClientTerminate:
		return "Terminate"
	default:
		return "Unknown"
	}
}

// DescribeKind distinguishes the two Describe sub-messages.
type DescribeKind byte

const (
	DescribeStatement DescribeKind = 'S'
	DescribePortal    DescribeKind = 'P'
)

// CloseKind distinguishes the two Close sub-messages.
type CloseKind byte

const (
	CloseStatement CloseKind = 'S'
	ClosePortal    CloseKind = 'P'
)

// FormatCode is the wire encoding (text or binary) of a parameter or column.
type FormatCode int16

const (
	TextFormat   FormatCode = 0
	BinaryFormat FormatCode = 1
)

// TransactionStatus is always Idle: this shim never tracks transaction state.
type TransactionStatus byte

const (
	Idle TransactionStatus = 'I'
)

// Protocol version numbers and the handshake request codes that arrive in
// the same field.
const (
	ProtocolMajor3    = 3
	ProtocolMinor0    = 0
	SSLRequestCode    = 80877103 // (1234 << 16) + 5679
	CancelRequestCode = 80877102 // (1234 << 16) + 5678
)
