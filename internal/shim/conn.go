// Package shim implements the per-connection PostgreSQL v3 protocol state
// machine: startup, authentication, and the simple/extended query dispatch
// loop, delegating all SQL execution to the compile.Planner and
// transport.Transport collaborators. Grounded on the teacher's wire.go/
// handshake.go/command.go trio, generalized from the teacher's pluggable
// ParseFn/AuthStrategy model to this shim's fixed planner+auth+transport
// collaborator set.
package shim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/olapwire/pgshim/codes"
	"github.com/olapwire/pgshim/internal/authctx"
	"github.com/olapwire/pgshim/internal/compile"
	"github.com/olapwire/pgshim/internal/metrics"
	"github.com/olapwire/pgshim/internal/pgerr"
	"github.com/olapwire/pgshim/internal/portal"
	"github.com/olapwire/pgshim/internal/session"
	"github.com/olapwire/pgshim/pkg/buffer"
	"github.com/olapwire/pgshim/pkg/protocol"
)

// Conn is one accepted client connection: its framing I/O, its extended-query
// catalogs, and the session it was issued by the connection's Manager.
type Conn struct {
	logger  *slog.Logger
	conn    net.Conn
	reader  *buffer.Reader
	writer  *buffer.Writer
	planner compile.Planner
	session *session.Session
	metrics *metrics.Collector

	statements map[string]*portal.PreparedStatement
	portals    map[string]*portal.Portal
}

// BufferedMsgSize is the default reader buffer size / max message size, the
// same default the teacher's buffer package uses.
const BufferedMsgSize = buffer.DefaultBufferSize

// NewConn wraps an accepted socket in a Conn, registering a fresh Session
// against mgr. The caller must arrange for Serve to be invoked exactly once
// and its error handled; Serve itself guarantees session teardown. collector
// may be nil, in which case this Conn reports into a private registry that
// nothing ever scrapes - convenient for tests that don't care about metrics.
func NewConn(logger *slog.Logger, raw net.Conn, srv *session.Server, mgr *session.Manager, planner compile.Planner, collector *metrics.Collector) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.New()
	}

	return &Conn{
		logger:     logger,
		conn:       raw,
		reader:     buffer.NewReader(logger, raw, BufferedMsgSize),
		writer:     buffer.NewWriter(logger, raw),
		planner:    planner,
		session:    mgr.New(srv),
		metrics:    collector,
		statements: make(map[string]*portal.PreparedStatement),
		portals:    make(map[string]*portal.Portal),
	}
}

// Serve drives the connection from startup through teardown. It always
// unregisters the session before returning, regardless of how it exits.
func (c *Conn) Serve(ctx context.Context) error {
	defer c.session.Close()
	defer c.conn.Close()

	c.logger.Debug("accepted connection", slog.String("remote", c.conn.RemoteAddr().String()))

	authenticated, err := c.runStartup(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			c.logger.Debug("client disconnected before completing startup")
			return nil
		}
		return err
	}
	if !authenticated {
		return nil
	}

	if err := c.writeReady(ctx); err != nil {
		return err
	}

	return c.dispatchLoop(ctx)
}

// runStartup drives the StartupMessage/SSLRequest/authentication sequence to
// completion, returning whether the connection should proceed to Ready.
func (c *Conn) runStartup(ctx context.Context) (bool, error) {
	for {
		msg, err := protocol.ReadStartupMessage(c.reader)
		if err != nil {
			return false, err
		}

		switch {
		case msg.Version.Raw == protocol.SSLRequestCode:
			c.logger.Debug("declining SSL upgrade")
			if err := protocol.WriteSSLResponse(c.writer, false); err != nil {
				return false, err
			}
			continue // caller re-enters startup expecting the real StartupMessage

		case msg.Version.Raw == protocol.CancelRequestCode:
			c.logger.Debug("ignoring cancel request")
			return false, nil

		case msg.Version.Major != protocol.ProtocolMajor3 || msg.Version.Minor != protocol.ProtocolMinor0:
			return false, c.fatal(ctx, pgerr.WithCode(
				fmt.Errorf("unsupported protocol version %d.%d; this server supports 3.0 to 3.0", msg.Version.Major, msg.Version.Minor),
				codes.FeatureNotSupported,
			))

		default:
			return c.authenticate(ctx, msg)
		}
	}
}

// authenticate implements spec.md §4.1's remaining branch and §4.2 in full:
// validates the user parameter, requests a cleartext password, and checks it
// against the auth provider's answer.
func (c *Conn) authenticate(ctx context.Context, msg *protocol.StartupMessage) (bool, error) {
	user, ok := msg.Parameters["user"]
	if !ok || user == "" {
		return false, c.fatal(ctx, pgerr.WithCode(
			errors.New("no user parameter supplied in startup packet"),
			codes.InvalidAuthorizationSpecification,
		))
	}

	database := msg.Parameters["database"]
	if database == "" {
		database = "db"
	}

	if err := protocol.WriteAuthenticationCleartextPassword(c.writer); err != nil {
		return false, err
	}

	t, _, err := c.reader.ReadTypedMsg()
	if err != nil {
		return false, err
	}
	if protocol.ClientMessage(t) != protocol.ClientPassword {
		c.logger.Debug("client disconnected instead of sending a password", slog.String("got", protocol.ClientMessage(t).String()))
		return false, io.EOF
	}

	password, err := protocol.ReadPasswordMessage(c.reader)
	if err != nil {
		return false, err
	}

	result, err := c.session.Server.Auth.Authenticate(ctx, user)
	if err != nil || (result.Password != nil && *result.Password != password) {
		c.metrics.AuthFailed()
		return false, c.fatal(ctx, pgerr.WithCode(errors.New("password authentication failed"), codes.InvalidPassword))
	}

	c.session.SetUser(user)
	switch {
	case result.Context != nil:
		c.session.SetAuthContext(result.Context)
	default:
		c.session.SetAuthContext(&authctx.Context{User: user, Database: database})
	}

	return true, protocol.WriteAuthenticationOk(c.writer)
}

// fatal writes a Fatal-severity ErrorResponse and returns the original error
// so the caller unwinds the connection; used for every pre-auth failure.
func (c *Conn) fatal(_ context.Context, err error) error {
	flattened := pgerr.Flatten(pgerr.WithSeverity(err, pgerr.LevelFatal))
	c.metrics.ErrorSent(string(flattened.Code))
	if writeErr := protocol.WriteErrorResponse(c.writer, flattened); writeErr != nil {
		return writeErr
	}
	return err
}

// writeReady emits the fixed ParameterStatus set plus ReadyForQuery, per
// spec.md §4.3.
func (c *Conn) writeReady(_ context.Context) error {
	pairs := [][2]string{
		{"server_version", c.session.Server.Version},
		{"server_encoding", "UTF8"},
		{"client_encoding", "UTF8"},
		{"DateStyle", "ISO"},
	}

	for _, kv := range pairs {
		if err := protocol.WriteParameterStatus(c.writer, kv[0], kv[1]); err != nil {
			return err
		}
	}

	return protocol.WriteReadyForQuery(c.writer, protocol.Idle)
}

// dispatchLoop implements spec.md §4.4: read one frontend message, dispatch,
// repeat until Terminate, EOF, or a connection-fatal error.
func (c *Conn) dispatchLoop(ctx context.Context) error {
	for {
		t, _, err := c.reader.ReadTypedMsg()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		msg := protocol.ClientMessage(t)
		c.logger.Debug("dispatching command", slog.String("type", msg.String()))

		start := time.Now()
		done, err := c.dispatch(ctx, msg)
		c.metrics.CommandHandled(msg.String(), time.Since(start))
		if done {
			return err
		}
	}
}

// dispatch handles a single frontend message. The bool return reports
// whether the loop should stop (Terminate or a connection-fatal error).
func (c *Conn) dispatch(ctx context.Context, msg protocol.ClientMessage) (bool, error) {
	switch msg {
	case protocol.ClientSimpleQuery:
		// handleSimpleQuery owns its own ReadyForQuery, success or failure
		// (spec.md §4.11); it must not be passed through recoverable.
		return false, c.handleSimpleQuery(ctx)
	case protocol.ClientParse:
		return c.recoverable(c.handleParse(ctx))
	case protocol.ClientBind:
		return c.recoverable(c.handleBind(ctx))
	case protocol.ClientExecute:
		return c.recoverable(c.handleExecute(ctx))
	case protocol.ClientDescribe:
		return c.recoverable(c.handleDescribe(ctx))
	case protocol.ClientClose:
		return c.recoverable(c.handleClose(ctx))
	case protocol.ClientSync:
		return false, protocol.WriteReadyForQuery(c.writer, protocol.Idle)
	case protocol.ClientFlush:
		return false, nil
	case protocol.ClientTerminate:
		return true, nil
	default:
		return true, fmt.Errorf("unsupported client message type: %s", msg)
	}
}

// recoverable converts a handler error into an ErrorResponse without
// terminating the connection, per spec.md §7 class 2: the dispatch loop
// continues (done=false) so long as the ErrorResponse itself was written
// successfully. A failure writing that response is connection-fatal and
// stops the loop (done=true).
func (c *Conn) recoverable(err error) (bool, error) {
	if err == nil {
		return false, nil
	}

	c.logger.Error("command failed", slog.String("err", err.Error()))
	flattened := pgerr.Flatten(err)
	c.metrics.ErrorSent(string(flattened.Code))
	if writeErr := protocol.WriteErrorResponse(c.writer, flattened); writeErr != nil {
		return true, writeErr
	}
	return false, nil
}
