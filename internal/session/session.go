// Package session owns the process-wide state a connection shim leans on:
// the shared auth provider and transport handle (Server), the per-connection
// Session that records once-set auth context, and the Manager that the shim
// must notify exactly once on teardown. Grounded on the rust original's
// Session/Server split and, for the registry shape, on the teacher pack's
// db-bouncer connection pool (a mutex-guarded map keyed by an atomically
// issued id).
package session

import (
	"sync"
	"sync/atomic"

	"github.com/olapwire/pgshim/internal/auth"
	"github.com/olapwire/pgshim/internal/authctx"
	"github.com/olapwire/pgshim/internal/transport"
)

// Server holds the collaborators shared by every connection.
type Server struct {
	Auth      auth.Provider
	Transport transport.Transport
	// Version is surfaced to clients via the server_version ParameterStatus.
	Version string
}

// Session is the per-connection state a shim.Conn carries for its lifetime.
// Once AuthContext is set it is never cleared again, per spec invariant.
type Session struct {
	ID       uint64
	Server   *Server
	mu       sync.RWMutex
	user     string
	authCtx  *authctx.Context
	manager  *Manager
}

// SetUser records the username supplied at startup/auth time.
func (s *Session) SetUser(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// User returns the username recorded via SetUser.
func (s *Session) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// SetAuthContext records the auth context returned by a successful
// authentication. Once set it is never cleared.
func (s *Session) SetAuthContext(ctx *authctx.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authCtx = ctx
}

// AuthContext returns the previously recorded auth context, or nil if the
// connection has not authenticated yet.
func (s *Session) AuthContext() *authctx.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authCtx
}

// Close unregisters this session from its owning Manager. The shim calls
// this exactly once, on every exit path from Conn.Serve.
func (s *Session) Close() {
	s.manager.Drop(s.ID)
}

// Manager is the process-wide session registry. A shim.Conn registers itself
// on accept and must call Drop exactly once on every exit path.
type Manager struct {
	mu       sync.Mutex
	sessions map[uint64]*Session
	nextID   atomic.Uint64
}

// NewManager constructs an empty session registry.
func NewManager() *Manager {
	return &Manager{sessions: make(map[uint64]*Session)}
}

// New creates and registers a new Session bound to srv.
func (m *Manager) New(srv *Server) *Session {
	id := m.nextID.Add(1)
	s := &Session{ID: id, Server: srv, manager: m}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	return s
}

// Drop removes a session from the registry. Removing an id that is not
// present is a no-op, mirroring Close semantics elsewhere in this shim.
func (m *Manager) Drop(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len reports the number of currently registered sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
