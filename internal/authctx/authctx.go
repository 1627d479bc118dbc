// Package authctx defines the authentication context handed out by the auth
// provider and threaded through transport and planner calls. It exists as
// its own leaf package so that auth, transport, compile, and session can all
// depend on the context shape without importing one another.
package authctx

// Context carries whatever an authenticated connection needs downstream: at
// minimum the resolved username, plus provider-specific extras (tenant id,
// role, scoped database) that a real deployment's auth provider would
// populate.
type Context struct {
	User     string
	Database string
	Extra    map[string]string
}
