// Package auth defines the authentication collaborator the shim delegates
// to after reading a client's PasswordMessage, grounded on the teacher's
// ClearTextPassword auth strategy but reshaped to the spec's
// "authenticate(user) -> {context, password}" contract: the provider, not
// the shim, decides whether a password is even required.
package auth

import (
	"context"
	"errors"

	"github.com/olapwire/pgshim/internal/authctx"
)

// Result is what a Provider returns for a (possibly anonymous) username.
type Result struct {
	Context *authctx.Context
	// Password, when non-nil, is the expected cleartext password; the shim
	// compares it byte-for-byte against the client's PasswordMessage. A nil
	// Password means the provider accepts any credentials for this user
	// (e.g. trust auth for a given network).
	Password *string
}

// Provider authenticates a connecting username. Returning an error means
// authentication failed outright; a nil error with a Result.Password that
// does not match what the client sends is also a failure, checked by the
// caller.
type Provider interface {
	Authenticate(ctx context.Context, username string) (Result, error)
}

// ErrUnknownUser is returned by StaticProvider for usernames outside its map.
var ErrUnknownUser = errors.New("unknown user")

// StaticProvider authenticates against a fixed in-memory credential table,
// the shape used by the teacher's examples/auth demo server.
type StaticProvider struct {
	Credentials map[string]string
	Database    string
}

// NewStaticProvider constructs a StaticProvider from a username->password map.
func NewStaticProvider(credentials map[string]string, database string) *StaticProvider {
	return &StaticProvider{Credentials: credentials, Database: database}
}

// Authenticate implements Provider.
func (p *StaticProvider) Authenticate(_ context.Context, username string) (Result, error) {
	password, ok := p.Credentials[username]
	if !ok {
		return Result{}, ErrUnknownUser
	}

	return Result{
		Context:  &authctx.Context{User: username, Database: p.Database},
		Password: &password,
	}, nil
}
