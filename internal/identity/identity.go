// Package identity resolves the verified account behind a request into a
// session the lifecycle operations can trust. Role is decided exactly
// once, here; business logic downstream only ever sees the resolved
// capability and never compares email strings.
package identity

import (
	"context"

	"github.com/quebracell/backend/internal/listing"
)

// Session is the verified caller identity for the duration of a request.
type Session struct {
	UserID string
	Email  string
	Role   listing.Role
}

// IsOperator reports whether the session holds the single back-office
// operator capability.
func (s Session) IsOperator() bool {
	return s.Role == listing.RoleOperator
}

// Authenticator validates credentials against the account store.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (string, error)
}

// Resolver turns credentials into sessions. The admin email designates
// the one operator account; every other account is a plain user.
type Resolver struct {
	auth       Authenticator
	adminEmail string
}

func NewResolver(auth Authenticator, adminEmail string) *Resolver {
	return &Resolver{auth: auth, adminEmail: adminEmail}
}

func (r *Resolver) Resolve(ctx context.Context, email, password string) (Session, error) {
	id, err := r.auth.Authenticate(ctx, email, password)
	if err != nil {
		return Session{}, err
	}

	role := listing.RoleUser
	if r.adminEmail != "" && email == r.adminEmail {
		role = listing.RoleOperator
	}

	return Session{UserID: id, Email: email, Role: role}, nil
}
