package identity

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
)

// DevAuthenticator accepts any credentials and derives a stable user id
// from the email. It backs the in-memory mode where no account table
// exists; never use it with a real database.
type DevAuthenticator struct{}

func NewDevAuthenticator() DevAuthenticator {
	return DevAuthenticator{}
}

func (DevAuthenticator) Authenticate(_ context.Context, email, _ string) (string, error) {
	sum := sha1.Sum([]byte(email))
	return hex.EncodeToString(sum[:8]), nil
}
