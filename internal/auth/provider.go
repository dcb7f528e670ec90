package auth

import (
	"context"
	"errors"
)

// AnonymousKey is the owner key shared by every caller without a resolved identity.
const AnonymousKey = "anon"

var ErrInvalidToken = errors.New("auth: invalid token")

// Identity is either Anonymous or Identified(userID). The zero value is Anonymous.
type Identity struct {
	userID string
}

func Anonymous() Identity { return Identity{} }

func Identified(userID string) Identity { return Identity{userID: userID} }

// UserID returns the user id and whether the identity is resolved.
func (i Identity) UserID() (string, bool) { return i.userID, i.userID != "" }

func (i Identity) IsAnonymous() bool { return i.userID == "" }

// OwnerKey partitions the insight cache: the user id, or AnonymousKey.
func (i Identity) OwnerKey() string {
	if i.userID == "" {
		return AnonymousKey
	}
	return i.userID
}

func (i Identity) String() string { return i.OwnerKey() }

// Provider resolves a bearer token into an Identity.
type Provider interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}
