package keycloak

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/awwsmm/subway/models"
)

var (
	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")
)

// RealmAccess lists the realm roles granted to the subject
type RealmAccess struct {
	Roles []string `json:"roles"`
}

// AccessClaims are the access token claims this server reads
type AccessClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string      `json:"preferred_username"`
	RealmAccess       RealmAccess `json:"realm_access"`
	AuthorizedParty   string      `json:"azp,omitempty"`
	Scope             string      `json:"scope,omitempty"`
}

// IDClaims are the identity token claims this server reads
type IDClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username,omitempty"`
	AuthorizedParty   string `json:"azp,omitempty"`
}

// UserFrom derives the session identity from a validated token pair.
// The name and roles come from the access token, the id from the identity
// token subject, and the expiry is the earlier of the two.
func UserFrom(access *AccessClaims, id *IDClaims) (models.User, error) {
	if access.PreferredUsername == "" {
		return models.User{}, fmt.Errorf("%w: preferred_username", ErrMissingClaim)
	}
	if id.Subject == "" {
		return models.User{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	sub, err := uuid.Parse(id.Subject)
	if err != nil {
		return models.User{}, fmt.Errorf("invalid sub UUID: %w", err)
	}
	if access.ExpiresAt == nil || id.ExpiresAt == nil {
		return models.User{}, fmt.Errorf("%w: exp", ErrMissingClaim)
	}

	expires := earliest(access.ExpiresAt.Time, id.ExpiresAt.Time)
	return models.NewUser(access.PreferredUsername, sub, access.RealmAccess.Roles, expires), nil
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
