package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Well-known realm roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an authenticated principal produced by a successful login
type User struct {
	Name      string    `json:"name"`
	ID        uuid.UUID `json:"id"`
	Roles     []string  `json:"roles"`
	ExpiresAt int64     `json:"expires_at"` // seconds since epoch
}

// NewUser creates a User that expires at the given time. Expiry is kept in
// whole seconds, rounded up so a session never ends before expiresAt.
func NewUser(name string, id uuid.UUID, roles []string, expiresAt time.Time) User {
	exp := expiresAt.Unix()
	if expiresAt.Nanosecond() > 0 {
		exp++
	}
	return User{
		Name:      name,
		ID:        id,
		Roles:     slices.Clone(roles),
		ExpiresAt: exp,
	}
}

// Expiry returns ExpiresAt as a time.Time
func (u User) Expiry() time.Time {
	return time.Unix(u.ExpiresAt, 0)
}

// IsExpired reports whether the user's session is over at now
func (u User) IsExpired(now time.Time) bool {
	return now.Unix() >= u.ExpiresAt
}

// HasAnyRole returns true if the user holds at least one of the given roles
func (u User) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(u.Roles, r) {
			return true
		}
	}
	return false
}
