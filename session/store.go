// Package session holds the in-memory mapping from opaque session tokens to
// authenticated users.
//
// Expired entries are purged lazily the first time they are looked up. There
// is no background sweep, so a session that is issued and never presented
// again after it expires stays in memory until the process exits.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/awwsmm/subway/models"
)

// TokenBytes is the number of random bytes behind every session token
const TokenBytes = 32

// ErrTokenGeneration is returned when the system random source fails
var ErrTokenGeneration = errors.New("failed to generate session token")

// Token is an opaque bearer credential bound to one User
type Token string

// String returns the token text
func (t Token) String() string {
	return string(t)
}

// Clock returns the current time
type Clock func() time.Time

// Store maps session tokens to users. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[Token]models.User
	now      Clock
}

// NewStore creates an empty Store using the wall clock
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock creates an empty Store that reads the time from now
func NewStoreWithClock(now Clock) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		sessions: make(map[Token]models.User),
		now:      now,
	}
}

// Now returns the store's notion of the current time
func (s *Store) Now() time.Time {
	return s.now()
}

// Issue generates a new token for user and records the session.
// Callers must finish any external verification before calling Issue.
func (s *Store) Issue(user models.User) (Token, error) {
	token, err := generateToken(TokenBytes)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.sessions[token] = user
	s.mu.Unlock()

	return token, nil
}

// Validate returns the user bound to token if the session exists and has not
// expired. An expired session is removed and reported as absent.
func (s *Store) Validate(token Token) (models.User, bool) {
	if token == "" {
		return models.User{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.sessions[token]
	if !ok {
		return models.User{}, false
	}
	if user.IsExpired(s.now()) {
		delete(s.sessions, token)
		return models.User{}, false
	}
	return user, true
}

// Len returns the number of stored sessions, expired or not
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func generateToken(n int) (Token, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return Token(base64.StdEncoding.EncodeToString(buf)), nil
}
