// Package realm reads Keycloak realm export files, the credential source
// used when the server authenticates locally.
package realm

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
)

// CredentialTypePassword is the credential type that holds a plaintext password
const CredentialTypePassword = "password"

var (
	// ErrExportUnreadable is returned when the export file cannot be opened
	ErrExportUnreadable = errors.New("realm export unreadable")

	// ErrExportInvalid is returned when the export file is not a valid realm export
	ErrExportInvalid = errors.New("realm export invalid")
)

// Export is the subset of a realm-export.json document this server reads
type Export struct {
	Realm                 string   `json:"realm"`
	AccessTokenLifespan   int64    `json:"accessTokenLifespan"`
	SSOSessionIdleTimeout int64    `json:"ssoSessionIdleTimeout"`
	SSLRequired           string   `json:"sslRequired"`
	Enabled               bool     `json:"enabled"`
	Clients               []Client `json:"clients"`
	Roles                 Roles    `json:"roles"`
	Users                 []User   `json:"users"`
}

// Client is an OIDC client registered in the realm
type Client struct {
	ClientID                  string   `json:"clientId"`
	Enabled                   bool     `json:"enabled"`
	Protocol                  string   `json:"protocol,omitempty"`
	PublicClient              bool     `json:"publicClient"`
	Secret                    string   `json:"secret,omitempty"`
	RedirectURIs              []string `json:"redirectUris"`
	DefaultClientScopes       []string `json:"defaultClientScopes"`
	OptionalClientScopes      []string `json:"optionalClientScopes"`
	ClientAuthenticatorType   string   `json:"clientAuthenticatorType,omitempty"`
	DirectAccessGrantsEnabled bool     `json:"directAccessGrantsEnabled,omitempty"`
	DefaultRoles              []string `json:"defaultRoles"`
}

// Roles groups the realm-level role definitions
type Roles struct {
	Realm []Role `json:"realm"`
}

// Role is a realm role definition
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// User is an account in the realm
type User struct {
	Username      string       `json:"username"`
	Enabled       bool         `json:"enabled"`
	EmailVerified bool         `json:"emailVerified"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	Email         string       `json:"email"`
	RealmRoles    []string     `json:"realmRoles"`
	Credentials   []Credential `json:"credentials"`
}

// Credential is one secret attached to a User
type Credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// Source loads a realm export
type Source interface {
	Load(ctx context.Context) (*Export, error)
}

// FileSource reads a realm export from disk on every Load
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource for path
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load opens and decodes the export file
func (s *FileSource) Load(ctx context.Context) (*Export, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(s.Path)
}

// LoadFile reads and decodes the realm export at path
func LoadFile(path string) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportUnreadable, err)
	}
	defer f.Close()

	var export Export
	if err := json.NewDecoder(f).Decode(&export); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExportInvalid, path, err)
	}
	return &export, nil
}

// FindUser returns the account whose username matches exactly
func (e *Export) FindUser(username string) (*User, bool) {
	for i := range e.Users {
		if e.Users[i].Username == username {
			return &e.Users[i], true
		}
	}
	return nil, false
}

// MatchesPassword reports whether the user has a password credential equal to password.
// Values are stored and compared in plaintext.
func (u *User) MatchesPassword(password string) bool {
	for _, cred := range u.Credentials {
		if cred.Type == CredentialTypePassword && cred.Value == password {
			return true
		}
	}
	return false
}

// Fingerprint hashes the account's identifying fields. The result is stable
// across restarts for an unchanged account.
func (u *User) Fingerprint() []byte {
	h := fnv.New64a()
	write := func(s string) {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}

	write(u.Username)
	write(u.FirstName)
	write(u.LastName)
	write(u.Email)
	for _, role := range u.RealmRoles {
		write(role)
	}

	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, h.Sum64())
	return out
}
