// Package keycloaktest runs an in-process stand-in for a Keycloak realm:
// a JWKS endpoint and a password-grant token endpoint backed by a
// freshly generated RSA key.
package keycloaktest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/awwsmm/subway/keycloak"
)

// Defaults used by NewProvider
const (
	DefaultRealm        = "myrealm"
	DefaultClientID     = "my-confidential-client"
	DefaultClientSecret = "my-client-secret"
	DefaultKID          = "test-kid"
)

// Account is a user the token endpoint will accept
type Account struct {
	Password string
	Sub      uuid.UUID
	Roles    []string
}

// Provider is a fake Keycloak server
type Provider struct {
	Key          *rsa.PrivateKey
	KID          string
	Realm        string
	ClientID     string
	ClientSecret string
	Server       *httptest.Server

	// TokenTTL is the lifetime given to tokens minted by the token endpoint
	TokenTTL time.Duration

	mu        sync.Mutex
	accounts  map[string]Account
	jwksHits  atomic.Int64
	tokenHits atomic.Int64
	failJWKS  atomic.Bool
}

// NewProvider starts a fake provider that is closed when the test ends
func NewProvider(t testing.TB) *Provider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p := &Provider{
		Key:          key,
		KID:          DefaultKID,
		Realm:        DefaultRealm,
		ClientID:     DefaultClientID,
		ClientSecret: DefaultClientSecret,
		TokenTTL:     5 * time.Minute,
		accounts:     make(map[string]Account),
	}

	r := chi.NewRouter()
	r.Get("/realms/{realm}/protocol/openid-connect/certs", p.handleCerts)
	r.Post("/realms/{realm}/protocol/openid-connect/token", p.handleToken)
	p.Server = httptest.NewServer(r)
	t.Cleanup(p.Server.Close)

	return p
}

// Config returns a client configuration pointing at the fake provider
func (p *Provider) Config() keycloak.Config {
	return keycloak.Config{
		BaseURL:       p.Server.URL,
		IssuerBaseURL: p.Server.URL,
		Realm:         p.Realm,
		ClientID:      p.ClientID,
		ClientSecret:  p.ClientSecret,
	}
}

// Issuer returns the iss value minted tokens carry
func (p *Provider) Issuer() string {
	return p.Config().Issuer()
}

// AddAccount registers a user for the password grant
func (p *Provider) AddAccount(username string, account Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[username] = account
}

// JWKSHits returns how many times the certs endpoint was called
func (p *Provider) JWKSHits() int64 {
	return p.jwksHits.Load()
}

// TokenHits returns how many times the token endpoint was called
func (p *Provider) TokenHits() int64 {
	return p.tokenHits.Load()
}

// FailJWKS makes the certs endpoint answer 503
func (p *Provider) FailJWKS(fail bool) {
	p.failJWKS.Store(fail)
}

// AccessClaims returns valid access token claims for username
func (p *Provider) AccessClaims(username string, roles []string, exp time.Time) *keycloak.AccessClaims {
	now := time.Now()
	return &keycloak.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		PreferredUsername: username,
		RealmAccess:       keycloak.RealmAccess{Roles: roles},
		AuthorizedParty:   p.ClientID,
		Scope:             "openid profile",
	}
}

// IDClaims returns valid identity token claims for sub
func (p *Provider) IDClaims(sub uuid.UUID, username string, exp time.Time) *keycloak.IDClaims {
	now := time.Now()
	return &keycloak.IDClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer(),
			Subject:   sub.String(),
			Audience:  jwt.ClaimStrings{p.ClientID},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		PreferredUsername: username,
		AuthorizedParty:   p.ClientID,
	}
}

// Sign signs claims with the provider key
func (p *Provider) Sign(t testing.TB, claims jwt.Claims) string {
	t.Helper()
	return SignWith(t, p.Key, p.KID, claims)
}

// MintPair returns a signed access and identity token for one user
func (p *Provider) MintPair(t testing.TB, username string, sub uuid.UUID, roles []string, exp time.Time) (string, string) {
	t.Helper()
	return p.Sign(t, p.AccessClaims(username, roles, exp)), p.Sign(t, p.IDClaims(sub, username, exp))
}

// SignWith signs claims with an arbitrary key and kid
func SignWith(t testing.TB, key *rsa.PrivateKey, kid string, claims jwt.Claims) string {
	t.Helper()
	signed, err := sign(key, kid, claims)
	require.NoError(t, err)
	return signed
}

func sign(key *rsa.PrivateKey, kid string, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	return token.SignedString(key)
}

// Tamper flips one character of a token's signature
func Tamper(token string) string {
	i := strings.LastIndex(token, ".") + 1
	sig := []byte(token[i:])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	return token[:i] + string(sig)
}

func (p *Provider) handleCerts(w http.ResponseWriter, r *http.Request) {
	p.jwksHits.Add(1)

	if p.failJWKS.Load() || chi.URLParam(r, "realm") != p.Realm {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	set := jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{{
			Key:       &p.Key.PublicKey,
			KeyID:     p.KID,
			Algorithm: "RS256",
			Use:       "sig",
		}},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(set)
}

func (p *Provider) handleToken(w http.ResponseWriter, r *http.Request) {
	p.tokenHits.Add(1)

	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if r.PostForm.Get("grant_type") != "password" ||
		!strings.Contains(r.PostForm.Get("scope"), "openid") {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if r.PostForm.Get("client_id") != p.ClientID || r.PostForm.Get("client_secret") != p.ClientSecret {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client")
		return
	}

	username := r.PostForm.Get("username")
	p.mu.Lock()
	account, ok := p.accounts[username]
	p.mu.Unlock()
	if !ok || account.Password != r.PostForm.Get("password") {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_grant")
		return
	}

	exp := time.Now().Add(p.TokenTTL)
	access, err := sign(p.Key, p.KID, p.AccessClaims(username, account.Roles, exp))
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error")
		return
	}
	id, err := sign(p.Key, p.KID, p.IDClaims(account.Sub, username, exp))
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": access,
		"id_token":     id,
		"token_type":   "Bearer",
		"expires_in":   int(p.TokenTTL.Seconds()),
		"scope":        "openid profile email",
	})
}

func writeOAuthError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
