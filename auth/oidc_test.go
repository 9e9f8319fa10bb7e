package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/awwsmm/subway/keycloak"
	"github.com/awwsmm/subway/keycloak/keycloaktest"
	"github.com/awwsmm/subway/services"
	"github.com/awwsmm/subway/session"
)

// MockTokenValidator mocks provider token validation
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateAccessToken(ctx context.Context, token, realm string) (*keycloak.AccessClaims, error) {
	args := m.Called(ctx, token, realm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keycloak.AccessClaims), args.Error(1)
}

func (m *MockTokenValidator) ValidateIDToken(ctx context.Context, token, realm string) (*keycloak.IDClaims, error) {
	args := m.Called(ctx, token, realm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keycloak.IDClaims), args.Error(1)
}

// MockPasswordExchanger mocks the password grant
type MockPasswordExchanger struct {
	mock.Mock
}

func (m *MockPasswordExchanger) Exchange(ctx context.Context, username, password string) (keycloak.TokenPair, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(keycloak.TokenPair), args.Error(1)
}

func (m *MockPasswordExchanger) Realm() string {
	return "myrealm"
}

func newOIDC(t *testing.T, provider *keycloaktest.Provider) (*OIDCAuthenticator, *session.Store) {
	t.Helper()
	cfg := provider.Config()
	store := session.NewStore()
	return NewOIDCAuthenticator(
		keycloak.NewValidator(cfg),
		keycloak.NewPasswordExchanger(cfg, nil),
		store,
		zap.NewNop(),
	), store
}

func TestOIDCAuthenticator_Login(t *testing.T) {
	provider := keycloaktest.NewProvider(t)
	sub := uuid.New()
	provider.AddAccount("bob", keycloaktest.Account{Password: "bob", Sub: sub, Roles: []string{"user"}})
	ctx := context.Background()

	t.Run("password grant issues a session", func(t *testing.T) {
		oidc, store := newOIDC(t, provider)

		token, err := oidc.Login(ctx, "bob", "bob")
		require.NoError(t, err)

		user, ok := store.Validate(token)
		require.True(t, ok)
		assert.Equal(t, "bob", user.Name)
		assert.Equal(t, sub, user.ID)
		assert.Equal(t, []string{"user"}, user.Roles)
		assert.InDelta(t, time.Now().Add(provider.TokenTTL).Unix(), user.ExpiresAt, 5)
	})

	t.Run("rejected credentials", func(t *testing.T) {
		oidc, store := newOIDC(t, provider)

		_, err := oidc.Login(ctx, "bob", "wrong")
		assert.True(t, services.IsInvalidCredentialsError(err))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("unreachable provider", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		cfg := keycloak.Config{BaseURL: server.URL, Realm: "myrealm", ClientID: "c"}
		server.Close()
		oidc := NewOIDCAuthenticator(keycloak.NewValidator(cfg), keycloak.NewPasswordExchanger(cfg, nil), session.NewStore(), zap.NewNop())

		_, err := oidc.Login(ctx, "bob", "bob")
		assert.True(t, services.IsProviderUnavailableError(err))
	})

	t.Run("exchanger failure is not retried", func(t *testing.T) {
		exchanger := &MockPasswordExchanger{}
		exchanger.On("Exchange", mock.Anything, "bob", "bob").
			Return(keycloak.TokenPair{}, keycloak.ErrTokenRequestFailed).Once()
		oidc := NewOIDCAuthenticator(&MockTokenValidator{}, exchanger, session.NewStore(), zap.NewNop())

		_, err := oidc.Login(ctx, "bob", "bob")
		assert.True(t, services.IsProviderUnavailableError(err))
		exchanger.AssertNumberOfCalls(t, "Exchange", 1)
	})
}

func TestOIDCAuthenticator_LoginWithTokens(t *testing.T) {
	provider := keycloaktest.NewProvider(t)
	ctx := context.Background()
	sub := uuid.New()

	t.Run("valid pair", func(t *testing.T) {
		oidc, store := newOIDC(t, provider)
		accessExp := time.Now().Add(10 * time.Minute)
		idExp := time.Now().Add(5 * time.Minute)
		access := provider.Sign(t, provider.AccessClaims("bob", []string{"user", "admin"}, accessExp))
		id := provider.Sign(t, provider.IDClaims(sub, "bob", idExp))

		token, err := oidc.LoginWithTokens(ctx, access, id, provider.Realm)
		require.NoError(t, err)

		user, ok := store.Validate(token)
		require.True(t, ok)
		assert.Equal(t, sub, user.ID)
		assert.Equal(t, []string{"user", "admin"}, user.Roles)
		assert.Equal(t, idExp.Unix(), user.ExpiresAt)
	})

	t.Run("pair signed by an unknown key", func(t *testing.T) {
		oidc, store := newOIDC(t, provider)
		rogue, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		exp := time.Now().Add(time.Minute)
		access := keycloaktest.SignWith(t, rogue, "rogue", provider.AccessClaims("bob", []string{"admin"}, exp))
		id := keycloaktest.SignWith(t, rogue, "rogue", provider.IDClaims(sub, "bob", exp))

		_, err = oidc.LoginWithTokens(ctx, access, id, provider.Realm)
		assert.True(t, services.IsUnknownSigningKeyError(err))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("tampered signature", func(t *testing.T) {
		oidc, store := newOIDC(t, provider)
		access, id := provider.MintPair(t, "bob", sub, []string{"user"}, time.Now().Add(time.Minute))

		_, err := oidc.LoginWithTokens(ctx, keycloaktest.Tamper(access), keycloaktest.Tamper(id), provider.Realm)
		assert.True(t, services.IsInvalidTokensError(err))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("expired pair", func(t *testing.T) {
		oidc, store := newOIDC(t, provider)
		access, id := provider.MintPair(t, "bob", sub, []string{"user"}, time.Now().Add(-time.Minute))

		_, err := oidc.LoginWithTokens(ctx, access, id, provider.Realm)
		assert.True(t, services.IsInvalidTokensError(err))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("one bad token fails the whole login", func(t *testing.T) {
		oidc, store := newOIDC(t, provider)
		access, id := provider.MintPair(t, "bob", sub, []string{"user"}, time.Now().Add(time.Minute))

		_, err := oidc.LoginWithTokens(ctx, access, keycloaktest.Tamper(id), provider.Realm)
		assert.True(t, services.IsInvalidTokensError(err))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("id token for another client", func(t *testing.T) {
		oidc, _ := newOIDC(t, provider)
		exp := time.Now().Add(time.Minute)
		claims := provider.IDClaims(sub, "bob", exp)
		claims.Audience = []string{"another-client"}
		access := provider.Sign(t, provider.AccessClaims("bob", nil, exp))

		_, err := oidc.LoginWithTokens(ctx, access, provider.Sign(t, claims), provider.Realm)
		assert.True(t, services.IsInvalidTokensError(err))
	})

	t.Run("sub that is not a UUID", func(t *testing.T) {
		oidc, _ := newOIDC(t, provider)
		exp := time.Now().Add(time.Minute)
		claims := provider.IDClaims(sub, "bob", exp)
		claims.Subject = "bob"
		access := provider.Sign(t, provider.AccessClaims("bob", nil, exp))

		_, err := oidc.LoginWithTokens(ctx, access, provider.Sign(t, claims), provider.Realm)
		assert.True(t, services.IsInvalidTokensError(err))
	})

	t.Run("other realms are rejected without contacting the provider", func(t *testing.T) {
		oidc, store := newOIDC(t, provider)
		access, id := provider.MintPair(t, "bob", sub, []string{"user"}, time.Now().Add(time.Minute))
		before := provider.JWKSHits()

		for _, realm := range []string{"otherrealm", "../../admin/realms/master/users?x=", provider.Realm + "/"} {
			_, err := oidc.LoginWithTokens(ctx, access, id, realm)
			assert.True(t, services.IsInvalidTokensError(err), realm)
			assert.ErrorIs(t, err, keycloak.ErrUnknownRealm)
		}
		assert.Equal(t, before, provider.JWKSHits())
		assert.Equal(t, 0, store.Len())
	})

	t.Run("empty input", func(t *testing.T) {
		oidc, _ := newOIDC(t, provider)

		_, err := oidc.LoginWithTokens(ctx, "", "x", provider.Realm)
		assert.True(t, services.IsInvalidTokensError(err))
	})

	t.Run("validation happens before the store is touched", func(t *testing.T) {
		validator := &MockTokenValidator{}
		validator.On("ValidateAccessToken", mock.Anything, "a", "myrealm").
			Return(&keycloak.AccessClaims{PreferredUsername: "bob"}, nil)
		validator.On("ValidateIDToken", mock.Anything, "i", "myrealm").
			Return(nil, errors.Join(keycloak.ErrInvalidToken, errors.New("bad aud")))
		store := session.NewStore()
		oidc := NewOIDCAuthenticator(validator, &MockPasswordExchanger{}, store, zap.NewNop())

		_, err := oidc.LoginWithTokens(ctx, "a", "i", "myrealm")
		assert.True(t, services.IsInvalidTokensError(err))
		assert.Equal(t, 0, store.Len())
	})
}
