package keycloak_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awwsmm/subway/keycloak"
	"github.com/awwsmm/subway/keycloak/keycloaktest"
)

func TestPasswordExchanger_Exchange(t *testing.T) {
	provider := keycloaktest.NewProvider(t)
	provider.AddAccount("bob", keycloaktest.Account{Password: "bob", Sub: uuid.New(), Roles: []string{"user"}})
	exchanger := keycloak.NewPasswordExchanger(provider.Config(), nil)
	ctx := context.Background()

	assert.Equal(t, provider.Realm, exchanger.Realm())

	t.Run("valid credentials", func(t *testing.T) {
		pair, err := exchanger.Exchange(ctx, "bob", "bob")
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.IDToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := exchanger.Exchange(ctx, "bob", "wrong")
		assert.ErrorIs(t, err, keycloak.ErrCredentialsRejected)
	})

	t.Run("wrong client secret", func(t *testing.T) {
		cfg := provider.Config()
		cfg.ClientSecret = "nope"

		_, err := keycloak.NewPasswordExchanger(cfg, nil).Exchange(ctx, "bob", "bob")
		assert.ErrorIs(t, err, keycloak.ErrCredentialsRejected)
	})

	t.Run("single attempt per call", func(t *testing.T) {
		before := provider.TokenHits()
		_, _ = exchanger.Exchange(ctx, "bob", "wrong")
		assert.Equal(t, before+1, provider.TokenHits())
	})
}

func TestPasswordExchanger_ProviderUnavailable(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		exchanger := keycloak.NewPasswordExchanger(keycloak.Config{BaseURL: url, Realm: "myrealm", ClientID: "c"}, nil)
		_, err := exchanger.Exchange(context.Background(), "bob", "bob")
		assert.ErrorIs(t, err, keycloak.ErrTokenRequestFailed)
	})

	t.Run("response without id_token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"Bearer"}`))
		}))
		defer server.Close()

		exchanger := keycloak.NewPasswordExchanger(keycloak.Config{BaseURL: server.URL, Realm: "myrealm", ClientID: "c"}, server.Client())
		_, err := exchanger.Exchange(context.Background(), "bob", "bob")
		assert.ErrorIs(t, err, keycloak.ErrTokenRequestFailed)
	})

	t.Run("response is not JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`<html>`))
		}))
		defer server.Close()

		exchanger := keycloak.NewPasswordExchanger(keycloak.Config{BaseURL: server.URL, Realm: "myrealm", ClientID: "c"}, server.Client())
		_, err := exchanger.Exchange(context.Background(), "bob", "bob")
		assert.ErrorIs(t, err, keycloak.ErrTokenRequestFailed)
	})
}
