package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/awwsmm/subway/auth"
	"github.com/awwsmm/subway/realm"
	"github.com/awwsmm/subway/session"
)

const testRealmExport = "../realm/testdata/realm-export.json"

type stubAuthDeps struct {
	handler *auth.Handler
}

func (d stubAuthDeps) AuthHandler() *auth.Handler { return d.handler }

func newLocalAuthHandler() *auth.Handler {
	store := session.NewStore()
	local := auth.NewLocalAuthenticator(realm.NewFileSource(testRealmExport), store, 0, zap.NewNop())
	return auth.NewHandler(auth.NewLocal(local, zap.NewNop()), zap.NewNop())
}

func TestAuthLoginHandler(t *testing.T) {
	t.Run("delegates to the auth handler", func(t *testing.T) {
		h := AuthLoginHandler(stubAuthDeps{handler: newLocalAuthHandler()})

		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"bob","password":"bob"}`))
		w := httptest.NewRecorder()
		h(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Body.String())
	})

	t.Run("returns 500 when authentication is not configured", func(t *testing.T) {
		h := AuthLoginHandler(stubAuthDeps{})

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/login", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "Authentication not configured")
	})
}

func TestAuthTokenLoginHandler(t *testing.T) {
	t.Run("local mode rejects token relay as a configuration error", func(t *testing.T) {
		h := AuthTokenLoginHandler(stubAuthDeps{handler: newLocalAuthHandler()})

		req := httptest.NewRequest(http.MethodPost, "/login-keycloak", nil)
		req.Header.Set(auth.AccessTokenHeader, "access")
		req.Header.Set(auth.IDTokenHeader, "id")
		req.Header.Set(auth.RealmHeader, "subway")
		w := httptest.NewRecorder()
		h(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("missing headers are a bad request", func(t *testing.T) {
		h := AuthTokenLoginHandler(stubAuthDeps{handler: newLocalAuthHandler()})

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/login-keycloak", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 500 when authentication is not configured", func(t *testing.T) {
		h := AuthTokenLoginHandler(stubAuthDeps{})

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/login-keycloak", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
