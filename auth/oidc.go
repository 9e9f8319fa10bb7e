package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/awwsmm/subway/keycloak"
	"github.com/awwsmm/subway/models"
	"github.com/awwsmm/subway/services"
	"github.com/awwsmm/subway/session"
)

// TokenValidator verifies provider-signed tokens
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token, realm string) (*keycloak.AccessClaims, error)
	ValidateIDToken(ctx context.Context, token, realm string) (*keycloak.IDClaims, error)
}

// PasswordExchanger trades user credentials for a provider token pair
type PasswordExchanger interface {
	Exchange(ctx context.Context, username, password string) (keycloak.TokenPair, error)
	Realm() string
}

// OIDCAuthenticator delegates identity to Keycloak
type OIDCAuthenticator struct {
	validator TokenValidator
	exchanger PasswordExchanger
	store     *session.Store
	logger    *zap.Logger
}

// NewOIDCAuthenticator creates an OIDCAuthenticator
func NewOIDCAuthenticator(validator TokenValidator, exchanger PasswordExchanger, store *session.Store, logger *zap.Logger) *OIDCAuthenticator {
	return &OIDCAuthenticator{
		validator: validator,
		exchanger: exchanger,
		store:     store,
		logger:    logger,
	}
}

// Store returns the session store sessions are issued into
func (a *OIDCAuthenticator) Store() *session.Store {
	return a.store
}

// Login performs a password grant against the provider, then validates the
// returned tokens like LoginWithTokens.
func (a *OIDCAuthenticator) Login(ctx context.Context, username, password string) (session.Token, error) {
	pair, err := a.exchanger.Exchange(ctx, username, password)
	if err != nil {
		if errors.Is(err, keycloak.ErrCredentialsRejected) {
			a.logger.Info("provider rejected credentials", zap.String("username", username))
			return "", services.WrapError(services.ErrInvalidCredentials, err)
		}
		a.logger.Error("token request failed", zap.Error(err))
		return "", services.WrapError(services.ErrProviderUnavailable, err)
	}

	return a.LoginWithTokens(ctx, pair.AccessToken, pair.IDToken, a.exchanger.Realm())
}

// LoginWithTokens validates a relayed access and identity token pair and
// issues a session for the identity they describe. Both tokens must be valid.
func (a *OIDCAuthenticator) LoginWithTokens(ctx context.Context, accessToken, idToken, realm string) (session.Token, error) {
	if accessToken == "" || idToken == "" || realm == "" {
		return "", services.ErrInvalidTokens
	}
	if realm != a.exchanger.Realm() {
		a.logger.Warn("token relay for a realm other than the configured one")
		return "", services.WrapError(services.ErrInvalidTokens, keycloak.ErrUnknownRealm)
	}

	var (
		access *keycloak.AccessClaims
		id     *keycloak.IDClaims
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		access, err = a.validator.ValidateAccessToken(gctx, accessToken, realm)
		return err
	})
	g.Go(func() error {
		var err error
		id, err = a.validator.ValidateIDToken(gctx, idToken, realm)
		return err
	})
	if err := g.Wait(); err != nil {
		a.logger.Warn("token validation failed", zap.String("realm", realm), zap.Error(err))
		return "", tokenError(err)
	}

	user, err := keycloak.UserFrom(access, id)
	if err != nil {
		a.logger.Warn("token claims unusable", zap.Error(err))
		return "", services.WrapError(services.ErrInvalidTokens, err)
	}

	return a.issue(user)
}

func (a *OIDCAuthenticator) issue(user models.User) (session.Token, error) {
	token, err := a.store.Issue(user)
	if err != nil {
		return "", services.WrapInternal("failed to issue session", err)
	}

	a.logger.Info("keycloak login succeeded",
		zap.String("username", user.Name),
		zap.String("user_id", user.ID.String()))
	return token, nil
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, keycloak.ErrUnknownSigningKey):
		return services.WrapError(services.ErrUnknownSigningKey, err)
	case errors.Is(err, keycloak.ErrJWKSFetchFailed):
		return services.WrapError(services.ErrProviderUnavailable, err)
	default:
		return services.WrapError(services.ErrInvalidTokens, err)
	}
}
