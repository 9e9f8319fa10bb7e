package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/awwsmm/subway/internal/observability"
	"github.com/awwsmm/subway/models"
	"github.com/awwsmm/subway/services"
	"github.com/awwsmm/subway/session"
)

// Mode selects how users authenticate. It is fixed for the life of the process.
type Mode string

const (
	ModeLocal    Mode = "local"
	ModeKeycloak Mode = "keycloak"
)

// ParseMode validates a configured mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLocal, ModeKeycloak:
		return Mode(s), nil
	}
	return "", services.WrapError(services.ErrConfiguration, fmt.Errorf("unsupported auth mode %q", s))
}

// LoginRecorder counts login outcomes
type LoginRecorder interface {
	RecordLogin(mode, outcome string)
}

// Authenticator is the single entry point for logins and session checks.
// It wraps exactly one of LocalAuthenticator or OIDCAuthenticator.
type Authenticator struct {
	mode   Mode
	local  *LocalAuthenticator
	oidc   *OIDCAuthenticator
	store  *session.Store
	logins LoginRecorder
	logger *zap.Logger
}

// Option configures an Authenticator
type Option func(*Authenticator)

// WithLoginRecorder reports login outcomes to r
func WithLoginRecorder(r LoginRecorder) Option {
	return func(a *Authenticator) {
		a.logins = r
	}
}

// NewLocal creates an Authenticator in local mode
func NewLocal(local *LocalAuthenticator, logger *zap.Logger, opts ...Option) *Authenticator {
	a := &Authenticator{mode: ModeLocal, local: local, store: local.Store(), logger: logger}
	return a.apply(opts)
}

// NewOIDC creates an Authenticator in keycloak mode
func NewOIDC(oidc *OIDCAuthenticator, logger *zap.Logger, opts ...Option) *Authenticator {
	a := &Authenticator{mode: ModeKeycloak, oidc: oidc, store: oidc.Store(), logger: logger}
	return a.apply(opts)
}

func (a *Authenticator) apply(opts []Option) *Authenticator {
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Mode returns the configured auth mode
func (a *Authenticator) Mode() Mode {
	return a.mode
}

// Login authenticates a username and password with the configured variant
func (a *Authenticator) Login(ctx context.Context, username, password string) (session.Token, error) {
	var (
		token session.Token
		err   error
	)
	switch a.mode {
	case ModeLocal:
		token, err = a.local.Login(ctx, username, password)
	case ModeKeycloak:
		token, err = a.oidc.Login(ctx, username, password)
	default:
		err = services.WrapError(services.ErrConfiguration, fmt.Errorf("unsupported auth mode %q", a.mode))
	}
	a.record(err)
	return token, err
}

// TokenRelay returns the keycloak variant. In local mode it fails with a
// configuration error.
func (a *Authenticator) TokenRelay() (*OIDCAuthenticator, error) {
	if a.mode != ModeKeycloak || a.oidc == nil {
		return nil, services.ErrTokenRelayUnsupported
	}
	return a.oidc, nil
}

// LoginWithTokens relays a provider token pair through the keycloak variant
func (a *Authenticator) LoginWithTokens(ctx context.Context, accessToken, idToken, realm string) (session.Token, error) {
	relay, err := a.TokenRelay()
	if err != nil {
		a.logger.Error("token relay login attempted outside keycloak mode",
			zap.String("mode", string(a.mode)))
		a.record(err)
		return "", err
	}

	token, err := relay.LoginWithTokens(ctx, accessToken, idToken, realm)
	a.record(err)
	return token, err
}

// Validate looks a session token up regardless of which variant issued it
func (a *Authenticator) Validate(token session.Token) (models.User, bool) {
	return a.store.Validate(token)
}

func (a *Authenticator) record(err error) {
	if a.logins == nil {
		return
	}
	a.logins.RecordLogin(string(a.mode), outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeSuccess
	case services.IsInvalidCredentialsError(err):
		return observability.OutcomeInvalidCredentials
	case services.IsInvalidTokensError(err):
		return observability.OutcomeInvalidTokens
	case services.IsUnknownSigningKeyError(err):
		return observability.OutcomeUnknownSigningKey
	case services.IsProviderUnavailableError(err):
		return observability.OutcomeProviderUnavailable
	default:
		return observability.OutcomeError
	}
}
