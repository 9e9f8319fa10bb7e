package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/awwsmm/subway/models"
	"github.com/awwsmm/subway/realm"
	"github.com/awwsmm/subway/services"
	"github.com/awwsmm/subway/session"
)

// DefaultLocalSessionTTL is how long a locally issued session lives
const DefaultLocalSessionTTL = 30 * time.Second

// LocalAuthenticator checks usernames and passwords against a realm export.
// Passwords are compared in plaintext, exactly as stored in the export.
type LocalAuthenticator struct {
	source realm.Source
	store  *session.Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewLocalAuthenticator creates a LocalAuthenticator. A zero ttl selects DefaultLocalSessionTTL.
func NewLocalAuthenticator(source realm.Source, store *session.Store, ttl time.Duration, logger *zap.Logger) *LocalAuthenticator {
	if ttl <= 0 {
		ttl = DefaultLocalSessionTTL
	}
	return &LocalAuthenticator{
		source: source,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// Store returns the session store sessions are issued into
func (a *LocalAuthenticator) Store() *session.Store {
	return a.store
}

// Login re-reads the credential source and issues a session on a match.
// Unknown users and wrong passwords fail with the same error.
func (a *LocalAuthenticator) Login(ctx context.Context, username, password string) (session.Token, error) {
	export, err := a.source.Load(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", services.WrapInternal("login aborted", err)
		}
		a.logger.Error("credential source unavailable", zap.Error(err))
		return "", services.WrapError(services.ErrConfiguration, err)
	}

	account, ok := export.FindUser(username)
	if !ok || !account.Enabled || !account.MatchesPassword(password) {
		a.logger.Info("local login rejected", zap.String("username", username))
		return "", services.ErrInvalidCredentials
	}

	user := models.NewUser(
		account.Username,
		LocalUserID(account),
		account.RealmRoles,
		a.store.Now().Add(a.ttl),
	)

	token, err := a.store.Issue(user)
	if err != nil {
		return "", services.WrapInternal("failed to issue session", err)
	}

	a.logger.Info("local login succeeded",
		zap.String("username", user.Name),
		zap.String("user_id", user.ID.String()))
	return token, nil
}

// LocalUserID derives a stable id for an account that has none of its own
func LocalUserID(account *realm.User) uuid.UUID {
	return uuid.NewMD5(uuid.NameSpaceDNS, account.Fingerprint())
}
