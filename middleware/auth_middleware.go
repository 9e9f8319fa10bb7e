package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/awwsmm/subway/internal/observability"
	"github.com/awwsmm/subway/models"
	"github.com/awwsmm/subway/services"
	"github.com/awwsmm/subway/session"
	"github.com/awwsmm/subway/utils"
)

// SessionHeader is the request header that carries the session token
const SessionHeader = "x-token"

// SessionValidator resolves a session token to the user it was issued for
type SessionValidator interface {
	Validate(token session.Token) (models.User, bool)
}

// DecisionRecorder records the outcome of every access-control decision
type DecisionRecorder interface {
	RecordValidation(outcome string)
}

// AuthMiddleware guards routes with a session token and a set of allowed roles
type AuthMiddleware struct {
	sessions SessionValidator
	recorder DecisionRecorder
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(sessions SessionValidator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		logger:   logger,
	}
}

// WithRecorder sets the recorder notified of each decision
func (m *AuthMiddleware) WithRecorder(recorder DecisionRecorder) *AuthMiddleware {
	m.recorder = recorder
	return m
}

// RequireRoles admits a request only if its session is live and the user
// holds at least one of roles.
func (m *AuthMiddleware) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	allowed := append([]string(nil), roles...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			token := extractToken(r)
			if token == "" {
				m.logger.Debug("missing session token",
					zap.String("request_id", requestID))
				m.record(observability.ValidationUnauthenticated)
				_ = utils.WriteUnauthorized(w, services.ErrUnauthenticated.Message)
				return
			}

			user, ok := m.sessions.Validate(token)
			if !ok {
				m.logger.Debug("unknown or expired session",
					zap.String("request_id", requestID))
				m.record(observability.ValidationUnauthenticated)
				_ = utils.WriteUnauthorized(w, services.ErrUnauthenticated.Message)
				return
			}

			if err := Authorize(user, allowed); err != nil {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("user", user.Name),
					zap.Strings("required_roles", allowed),
					zap.Strings("user_roles", user.Roles))
				m.record(observability.ValidationForbidden)
				_ = utils.WriteForbidden(w, services.GetErrorMessage(err))
				return
			}

			m.record(observability.ValidationAccepted)
			m.logger.Debug("access granted",
				zap.String("request_id", requestID),
				zap.String("user", user.Name),
				zap.String("user_id", user.ID.String()))

			ctx = WithUser(ctx, user.Name, user.ID, user.Roles)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth admits any user holding the user or admin role
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return m.RequireRoles(models.RoleUser, models.RoleAdmin)(next)
}

// Authorize returns ErrForbidden unless user holds one of allowed
func Authorize(user models.User, allowed []string) error {
	if !user.HasAnyRole(allowed...) {
		return services.ErrForbidden
	}
	return nil
}

func (m *AuthMiddleware) record(outcome string) {
	if m.recorder != nil {
		m.recorder.RecordValidation(outcome)
	}
}

// extractToken reads the bare session token from the session header
func extractToken(r *http.Request) session.Token {
	return session.Token(strings.TrimSpace(r.Header.Get(SessionHeader)))
}
