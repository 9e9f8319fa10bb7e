package auth

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/awwsmm/subway/services"
	"github.com/awwsmm/subway/utils"
)

// Token relay request headers
const (
	AccessTokenHeader = "x-keycloak-access-token"
	IDTokenHeader     = "x-keycloak-id-token"
	RealmHeader       = "x-keycloak-realm"
)

// LoginRequest is the body of a username and password login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Handler serves the login endpoints. A successful login answers with the
// bare session token as text.
type Handler struct {
	auth   *Authenticator
	logger *zap.Logger
}

// NewHandler creates a new login handler
func NewHandler(auth *Authenticator, logger *zap.Logger) *Handler {
	return &Handler{
		auth:   auth,
		logger: logger,
	}
}

// HandleLogin authenticates a JSON username and password
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Validation failed", utils.ValidationDetails(err))
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeLoginError(w, err)
		return
	}
	_ = utils.WriteText(w, http.StatusOK, token.String())
}

// HandleTokenLogin authenticates a relayed keycloak token pair
func (h *Handler) HandleTokenLogin(w http.ResponseWriter, r *http.Request) {
	accessToken := r.Header.Get(AccessTokenHeader)
	if accessToken == "" {
		_ = utils.WriteBadRequest(w, "missing or invalid "+AccessTokenHeader+" header", nil)
		return
	}
	idToken := r.Header.Get(IDTokenHeader)
	if idToken == "" {
		_ = utils.WriteBadRequest(w, "missing or invalid "+IDTokenHeader+" header", nil)
		return
	}
	realm := r.Header.Get(RealmHeader)
	if realm == "" {
		_ = utils.WriteBadRequest(w, "missing or invalid "+RealmHeader+" header", nil)
		return
	}

	token, err := h.auth.LoginWithTokens(r.Context(), accessToken, idToken, realm)
	if err != nil {
		h.writeLoginError(w, err)
		return
	}
	_ = utils.WriteText(w, http.StatusOK, token.String())
}

func (h *Handler) writeLoginError(w http.ResponseWriter, err error) {
	message := services.GetErrorMessage(err)

	switch {
	case services.IsAuthenticationError(err):
		_ = utils.WriteUnauthorized(w, message)
	case services.IsProviderUnavailableError(err):
		h.logger.Error("identity provider unavailable", zap.Error(err))
		_ = utils.WriteBadGateway(w, message)
	case services.IsConfigurationError(err):
		h.logger.Error("login failed due to server configuration", zap.Error(err))
		_ = utils.WriteInternalServerError(w, message)
	default:
		h.logger.Error("login failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
	}
}
