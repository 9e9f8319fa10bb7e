package handlers

import (
	_ "embed"
	"net/http"

	"github.com/google/uuid"

	"github.com/awwsmm/subway/middleware"
	"github.com/awwsmm/subway/utils"
)

var (
	//go:embed resources/hello.html
	helloPage []byte

	//go:embed resources/404.html
	notFoundPage []byte
)

// CurrentUserResponse is the response body for GET /me
type CurrentUserResponse struct {
	Name  string    `json:"name"`
	ID    uuid.UUID `json:"id"`
	Roles []string  `json:"roles"`
}

// HandleHello serves the public landing page
func HandleHello(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, http.StatusOK, helloPage)
}

// HandleNotFound serves the 404 page
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, http.StatusNotFound, notFoundPage)
}

// HandleProtected greets any authenticated user
func HandleProtected(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteText(w, http.StatusOK, "welcome, authenticated user")
}

// HandleUserOnly greets the user by name
func HandleUserOnly(w http.ResponseWriter, r *http.Request) {
	name, ok := middleware.UserNameFromContext(r.Context())
	if !ok || name == "" {
		name = "friend"
	}
	_ = utils.WriteText(w, http.StatusOK, "welcome, "+name+"!")
}

// HandleAdminOnly greets an administrator
func HandleAdminOnly(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteText(w, http.StatusOK, "welcome, administrator")
}

// HandleMe echoes the identity the access-control middleware put in context
func HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, ok := middleware.UserNameFromContext(ctx)
	if !ok {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}
	id, _ := middleware.UserIDFromContext(ctx)

	_ = utils.WriteOK(w, CurrentUserResponse{
		Name:  name,
		ID:    id,
		Roles: middleware.UserRolesFromContext(ctx),
	})
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
