package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/awwsmm/subway/middleware"
	"github.com/awwsmm/subway/models"
	"github.com/awwsmm/subway/services"
	"github.com/awwsmm/subway/services/content"
	"github.com/awwsmm/subway/utils"
)

// ContentService defines the post and author operations used by the handlers
type ContentService interface {
	CreatePosts(ctx context.Context, posts []*models.Post) ([]uuid.UUID, error)
	GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	ListPosts(ctx context.Context, limit int) ([]*models.Post, error)
	CreateAuthors(ctx context.Context, authors []*models.Author) ([]uuid.UUID, error)
	GetAuthor(ctx context.Context, id uuid.UUID) (*models.Author, error)
	ListAuthors(ctx context.Context, limit int) ([]*models.Author, error)
}

// PostInput is one element of a POST /posts body
type PostInput struct {
	AuthorID string `json:"author_id" validate:"omitempty,uuid"`
	Title    string `json:"title" validate:"required,max=200"`
	Body     string `json:"body" validate:"max=20000"`
}

// AuthorInput is one element of a POST /authors body
type AuthorInput struct {
	Name string `json:"name" validate:"required,max=200"`
}

type createPostsRequest struct {
	Posts []PostInput `validate:"required,min=1,max=100,dive"`
}

type createAuthorsRequest struct {
	Authors []AuthorInput `validate:"required,min=1,max=100,dive"`
}

// CreatedResponse lists the ids of newly stored rows
type CreatedResponse struct {
	IDs []uuid.UUID `json:"ids"`
}

// ContentHandler handles posts and authors HTTP requests
type ContentHandler struct {
	service   ContentService
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(service ContentService, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{
		service:   service,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

// HandleCreatePosts handles POST /posts with a JSON list of posts.
// A post without author_id is attributed to the caller.
func (h *ContentHandler) HandleCreatePosts(w http.ResponseWriter, r *http.Request) {
	var req createPostsRequest
	if err := json.NewDecoder(r.Body).Decode(&req.Posts); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	callerID, _ := middleware.UserIDFromContext(r.Context())
	posts := make([]*models.Post, 0, len(req.Posts))
	for i, in := range req.Posts {
		authorID := callerID
		if in.AuthorID != "" {
			authorID = uuid.MustParse(in.AuthorID)
		}
		title := h.clean(in.Title)
		if title == "" {
			h.writeEmptyField(w, "Title", i)
			return
		}
		posts = append(posts, models.NewPost(authorID, title, h.clean(in.Body)))
	}

	ids, err := h.service.CreatePosts(r.Context(), posts)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, CreatedResponse{IDs: ids})
}

// HandleGetPost handles GET /posts/{id}
func (h *ContentHandler) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	post, err := h.service.GetPost(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, post)
}

// HandleListPosts handles GET /posts?limit=N
func (h *ContentHandler) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}
	posts, err := h.service.ListPosts(r.Context(), limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, posts)
}

// HandleCreateAuthors handles POST /authors with a JSON list of authors
func (h *ContentHandler) HandleCreateAuthors(w http.ResponseWriter, r *http.Request) {
	var req createAuthorsRequest
	if err := json.NewDecoder(r.Body).Decode(&req.Authors); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	authors := make([]*models.Author, 0, len(req.Authors))
	for i, in := range req.Authors {
		name := h.clean(in.Name)
		if name == "" {
			h.writeEmptyField(w, "Name", i)
			return
		}
		authors = append(authors, models.NewAuthor(name))
	}

	ids, err := h.service.CreateAuthors(r.Context(), authors)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, CreatedResponse{IDs: ids})
}

// HandleGetAuthor handles GET /authors/{id}
func (h *ContentHandler) HandleGetAuthor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	author, err := h.service.GetAuthor(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, author)
}

// HandleListAuthors handles GET /authors?limit=N
func (h *ContentHandler) HandleListAuthors(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}
	authors, err := h.service.ListAuthors(r.Context(), limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, authors)
}

// clean strips markup from user supplied text
func (h *ContentHandler) clean(s string) string {
	return strings.TrimSpace(h.sanitizer.Sanitize(s))
}

// writeEmptyField rejects a list element whose field held nothing but markup
func (h *ContentHandler) writeEmptyField(w http.ResponseWriter, field string, index int) {
	err := services.NewDomainError(services.ErrorTypeValidation, "Validation failed", services.ErrInvalidInput).
		WithDetail(field, field+" is required").
		WithDetail("index", index)
	HandleServiceError(w, err, h.logger)
}

func (h *ContentHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := utils.ParseUUID(raw)
	if err != nil {
		HandleServiceError(w, services.WrapError(services.ErrInvalidInput, err), h.logger)
		return uuid.Nil, false
	}
	return id, true
}

func (h *ContentHandler) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit, err := utils.ParseLimit(r.URL.Query().Get("limit"), content.DefaultListLimit, content.MaxListLimit)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return 0, false
	}
	return limit, true
}
