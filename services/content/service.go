// Package content manages posts and authors on top of the repositories.
package content

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/awwsmm/subway/models"
	"github.com/awwsmm/subway/repositories"
	"github.com/awwsmm/subway/services"
)

// DefaultListLimit is used when a caller does not ask for a page size
const DefaultListLimit = 10

// MaxListLimit caps every list request
const MaxListLimit = 1000

// Service creates and reads posts and authors
type Service struct {
	posts   repositories.PostRepository
	authors repositories.AuthorRepository
	txMgr   repositories.TransactionManager
	logger  *zap.Logger
}

// NewService creates a new content service
func NewService(repos *repositories.Repositories, logger *zap.Logger) *Service {
	return &Service{
		posts:   repos.Posts,
		authors: repos.Authors,
		txMgr:   repos.Transactions,
		logger:  logger,
	}
}

// CreatePosts stores posts as one batch and returns their new ids
func (s *Service) CreatePosts(ctx context.Context, posts []*models.Post) ([]uuid.UUID, error) {
	if len(posts) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "at least one post is required", nil)
	}

	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		return s.posts.InsertMany(ctx, posts)
	})
	if err != nil {
		s.logger.Error("failed to insert posts", zap.Int("count", len(posts)), zap.Error(err))
		return nil, services.WrapError(services.ErrDatabaseError, err)
	}

	ids := make([]uuid.UUID, len(posts))
	for i, p := range posts {
		ids[i] = p.PostID
	}
	s.logger.Info("posts created", zap.Int("count", len(ids)))
	return ids, nil
}

// GetPost retrieves one post
func (s *Service) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrPostNotFound
		}
		return nil, services.WrapError(services.ErrDatabaseError, err)
	}
	return post, nil
}

// ListPosts returns at most limit posts
func (s *Service) ListPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	posts, err := s.posts.List(ctx, clampLimit(limit))
	if err != nil {
		return nil, services.WrapError(services.ErrDatabaseError, err)
	}
	return posts, nil
}

// CreateAuthors stores authors as one batch and returns their new ids
func (s *Service) CreateAuthors(ctx context.Context, authors []*models.Author) ([]uuid.UUID, error) {
	if len(authors) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "at least one author is required", nil)
	}

	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		return s.authors.InsertMany(ctx, authors)
	})
	if err != nil {
		s.logger.Error("failed to insert authors", zap.Int("count", len(authors)), zap.Error(err))
		return nil, services.WrapError(services.ErrDatabaseError, err)
	}

	ids := make([]uuid.UUID, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}
	s.logger.Info("authors created", zap.Int("count", len(ids)))
	return ids, nil
}

// GetAuthor retrieves one author
func (s *Service) GetAuthor(ctx context.Context, id uuid.UUID) (*models.Author, error) {
	author, err := s.authors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrAuthorNotFound
		}
		return nil, services.WrapError(services.ErrDatabaseError, err)
	}
	return author, nil
}

// ListAuthors returns at most limit authors
func (s *Service) ListAuthors(ctx context.Context, limit int) ([]*models.Author, error) {
	authors, err := s.authors.List(ctx, clampLimit(limit))
	if err != nil {
		return nil, services.WrapError(services.ErrDatabaseError, err)
	}
	return authors, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
