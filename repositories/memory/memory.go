// Package memory provides mutex-guarded map implementations of the
// repositories for running without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/awwsmm/subway/models"
	"github.com/awwsmm/subway/repositories"
)

// NewRepositories creates empty in-memory repositories
func NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Posts:        NewPostRepository(),
		Authors:      NewAuthorRepository(),
		Transactions: NewTransactionManager(),
	}
}

// PostRepository stores posts in memory
type PostRepository struct {
	mu    sync.RWMutex
	posts map[uuid.UUID]models.Post
}

// NewPostRepository creates an empty PostRepository
func NewPostRepository() *PostRepository {
	return &PostRepository{posts: make(map[uuid.UUID]models.Post)}
}

// InsertMany stores every post or, if any id is already taken, none of them
func (r *PostRepository) InsertMany(ctx context.Context, posts []*models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(posts))
	for _, p := range posts {
		if _, ok := r.posts[p.PostID]; ok {
			return fmt.Errorf("post %s already exists", p.PostID)
		}
		if _, ok := seen[p.PostID]; ok {
			return fmt.Errorf("post %s repeated in batch", p.PostID)
		}
		seen[p.PostID] = struct{}{}
	}
	for _, p := range posts {
		r.posts[p.PostID] = *p
	}
	return nil
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, repositories.ErrNotFound)
	}
	return &p, nil
}

// List returns at most limit posts ordered by id
func (r *PostRepository) List(ctx context.Context, limit int) ([]*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Post, 0, len(r.posts))
	for _, p := range r.posts {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PostID.String() < out[j].PostID.String()
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AuthorRepository stores authors in memory
type AuthorRepository struct {
	mu      sync.RWMutex
	authors map[uuid.UUID]models.Author
}

// NewAuthorRepository creates an empty AuthorRepository
func NewAuthorRepository() *AuthorRepository {
	return &AuthorRepository{authors: make(map[uuid.UUID]models.Author)}
}

// InsertMany stores every author or, if any id is already taken, none of them
func (r *AuthorRepository) InsertMany(ctx context.Context, authors []*models.Author) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(authors))
	for _, a := range authors {
		if _, ok := r.authors[a.ID]; ok {
			return fmt.Errorf("author %s already exists", a.ID)
		}
		if _, ok := seen[a.ID]; ok {
			return fmt.Errorf("author %s repeated in batch", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	for _, a := range authors {
		r.authors[a.ID] = *a
	}
	return nil
}

// GetByID retrieves an author by ID
func (r *AuthorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.authors[id]
	if !ok {
		return nil, fmt.Errorf("author %s: %w", id, repositories.ErrNotFound)
	}
	return &a, nil
}

// List returns at most limit authors ordered by id
func (r *AuthorRepository) List(ctx context.Context, limit int) ([]*models.Author, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Author, 0, len(r.authors))
	for _, a := range r.authors {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TransactionManager hands out no-op transactions. Batch atomicity in memory
// comes from InsertMany holding the repository lock for the whole batch.
type TransactionManager struct{}

// NewTransactionManager creates a TransactionManager
func NewTransactionManager() *TransactionManager {
	return &TransactionManager{}
}

// Begin starts a new transaction
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return &transaction{ctx: ctx}, nil
}

// InTransaction executes fn with a transaction in its context
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, _ := tm.Begin(ctx)
	if err := fn(repositories.ContextWithTransaction(ctx, tx), tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type transaction struct {
	ctx context.Context
}

func (t *transaction) Commit() error            { return nil }
func (t *transaction) Rollback() error          { return nil }
func (t *transaction) Context() context.Context { return t.ctx }
