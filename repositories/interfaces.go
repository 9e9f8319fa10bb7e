package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/awwsmm/subway/models"
)

// ErrNotFound is returned when no row matches the requested key
var ErrNotFound = errors.New("record not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// PostRepository handles rows of the posts_by_id table
type PostRepository interface {
	// InsertMany inserts every post or none of them
	InsertMany(ctx context.Context, posts []*models.Post) error

	// GetByID retrieves a post by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)

	// List returns at most limit posts
	List(ctx context.Context, limit int) ([]*models.Post, error)
}

// AuthorRepository handles rows of the authors_by_id table
type AuthorRepository interface {
	// InsertMany inserts every author or none of them
	InsertMany(ctx context.Context, authors []*models.Author) error

	// GetByID retrieves an author by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Author, error)

	// List returns at most limit authors
	List(ctx context.Context, limit int) ([]*models.Author, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Posts        PostRepository
	Authors      AuthorRepository
	Transactions TransactionManager
}

// transactionContextKey is the context key for storing transactions
type transactionContextKey struct{}

// ContextWithTransaction returns a context carrying tx
func ContextWithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, transactionContextKey{}, tx)
}

// TransactionFromContext retrieves a transaction from the context if available
func TransactionFromContext(ctx context.Context) (Transaction, bool) {
	tx, ok := ctx.Value(transactionContextKey{}).(Transaction)
	return tx, ok
}
