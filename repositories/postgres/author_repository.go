package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/awwsmm/subway/models"
	"github.com/awwsmm/subway/repositories"
)

// AuthorRepository implements the repositories.AuthorRepository interface
type AuthorRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuthorRepository creates a new author repository
func NewAuthorRepository(db *DB, logger *zap.Logger) repositories.AuthorRepository {
	return &AuthorRepository{
		db:     db,
		logger: logger,
	}
}

// InsertMany inserts authors on the executor found in ctx
func (r *AuthorRepository) InsertMany(ctx context.Context, authors []*models.Author) error {
	query := `INSERT INTO authors_by_id (id, name) VALUES ($1, $2)`

	executor := GetExecutor(ctx, r.db)
	for _, author := range authors {
		if _, err := executor.ExecContext(ctx, query, author.ID, author.Name); err != nil {
			return fmt.Errorf("failed to insert author %s: %w", author.ID, err)
		}
	}

	r.logger.Debug("authors inserted", zap.Int("count", len(authors)))
	return nil
}

// GetByID retrieves an author by ID
func (r *AuthorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Author, error) {
	query := `SELECT id, name FROM authors_by_id WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	author := &models.Author{}

	if err := executor.QueryRowContext(ctx, query, id).Scan(&author.ID, &author.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("author %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get author: %w", err)
	}

	return author, nil
}

// List returns at most limit authors
func (r *AuthorRepository) List(ctx context.Context, limit int) ([]*models.Author, error) {
	query := `SELECT id, name FROM authors_by_id ORDER BY id LIMIT $1`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query authors: %w", err)
	}
	defer rows.Close()

	authors := make([]*models.Author, 0, limit)
	for rows.Next() {
		author := &models.Author{}
		if err := rows.Scan(&author.ID, &author.Name); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors = append(authors, author)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating author rows: %w", err)
	}

	return authors, nil
}
