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

// PostRepository implements the repositories.PostRepository interface
type PostRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *DB, logger *zap.Logger) repositories.PostRepository {
	return &PostRepository{
		db:     db,
		logger: logger,
	}
}

// InsertMany inserts posts one row at a time on the executor found in ctx.
// Callers wrap it in a transaction to make the batch atomic.
func (r *PostRepository) InsertMany(ctx context.Context, posts []*models.Post) error {
	query := `
		INSERT INTO posts_by_id (post_id, author_id, title, body)
		VALUES ($1, $2, $3, $4)
	`

	executor := GetExecutor(ctx, r.db)
	for _, post := range posts {
		if _, err := executor.ExecContext(ctx, query,
			post.PostID,
			post.AuthorID,
			post.Title,
			post.Body,
		); err != nil {
			return fmt.Errorf("failed to insert post %s: %w", post.PostID, err)
		}
	}

	r.logger.Debug("posts inserted", zap.Int("count", len(posts)))
	return nil
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	query := `
		SELECT post_id, author_id, title, body
		FROM posts_by_id
		WHERE post_id = $1
	`

	executor := GetExecutor(ctx, r.db)
	post := &models.Post{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&post.PostID,
		&post.AuthorID,
		&post.Title,
		&post.Body,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

// List returns at most limit posts
func (r *PostRepository) List(ctx context.Context, limit int) ([]*models.Post, error) {
	query := `
		SELECT post_id, author_id, title, body
		FROM posts_by_id
		ORDER BY post_id
		LIMIT $1
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*models.Post, 0, limit)
	for rows.Next() {
		post := &models.Post{}
		if err := rows.Scan(
			&post.PostID,
			&post.AuthorID,
			&post.Title,
			&post.Body,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}
