package models

import (
	"github.com/google/uuid"
)

// Post is a row of the posts_by_id table
type Post struct {
	PostID   uuid.UUID `json:"post_id" db:"post_id"`
	AuthorID uuid.UUID `json:"author_id" db:"author_id"`
	Title    string    `json:"title" db:"title"`
	Body     string    `json:"body" db:"body"`
}

// TableName returns the table name for the Post model
func (Post) TableName() string {
	return "posts_by_id"
}

// NewPost creates a new Post with a fresh id
func NewPost(authorID uuid.UUID, title, body string) *Post {
	return &Post{
		PostID:   uuid.New(),
		AuthorID: authorID,
		Title:    title,
		Body:     body,
	}
}
