package models

import (
	"github.com/google/uuid"
)

// Author is a row of the authors_by_id table
type Author struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}

// TableName returns the table name for the Author model
func (Author) TableName() string {
	return "authors_by_id"
}

// NewAuthor creates a new Author with a fresh id
func NewAuthor(name string) *Author {
	return &Author{
		ID:   uuid.New(),
		Name: name,
	}
}
