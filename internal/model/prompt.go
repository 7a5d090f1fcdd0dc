package model

import (
	"strings"
	"time"
)

// DefaultCategory is assigned to prompts created without an explicit category.
const DefaultCategory = "General"

// Prompt is a single shared prompt record.
type Prompt struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Draft is the caller-supplied shape of a prompt before the store assigns
// an id and timestamps. It is the request body for create, update, and
// bulk import.
type Draft struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category,omitempty"`
}

// ValidationError indicates a missing required field.
// Transport layers map this to 400.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// Validate checks required fields and applies the category default.
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ValidationError("title is required")
	}
	if strings.TrimSpace(d.Content) == "" {
		return ValidationError("content is required")
	}
	if strings.TrimSpace(d.Category) == "" {
		d.Category = DefaultCategory
	}
	return nil
}
