package api

import (
	"github.com/ellsworth/berkano/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path    string `json:"path" example:"notes/hello.md" validate:"required"`
	Content string `json:"content" example:"# Hello\nWorld" validate:"required"`
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// InsertTextRequest is the request body for structural text insertion.
type InsertTextRequest struct {
	Path     string `json:"path" example:"notes/hello.md" validate:"required"`
	Text     string `json:"text" example:"new paragraph" validate:"required"`
	Position string `json:"position" example:"in-section"`
	Heading  string `json:"heading,omitempty" example:"Work"`
	Line     int    `json:"line,omitempty" example:"4"`
}

// DeleteLinesRequest is the request body for the guarded line-range delete.
// Without a token the server responds with a preview and a confirmation
// token; resubmitting with the token applies the delete.
type DeleteLinesRequest struct {
	Path    string `json:"path" example:"notes/hello.md" validate:"required"`
	Start   int    `json:"start" example:"3" validate:"required"`
	End     int    `json:"end" example:"5" validate:"required"`
	Confirm string `json:"confirm,omitempty"`
}

// ConfirmationResponse carries a pending destructive operation back to the
// caller for explicit approval.
type ConfirmationResponse struct {
	Token     string `json:"token" validate:"required"`
	Operation string `json:"operation" example:"delete_lines" validate:"required"`
	Path      string `json:"path" validate:"required"`
	Preview   string `json:"preview"`
	ExpiresAt string `json:"expires_at"`
}

// AddTaskRequest is the request body for appending a task line.
type AddTaskRequest struct {
	Path        string `json:"path" example:"notes/hello.md" validate:"required"`
	Content     string `json:"content" example:"Buy milk #errands" validate:"required"`
	Position    string `json:"position,omitempty" example:"in-section"`
	Heading     string `json:"heading,omitempty" example:"Shopping"`
	Line        int    `json:"line,omitempty"`
	Status      string `json:"status,omitempty" example:"open"`
	IndentLevel int    `json:"indent_level,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	UseCheckbox *bool  `json:"use_checkbox,omitempty"`
}

// UpdateTaskStatusRequest is the request body for changing a task's status.
type UpdateTaskStatusRequest struct {
	Path      string `json:"path" validate:"required"`
	LineIndex int    `json:"line_index" validate:"required"`
	Status    string `json:"status" example:"done" validate:"required"`
}

// UpdateTaskContentRequest is the request body for rewriting a task's text.
type UpdateTaskContentRequest struct {
	Path      string `json:"path" validate:"required"`
	LineIndex int    `json:"line_index" validate:"required"`
	Content   string `json:"content" validate:"required"`
}

// PropertyRequest is the request body for setting a frontmatter property.
type PropertyRequest struct {
	Path  string `json:"path" validate:"required"`
	Key   string `json:"key" example:"status" validate:"required"`
	Value string `json:"value" example:"active"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"notes/hello.md" validate:"required"`
	Title   string `json:"title" example:"Hello" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}
