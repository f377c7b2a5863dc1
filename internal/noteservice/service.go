// Package noteservice coordinates the note store, the index, and the
// markdown content model. Every mutation is a whole-file read-modify-write:
// fetch current content, run a pure transform, persist the result, reindex.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ellsworth/berkano/internal/apperr"
	"github.com/ellsworth/berkano/internal/checksum"
	"github.com/ellsworth/berkano/internal/index"
	"github.com/ellsworth/berkano/internal/markdown"
	"github.com/ellsworth/berkano/internal/storage"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path           string            `json:"path"`
	Title          string            `json:"title"`
	Content        string            `json:"content"`
	Checksum       string            `json:"checksum"`
	Tags           []string          `json:"tags"`
	Frontmatter    map[string]string `json:"frontmatter,omitempty"`
	HasFrontmatter bool              `json:"has_frontmatter"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates storage, index, and content-model operations.
type Service struct {
	store storage.Provider
	db    *index.DB
	cfg   markdown.MarkerConfig
}

// NewService creates a new note service. cfg is the task-marker
// configuration threaded into every classifier and builder call.
func NewService(store storage.Provider, db *index.DB, cfg markdown.MarkerConfig) *Service {
	return &Service{store: store, db: db, cfg: cfg}
}

// Store exposes the underlying storage provider for components that watch
// the vault directly.
func (s *Service) Store() storage.Provider {
	return s.store
}

// MarkerConfig returns the active task-marker configuration.
func (s *Service) MarkerConfig() markdown.MarkerConfig {
	return s.cfg
}

// GetNote reads a note from storage and parses its frontmatter.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	content, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, content), nil
}

// CreateNote writes a new note and indexes it.
func (s *Service) CreateNote(_ context.Context, path, content string) (*NoteDetail, error) {
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.persist(path, content); err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, content), nil
}

// UpdateNote replaces note content with optimistic concurrency: a non-empty
// ifMatch must equal the checksum of the current content.
func (s *Service) UpdateNote(_ context.Context, path, content, ifMatch string) (*NoteDetail, error) {
	existing, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.persist(path, content); err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, content), nil
}

// DeleteNote removes a note from storage and index. Confirmation is the
// caller's concern; this always executes.
func (s *Service) DeleteNote(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteNote(path)
}

// ListNotes returns paginated notes with optional tag filter.
func (s *Service) ListNotes(_ context.Context, limit, offset int, tag, sort string) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(limit, offset, tag, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Tags:      nonNilSlice(r.Tags),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// ListTasks returns indexed tasks across the vault.
func (s *Service) ListTasks(_ context.Context, f index.TaskFilter) ([]index.TaskRow, error) {
	rows, err := s.db.ListTasks(f)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(rows), nil
}

// Paragraphs returns the classified per-line view of a note.
func (s *Service) Paragraphs(_ context.Context, path string) ([]markdown.ParagraphMetadata, error) {
	content, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return markdown.ClassifyAll(content, s.cfg), nil
}

// NoteTasks returns the tasks of a single note, derived fresh from content.
func (s *Service) NoteTasks(_ context.Context, path string) ([]markdown.Task, error) {
	content, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(markdown.Tasks(content, s.cfg)), nil
}

// InsertText inserts text at the position described by opts and persists the
// result.
func (s *Service) InsertText(_ context.Context, path, text string, opts markdown.InsertOptions) (*NoteDetail, error) {
	return s.transform(path, func(content string) (string, error) {
		return markdown.InsertAt(content, text, opts)
	})
}

// DeleteLines removes an inclusive range of content lines (1-based,
// frontmatter excluded) and persists the result.
func (s *Service) DeleteLines(_ context.Context, path string, start, end markdown.ContentLine) (*NoteDetail, error) {
	return s.transform(path, func(content string) (string, error) {
		return markdown.DeleteLines(content, start, end)
	})
}

// DeleteLinesPreview returns the lines a DeleteLines call would remove,
// without mutating anything. Used by the confirmation flow.
func (s *Service) DeleteLinesPreview(_ context.Context, path string, start, end markdown.ContentLine) (string, error) {
	content, err := s.read(path)
	if err != nil {
		return "", err
	}
	preview, err := markdown.ExtractLines(content, start, end)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return preview, nil
}

// AddTask builds a task line from content and inserts it at the given
// position (end when position is empty).
func (s *Service) AddTask(_ context.Context, path, taskContent string, opts markdown.InsertOptions, build markdown.BuildOptions) (*NoteDetail, error) {
	if opts.Position == "" {
		opts.Position = markdown.PositionEnd
	}
	line := markdown.BuildLine(taskContent, markdown.ParagraphTask, build, s.cfg)
	return s.transform(path, func(content string) (string, error) {
		return markdown.InsertAt(content, line, opts)
	})
}

// UpdateTaskStatus changes the status of the task at a physical line index.
func (s *Service) UpdateTaskStatus(_ context.Context, path string, lineIndex int, status markdown.TaskStatus) (*NoteDetail, error) {
	return s.transform(path, func(content string) (string, error) {
		return markdown.UpdateStatus(content, lineIndex, status)
	})
}

// UpdateTaskContent replaces the text of the task at a physical line index,
// keeping its marker/checkbox prefix.
func (s *Service) UpdateTaskContent(_ context.Context, path string, lineIndex int, newText string) (*NoteDetail, error) {
	return s.transform(path, func(content string) (string, error) {
		return markdown.UpdateContent(content, lineIndex, newText)
	})
}

// SetProperty sets a frontmatter key, creating the block when absent.
func (s *Service) SetProperty(_ context.Context, path, key, value string) (*NoteDetail, error) {
	return s.transform(path, func(content string) (string, error) {
		return markdown.SetProperty(content, key, value), nil
	})
}

// RemoveProperty deletes a frontmatter key; a missing key is a no-op.
func (s *Service) RemoveProperty(_ context.Context, path, key string) (*NoteDetail, error) {
	return s.transform(path, func(content string) (string, error) {
		return markdown.RemoveProperty(content, key), nil
	})
}

// transform runs a pure content transform inside a read-modify-write cycle.
func (s *Service) transform(path string, fn func(string) (string, error)) (*NoteDetail, error) {
	content, err := s.read(path)
	if err != nil {
		return nil, err
	}
	updated, err := fn(content)
	if err != nil {
		// Transform errors are caller mistakes (bad position, unknown
		// heading, out-of-range line), not storage failures.
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if err := s.persist(path, updated); err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, updated), nil
}

func (s *Service) read(path string) (string, error) {
	content, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.ErrNotFound
		}
		return "", err
	}
	return content, nil
}

// persist writes content and brings the index up to date.
func (s *Service) persist(path, content string) error {
	if err := s.store.Write(path, content); err != nil {
		return err
	}
	return s.IndexFile(path, content)
}

// IndexFile classifies content and upserts it into the index.
// Exported so that sync and watcher can reuse it.
func (s *Service) IndexFile(path, content string) error {
	title, tags := index.Summarize(content, s.cfg)
	parsed := markdown.ParseFrontmatter(content)
	return s.db.UpsertNote(index.NoteRow{
		Path:      path,
		Title:     title,
		Checksum:  checksum.Sum(content),
		Tags:      nonNilSlice(tags),
		UpdatedAt: time.Now(),
	}, parsed.Body, markdown.Tasks(content, s.cfg))
}

// buildNoteDetail constructs a NoteDetail from content without re-reading.
func (s *Service) buildNoteDetail(path, content string) *NoteDetail {
	title, tags := index.Summarize(content, s.cfg)
	parsed := markdown.ParseFrontmatter(content)

	var fm map[string]string
	if parsed.HasFrontmatter {
		fm = make(map[string]string, parsed.Frontmatter.Len())
		for _, k := range parsed.Frontmatter.Keys() {
			v, _ := parsed.Frontmatter.Get(k)
			fm[k] = v
		}
	}

	return &NoteDetail{
		Path:           path,
		Title:          title,
		Content:        content,
		Checksum:       checksum.Sum(content),
		Tags:           nonNilSlice(tags),
		Frontmatter:    fm,
		HasFrontmatter: parsed.HasFrontmatter,
		UpdatedAt:      time.Now(),
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
