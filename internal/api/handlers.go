package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ellsworth/berkano/internal/apperr"
	"github.com/ellsworth/berkano/internal/guard"
	"github.com/ellsworth/berkano/internal/index"
	"github.com/ellsworth/berkano/internal/markdown"
	"github.com/ellsworth/berkano/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc   *noteservice.Service
	guard *guard.Store
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, g *guard.Store) *Handler {
	return &Handler{svc: svc, guard: g}
}

// notePath extracts the note path from the URL (everything after /api/notes/).
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("note already exists"))
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrConfirmationRequired):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with optional pagination and filtering
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, title, path)
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	tag := q.Get("tag")
	sort := q.Get("sort")

	items, total, err := h.svc.ListNotes(r.Context(), limit, offset, tag, sort)
	if err != nil {
		writeServiceError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		writeServiceError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Path, req.Content)
	if err != nil {
		writeServiceError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/*.
//
//	@Summary		Update a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string				true	"Note path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateNoteRequest	true	"Updated content"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	note, err := h.svc.UpdateNote(r.Context(), path, req.Content, ifMatch)
	if err != nil {
		writeServiceError(w, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/*.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			path	path	string	true	"Note path"
//	@Success		204		"Note deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteNote(r.Context(), path); err != nil {
		writeServiceError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeServiceError(w, "search", err)
		return
	}
	results := make([]SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = SearchResult{Path: hit.Path, Title: hit.Title, Snippet: hit.Snippet}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ListTasks handles GET /api/tasks.
//
//	@Summary		List indexed tasks across the vault
//	@Tags			tasks
//	@Produce		json
//	@Param			path		query	string	false	"Restrict to one note"
//	@Param			status		query	string	false	"Filter by status"	Enums(open, done, cancelled, scheduled)
//	@Param			tag			query	string	false	"Filter by #tag"
//	@Param			mention		query	string	false	"Filter by @mention"
//	@Param			scheduled	query	string	false	"Filter by scheduled date (YYYY-MM-DD)"
//	@Param			limit		query	int		false	"Max results"
//	@Success		200	{array}	index.TaskRow
//	@Security		BearerAuth
//	@Router			/tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if st := q.Get("status"); st != "" {
		if _, ok := markdown.ParseStatus(st); !ok {
			writeJSON(w, http.StatusBadRequest, errorBody("unknown status "+strconv.Quote(st)))
			return
		}
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	rows, err := h.svc.ListTasks(r.Context(), index.TaskFilter{
		Path:          q.Get("path"),
		Status:        q.Get("status"),
		Tag:           q.Get("tag"),
		Mention:       q.Get("mention"),
		ScheduledDate: q.Get("scheduled"),
		Limit:         limit,
	})
	if err != nil {
		writeServiceError(w, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": rows})
}

// Paragraphs handles GET /api/paragraphs.
//
//	@Summary		Classify every line of a note
//	@Tags			notes
//	@Produce		json
//	@Param			path	query		string	true	"Note path"
//	@Success		200		{array}		markdown.ParagraphMetadata
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/paragraphs [get]
func (h *Handler) Paragraphs(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	paras, err := h.svc.Paragraphs(r.Context(), path)
	if err != nil {
		writeServiceError(w, "paragraphs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paragraphs": paras})
}

// InsertText handles POST /api/insert.
//
//	@Summary		Insert text at a structural position
//	@Tags			edit
//	@Accept			json
//	@Produce		json
//	@Param			body	body		InsertTextRequest	true	"Insertion request"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/insert [post]
func (h *Handler) InsertText(w http.ResponseWriter, r *http.Request) {
	var req InsertTextRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and text are required"))
		return
	}
	if req.Position == "" {
		req.Position = string(markdown.PositionEnd)
	}
	note, err := h.svc.InsertText(r.Context(), req.Path, req.Text, markdown.InsertOptions{
		Position: markdown.Position(req.Position),
		Heading:  req.Heading,
		Line:     markdown.ContentLine(req.Line),
	})
	if err != nil {
		writeServiceError(w, "insert text", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteLines handles POST /api/delete-lines with a two-phase confirmation.
//
//	@Summary		Delete a line range (dry-run then confirm)
//	@Tags			edit
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DeleteLinesRequest	true	"Delete request"
//	@Success		200		{object}	NoteDetail				"Applied (confirmed)"
//	@Success		202		{object}	ConfirmationResponse	"Pending confirmation"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/delete-lines [post]
func (h *Handler) DeleteLines(w http.ResponseWriter, r *http.Request) {
	var req DeleteLinesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	start, end := markdown.ContentLine(req.Start), markdown.ContentLine(req.End)

	if req.Confirm == "" {
		preview, err := h.svc.DeleteLinesPreview(r.Context(), req.Path, start, end)
		if err != nil {
			writeServiceError(w, "delete lines preview", err)
			return
		}
		p := h.guard.Issue(guard.OpDeleteLines, req.Path, preview)
		writeJSON(w, http.StatusAccepted, ConfirmationResponse{
			Token:     p.Token,
			Operation: p.Operation,
			Path:      p.Path,
			Preview:   p.Preview,
			ExpiresAt: p.ExpiresAt.Format(time.RFC3339),
		})
		return
	}

	if err := h.guard.Redeem(req.Confirm, guard.OpDeleteLines, req.Path); err != nil {
		writeJSON(w, http.StatusConflict, errorBody("unknown or expired confirmation token"))
		return
	}
	note, err := h.svc.DeleteLines(r.Context(), req.Path, start, end)
	if err != nil {
		writeServiceError(w, "delete lines", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// AddTask handles POST /api/tasks.
//
//	@Summary		Build and insert a task line
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddTaskRequest	true	"Task to add"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks [post]
func (h *Handler) AddTask(w http.ResponseWriter, r *http.Request) {
	var req AddTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	build := markdown.BuildOptions{
		IndentLevel: req.IndentLevel,
		Priority:    req.Priority,
		UseCheckbox: req.UseCheckbox,
	}
	if req.Status != "" {
		st, ok := markdown.ParseStatus(req.Status)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody("unknown status "+strconv.Quote(req.Status)))
			return
		}
		build.Status = st
	}
	note, err := h.svc.AddTask(r.Context(), req.Path, req.Content, markdown.InsertOptions{
		Position: markdown.Position(req.Position),
		Heading:  req.Heading,
		Line:     markdown.ContentLine(req.Line),
	}, build)
	if err != nil {
		writeServiceError(w, "add task", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// UpdateTaskStatus handles POST /api/tasks/status.
//
//	@Summary		Change the status of a task line
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpdateTaskStatusRequest	true	"Status change"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/status [post]
func (h *Handler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and status are required"))
		return
	}
	st, ok := markdown.ParseStatus(req.Status)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown status "+strconv.Quote(req.Status)))
		return
	}
	note, err := h.svc.UpdateTaskStatus(r.Context(), req.Path, req.LineIndex, st)
	if err != nil {
		writeServiceError(w, "update task status", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// UpdateTaskContent handles POST /api/tasks/content.
//
//	@Summary		Rewrite the text of a task line, keeping its prefix
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpdateTaskContentRequest	true	"Content change"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/content [post]
func (h *Handler) UpdateTaskContent(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskContentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	note, err := h.svc.UpdateTaskContent(r.Context(), req.Path, req.LineIndex, req.Content)
	if err != nil {
		writeServiceError(w, "update task content", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// SetProperty handles PUT /api/properties.
//
//	@Summary		Set a frontmatter property
//	@Tags			properties
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PropertyRequest	true	"Property to set"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/properties [put]
func (h *Handler) SetProperty(w http.ResponseWriter, r *http.Request) {
	var req PropertyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" || req.Key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and key are required"))
		return
	}
	note, err := h.svc.SetProperty(r.Context(), req.Path, req.Key, req.Value)
	if err != nil {
		writeServiceError(w, "set property", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// RemoveProperty handles DELETE /api/properties.
//
//	@Summary		Remove a frontmatter property
//	@Tags			properties
//	@Produce		json
//	@Param			path	query		string	true	"Note path"
//	@Param			key		query		string	true	"Property key"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/properties [delete]
func (h *Handler) RemoveProperty(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	key := r.URL.Query().Get("key")
	if path == "" || key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameters 'path' and 'key' are required"))
		return
	}
	note, err := h.svc.RemoveProperty(r.Context(), path, key)
	if err != nil {
		writeServiceError(w, "remove property", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}
