package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ellsworth/berkano/internal/guard"
	"github.com/ellsworth/berkano/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, g *guard.Store, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, g)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)
	r.Delete("/notes/*", h.DeleteNote)

	// Search and per-line views.
	r.Get("/search", h.Search)
	r.Get("/paragraphs", h.Paragraphs)

	// Structural edits.
	r.Post("/insert", h.InsertText)
	r.Post("/delete-lines", h.DeleteLines)

	// Tasks.
	r.Get("/tasks", h.ListTasks)
	r.Post("/tasks", h.AddTask)
	r.Post("/tasks/status", h.UpdateTaskStatus)
	r.Post("/tasks/content", h.UpdateTaskContent)

	// Frontmatter properties.
	r.Put("/properties", h.SetProperty)
	r.Delete("/properties", h.RemoveProperty)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
