package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ellsworth/berkano/internal/guard"
	"github.com/ellsworth/berkano/internal/index"
	"github.com/ellsworth/berkano/internal/markdown"
	"github.com/ellsworth/berkano/internal/noteservice"
	"github.com/ellsworth/berkano/internal/storage"
)

// testEnv sets up a temp vault, SQLite DB, service, and router for testing.
// authToken="" means disabled mode; a non-empty token enables Bearer auth.
func testEnv(t *testing.T, authToken string) (*noteservice.Service, http.Handler) {
	t.Helper()

	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	dbFile, err := os.CreateTemp("", "berkano-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := noteservice.NewService(store, db, markdown.DefaultMarkerConfig())
	router := NewRouter(svc, guard.NewStore(0), authToken != "", authToken, nil)
	return svc, router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createNote(t *testing.T, router http.Handler, path, content string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/notes", map[string]string{"path": path, "content": content})
	if w.Code != http.StatusCreated {
		t.Fatalf("create %s = %d, body = %s", path, w.Code, w.Body.String())
	}
}

func TestCreateAndGetNote(t *testing.T) {
	_, router := testEnv(t, "")

	createNote(t, router, "hello.md", "# Hello\nWorld")

	w := doJSON(t, router, http.MethodGet, "/notes/hello.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Path != "hello.md" {
		t.Errorf("path = %q", note.Path)
	}
	if note.Title != "Hello" {
		t.Errorf("title = %q, want Hello", note.Title)
	}
	if note.Checksum == "" {
		t.Error("checksum missing")
	}
}

func TestCreateDuplicate(t *testing.T) {
	_, router := testEnv(t, "")

	createNote(t, router, "dup.md", "a")

	w := doJSON(t, router, http.MethodPost, "/notes", map[string]string{"path": "dup.md", "content": "a"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")

	createNote(t, router, "lock.md", "v1")

	w := doJSON(t, router, http.MethodGet, "/notes/lock.md", nil)
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)

	// Matching checksum succeeds.
	raw, _ := json.Marshal(map[string]string{"content": "v2"})
	req := httptest.NewRequest(http.MethodPut, "/notes/lock.md", bytes.NewReader(raw))
	req.Header.Set("If-Match", `"`+note.Checksum+`"`)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update with good checksum = %d", w.Code)
	}

	// Stale checksum conflicts.
	req = httptest.NewRequest(http.MethodPut, "/notes/lock.md", bytes.NewReader(raw))
	req.Header.Set("If-Match", note.Checksum)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", w.Code)
	}
}

func TestUpdateWithoutIfMatch(t *testing.T) {
	_, router := testEnv(t, "")

	createNote(t, router, "nolock.md", "v1")

	w := doJSON(t, router, http.MethodPut, "/notes/nolock.md", map[string]string{"content": "v2"})
	if w.Code != http.StatusOK {
		t.Errorf("update without If-Match = %d, want 200", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	_, router := testEnv(t, "")

	createNote(t, router, "bye.md", "gone")

	w := doJSON(t, router, http.MethodDelete, "/notes/bye.md", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/notes/bye.md", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/notes/bye.md", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestListNotes(t *testing.T) {
	_, router := testEnv(t, "")

	for _, name := range []string{"a.md", "b.md"} {
		createNote(t, router, name, "# "+name)
	}

	w := doJSON(t, router, http.MethodGet, "/notes?limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Notes) != 2 {
		t.Errorf("len(notes) = %d, want 2", len(resp.Notes))
	}
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	createNote(t, router, "find.md", "uniquetoken here")

	w := doJSON(t, router, http.MethodGet, "/search?q=uniquetoken", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 {
		t.Errorf("search results = %d, want 1", len(resp.Results))
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestParagraphsEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	createNote(t, router, "p.md", "---\ntitle: P\n---\n# Head\n* [ ] task\ntext")

	w := doJSON(t, router, http.MethodGet, "/paragraphs?path=p.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("paragraphs = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Paragraphs []markdown.ParagraphMetadata `json:"paragraphs"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Paragraphs) != 3 {
		t.Fatalf("paragraphs = %d, want 3", len(resp.Paragraphs))
	}
	if resp.Paragraphs[0].Type != markdown.ParagraphTitle {
		t.Errorf("line 0 = %s, want title", resp.Paragraphs[0].Type)
	}
	if resp.Paragraphs[1].Type != markdown.ParagraphTask {
		t.Errorf("line 1 = %s, want task", resp.Paragraphs[1].Type)
	}
	// Physical index counts the frontmatter block.
	if resp.Paragraphs[0].LineIndex != 3 {
		t.Errorf("line index = %d, want 3", resp.Paragraphs[0].LineIndex)
	}
}

func TestInsertInSection(t *testing.T) {
	_, router := testEnv(t, "")

	createNote(t, router, "ins.md", "# Title\n\n## Work\n- item1\n\n## Home\n")

	w := doJSON(t, router, http.MethodPost, "/insert", map[string]any{
		"path":     "ins.md",
		"text":     "- item2",
		"position": "in-section",
		"heading":  "Work",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("insert = %d, body = %s", w.Code, w.Body.String())
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	want := "# Title\n\n## Work\n- item1\n- item2\n\n## Home\n"
	if note.Content != want {
		t.Errorf("content = %q, want %q", note.Content, want)
	}
}

func TestInsertUnknownHeadingListsAvailable(t *testing.T) {
	_, router := testEnv(t, "")

	createNote(t, router, "hd.md", "## Inbox\n## Archive\n")

	w := doJSON(t, router, http.MethodPost, "/insert", map[string]any{
		"path":     "hd.md",
		"text":     "x",
		"position": "after-heading",
		"heading":  "Missing",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("insert bad heading = %d, want 400", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "Inbox") || !strings.Contains(body, "Archive") {
		t.Errorf("error should list available headings, got %s", body)
	}
}

func TestDeleteLinesTwoPhase(t *testing.T) {
	_, router := testEnv(t, "")

	createNote(t, router, "dl.md", "line1\nline2\nline3")

	// Phase 1: no token, expect a preview and a confirmation token.
	w := doJSON(t, router, http.MethodPost, "/delete-lines", map[string]any{
		"path": "dl.md", "start": 2, "end": 3,
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("dry run = %d, body = %s", w.Code, w.Body.String())
	}
	var pending ConfirmationResponse
	_ = json.Unmarshal(w.Body.Bytes(), &pending)
	if pending.Token == "" {
		t.Fatal("no token issued")
	}
	if pending.Preview != "line2\nline3" {
		t.Errorf("preview = %q", pending.Preview)
	}

	// The note is untouched after the dry run.
	w = doJSON(t, router, http.MethodGet, "/notes/dl.md", nil)
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Content != "line1\nline2\nline3" {
		t.Fatalf("dry run mutated note: %q", note.Content)
	}

	// Phase 2: confirm.
	w = doJSON(t, router, http.MethodPost, "/delete-lines", map[string]any{
		"path": "dl.md", "start": 2, "end": 3, "confirm": pending.Token,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("confirm = %d, body = %s", w.Code, w.Body.String())
	}
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Content != "line1" {
		t.Errorf("content after delete = %q, want line1", note.Content)
	}

	// Token is single-use.
	w = doJSON(t, router, http.MethodPost, "/delete-lines", map[string]any{
		"path": "dl.md", "start": 1, "end": 1, "confirm": pending.Token,
	})
	if w.Code != http.StatusConflict {
		t.Errorf("reused token = %d, want 409", w.Code)
	}
}

func TestDeleteLinesInvalidRange(t *testing.T) {
	_, router := testEnv(t, "")

	createNote(t, router, "rng.md", "only line")

	w := doJSON(t, router, http.MethodPost, "/delete-lines", map[string]any{
		"path": "rng.md", "start": 5, "end": 6,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("out-of-range dry run = %d, want 400", w.Code)
	}
}

func TestAddTaskAndListTasks(t *testing.T) {
	_, router := testEnv(t, "")

	createNote(t, router, "tasks.md", "# Today\n")

	w := doJSON(t, router, http.MethodPost, "/tasks", map[string]any{
		"path":    "tasks.md",
		"content": "Buy milk #errands >2026-09-01",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add task = %d, body = %s", w.Code, w.Body.String())
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if !strings.Contains(note.Content, "* Buy milk #errands") {
		t.Errorf("task line missing from %q", note.Content)
	}

	w = doJSON(t, router, http.MethodGet, "/tasks?status=open&tag=errands", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list tasks = %d", w.Code)
	}
	var resp struct {
		Tasks []index.TaskRow `json:"tasks"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(resp.Tasks))
	}
	if resp.Tasks[0].ScheduledDate != "2026-09-01" {
		t.Errorf("scheduled = %q", resp.Tasks[0].ScheduledDate)
	}
}

func TestListTasksUnknownStatus(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/tasks?status=bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bogus status = %d, want 400", w.Code)
	}
}

func TestUpdateTaskStatusAndContent(t *testing.T) {
	_, router := testEnv(t, "")

	createNote(t, router, "st.md", "* [ ] write report")

	w := doJSON(t, router, http.MethodPost, "/tasks/status", map[string]any{
		"path": "st.md", "line_index": 0, "status": "done",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Content != "* [x] write report" {
		t.Errorf("content = %q", note.Content)
	}

	w = doJSON(t, router, http.MethodPost, "/tasks/content", map[string]any{
		"path": "st.md", "line_index": 0, "content": "file report",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("content = %d, body = %s", w.Code, w.Body.String())
	}
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Content != "* [x] file report" {
		t.Errorf("content = %q", note.Content)
	}
}

func TestPropertyRoundTrip(t *testing.T) {
	_, router := testEnv(t, "")

	createNote(t, router, "props.md", "body text")

	w := doJSON(t, router, http.MethodPut, "/properties", map[string]any{
		"path": "props.md", "key": "status", "value": "active",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("set property = %d, body = %s", w.Code, w.Body.String())
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Frontmatter["status"] != "active" {
		t.Errorf("frontmatter = %v", note.Frontmatter)
	}
	if !strings.HasPrefix(note.Content, "---\nstatus: active\n---\n") {
		t.Errorf("content = %q", note.Content)
	}

	w = doJSON(t, router, http.MethodDelete, "/properties?path=props.md&key=status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("remove property = %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.HasFrontmatter {
		t.Errorf("frontmatter should be gone, content = %q", note.Content)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	raw, _ := json.Marshal(map[string]string{"path": "auth.md", "content": "test"})
	req := httptest.NewRequest(http.MethodPost, "/notes", bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := doJSON(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/notes/nope.md", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note = %d, want 404", w.Code)
	}
}

func TestUpdateNote_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPut, "/notes/ghost.md", map[string]string{"content": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}
