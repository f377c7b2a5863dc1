// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Berkano tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ellsworth/berkano/internal/guard"
	"github.com/ellsworth/berkano/internal/index"
	"github.com/ellsworth/berkano/internal/markdown"
	"github.com/ellsworth/berkano/internal/noteservice"
)

// Server wraps the MCP server with Berkano tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *noteservice.Service
	guard *guard.Store
}

// New creates a new MCP server with all Berkano tools registered.
func New(svc *noteservice.Service, g *guard.Store) *Server {
	s := &Server{svc: svc, guard: g}

	s.mcp = server.NewMCPServer(
		"Berkano",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through notes content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a Markdown note: full content, frontmatter properties, checksum."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Markdown note at the specified path. "+
			"Content SHOULD follow the canonical note format (optional frontmatter, "+
			"task lines with status brackets). Read the contract first via "+
			"the get_note_contract tool or the berkano://note-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new note (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the Berkano note format contract")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical Berkano note format contract. "+
			"Call this before creating or editing notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List indexed notes with optional tag filter and paging."),
		mcp.WithString("tag", mcp.Description("Optional tag to filter by")),
		mcp.WithNumber("limit", mcp.Description("Max notes to return")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_paragraphs",
		mcp.WithDescription("Classify every line of a note: type, physical line index, "+
			"task status, tags, mentions, scheduled date, priority. Line indexes returned "+
			"here are the ones update_task_status and update_task_content expect."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path")),
	), s.getParagraphs)

	s.mcp.AddTool(mcp.NewTool("insert_text",
		mcp.WithDescription("Insert text into a note at a structural position: "+
			"start, end, after-heading, in-section, or at-line. Heading matching is "+
			"case-insensitive and also matches **bold** pseudo-headings."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to insert (may be multi-line)")),
		mcp.WithString("position", mcp.Description("start | end | after-heading | in-section | at-line (default end)")),
		mcp.WithString("heading", mcp.Description("Target heading for after-heading / in-section")),
		mcp.WithNumber("line", mcp.Description("1-based content line for at-line (frontmatter excluded)")),
	), s.insertText)

	s.mcp.AddTool(mcp.NewTool("delete_lines",
		mcp.WithDescription("Delete an inclusive range of content lines (1-based, frontmatter "+
			"excluded). Destructive: the first call returns a preview and a confirmation "+
			"token; call again with the token to apply."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path")),
		mcp.WithNumber("start", mcp.Required(), mcp.Description("First content line to delete")),
		mcp.WithNumber("end", mcp.Required(), mcp.Description("Last content line to delete (clamped to note length)")),
		mcp.WithString("confirm", mcp.Description("Confirmation token from a previous dry run")),
	), s.deleteLines)

	s.mcp.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Build a task line from plain text and insert it into a note. "+
			"Marker and checkbox notation follow the vault configuration."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Task text (tags, @mentions, >dates allowed)")),
		mcp.WithString("position", mcp.Description("Insertion position (default end)")),
		mcp.WithString("heading", mcp.Description("Target heading for after-heading / in-section")),
		mcp.WithString("status", mcp.Description("open | done | cancelled | scheduled (default open)")),
		mcp.WithNumber("indent_level", mcp.Description("Nesting depth (0 = top level)")),
		mcp.WithNumber("priority", mcp.Description("Priority 1-3, rendered as trailing ! marks")),
	), s.addTask)

	s.mcp.AddTool(mcp.NewTool("update_task_status",
		mcp.WithDescription("Change the checkbox status of a task line in place."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path")),
		mcp.WithNumber("line_index", mcp.Required(), mcp.Description("0-based physical line index (from get_paragraphs)")),
		mcp.WithString("status", mcp.Required(), mcp.Description("open | done | cancelled | scheduled")),
	), s.updateTaskStatus)

	s.mcp.AddTool(mcp.NewTool("update_task_content",
		mcp.WithDescription("Rewrite the text of a task or bullet line, keeping its marker, "+
			"indentation and checkbox exactly as they are."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path")),
		mcp.WithNumber("line_index", mcp.Required(), mcp.Description("0-based physical line index (from get_paragraphs)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New task text")),
	), s.updateTaskContent)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("Query indexed tasks across the whole vault, filtered by note, "+
			"status, #tag, @mention, or scheduled date."),
		mcp.WithString("path", mcp.Description("Restrict to one note")),
		mcp.WithString("status", mcp.Description("open | done | cancelled | scheduled")),
		mcp.WithString("tag", mcp.Description("Filter by tag (with or without #)")),
		mcp.WithString("mention", mcp.Description("Filter by mention (with or without @)")),
		mcp.WithString("scheduled", mcp.Description("Filter by scheduled date (YYYY-MM-DD)")),
		mcp.WithNumber("limit", mcp.Description("Max tasks to return")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("set_property",
		mcp.WithDescription("Set a frontmatter property on a note, creating the frontmatter "+
			"block if needed. Existing key order is preserved."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Property key")),
		mcp.WithString("value", mcp.Description("Property value")),
	), s.setProperty)

	s.mcp.AddTool(mcp.NewTool("remove_property",
		mcp.WithDescription("Remove a frontmatter property from a note. Removing the last "+
			"property removes the whole frontmatter block."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Property key")),
	), s.removeProperty)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource("berkano://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical Markdown note format that all notes should follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return jsonResult(note), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.CreateNote(ctx, path, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 0)
	offset := req.GetInt("offset", 0)
	tag := req.GetString("tag", "")

	items, total, err := s.svc.ListNotes(ctx, limit, offset, tag, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"notes": items, "total": total}), nil
}

func (s *Server) getParagraphs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paras, err := s.svc.Paragraphs(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(paras), nil
}

func (s *Server) insertText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	position := req.GetString("position", string(markdown.PositionEnd))

	note, err := s.svc.InsertText(ctx, path, text, markdown.InsertOptions{
		Position: markdown.Position(position),
		Heading:  req.GetString("heading", ""),
		Line:     markdown.ContentLine(req.GetInt("line", 0)),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) deleteLines(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := req.RequireInt("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := req.RequireInt("end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	confirm := req.GetString("confirm", "")
	if confirm == "" {
		preview, err := s.svc.DeleteLinesPreview(ctx, path, markdown.ContentLine(start), markdown.ContentLine(end))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		p := s.guard.Issue(guard.OpDeleteLines, path, preview)
		return jsonResult(map[string]any{
			"status":     "confirmation required",
			"token":      p.Token,
			"preview":    p.Preview,
			"expires_at": p.ExpiresAt,
			"hint":       "call delete_lines again with this token in 'confirm' to apply",
		}), nil
	}

	if err := s.guard.Redeem(confirm, guard.OpDeleteLines, path); err != nil {
		return mcp.NewToolResultError("unknown or expired confirmation token"), nil
	}
	note, err := s.svc.DeleteLines(ctx, path, markdown.ContentLine(start), markdown.ContentLine(end))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) addTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	build := markdown.BuildOptions{
		IndentLevel: req.GetInt("indent_level", 0),
		Priority:    req.GetInt("priority", 0),
	}
	if raw := req.GetString("status", ""); raw != "" {
		st, ok := markdown.ParseStatus(raw)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown status %q", raw)), nil
		}
		build.Status = st
	}

	note, err := s.svc.AddTask(ctx, path, content, markdown.InsertOptions{
		Position: markdown.Position(req.GetString("position", "")),
		Heading:  req.GetString("heading", ""),
		Line:     markdown.ContentLine(req.GetInt("line", 0)),
	}, build)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) updateTaskStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lineIndex, err := req.RequireInt("line_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st, ok := markdown.ParseStatus(raw)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown status %q", raw)), nil
	}

	note, err := s.svc.UpdateTaskStatus(ctx, path, lineIndex, st)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) updateTaskContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lineIndex, err := req.RequireInt("line_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := s.svc.UpdateTaskContent(ctx, path, lineIndex, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if raw := req.GetString("status", ""); raw != "" {
		if _, ok := markdown.ParseStatus(raw); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown status %q", raw)), nil
		}
	}
	rows, err := s.svc.ListTasks(ctx, index.TaskFilter{
		Path:          req.GetString("path", ""),
		Status:        req.GetString("status", ""),
		Tag:           req.GetString("tag", ""),
		Mention:       req.GetString("mention", ""),
		ScheduledDate: req.GetString("scheduled", ""),
		Limit:         req.GetInt("limit", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(rows) == 0 {
		return mcp.NewToolResultText("no tasks found"), nil
	}
	return jsonResult(rows), nil
}

func (s *Server) setProperty(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.ContainsAny(key, " \t") {
		return mcp.NewToolResultError("property keys must not contain whitespace"), nil
	}

	note, err := s.svc.SetProperty(ctx, path, key, req.GetString("value", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) removeProperty(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := s.svc.RemoveProperty(ctx, path, key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "berkano://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
