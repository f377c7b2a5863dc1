package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ellsworth/berkano/internal/markdown"
)

// TaskRow is an indexed task line, queryable across the whole vault.
type TaskRow struct {
	Path          string   `json:"path"`
	LineIndex     int      `json:"lineIndex"`
	Content       string   `json:"content"`
	Status        string   `json:"status"`
	Marker        string   `json:"marker"`
	HasCheckbox   bool     `json:"hasCheckbox"`
	IndentLevel   int      `json:"indentLevel"`
	Tags          []string `json:"tags,omitempty"`
	Mentions      []string `json:"mentions,omitempty"`
	ScheduledDate string   `json:"scheduledDate,omitempty"`
	Priority      int      `json:"priority,omitempty"`
}

// TaskFilter narrows ListTasks results. Zero values mean "no constraint".
type TaskFilter struct {
	Path          string
	Status        string
	Tag           string
	Mention       string
	ScheduledDate string
	Limit         int
}

// replaceTasks swaps all task rows for a note inside an open transaction.
func replaceTasks(tx *sql.Tx, path string, tasks []markdown.Task) error {
	if _, err := tx.Exec(`DELETE FROM tasks WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: clear tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`
		INSERT INTO tasks (path, line_index, content, status, marker, has_checkbox,
			indent_level, tags, mentions, scheduled_date, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare task insert: %w", err)
	}
	defer stmt.Close()

	for _, task := range tasks {
		tagsJSON, _ := json.Marshal(task.Tags)
		mentionsJSON, _ := json.Marshal(task.Mentions)
		_, err := stmt.Exec(path, task.LineIndex, task.Content, string(task.Status),
			task.Marker, task.HasCheckbox, task.IndentLevel,
			string(tagsJSON), string(mentionsJSON), task.ScheduledDate, task.Priority)
		if err != nil {
			return fmt.Errorf("index: insert task: %w", err)
		}
	}
	return nil
}

// ListTasks returns indexed tasks matching f, ordered by path then line.
func (db *DB) ListTasks(f TaskFilter) ([]TaskRow, error) {
	query := `SELECT path, line_index, content, status, marker, has_checkbox,
		indent_level, tags, mentions, scheduled_date, priority FROM tasks WHERE 1=1`
	var args []any
	if f.Path != "" {
		query += ` AND path = ?`
		args = append(args, f.Path)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Tag != "" {
		// Tags are indexed with their # prefix; accept either form.
		tag := f.Tag
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		query += ` AND tags LIKE ?`
		args = append(args, `%"`+tag+`"%`)
	}
	if f.Mention != "" {
		mention := f.Mention
		if !strings.HasPrefix(mention, "@") {
			mention = "@" + mention
		}
		query += ` AND mentions LIKE ?`
		args = append(args, `%"`+mention+`"%`)
	}
	if f.ScheduledDate != "" {
		query += ` AND scheduled_date = ?`
		args = append(args, f.ScheduledDate)
	}
	query += ` ORDER BY path, line_index`
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list tasks: %w", err)
	}
	defer rows.Close()

	var out []TaskRow
	for rows.Next() {
		var r TaskRow
		var tagsJSON, mentionsJSON string
		if err := rows.Scan(&r.Path, &r.LineIndex, &r.Content, &r.Status, &r.Marker,
			&r.HasCheckbox, &r.IndentLevel, &tagsJSON, &mentionsJSON,
			&r.ScheduledDate, &r.Priority); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(tagsJSON), &r.Tags)
		_ = json.Unmarshal([]byte(mentionsJSON), &r.Mentions)
		out = append(out, r)
	}
	return out, rows.Err()
}
