package index

import (
	"log/slog"
	"strings"
	"time"

	"github.com/ellsworth/berkano/internal/checksum"
	"github.com/ellsworth/berkano/internal/markdown"
	"github.com/ellsworth/berkano/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed notes are classified and upserted
//   - notes removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, cfg markdown.MarkerConfig, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		content, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, content, cfg); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile classifies content and upserts its note row and task rows.
func indexFile(db *DB, path, content string, cfg markdown.MarkerConfig) error {
	title, tags := Summarize(content, cfg)
	parsed := markdown.ParseFrontmatter(content)

	row := NoteRow{
		Path:      path,
		Title:     title,
		Checksum:  checksum.Sum(content),
		Tags:      tags,
		UpdatedAt: time.Now(),
	}
	return db.UpsertNote(row, parsed.Body, markdown.Tasks(content, cfg))
}

// Summarize derives the indexed title and tag set for a note. The
// frontmatter title wins over the first content line; tags are collected in
// order of appearance, leading # stripped, duplicates dropped.
func Summarize(content string, cfg markdown.MarkerConfig) (string, []string) {
	parsed := markdown.ParseFrontmatter(content)

	title := ""
	if parsed.HasFrontmatter {
		if t, ok := parsed.Frontmatter.Get("title"); ok && t != "" {
			title = t
		}
	}

	seen := make(map[string]struct{})
	var tags []string
	for _, meta := range markdown.ClassifyAll(content, cfg) {
		if title == "" && meta.Type == markdown.ParagraphTitle {
			title = meta.Content
		}
		for _, tag := range meta.Tags {
			name := strings.TrimPrefix(tag, "#")
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			tags = append(tags, name)
		}
	}
	return title, tags
}
