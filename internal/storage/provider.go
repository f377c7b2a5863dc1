// Package storage defines the note store abstraction. The content model
// never touches the file system itself; callers fetch content here, run it
// through the markdown transforms, and save the returned string back.
package storage

import "github.com/ellsworth/berkano/internal/models"

// Provider is the interface for note store operations. Content is plain
// UTF-8 text; the store is the only owner of persisted note bytes.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to vault root).
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the content of the note at path (relative to vault root).
	Read(path string) (string, error)
	// Write atomically saves content to path (relative to vault root).
	Write(path string, content string) error
	// Delete removes the note at path (relative to vault root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to vault root).
	Move(oldPath, newPath string) error
}
