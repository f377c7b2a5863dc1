// Package markdown implements the note content model: frontmatter parsing,
// per-line paragraph classification, task extraction, and structural editing
// of raw note text. All functions are pure transforms over in-memory strings.
package markdown

import (
	"regexp"
	"strings"
)

const fmDelimiter = "---"

var fmKeyValueRe = regexp.MustCompile(`^(\S+):\s*(.*)$`)

// Frontmatter is an ordered string-to-string mapping. Setting an existing
// key updates its value in place; new keys append.
type Frontmatter struct {
	keys   []string
	values map[string]string
}

// NewFrontmatter returns an empty frontmatter mapping.
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{values: make(map[string]string)}
}

// Set stores value under key, preserving first-insertion order.
func (f *Frontmatter) Set(key, value string) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value for key and whether it is present.
func (f *Frontmatter) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Delete removes key. Deleting an absent key is a no-op.
func (f *Frontmatter) Delete(key string) {
	if _, ok := f.values[key]; !ok {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (f *Frontmatter) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len returns the number of entries.
func (f *Frontmatter) Len() int {
	return len(f.keys)
}

// ParsedNote is the result of splitting note content into frontmatter and body.
type ParsedNote struct {
	Frontmatter    *Frontmatter
	Body           string
	HasFrontmatter bool
}

// scanFrontmatter validates a leading frontmatter block. Line 0 must be the
// opening delimiter; every subsequent line must be a key: value pair until the
// closing delimiter. Any other line (including a blank one) invalidates the
// whole block, so a thematic break later in the body is never misread as a
// closer. Returns the physical index of the closing delimiter.
func scanFrontmatter(lines []string) (fm *Frontmatter, closing int, ok bool) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != fmDelimiter {
		return nil, 0, false
	}
	fm = NewFrontmatter()
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == fmDelimiter {
			return fm, i, true
		}
		m := fmKeyValueRe.FindStringSubmatch(lines[i])
		if m == nil {
			return nil, 0, false
		}
		fm.Set(m[1], strings.TrimSpace(m[2]))
	}
	// No closing delimiter.
	return nil, 0, false
}

// ParseFrontmatter splits content into a frontmatter mapping and body.
// Invalid or partial frontmatter is never exposed: the whole content becomes
// the body and HasFrontmatter is false.
func ParseFrontmatter(content string) ParsedNote {
	lines := strings.Split(content, "\n")
	fm, closing, ok := scanFrontmatter(lines)
	if !ok {
		return ParsedNote{Frontmatter: NewFrontmatter(), Body: content}
	}
	return ParsedNote{
		Frontmatter:    fm,
		Body:           strings.Join(lines[closing+1:], "\n"),
		HasFrontmatter: true,
	}
}

// FrontmatterLineCount returns the number of physical lines consumed by a
// valid frontmatter block, both delimiters included, or 0 when content has
// no valid frontmatter. Shares the validity scan with ParseFrontmatter so the
// two can never disagree.
func FrontmatterLineCount(content string) int {
	_, closing, ok := scanFrontmatter(strings.Split(content, "\n"))
	if !ok {
		return 0
	}
	return closing + 1
}

// SerializeFrontmatter renders the mapping as a delimited block. An empty
// mapping still yields the two delimiter lines.
func SerializeFrontmatter(fm *Frontmatter) string {
	var b strings.Builder
	b.WriteString(fmDelimiter)
	b.WriteByte('\n')
	for _, k := range fm.keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(fm.values[k])
		b.WriteByte('\n')
	}
	b.WriteString(fmDelimiter)
	return b.String()
}

// Reconstruct joins frontmatter and body back into note content. An empty
// mapping omits the block entirely: a note that never had meaningful
// frontmatter must not gain an empty one.
func Reconstruct(fm *Frontmatter, body string) string {
	if fm == nil || fm.Len() == 0 {
		return body
	}
	return SerializeFrontmatter(fm) + "\n" + body
}

// SetProperty sets a frontmatter key on content, creating the block when the
// note has none.
func SetProperty(content, key, value string) string {
	parsed := ParseFrontmatter(content)
	parsed.Frontmatter.Set(key, value)
	return Reconstruct(parsed.Frontmatter, parsed.Body)
}

// RemoveProperty deletes a frontmatter key. Removing a key from a note
// without frontmatter (or without that key) returns the content unchanged.
func RemoveProperty(content, key string) string {
	parsed := ParseFrontmatter(content)
	if !parsed.HasFrontmatter {
		return content
	}
	if _, ok := parsed.Frontmatter.Get(key); !ok {
		return content
	}
	parsed.Frontmatter.Delete(key)
	return Reconstruct(parsed.Frontmatter, parsed.Body)
}
