package markdown

import "strings"

// Two coordinate systems coexist: ContentLine is what users see (1-based,
// frontmatter excluded); PhysicalLine is a raw index into the file's lines
// (0-based, frontmatter included). Keeping them as distinct types prevents
// the classic off-by-frontmatter-length mistake. The frontmatter line count
// is the sole conversion constant and must be recomputed from the current
// content on every call.

// ContentLine is a 1-based, user-facing line number that excludes frontmatter.
type ContentLine int

// PhysicalLine is a 0-based index into the raw file's lines.
type PhysicalLine int

// Physical converts a content line number to a physical index within content.
func (c ContentLine) Physical(content string) PhysicalLine {
	return PhysicalLine(FrontmatterLineCount(content) + int(c) - 1)
}

// ContentLineCount returns the number of user-facing content lines.
func ContentLineCount(content string) int {
	return len(strings.Split(content, "\n")) - FrontmatterLineCount(content)
}
