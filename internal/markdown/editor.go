package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

// Position names the supported insertion points.
type Position string

// Insertion positions.
const (
	PositionStart        Position = "start"
	PositionEnd          Position = "end"
	PositionAfterHeading Position = "after-heading"
	PositionAtLine       Position = "at-line"
	PositionInSection    Position = "in-section"
)

// InsertOptions selects where InsertAt places text. Heading applies to
// after-heading and in-section (and redirects start/end); Line applies to
// at-line.
type InsertOptions struct {
	Position Position
	Heading  string
	Line     ContentLine
}

const maxHeadingHints = 15

var boldHeadingRe = regexp.MustCompile(`^\*\*(.+)\*\*:?$`)

// isSectionBoundary reports whether a line delimits a section: either an ATX
// heading or a standalone **Bold Text** marker line.
func isSectionBoundary(line string) bool {
	trimmed := strings.TrimSpace(line)
	return headingRe.MatchString(trimmed) || boldHeadingRe.MatchString(trimmed)
}

// boundaryText returns the heading text of a section boundary line, stripped
// of ATX and bold decoration.
func boundaryText(line string) string {
	trimmed := strings.TrimSpace(line)
	if m := headingRe.FindStringSubmatch(trimmed); m != nil {
		return m[2]
	}
	if m := boldHeadingRe.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

// normalizeHeading folds a heading for matching: decoration stripped,
// whitespace collapsed, case ignored.
func normalizeHeading(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimLeft(text, "#")
	text = strings.Trim(text, "*")
	text = strings.TrimSuffix(strings.TrimSpace(text), ":")
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// findHeading returns the physical index of the section boundary matching
// heading, or an error listing the available boundaries.
func findHeading(lines []string, heading string) (int, error) {
	want := normalizeHeading(heading)
	var found []string
	for i, line := range lines {
		if !isSectionBoundary(line) {
			continue
		}
		text := boundaryText(line)
		if normalizeHeading(text) == want {
			return i, nil
		}
		if len(found) < maxHeadingHints {
			found = append(found, text)
		}
	}
	if len(found) == 0 {
		return 0, fmt.Errorf("markdown: heading %q not found (note has no headings)", heading)
	}
	return 0, fmt.Errorf("markdown: heading %q not found; available headings: %s", heading, strings.Join(found, ", "))
}

// splitInsertText splits the text to insert into physical lines, stripping
// exactly one trailing newline first (a trailing newline is assumed
// accidental, not a blank line).
func splitInsertText(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// spliceLines inserts newLines at physical index idx.
func spliceLines(lines, newLines []string, idx int) []string {
	out := make([]string, 0, len(lines)+len(newLines))
	out = append(out, lines[:idx]...)
	out = append(out, newLines...)
	out = append(out, lines[idx:]...)
	return out
}

// InsertAt inserts newText into content at the position selected by opts.
// Multi-line text becomes multiple physical lines at the insertion point.
func InsertAt(content, newText string, opts InsertOptions) (string, error) {
	switch opts.Position {
	case PositionStart:
		if opts.Heading != "" {
			return insertAfterHeading(content, newText, opts.Heading)
		}
		return insertAtStart(content, newText), nil
	case PositionEnd:
		if opts.Heading != "" {
			return insertInSection(content, newText, opts.Heading)
		}
		return insertAtEnd(content, newText), nil
	case PositionAfterHeading:
		if opts.Heading == "" {
			return "", fmt.Errorf("markdown: position %q requires a heading", opts.Position)
		}
		return insertAfterHeading(content, newText, opts.Heading)
	case PositionInSection:
		if opts.Heading == "" {
			return "", fmt.Errorf("markdown: position %q requires a heading", opts.Position)
		}
		return insertInSection(content, newText, opts.Heading)
	case PositionAtLine:
		if opts.Line < 1 {
			return "", fmt.Errorf("markdown: position %q requires a line number >= 1, got %d", opts.Position, opts.Line)
		}
		return insertAtLine(content, newText, opts.Line), nil
	default:
		return "", fmt.Errorf("markdown: unknown insert position %q", opts.Position)
	}
}

// insertAtStart places text immediately after a valid frontmatter block, or
// at the very top when there is none.
func insertAtStart(content, text string) string {
	lines := strings.Split(content, "\n")
	idx := FrontmatterLineCount(content)
	return strings.Join(spliceLines(lines, splitInsertText(text), idx), "\n")
}

// insertAtEnd appends text, adding a separating newline only when content
// does not already end with one.
func insertAtEnd(content, text string) string {
	text = strings.TrimSuffix(text, "\n")
	if content == "" {
		return text
	}
	if strings.HasSuffix(content, "\n") {
		return content + text
	}
	return content + "\n" + text
}

func insertAfterHeading(content, text, heading string) (string, error) {
	lines := strings.Split(content, "\n")
	idx, err := findHeading(lines, heading)
	if err != nil {
		return "", err
	}
	return strings.Join(spliceLines(lines, splitInsertText(text), idx+1), "\n"), nil
}

// insertInSection places text after the last non-blank line of the section
// introduced by heading, before any trailing blank padding and before the
// next section boundary.
func insertInSection(content, text, heading string) (string, error) {
	lines := strings.Split(content, "\n")
	idx, err := findHeading(lines, heading)
	if err != nil {
		return "", err
	}

	end := len(lines)
	for i := idx + 1; i < len(lines); i++ {
		if isSectionBoundary(lines[i]) {
			end = i
			break
		}
	}
	// Walk back over trailing blank lines of the section.
	insert := end
	for insert > idx+1 && strings.TrimSpace(lines[insert-1]) == "" {
		insert--
	}
	return strings.Join(spliceLines(lines, splitInsertText(text), insert), "\n"), nil
}

// insertAtLine places text at a 1-based content line number, padding with
// blank lines when the target is past the end of the note. Never fails for
// an out-of-range target.
func insertAtLine(content, text string, line ContentLine) string {
	lines := strings.Split(content, "\n")
	idx := int(line.Physical(content))
	for len(lines) < idx {
		lines = append(lines, "")
	}
	if idx > len(lines) {
		idx = len(lines)
	}
	return strings.Join(spliceLines(lines, splitInsertText(text), idx), "\n")
}

// DeleteLines removes the inclusive content-line range [startLine, endLine].
// Frontmatter lines are unreachable. endLine past the end of the note is
// clamped; startLine past the end is an error.
func DeleteLines(content string, startLine, endLine ContentLine) (string, error) {
	if startLine < 1 {
		return "", fmt.Errorf("markdown: start line must be >= 1, got %d", startLine)
	}
	if endLine < startLine {
		return "", fmt.Errorf("markdown: end line %d is before start line %d", endLine, startLine)
	}
	total := ContentLineCount(content)
	if int(startLine) > total {
		return "", fmt.Errorf("markdown: start line %d exceeds note length %d", startLine, total)
	}
	if int(endLine) > total {
		endLine = ContentLine(total)
	}

	lines := strings.Split(content, "\n")
	from := int(startLine.Physical(content))
	to := int(endLine.Physical(content)) + 1
	out := make([]string, 0, len(lines)-(to-from))
	out = append(out, lines[:from]...)
	out = append(out, lines[to:]...)
	return strings.Join(out, "\n"), nil
}

// ExtractLines returns the inclusive content-line range [startLine,
// endLine] without modifying the note. Validation and clamping match
// DeleteLines, so a preview always shows exactly what a delete with the
// same arguments would remove.
func ExtractLines(content string, startLine, endLine ContentLine) (string, error) {
	if startLine < 1 {
		return "", fmt.Errorf("markdown: start line must be >= 1, got %d", startLine)
	}
	if endLine < startLine {
		return "", fmt.Errorf("markdown: end line %d is before start line %d", endLine, startLine)
	}
	total := ContentLineCount(content)
	if int(startLine) > total {
		return "", fmt.Errorf("markdown: start line %d exceeds note length %d", startLine, total)
	}
	if int(endLine) > total {
		endLine = ContentLine(total)
	}

	lines := strings.Split(content, "\n")
	from := int(startLine.Physical(content))
	to := int(endLine.Physical(content)) + 1
	return strings.Join(lines[from:to], "\n"), nil
}
