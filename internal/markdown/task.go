package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	tagRe     = regexp.MustCompile(`#[\w/-]+`)
	mentionRe = regexp.MustCompile(`@[\w-]+`)
	dateRe    = regexp.MustCompile(`>(\d{4}-\d{2}-\d{2})`)

	// Prefix patterns for in-place task line edits. Checkbox is tried first
	// so the bracket survives content replacement.
	checkboxPrefixRe = regexp.MustCompile(`^(\s*)([*+-])(\s*)\[(.)\](\s*)`)
	markerPrefixRe   = regexp.MustCompile(`^(\s*)([*+-])(\s+)`)
)

// Task is the narrow task view derived from classified lines, used by
// task-search tools. Derived fresh from content on every call.
type Task struct {
	LineIndex     int        `json:"lineIndex"`
	Content       string     `json:"content"`
	RawLine       string     `json:"rawLine"`
	Status        TaskStatus `json:"status"`
	IndentLevel   int        `json:"indentLevel"`
	HasCheckbox   bool       `json:"hasCheckbox"`
	Marker        string     `json:"marker"`
	Tags          []string   `json:"tags,omitempty"`
	Mentions      []string   `json:"mentions,omitempty"`
	ScheduledDate string     `json:"scheduledDate,omitempty"`
	Priority      int        `json:"priority,omitempty"`
}

// ExtractTags returns every #tag in text, in order, duplicates retained.
func ExtractTags(text string) []string {
	return tagRe.FindAllString(text, -1)
}

// ExtractMentions returns every @mention in text, in order.
func ExtractMentions(text string) []string {
	return mentionRe.FindAllString(text, -1)
}

// ExtractScheduledDate returns the first >YYYY-MM-DD date in text, or "".
func ExtractScheduledDate(text string) string {
	m := dateRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// ExtractPriority returns the priority (1-3) encoded by a run of ! characters
// not followed by a word character, or 0 when absent. The scan mirrors the
// backtracking of `!{1,3}` with a negative word lookahead: a run may shrink
// until the character after it is not a word character, so "milk!" is
// priority 1 while "a!b" carries none.
func ExtractPriority(text string) int {
	for i := 0; i < len(text); i++ {
		if text[i] != '!' {
			continue
		}
		run := 0
		for i+run < len(text) && text[i+run] == '!' && run < 3 {
			run++
		}
		for k := run; k >= 1; k-- {
			if i+k >= len(text) || !isWordByte(text[i+k]) {
				return k
			}
		}
	}
	return 0
}

func isWordByte(b byte) bool {
	return b == '_' ||
		('0' <= b && b <= '9') ||
		('a' <= b && b <= 'z') ||
		('A' <= b && b <= 'Z')
}

// Tasks derives the task list from content: every task or checklist line,
// frontmatter excluded, with physical line indices.
func Tasks(content string, cfg MarkerConfig) []Task {
	var out []Task
	for _, meta := range ClassifyAll(content, cfg) {
		if meta.Type != ParagraphTask && meta.Type != ParagraphChecklist {
			continue
		}
		out = append(out, Task{
			LineIndex:     meta.LineIndex,
			Content:       meta.Content,
			RawLine:       meta.RawLine,
			Status:        meta.TaskStatus,
			IndentLevel:   meta.IndentLevel,
			HasCheckbox:   meta.HasCheckbox,
			Marker:        meta.Marker,
			Tags:          meta.Tags,
			Mentions:      meta.Mentions,
			ScheduledDate: meta.ScheduledDate,
			Priority:      meta.Priority,
		})
	}
	return out
}

// BuildOptions controls BuildLine output.
type BuildOptions struct {
	HeadingLevel int
	Status       TaskStatus
	IndentLevel  int
	Priority     int
	// UseCheckbox overrides the configured checkbox default for open tasks.
	// Non-open statuses always force checkbox notation.
	UseCheckbox *bool
}

// BuildLine renders a markdown line of the given paragraph type, inverting
// the classifier's rule for that type.
func BuildLine(content string, typ ParagraphType, opts BuildOptions, cfg MarkerConfig) string {
	if opts.Priority > 0 {
		content = content + " " + strings.Repeat("!", min(opts.Priority, 3))
	}
	indent := strings.Repeat("\t", opts.IndentLevel)

	switch typ {
	case ParagraphTitle:
		level := opts.HeadingLevel
		if level == 0 {
			level = 1
		}
		return strings.Repeat("#", level) + " " + content
	case ParagraphHeading:
		level := opts.HeadingLevel
		if level == 0 {
			level = 2
		}
		return strings.Repeat("#", level) + " " + content
	case ParagraphTask:
		status := opts.Status
		if status == "" {
			status = StatusOpen
		}
		useCheckbox := cfg.UseCheckbox
		if opts.UseCheckbox != nil {
			useCheckbox = *opts.UseCheckbox
		}
		// A bare marker cannot represent done/cancelled/scheduled.
		if status != StatusOpen {
			useCheckbox = true
		}
		if useCheckbox {
			return fmt.Sprintf("%s%s [%c] %s", indent, cfg.marker(), charByStatus[status], content)
		}
		return indent + cfg.marker() + " " + content
	case ParagraphChecklist:
		status := opts.Status
		if status == "" {
			status = StatusOpen
		}
		useCheckbox := cfg.UseCheckbox
		if opts.UseCheckbox != nil {
			useCheckbox = *opts.UseCheckbox
		}
		if status != StatusOpen {
			useCheckbox = true
		}
		if useCheckbox {
			return fmt.Sprintf("%s+ [%c] %s", indent, charByStatus[status], content)
		}
		return indent + "+ " + content
	case ParagraphBullet:
		return indent + "- " + content
	case ParagraphQuote:
		return "> " + content
	case ParagraphSeparator:
		return fmDelimiter
	default:
		return indent + content
	}
}

// UpdateStatus replaces the task status of the line at the given physical
// index. Lines that already carry bracket notation keep their prefix with
// only the bracket character replaced; bare marker lines gain bracket
// notation in place, keeping their marker. Fails when the index is out of
// range or the line is not a task line.
func UpdateStatus(content string, lineIndex int, status TaskStatus) (string, error) {
	ch, ok := charByStatus[status]
	if !ok {
		return "", fmt.Errorf("markdown: unknown task status %q", status)
	}
	lines := strings.Split(content, "\n")
	if lineIndex < 0 || lineIndex >= len(lines) {
		return "", fmt.Errorf("markdown: line index %d out of range (0-%d)", lineIndex, len(lines)-1)
	}
	line := lines[lineIndex]

	if m := checkboxPrefixRe.FindStringSubmatchIndex(line); m != nil {
		// Replace only the bracket contents. The existing status character
		// may be a multibyte rune, so splice on the submatch bounds.
		lines[lineIndex] = line[:m[8]] + string(ch) + line[m[9]:]
		return strings.Join(lines, "\n"), nil
	}
	if m := markerPrefixRe.FindStringSubmatch(line); m != nil {
		rest := line[len(m[0]):]
		lines[lineIndex] = fmt.Sprintf("%s%s [%c] %s", m[1], m[2], ch, rest)
		return strings.Join(lines, "\n"), nil
	}
	return "", fmt.Errorf("markdown: line %d is not a task line: %q", lineIndex, line)
}

// UpdateContent replaces the text after a task line's marker/checkbox prefix,
// preserving the prefix byte for byte. Fails when the index is out of range
// or the line is not a task line.
func UpdateContent(content string, lineIndex int, newText string) (string, error) {
	lines := strings.Split(content, "\n")
	if lineIndex < 0 || lineIndex >= len(lines) {
		return "", fmt.Errorf("markdown: line index %d out of range (0-%d)", lineIndex, len(lines)-1)
	}
	line := lines[lineIndex]

	if m := checkboxPrefixRe.FindString(line); m != "" {
		lines[lineIndex] = m + newText
		return strings.Join(lines, "\n"), nil
	}
	if m := markerPrefixRe.FindString(line); m != "" {
		lines[lineIndex] = m + newText
		return strings.Join(lines, "\n"), nil
	}
	return "", fmt.Errorf("markdown: line %d is not a task line: %q", lineIndex, line)
}
