package markdown

import (
	"regexp"
	"strings"
)

// ParagraphType is the closed set of line classifications.
type ParagraphType string

// Paragraph types, mutually exclusive.
const (
	ParagraphTitle     ParagraphType = "title"
	ParagraphHeading   ParagraphType = "heading"
	ParagraphTask      ParagraphType = "task"
	ParagraphChecklist ParagraphType = "checklist"
	ParagraphBullet    ParagraphType = "bullet"
	ParagraphQuote     ParagraphType = "quote"
	ParagraphSeparator ParagraphType = "separator"
	ParagraphText      ParagraphType = "text"
	ParagraphEmpty     ParagraphType = "empty"
)

// TaskStatus is the state encoded by a task's checkbox character.
type TaskStatus string

// Task states.
const (
	StatusOpen      TaskStatus = "open"
	StatusDone      TaskStatus = "done"
	StatusCancelled TaskStatus = "cancelled"
	StatusScheduled TaskStatus = "scheduled"
)

// statusByChar maps a checkbox bracket character to its task status.
var statusByChar = map[byte]TaskStatus{
	' ': StatusOpen,
	'x': StatusDone,
	'-': StatusCancelled,
	'>': StatusScheduled,
}

// charByStatus is the inverse of statusByChar.
var charByStatus = map[TaskStatus]byte{
	StatusOpen:      ' ',
	StatusDone:      'x',
	StatusCancelled: '-',
	StatusScheduled: '>',
}

// ParseStatus validates a caller-supplied status name.
func ParseStatus(s string) (TaskStatus, bool) {
	st := TaskStatus(s)
	_, ok := charByStatus[st]
	return st, ok
}

// MarkerConfig is the caller-supplied task-marker configuration. It decides
// whether bare * and - lines are tasks or bullets, which marker new tasks
// use, and whether open tasks default to checkbox notation.
type MarkerConfig struct {
	AsteriskTodo  bool
	DashTodo      bool
	DefaultMarker string
	UseCheckbox   bool
}

// DefaultMarkerConfig returns the conventional setup: * is a to-do marker,
// - is a plain bullet, new tasks use * without a checkbox.
func DefaultMarkerConfig() MarkerConfig {
	return MarkerConfig{AsteriskTodo: true, DefaultMarker: "*"}
}

// marker returns the configured marker for new task lines.
func (c MarkerConfig) marker() string {
	if c.DefaultMarker == "" {
		return "*"
	}
	return c.DefaultMarker
}

// ParagraphMetadata describes a single classified line.
type ParagraphMetadata struct {
	Type          ParagraphType `json:"type"`
	LineIndex     int           `json:"lineIndex"`
	Content       string        `json:"content"`
	RawLine       string        `json:"rawLine"`
	IndentLevel   int           `json:"indentLevel"`
	HeadingLevel  int           `json:"headingLevel,omitempty"`
	Marker        string        `json:"marker,omitempty"`
	HasCheckbox   bool          `json:"hasCheckbox,omitempty"`
	TaskStatus    TaskStatus    `json:"taskStatus,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	Mentions      []string      `json:"mentions,omitempty"`
	ScheduledDate string        `json:"scheduledDate,omitempty"`
	Priority      int           `json:"priority,omitempty"`
}

var (
	separatorRe = regexp.MustCompile(`^(-{3,}|\*{3,}|_{3,})$`)
	headingRe   = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	quoteRe     = regexp.MustCompile(`^>\s?(.*)$`)
	checkboxRe  = regexp.MustCompile(`^(\s*)([*+-])\s*\[(.)\]\s*(.*)$`)
	markerRe    = regexp.MustCompile(`^(\s*)([*+-])\s+(.+)$`)
)

// classifyRule is one entry of the ordered dispatch table: it either claims
// the line and returns its metadata, or passes.
type classifyRule func(line string, idx int, first bool, cfg MarkerConfig) (ParagraphMetadata, bool)

// classifyRules is evaluated in order; the first claiming rule wins. The
// order is load-bearing: earlier rules shadow later ones (the first content
// line is always a title, an unrecognized checkbox character falls through
// to the plain-marker rule, and so on).
var classifyRules = []classifyRule{
	classifyEmpty,
	classifySeparator,
	classifyHeading,
	classifyFirstLineTitle,
	classifyQuote,
	classifyCheckbox,
	classifyMarker,
	classifyText,
}

// Classify assigns exactly one paragraph type to a line. The caller decides
// isFirstLine (the first line after any frontmatter); the classifier itself
// never inspects neighbouring lines.
func Classify(line string, lineIndex int, isFirstLine bool, cfg MarkerConfig) ParagraphMetadata {
	for _, rule := range classifyRules {
		if meta, ok := rule(line, lineIndex, isFirstLine, cfg); ok {
			meta.LineIndex = lineIndex
			meta.RawLine = line
			return meta
		}
	}
	// classifyText always claims; unreachable.
	return ParagraphMetadata{Type: ParagraphText, LineIndex: lineIndex, RawLine: line}
}

// ClassifyAll classifies every physical line of content, computing the
// frontmatter offset once so the first content line is recognized as the
// title. Frontmatter lines themselves are not classified.
func ClassifyAll(content string, cfg MarkerConfig) []ParagraphMetadata {
	lines := strings.Split(content, "\n")
	fmCount := FrontmatterLineCount(content)
	out := make([]ParagraphMetadata, 0, len(lines)-fmCount)
	for i := fmCount; i < len(lines); i++ {
		out = append(out, Classify(lines[i], i, i == fmCount, cfg))
	}
	return out
}

func classifyEmpty(line string, _ int, _ bool, _ MarkerConfig) (ParagraphMetadata, bool) {
	if strings.TrimSpace(line) != "" {
		return ParagraphMetadata{}, false
	}
	return ParagraphMetadata{Type: ParagraphEmpty}, true
}

func classifySeparator(line string, _ int, _ bool, _ MarkerConfig) (ParagraphMetadata, bool) {
	if !separatorRe.MatchString(strings.TrimSpace(line)) {
		return ParagraphMetadata{}, false
	}
	return ParagraphMetadata{Type: ParagraphSeparator, Content: strings.TrimSpace(line)}, true
}

func classifyHeading(line string, _ int, first bool, _ MarkerConfig) (ParagraphMetadata, bool) {
	m := headingRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return ParagraphMetadata{}, false
	}
	typ := ParagraphHeading
	if first {
		typ = ParagraphTitle
	}
	meta := ParagraphMetadata{
		Type:         typ,
		HeadingLevel: len(m[1]),
		Content:      m[2],
	}
	applyContentMeta(&meta)
	return meta, true
}

func classifyFirstLineTitle(line string, _ int, first bool, _ MarkerConfig) (ParagraphMetadata, bool) {
	if !first {
		return ParagraphMetadata{}, false
	}
	meta := ParagraphMetadata{
		Type:         ParagraphTitle,
		HeadingLevel: 1,
		Content:      strings.TrimSpace(line),
	}
	applyContentMeta(&meta)
	return meta, true
}

func classifyQuote(line string, _ int, _ bool, _ MarkerConfig) (ParagraphMetadata, bool) {
	m := quoteRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return ParagraphMetadata{}, false
	}
	meta := ParagraphMetadata{
		Type:        ParagraphQuote,
		IndentLevel: indentLevel(line),
		Content:     m[1],
	}
	applyContentMeta(&meta)
	return meta, true
}

func classifyCheckbox(line string, _ int, _ bool, _ MarkerConfig) (ParagraphMetadata, bool) {
	m := checkboxRe.FindStringSubmatch(line)
	if m == nil {
		return ParagraphMetadata{}, false
	}
	status, ok := statusByChar[m[3][0]]
	if !ok {
		// Unrecognized bracket character: not a task, let the plain-marker
		// rule classify the line.
		return ParagraphMetadata{}, false
	}
	typ := ParagraphTask
	if m[2] == "+" {
		typ = ParagraphChecklist
	}
	meta := ParagraphMetadata{
		Type:        typ,
		IndentLevel: indentLevel(line),
		Marker:      m[2],
		HasCheckbox: true,
		TaskStatus:  status,
		Content:     m[4],
	}
	applyContentMeta(&meta)
	return meta, true
}

func classifyMarker(line string, _ int, _ bool, cfg MarkerConfig) (ParagraphMetadata, bool) {
	m := markerRe.FindStringSubmatch(line)
	if m == nil {
		return ParagraphMetadata{}, false
	}
	meta := ParagraphMetadata{
		IndentLevel: indentLevel(line),
		Marker:      m[2],
		Content:     m[3],
	}
	switch m[2] {
	case "+":
		meta.Type = ParagraphChecklist
		meta.TaskStatus = StatusOpen
	case "*":
		if cfg.AsteriskTodo {
			meta.Type = ParagraphTask
			meta.TaskStatus = StatusOpen
		} else {
			meta.Type = ParagraphBullet
		}
	case "-":
		if cfg.DashTodo {
			meta.Type = ParagraphTask
			meta.TaskStatus = StatusOpen
		} else {
			meta.Type = ParagraphBullet
		}
	}
	applyContentMeta(&meta)
	return meta, true
}

func classifyText(line string, _ int, _ bool, _ MarkerConfig) (ParagraphMetadata, bool) {
	meta := ParagraphMetadata{
		Type:        ParagraphText,
		IndentLevel: indentLevel(line),
		Content:     strings.TrimSpace(line),
	}
	applyContentMeta(&meta)
	return meta, true
}

// applyContentMeta extracts tags, mentions, scheduled date, and priority from
// the content portion of a line. Applied once per line, never to the
// marker/checkbox prefix.
func applyContentMeta(meta *ParagraphMetadata) {
	meta.Tags = ExtractTags(meta.Content)
	meta.Mentions = ExtractMentions(meta.Content)
	meta.ScheduledDate = ExtractScheduledDate(meta.Content)
	meta.Priority = ExtractPriority(meta.Content)
}

// indentLevel counts indentation in the line's leading whitespace: each tab
// is one level, every two spaces are one level.
func indentLevel(line string) int {
	tabs, spaces := 0, 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\t':
			tabs++
		case ' ':
			spaces++
		default:
			return tabs + spaces/2
		}
	}
	return tabs + spaces/2
}
