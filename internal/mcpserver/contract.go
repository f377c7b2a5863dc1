package mcpserver

// NoteFormatContract describes the canonical Markdown note format that
// LLM consumers should follow when creating or editing notes.
const NoteFormatContract = `# Berkano Note Format Contract

Every Markdown note stored in Berkano follows this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title
status: active
created: 2026-01-15
---

# Note Title

Body text in standard Markdown.

## A Section

* An open task #tag @alice >2026-02-01 !!
* [x] A completed task
+ [ ] A checklist item
- A plain bullet
> A quoted line
` + "```" + `

## Frontmatter rules

1. The frontmatter block is OPTIONAL. When present, the opening ` + "`---`" + `
   must be the very first line of the file.
2. Every line between the fences must be ` + "`key: value`" + ` with a single,
   whitespace-free key. A blank line or any other text invalidates the
   whole block and it is treated as body content instead.
3. Values are free text (any language). Keys are schema fields: use
   lowercase English.
4. Prefer set_property / remove_property over editing frontmatter by hand;
   they preserve key order and handle the empty-block case.

## Task rules

1. A task line is a ` + "`*`" + ` or ` + "`-`" + ` marker (vault-configurable) with optional
   checkbox: ` + "`* [ ] text`" + `.
2. Checkbox characters encode status: ` + "`[ ]`" + ` open, ` + "`[x]`" + ` done,
   ` + "`[-]`" + ` cancelled, ` + "`[>]`" + ` scheduled.
3. ` + "`+`" + ` marker lines are checklist items: they appear in task queries but
   carry no scheduling semantics.
4. Inline metadata inside the task text: ` + "`#tag`" + `, ` + "`@mention`" + `,
   ` + "`>YYYY-MM-DD`" + ` scheduled date, and trailing ` + "`!`" + ` / ` + "`!!`" + ` / ` + "`!!!`" + `
   priority marks.
5. Prefer add_task / update_task_status / update_task_content over raw
   content edits; they keep markers and indentation intact.

## Line addressing

- insert_text and delete_lines use 1-based CONTENT line numbers that skip
  the frontmatter block. Content line 1 is the first line after the
  closing ` + "`---`" + `.
- update_task_status and update_task_content use the 0-based PHYSICAL
  line indexes reported by get_paragraphs and list_tasks.

## General rules

1. File paths end with ` + "`.md`" + ` and use forward slashes.
2. Encoding is UTF-8.
3. File and directory names are English (Latin characters); body content
   may use any language including Cyrillic.
4. delete_lines is destructive: the first call returns a preview and a
   confirmation token, the second call (with the token) applies it.
`
