// Package notebook reads and writes Jupyter notebook (nbformat v4) documents
// without losing fields it does not understand.
package notebook

import (
	"encoding/json"
	"strings"
)

// Cell types.
const (
	CellMarkdown = "markdown"
	CellCode     = "code"
	CellRaw      = "raw"
)

// Cell is a single notebook cell. Every key is kept as raw JSON so an
// untouched cell encodes back to the same value.
type Cell struct {
	fields map[string]json.RawMessage
}

// NewMarkdownCell builds a markdown cell with empty metadata. The source is
// stored as a list of lines, matching what Jupyter writes.
func NewMarkdownCell(source string) Cell {
	c := Cell{fields: make(map[string]json.RawMessage, 4)}
	c.set("cell_type", CellMarkdown)
	c.fields["metadata"] = json.RawMessage(`{}`)
	c.set("source", SplitLines(source))
	return c
}

// Type returns the cell_type tag, or "" if absent.
func (c Cell) Type() string {
	var t string
	if raw, ok := c.fields["cell_type"]; ok {
		_ = json.Unmarshal(raw, &t)
	}
	return t
}

// Source returns the cell source as one string regardless of whether it is
// stored as a string or a list of lines.
func (c Cell) Source() string {
	raw, ok := c.fields["source"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, "")
	}
	return ""
}

// ID returns the cell id (nbformat 4.5+), or "".
func (c Cell) ID() string {
	var id string
	if raw, ok := c.fields["id"]; ok {
		_ = json.Unmarshal(raw, &id)
	}
	return id
}

// SetID sets the cell id.
func (c Cell) SetID(id string) {
	c.set("id", id)
}

// Field returns the raw JSON of key.
func (c Cell) Field(key string) (json.RawMessage, bool) {
	raw, ok := c.fields[key]
	return raw, ok
}

func (c Cell) set(key string, v any) {
	c.fields[key] = marshal(v)
}

// Document is a decoded notebook.
type Document struct {
	NBFormat      int
	NBFormatMinor int
	Cells         []Cell

	// extra holds every top-level key other than cells, including
	// metadata, nbformat and nbformat_minor, in their original encoding.
	extra map[string]json.RawMessage
}

// SupportsCellIDs reports whether the format version requires cell ids (4.5+).
func (d *Document) SupportsCellIDs() bool {
	return d.NBFormat > 4 || (d.NBFormat == 4 && d.NBFormatMinor >= 5)
}

// Metadata returns the raw notebook-level metadata.
func (d *Document) Metadata() json.RawMessage {
	return d.extra["metadata"]
}

// InsertCell inserts c at index i, shifting later cells.
func (d *Document) InsertCell(i int, c Cell) {
	if i < 0 {
		i = 0
	}
	if i > len(d.Cells) {
		i = len(d.Cells)
	}
	d.Cells = append(d.Cells, Cell{})
	copy(d.Cells[i+1:], d.Cells[i:])
	d.Cells[i] = c
}

// RemoveCell removes and returns the cell at index i.
func (d *Document) RemoveCell(i int) Cell {
	c := d.Cells[i]
	d.Cells = append(d.Cells[:i], d.Cells[i+1:]...)
	return c
}

// SplitLines splits s into lines that keep their trailing newline. The last
// line has no newline unless s ends with one, in which case no empty trailing
// element is produced.
func SplitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
