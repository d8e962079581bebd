package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Document is an in-memory line buffer with a cursor, an optional selection and a
// registry of live overlays. It is the Editor behind both the headless daemon and
// the terminal editor.
//
// Not safe for concurrent use; the daemon goroutine owns it.
type Document struct {
	path  string
	lines [][]rune
	dirty bool

	cursor Position
	anchor *Position // selection anchor; nil when nothing is selected

	overlays map[int]*Overlay
	nextID   int
}

// Overlay is a live decoration registered through Decorate or DecorateGutter.
type Overlay struct {
	ID     int
	Range  Range
	Gutter bool
	Visual Visual
}

var errOutOfRange = errors.New("position out of range")

func NewDocument(text string) *Document {
	d := &Document{overlays: make(map[int]*Overlay)}
	d.setText(text)
	return d
}

// LoadDocument reads path into a new document. A missing file yields an empty
// document bound to path.
func LoadDocument(path string) (*Document, error) {
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read document: %w", err)
	}
	d := NewDocument(string(b))
	d.path = path
	return d, nil
}

// Save writes the document back to its path.
func (d *Document) Save() error {
	if d.path == "" {
		return errors.New("document has no path")
	}
	if err := os.WriteFile(ExpandPath(d.path), []byte(d.Text()), 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	d.dirty = false
	return nil
}

func (d *Document) setText(text string) {
	parts := strings.Split(text, "\n")
	d.lines = make([][]rune, len(parts))
	for i, p := range parts {
		d.lines[i] = []rune(p)
	}
	d.cursor = Position{}
	d.anchor = nil
}

func (d *Document) Text() string {
	var b strings.Builder
	for i, l := range d.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(l))
	}
	return b.String()
}

func (d *Document) Path() string { return d.path }
func (d *Document) Dirty() bool  { return d.dirty }

func (d *Document) Line(i int) string {
	if i < 0 || i >= len(d.lines) {
		return ""
	}
	return string(d.lines[i])
}

// ---- Editor ----

func (d *Document) Cursor() Position { return d.cursor }

func (d *Document) Selection() Range {
	if d.anchor == nil {
		return Range{Start: d.cursor, End: d.cursor}
	}
	return NewRange(*d.anchor, d.cursor)
}

func (d *Document) LineCount() int { return len(d.lines) }

func (d *Document) LineLength(line int) int {
	if line < 0 || line >= len(d.lines) {
		return 0
	}
	return len(d.lines[line])
}

func (d *Document) Insert(text string) error {
	if sel := d.Selection(); !sel.Empty() {
		if err := d.Delete(sel); err != nil {
			return err
		}
	}
	if !d.valid(d.cursor) {
		return fmt.Errorf("insert at %s: %w", d.cursor, errOutOfRange)
	}

	line := d.lines[d.cursor.Line]
	head := append([]rune(nil), line[:d.cursor.Char]...)
	tail := append([]rune(nil), line[d.cursor.Char:]...)

	parts := strings.Split(text, "\n")
	newLines := make([][]rune, len(parts))
	for i, p := range parts {
		newLines[i] = []rune(p)
	}
	last := len(newLines) - 1
	endChar := len(newLines[last])
	if last == 0 {
		endChar += len(head)
	}
	newLines[0] = append(head, newLines[0]...)
	newLines[last] = append(newLines[last], tail...)

	d.lines = append(d.lines[:d.cursor.Line], append(newLines, d.lines[d.cursor.Line+1:]...)...)
	d.cursor = Position{Line: d.cursor.Line + last, Char: endChar}
	d.anchor = nil
	d.dirty = true
	return nil
}

func (d *Document) Delete(r Range) error {
	if !d.valid(r.Start) || !d.valid(r.End) || r.End.Before(r.Start) {
		return fmt.Errorf("delete %s: %w", r, errOutOfRange)
	}
	head := d.lines[r.Start.Line][:r.Start.Char]
	tail := d.lines[r.End.Line][r.End.Char:]
	joined := append(append([]rune(nil), head...), tail...)

	d.lines = append(d.lines[:r.Start.Line], append([][]rune{joined}, d.lines[r.End.Line+1:]...)...)
	d.cursor = r.Start
	d.anchor = nil
	d.dirty = true
	return nil
}

// Decorate anchors v to r. Ranges that went stale after an edit are clamped into
// the document, the way an editor keeps a decoration on the nearest text.
func (d *Document) Decorate(r Range, v Visual) (Handle, error) {
	if r.End.Before(r.Start) {
		return nil, fmt.Errorf("decorate %s: inverted range", r)
	}
	r = Range{Start: d.clamp(r.Start), End: d.clamp(r.End)}
	return d.addOverlay(&Overlay{Range: r, Visual: v}), nil
}

func (d *Document) DecorateGutter(line int, v Visual) (Handle, error) {
	if line < 0 {
		return nil, fmt.Errorf("decorate gutter line %d: %w", line, errOutOfRange)
	}
	p := Position{Line: min(line, len(d.lines)-1)}
	return d.addOverlay(&Overlay{Range: Range{Start: p, End: p}, Gutter: true, Visual: v}), nil
}

func (d *Document) addOverlay(o *Overlay) Handle {
	d.nextID++
	o.ID = d.nextID
	d.overlays[o.ID] = o
	return overlayHandle{doc: d, id: o.ID}
}

// Overlays returns the live overlays in creation order.
func (d *Document) Overlays() []Overlay {
	out := make([]Overlay, 0, len(d.overlays))
	for _, o := range d.overlays {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type overlayHandle struct {
	doc *Document
	id  int
}

func (h overlayHandle) Dispose() {
	delete(h.doc.overlays, h.id)
}

func (d *Document) valid(p Position) bool {
	return p.Line >= 0 && p.Line < len(d.lines) && p.Char >= 0 && p.Char <= len(d.lines[p.Line])
}

// ---- Navigation ----

// MoveCursor moves vertically by lines (keeping the column where possible), then
// horizontally by chars, wrapping across line ends. Any selection is dropped.
func (d *Document) MoveCursor(lines, chars int) {
	d.anchor = nil
	if lines != 0 {
		d.cursor.Line = max(0, min(d.cursor.Line+lines, len(d.lines)-1))
		d.cursor.Char = min(d.cursor.Char, len(d.lines[d.cursor.Line]))
	}
	for ; chars > 0; chars-- {
		if d.cursor.Char < len(d.lines[d.cursor.Line]) {
			d.cursor.Char++
		} else if d.cursor.Line < len(d.lines)-1 {
			d.cursor = Position{Line: d.cursor.Line + 1}
		}
	}
	for ; chars < 0; chars++ {
		if d.cursor.Char > 0 {
			d.cursor.Char--
		} else if d.cursor.Line > 0 {
			d.cursor.Line--
			d.cursor.Char = len(d.lines[d.cursor.Line])
		}
	}
}

// MoveLineEdge puts the cursor at the start (end=false) or end of its line.
func (d *Document) MoveLineEdge(end bool) {
	d.anchor = nil
	if end {
		d.cursor.Char = len(d.lines[d.cursor.Line])
	} else {
		d.cursor.Char = 0
	}
}

// SetCursor places the cursor, clamped into the document.
func (d *Document) SetCursor(p Position) {
	d.anchor = nil
	d.cursor = d.clamp(p)
}

// Select sets a selection from anchor to active; the cursor ends at active.
func (d *Document) Select(anchor, active Position) {
	a := d.clamp(anchor)
	d.cursor = d.clamp(active)
	d.anchor = &a
}

func (d *Document) clamp(p Position) Position {
	p.Line = max(0, min(p.Line, len(d.lines)-1))
	p.Char = max(0, min(p.Char, len(d.lines[p.Line])))
	return p
}
