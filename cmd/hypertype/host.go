package main

import "fmt"

// ============================================================================
// Host editor capabilities
// ============================================================================
// The engine never edits text itself. It asks the host to mutate the document
// and to show or hide overlays anchored to document ranges. Any editor that
// provides these capabilities can be animated: the in-memory Document used by
// the daemon and the terminal editor is one such host.
// ============================================================================

// Position is a zero-based line and rune offset.
type Position struct {
	Line int `json:"line"`
	Char int `json:"char"`
}

func (p Position) Before(o Position) bool {
	return p.Line < o.Line || (p.Line == o.Line && p.Char < o.Char)
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Char) }

// Range is a half-open span [Start, End). Start never follows End.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// NewRange orders a and b.
func NewRange(a, b Position) Range {
	if b.Before(a) {
		a, b = b, a
	}
	return Range{Start: a, End: b}
}

func (r Range) Empty() bool { return r.Start == r.End }

func (r Range) SingleLine() bool { return r.Start.Line == r.End.Line }

func (r Range) String() string { return r.Start.String() + "-" + r.End.String() }

// Visual is a renderable overlay description. Implementations are plain values.
type Visual interface {
	Kind() string
}

// Handle is a live overlay. Dispose may be called any number of times.
type Handle interface {
	Dispose()
}

// Editor is the focused document as seen by the engine.
type Editor interface {
	Cursor() Position
	Selection() Range
	LineCount() int
	LineLength(line int) int

	// Insert types text at the cursor, replacing a non-empty selection, and moves
	// the cursor past it.
	Insert(text string) error
	// Delete removes r and leaves the cursor at r.Start.
	Delete(r Range) error

	Decorate(r Range, v Visual) (Handle, error)
	DecorateGutter(line int, v Visual) (Handle, error)
}

// Navigator is implemented by editors that accept cursor movement requests.
type Navigator interface {
	MoveCursor(lines, chars int)
	MoveLineEdge(end bool)
}

// Host yields the editor that currently has focus, or nil.
type Host interface {
	ActiveEditor() Editor
}

// documentHost exposes a single Document as the focused editor.
type documentHost struct {
	doc *Document
}

func (h documentHost) ActiveEditor() Editor {
	if h.doc == nil {
		return nil
	}
	return h.doc
}
