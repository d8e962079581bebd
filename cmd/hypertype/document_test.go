package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDocument_InsertSingleLine(t *testing.T) {
	d := NewDocument("helo")
	d.SetCursor(Position{Line: 0, Char: 3})

	if err := d.Insert("l"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if d.Text() != "hello" {
		t.Fatalf("text = %q", d.Text())
	}
	if d.Cursor() != (Position{Line: 0, Char: 4}) {
		t.Fatalf("cursor = %s", d.Cursor())
	}
	if !d.Dirty() {
		t.Fatalf("document not marked dirty")
	}
}

func TestDocument_InsertNewlineSplitsLine(t *testing.T) {
	d := NewDocument("abcd")
	d.SetCursor(Position{Line: 0, Char: 2})

	if err := d.Insert("\n"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if d.Text() != "ab\ncd" {
		t.Fatalf("text = %q", d.Text())
	}
	if d.Cursor() != (Position{Line: 1, Char: 0}) {
		t.Fatalf("cursor = %s", d.Cursor())
	}
}

func TestDocument_InsertMultiline(t *testing.T) {
	d := NewDocument("[]")
	d.SetCursor(Position{Line: 0, Char: 1})

	if err := d.Insert("x\ny\nzz"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if d.Text() != "[x\ny\nzz]" {
		t.Fatalf("text = %q", d.Text())
	}
	if d.Cursor() != (Position{Line: 2, Char: 2}) {
		t.Fatalf("cursor = %s", d.Cursor())
	}
}

func TestDocument_InsertReplacesSelection(t *testing.T) {
	d := NewDocument("hello world")
	d.Select(Position{Char: 6}, Position{Char: 11})

	if err := d.Insert("there"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if d.Text() != "hello there" {
		t.Fatalf("text = %q", d.Text())
	}
	if !d.Selection().Empty() {
		t.Fatalf("selection survived insert")
	}
}

func TestDocument_DeleteAcrossLines(t *testing.T) {
	d := NewDocument("ab\ncd\nef")
	r := Range{Start: Position{Line: 0, Char: 1}, End: Position{Line: 2, Char: 1}}

	if err := d.Delete(r); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if d.Text() != "af" {
		t.Fatalf("text = %q", d.Text())
	}
	if d.Cursor() != r.Start {
		t.Fatalf("cursor = %s, want %s", d.Cursor(), r.Start)
	}
}

func TestDocument_DeleteRejectsInvalidRanges(t *testing.T) {
	d := NewDocument("abc")
	bad := []Range{
		{Start: Position{Char: 2}, End: Position{Char: 1}},
		{Start: Position{Char: 0}, End: Position{Char: 9}},
		{Start: Position{Line: 3}, End: Position{Line: 3}},
	}
	for _, r := range bad {
		if err := d.Delete(r); err == nil {
			t.Fatalf("Delete(%s) succeeded", r)
		}
	}
	if d.Text() != "abc" {
		t.Fatalf("text changed to %q", d.Text())
	}
}

func TestDocument_OverlaysDisposeIdempotently(t *testing.T) {
	d := NewDocument("abc")
	h1, err := d.Decorate(Range{Start: Position{Char: 0}, End: Position{Char: 1}}, PulseBorder(0))
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}
	h2, err := d.DecorateGutter(0, GutterArrow())
	if err != nil {
		t.Fatalf("DecorateGutter: %v", err)
	}

	ov := d.Overlays()
	if len(ov) != 2 || ov[0].Gutter || !ov[1].Gutter {
		t.Fatalf("overlays = %+v", ov)
	}

	h1.Dispose()
	h1.Dispose()
	if len(d.Overlays()) != 1 {
		t.Fatalf("overlays after dispose = %d, want 1", len(d.Overlays()))
	}
	h2.Dispose()
	if len(d.Overlays()) != 0 {
		t.Fatalf("overlays after dispose = %d, want 0", len(d.Overlays()))
	}
}

func TestDocument_DecorateClampsStaleRange(t *testing.T) {
	d := NewDocument("abc")
	r := Range{Start: Position{Char: 2}, End: Position{Char: 3}}
	if err := d.Delete(Range{Start: Position{Char: 1}, End: Position{Char: 3}}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := d.Decorate(r, PulseBorder(0)); err != nil {
		t.Fatalf("Decorate on stale range: %v", err)
	}
	got := d.Overlays()[0].Range
	if got.Start != (Position{Char: 1}) || got.End != (Position{Char: 1}) {
		t.Fatalf("clamped range = %s", got)
	}

	if _, err := d.Decorate(Range{Start: Position{Char: 1}, End: Position{Char: 0}}, PulseBorder(0)); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}

func TestDocument_MoveCursorWraps(t *testing.T) {
	d := NewDocument("ab\ncd")
	d.SetCursor(Position{Line: 0, Char: 2})

	d.MoveCursor(0, 1)
	if d.Cursor() != (Position{Line: 1, Char: 0}) {
		t.Fatalf("cursor after right at EOL = %s", d.Cursor())
	}
	d.MoveCursor(0, -1)
	if d.Cursor() != (Position{Line: 0, Char: 2}) {
		t.Fatalf("cursor after left at BOL = %s", d.Cursor())
	}
	d.MoveCursor(5, 0)
	if d.Cursor() != (Position{Line: 1, Char: 2}) {
		t.Fatalf("cursor after moving past the end = %s", d.Cursor())
	}
	d.MoveLineEdge(false)
	if d.Cursor().Char != 0 {
		t.Fatalf("home: cursor = %s", d.Cursor())
	}
	d.MoveLineEdge(true)
	if d.Cursor().Char != 2 {
		t.Fatalf("end: cursor = %s", d.Cursor())
	}
}

func TestDocument_LoadSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")

	d, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument on missing file: %v", err)
	}
	if d.Text() != "" || d.LineCount() != 1 {
		t.Fatalf("new document = %q (%d lines)", d.Text(), d.LineCount())
	}

	if err := d.Insert("one\ntwo"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := d.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if d.Dirty() {
		t.Fatalf("document still dirty after save")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != "one\ntwo" {
		t.Fatalf("file = %q", b)
	}

	again, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if again.Text() != "one\ntwo" || again.LineCount() != 2 {
		t.Fatalf("reloaded = %q", again.Text())
	}

	if err := NewDocument("x").Save(); err == nil {
		t.Fatalf("expected error saving a document without a path")
	}
}
