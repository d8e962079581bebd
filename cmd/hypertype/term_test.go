package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
)

func newSimScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init simulation screen: %v", err)
	}
	screen.SetSize(w, h)
	t.Cleanup(screen.Fini)
	return screen
}

func screenRow(s tcell.Screen, y, w int) string {
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := s.GetContent(x, y)
		b.WriteRune(r)
	}
	return b.String()
}

func TestTranslateKey(t *testing.T) {
	tests := []struct {
		key    tcell.Key
		ch     rune
		mod    tcell.ModMask
		want   Event
		action keyAction
	}{
		{tcell.KeyRune, 'x', tcell.ModNone, KeyTyped{Text: "x"}, keyNone},
		{tcell.KeyRune, 'X', tcell.ModShift, KeyTyped{Text: "X"}, keyNone},
		{tcell.KeyEnter, 0, tcell.ModNone, KeyTyped{Text: "\n"}, keyNone},
		{tcell.KeyTab, 0, tcell.ModNone, KeyTab{}, keyNone},
		{tcell.KeyBackspace2, 0, tcell.ModNone, KeyDeleteLeft{}, keyNone},
		{tcell.KeyDelete, 0, tcell.ModNone, KeyDeleteRight{}, keyNone},
		{tcell.KeyUp, 0, tcell.ModNone, CursorMove{Lines: -1}, keyNone},
		{tcell.KeyRight, 0, tcell.ModNone, CursorMove{Chars: 1}, keyNone},
		{tcell.KeyHome, 0, tcell.ModNone, CursorMove{Edge: "home"}, keyNone},
		{tcell.KeyCtrlT, 0, tcell.ModCtrl, ToggleSound{}, keyNone},
		{tcell.KeyCtrlS, 0, tcell.ModCtrl, nil, keySave},
		{tcell.KeyEscape, 0, tcell.ModNone, nil, keyQuit},
		{tcell.KeyF5, 0, tcell.ModNone, nil, keyNone},
	}
	for _, tt := range tests {
		ev, action := translateKey(tcell.NewEventKey(tt.key, tt.ch, tt.mod))
		if ev != tt.want || action != tt.action {
			t.Errorf("translateKey(%v, %q) = %#v, %d; want %#v, %d", tt.key, tt.ch, ev, action, tt.want, tt.action)
		}
	}
}

func TestTermView_PostTracksState(t *testing.T) {
	now := time.Unix(100, 0)
	v := newTermView(newSimScreen(t, 40, 10), NewDocument(""), nil, true)
	v.now = func() time.Time { return now }

	v.Post(UpdateMessage{Buffer: []string{"a", "\n"}})
	if len(v.recent) != 2 || v.recent[1] != "\n" {
		t.Fatalf("recent = %q", v.recent)
	}

	v.Post(ShakeMessage{Intensity: 0.5})
	if got := v.shakeOffset(); got != 1 {
		t.Fatalf("shake offset = %d, want 1", got)
	}
	v.frame++
	if got := v.shakeOffset(); got != -1 {
		t.Fatalf("shake offset on odd frame = %d, want -1", got)
	}
	now = now.Add(termShakeDuration)
	if got := v.shakeOffset(); got != 0 {
		t.Fatalf("shake offset after duration = %d, want 0", got)
	}

	v.Post(ToggleSoundMessage{Enabled: false})
	if v.soundOn || v.note != "sound off" {
		t.Fatalf("soundOn=%v note=%q", v.soundOn, v.note)
	}

	// Without a local player sounds are ignored.
	v.Post(PlaySoundMessage{SoundType: SoundNormal, Pitch: 1})
}

func TestTermView_DrawsTextAndOverlays(t *testing.T) {
	screen := newSimScreen(t, 40, 10)
	doc := NewDocument("l1\nl2\nl3\nl4\nl5\nhello")
	v := newTermView(screen, doc, nil, true)
	v.now = func() time.Time { return time.Unix(0, 0) }

	if _, err := doc.Decorate(Range{Start: Position{Line: 5}, End: Position{Line: 5, Char: 1}},
		TextGlyph("a", Color{R: 255}, defaultGlyphSize, 0, DirectionLeft)); err != nil {
		t.Fatalf("Decorate: %v", err)
	}
	if _, err := doc.DecorateGutter(1, GutterArrow()); err != nil {
		t.Fatalf("DecorateGutter: %v", err)
	}
	v.Post(UpdateMessage{Buffer: []string{"q", "\t"}})

	v.draw()

	if row := screenRow(screen, 5, 12); !strings.HasPrefix(row, "   6 hello") {
		t.Fatalf("row 5 = %q", row)
	}
	if row := screenRow(screen, 1, 8); !strings.HasPrefix(row, ">>>") {
		t.Fatalf("gutter row = %q", row)
	}
	// The glyph floats three cells above its anchor, one cell to the left.
	if r, _, _, _ := screen.GetContent(termGutterWidth-1, 2); r != 'a' {
		t.Fatalf("glyph cell = %q, want 'a'", r)
	}

	status := screenRow(screen, 9, 40)
	for _, want := range []string{"[scratch]", "sound:on", "q→"} {
		if !strings.Contains(status, want) {
			t.Fatalf("status %q missing %q", status, want)
		}
	}
}

func TestRunEditorLoop_TypesAndQuits(t *testing.T) {
	screen := newSimScreen(t, 40, 10)
	doc := NewDocument("")
	view := newTermView(screen, doc, nil, true)

	cfg := DefaultConfig()
	var persisted []bool
	persist := func(on bool) error {
		persisted = append(persisted, on)
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- runEditorLoop(context.Background(), screen, view, cfg, persist, discardLogger())
	}()

	screen.InjectKey(tcell.KeyRune, 'h', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'i', tcell.ModNone)
	screen.InjectKey(tcell.KeyCtrlT, 0, tcell.ModCtrl)

	waitUntil(t, 2*time.Second, func() bool {
		return strings.HasPrefix(screenRow(screen, 0, 8), "   1 hi")
	}, "typed text never reached the screen")
	waitUntil(t, 2*time.Second, func() bool {
		return strings.Contains(screenRow(screen, 9, 40), "sound:off")
	}, "sound toggle never reached the status line")

	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runEditorLoop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("editor did not quit on escape")
	}

	if doc.Text() != "hi" {
		t.Fatalf("text = %q", doc.Text())
	}
	if len(doc.Overlays()) != 0 {
		t.Fatalf("overlays left after quit = %d", len(doc.Overlays()))
	}
	if len(persisted) != 1 || persisted[0] {
		t.Fatalf("persisted = %v", persisted)
	}
}

func TestPrintableRecent(t *testing.T) {
	tests := map[string]string{"\n": "⏎", "\t": "→", "a\nb": "a⏎b", "x": "x"}
	for in, want := range tests {
		if got := printableRecent(in); got != want {
			t.Errorf("printableRecent(%q) = %q, want %q", in, got, want)
		}
	}
}
