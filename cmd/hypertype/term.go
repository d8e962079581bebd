package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sync/errgroup"
)

// ============================================================================
// Terminal editor host
// ============================================================================
//
// `hypertype edit` is a small full-screen editor on tcell. The Document is the
// Editor, the daemon loop owns it, and termView is both the redraw hook and the
// display Surface, so every field of termView is touched only from the daemon
// goroutine.
//
// Visual descriptors are in pixels; the terminal maps them onto an 8x16 cell
// grid.
//
// ============================================================================

const (
	termRedrawInterval = 16 * time.Millisecond
	termGutterWidth    = 5
	termShakeDuration  = 120 * time.Millisecond
	termNoteDuration   = 2 * time.Second
)

var termBackground = mustParseColor("#1e1e2e")

// keyAction is what a key does besides (or instead of) producing an event.
type keyAction int

const (
	keyNone keyAction = iota
	keySave
	keyQuit
)

// translateKey maps a terminal key to an engine event.
func translateKey(ev *tcell.EventKey) (Event, keyAction) {
	switch ev.Key() {
	case tcell.KeyRune:
		return KeyTyped{Text: string(ev.Rune())}, keyNone
	case tcell.KeyEnter:
		return KeyTyped{Text: "\n"}, keyNone
	case tcell.KeyTab:
		return KeyTab{}, keyNone
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return KeyDeleteLeft{}, keyNone
	case tcell.KeyDelete:
		return KeyDeleteRight{}, keyNone
	case tcell.KeyUp:
		return CursorMove{Lines: -1}, keyNone
	case tcell.KeyDown:
		return CursorMove{Lines: 1}, keyNone
	case tcell.KeyLeft:
		return CursorMove{Chars: -1}, keyNone
	case tcell.KeyRight:
		return CursorMove{Chars: 1}, keyNone
	case tcell.KeyHome:
		return CursorMove{Edge: "home"}, keyNone
	case tcell.KeyEnd:
		return CursorMove{Edge: "end"}, keyNone
	case tcell.KeyCtrlT:
		return ToggleSound{}, keyNone
	case tcell.KeyCtrlS:
		return nil, keySave
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return nil, keyQuit
	}
	return nil, keyNone
}

// termView draws the document with its overlays and consumes display messages.
type termView struct {
	screen tcell.Screen
	doc    *Document
	sound  *SoundPlayer // nil when local sound is off

	top int // first visible line

	recent  []string
	soundOn bool

	shakeAmp   int
	shakeUntil time.Time
	frame      int

	note      string
	noteUntil time.Time

	now func() time.Time
}

func newTermView(screen tcell.Screen, doc *Document, sound *SoundPlayer, soundOn bool) *termView {
	return &termView{
		screen:  screen,
		doc:     doc,
		sound:   sound,
		soundOn: soundOn,
		now:     time.Now,
	}
}

// Post implements Surface.
func (v *termView) Post(m Message) {
	switch m := m.(type) {
	case UpdateMessage:
		v.recent = append(v.recent[:0], m.Buffer...)
	case ShakeMessage:
		v.shakeAmp = max(1, int(math.Round(m.Intensity*2)))
		v.shakeUntil = v.now().Add(termShakeDuration)
	case PlaySoundMessage:
		if v.sound != nil {
			v.sound.Post(m)
		}
	case ToggleSoundMessage:
		v.soundOn = m.Enabled
		if v.sound != nil {
			v.sound.Post(m)
		}
		v.setNote(fmt.Sprintf("sound %s", onOff(m.Enabled)))
	}
}

func (v *termView) setNote(s string) {
	v.note = s
	v.noteUntil = v.now().Add(termNoteDuration)
}

// shakeOffset is the horizontal jitter for the current frame.
func (v *termView) shakeOffset() int {
	if v.shakeAmp == 0 || !v.now().Before(v.shakeUntil) {
		v.shakeAmp = 0
		return 0
	}
	if v.frame%2 == 0 {
		return v.shakeAmp
	}
	return -v.shakeAmp
}

func (v *termView) draw() {
	v.frame++
	w, h := v.screen.Size()
	if w <= 0 || h <= 1 {
		return
	}
	bg := tcell.StyleDefault.Background(tcellColor(termBackground)).Foreground(tcell.ColorWhite)
	v.screen.Clear()
	v.screen.Fill(' ', bg)

	rows := h - 1
	cur := v.doc.Cursor()
	if cur.Line < v.top {
		v.top = cur.Line
	}
	if cur.Line >= v.top+rows {
		v.top = cur.Line - rows + 1
	}

	dx := v.shakeOffset()
	lineNo := bg.Foreground(tcell.ColorGray)
	for row := 0; row < rows; row++ {
		line := v.top + row
		if line >= v.doc.LineCount() {
			break
		}
		drawString(v.screen, 0, row, fmt.Sprintf("%*d ", termGutterWidth-1, line+1), lineNo)
		drawString(v.screen, termGutterWidth+dx, row, expandTabs(v.doc.Line(line)), bg)
	}

	for _, o := range v.doc.Overlays() {
		v.drawOverlay(o, dx, bg)
	}

	v.drawStatus(w, h-1, bg)

	cx, cy := v.cellOf(cur)
	v.screen.ShowCursor(cx+dx, cy)
	v.screen.Show()
}

// cellOf maps a document position to screen coordinates.
func (v *termView) cellOf(p Position) (int, int) {
	line := v.doc.Line(p.Line)
	prefix := []rune(line)
	if p.Char < len(prefix) {
		prefix = prefix[:p.Char]
	}
	return termGutterWidth + len([]rune(expandTabs(string(prefix)))), p.Line - v.top
}

func (v *termView) drawOverlay(o Overlay, dx int, bg tcell.Style) {
	x, y := v.cellOf(o.Range.Start)
	x += dx
	endX, _ := v.cellOf(o.Range.End)
	endX += dx
	if !o.Range.SingleLine() || endX <= x {
		endX = x + 1
	}

	switch vis := o.Visual.(type) {
	case GlyphVisual:
		gx := x + int(math.Round(vis.DX/cellWidthPx))
		gy := y + int(math.Round(vis.DY/cellHeightPx))
		fg := Interpolate(termBackground, vis.Color, vis.Opacity)
		st := bg.Foreground(tcellColor(fg)).Bold(true)
		for i, r := range []rune(vis.Text) {
			v.setCell(gx+i, gy, r, st)
		}

	case CornerBoxVisual:
		if vis.Opacity <= 0 {
			return
		}
		padX := int(math.Round(-vis.OriginX / cellWidthPx))
		padY := int(math.Round(-vis.OriginY / cellHeightPx))
		st := bg.Foreground(tcellColor(Interpolate(termBackground, vis.Color, vis.Opacity)))
		left, right := x-1-padX, endX+padX
		topY, botY := y-1-padY, y+1+padY
		v.setCell(left, topY, '┌', st)
		v.setCell(right, topY, '┐', st)
		v.setCell(left, botY, '└', st)
		v.setCell(right, botY, '┘', st)

	case PulseVisual:
		fill := Interpolate(termBackground, vis.BorderColor, vis.BackgroundAlpha+vis.BorderAlpha*0.25)
		for cx := x; cx < endX; cx++ {
			r, _, st, _ := v.screen.GetContent(cx, y)
			v.setCell(cx, y, r, st.Background(tcellColor(fill)))
		}

	case GutterArrowVisual:
		st := bg.Foreground(tcellColor(vis.Color)).Bold(true)
		for i, r := range []rune(vis.Text) {
			v.setCell(i, y, r, st)
		}
	}
}

// drawStatus renders the mode line: file, dirty flag, sound state and the recent
// buffer fading from oldest to newest.
func (v *termView) drawStatus(w, y int, bg tcell.Style) {
	st := bg.Background(tcell.ColorBlack)
	for x := 0; x < w; x++ {
		v.screen.SetContent(x, y, ' ', nil, st)
	}

	name := "[scratch]"
	if p := v.doc.Path(); p != "" {
		name = filepath.Base(p)
	}
	if v.doc.Dirty() {
		name += " [+]"
	}
	head := fmt.Sprintf(" %s  sound:%s ", name, onOff(v.soundOn))
	if v.note != "" && v.now().Before(v.noteUntil) {
		head += "(" + v.note + ") "
	}
	x := drawString(v.screen, 0, y, head, st.Foreground(tcell.ColorWhite))

	n := len(v.recent)
	for i, s := range v.recent {
		progress := 1.0
		if n > 1 {
			progress = float64(i) / float64(n-1)
		}
		fg := tcellColor(TransitionColor(progress))
		x = drawString(v.screen, x, y, printableRecent(s), st.Foreground(fg))
		if x >= w {
			break
		}
	}
}

func (v *termView) setCell(x, y int, r rune, st tcell.Style) {
	w, h := v.screen.Size()
	if x < 0 || y < 0 || x >= w || y >= h-1 {
		return
	}
	v.screen.SetContent(x, y, r, nil, st)
}

// drawString writes s from (x, y) and returns the column after it.
func drawString(s tcell.Screen, x, y int, text string, st tcell.Style) int {
	for _, r := range text {
		s.SetContent(x, y, r, nil, st)
		x++
	}
	return x
}

func tcellColor(c Color) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}

func printableRecent(s string) string {
	switch s {
	case "\n":
		return "⏎"
	case "\t":
		return "→"
	}
	return strings.NewReplacer("\n", "⏎", "\t", "→").Replace(s)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// runEditor opens path in the terminal editor and blocks until the user quits or
// ctx is canceled.
func runEditor(ctx context.Context, path string, cfg Config, persist func(bool) error, logger *slog.Logger) error {
	doc, err := LoadDocument(path)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()

	var sound *SoundPlayer
	if cfg.Sound.Local {
		sound = NewSoundPlayer(cfg.Sound.Enabled, logger)
	}
	view := newTermView(screen, doc, sound, cfg.Sound.Enabled)
	return runEditorLoop(ctx, screen, view, cfg, persist, logger)
}

// runEditorLoop wires the view into a daemon loop. Split out so tests can drive it
// with a simulation screen.
func runEditorLoop(ctx context.Context, screen tcell.Screen, view *termView, cfg Config, persist func(bool) error, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan Event, defaultEventsBuf)
	calls := make(chan func(), defaultCallsBuf)

	display := NewDisplayChannel(view, cfg.Display.MaxPending, logger)
	engine := NewEngine(documentHost{doc: view.doc}, newLoopScheduler(ctx, calls), display, EngineConfig{
		GlyphSize:      cfg.Effects.GlyphSize,
		PitchQuiet:     cfg.PitchQuiet(),
		RecentCapacity: cfg.Effects.RecentCapacity,
		SoundEnabled:   cfg.Sound.Enabled,
		PersistSound:   persist,
	}, logger)

	// The terminal is its own display surface and is ready immediately.
	events <- SurfaceReady{Client: "terminal"}

	go pollTerminal(ctx, screen, events, calls, view, cancel, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		runDaemon(gctx, events, calls, engine, daemonHooks{
			Redraw:         view.draw,
			RedrawInterval: termRedrawInterval,
		}, logger)
		return nil
	})
	return g.Wait()
}

// pollTerminal forwards terminal input until the screen is finalized or ctx ends.
func pollTerminal(
	ctx context.Context,
	screen tcell.Screen,
	events chan<- Event,
	calls chan<- func(),
	view *termView,
	quit context.CancelFunc,
	logger *slog.Logger,
) {
	post := func(fn func()) {
		select {
		case calls <- fn:
		case <-ctx.Done():
		}
	}

	for {
		raw := screen.PollEvent()
		if raw == nil {
			return
		}
		switch ev := raw.(type) {
		case *tcell.EventResize:
			post(func() { screen.Sync() })

		case *tcell.EventKey:
			e, action := translateKey(ev)
			switch action {
			case keyQuit:
				logger.Info("editor quit requested")
				quit()
				return
			case keySave:
				post(func() {
					if err := view.doc.Save(); err != nil {
						logger.Warn("save failed", "path", view.doc.Path(), "error", err)
						view.setNote("save failed")
						return
					}
					logger.Info("document saved", "path", view.doc.Path())
					view.setNote("saved")
				})
			}
			if e == nil {
				continue
			}
			select {
			case events <- e:
			case <-ctx.Done():
				return
			}
		}
	}
}
