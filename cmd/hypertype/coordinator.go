package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// ============================================================================
// Engine: per-keystroke orchestration
// ============================================================================
//
// The Engine is the single owner of every piece of animation state: the color
// cursor, the pitch level, the recent buffer, the display queue and the set of
// live animations. All entry points run on the daemon goroutine, one keystroke
// at a time, so none of this state is locked.
//
// Insert paths mutate the document first and only then start animations. Delete
// paths capture the range before mutating so the glyph is anchored to text that
// still exists.
//
// ============================================================================

// EngineConfig carries the knobs the engine reads at construction.
type EngineConfig struct {
	GlyphSize      int
	PitchQuiet     time.Duration
	RecentCapacity int
	SoundEnabled   bool

	// Rand seeds the special palette picker. Nil picks a random seed.
	Rand *rand.Rand

	// PersistSound stores the new sound setting after a toggle. Optional.
	PersistSound func(enabled bool) error
}

type Engine struct {
	host    Host
	sched   Scheduler
	display *DisplayChannel
	logger  *slog.Logger

	colors *ColorAllocator
	pitch  *PitchEstimator
	recent *RecentBuffer
	anims  *animationSet

	glyphSize    int
	soundEnabled bool
	persistSound func(bool) error
	closed       bool
}

func NewEngine(host Host, sched Scheduler, display *DisplayChannel, cfg EngineConfig, logger *slog.Logger) *Engine {
	size := cfg.GlyphSize
	if size <= 0 {
		size = defaultGlyphSize
	}
	return &Engine{
		host:         host,
		sched:        sched,
		display:      display,
		logger:       logger,
		colors:       NewColorAllocator(cfg.Rand),
		pitch:        NewPitchEstimator(sched, cfg.PitchQuiet),
		recent:       NewRecentBuffer(cfg.RecentCapacity),
		anims:        newAnimationSet(),
		glyphSize:    size,
		soundEnabled: cfg.SoundEnabled,
		persistSound: cfg.PersistSound,
	}
}

// Dispatch routes an event to its entry point.
func (e *Engine) Dispatch(ev Event) error {
	switch ev := ev.(type) {
	case KeyTyped:
		return e.HandleInsert(ev.Text)
	case KeyTab:
		return e.HandleTab()
	case KeyDeleteLeft:
		return e.HandleDeleteLeft()
	case KeyDeleteRight:
		return e.HandleDeleteRight()
	case CursorMove:
		return e.moveCursor(ev)
	case ToggleSound:
		return e.ToggleSound()
	case SurfaceReady:
		e.SurfaceReady(ev.Client)
		return nil
	default:
		return fmt.Errorf("unhandled event type: %T", ev)
	}
}

// HandleInsert types text through the host and animates the result.
func (e *Engine) HandleInsert(text string) error {
	ed := e.editor()
	if ed == nil || text == "" {
		return nil
	}
	if err := ed.Insert(text); err != nil {
		return fmt.Errorf("insert %q: %w", text, err)
	}

	cursor := ed.Cursor()
	r := insertedRange(ed, cursor, text)
	token := ClassifyText(text)
	pitch := e.pitch.RegisterKeystroke()
	color := e.colors.ColorFor(token)

	e.startGlyph(ed, r, token, color, DirectionFor(token))
	if token.HasCornerBox() {
		e.startCornerBox(ed, r, CornerColor(token))
	}
	e.startPulse(ed, r)
	if token == TokenEnter {
		e.startGutterArrow(ed, cursor.Line)
	}

	e.display.Notify(ShakeMessage{Intensity: shakeFor(token)})
	e.display.Notify(PlaySoundMessage{SoundType: soundFor(token), Pitch: pitch})
	e.pushRecent(text)

	e.logger.Debug("keystroke", "token", string(token), "range", r.String(), "color", color.Hex(), "pitch", pitch)
	return nil
}

// HandleTab inserts a literal tab: glyph only, no corner box or pulse.
func (e *Engine) HandleTab() error {
	ed := e.editor()
	if ed == nil {
		return nil
	}
	if err := ed.Insert("\t"); err != nil {
		return fmt.Errorf("insert tab: %w", err)
	}

	cursor := ed.Cursor()
	r := insertedRange(ed, cursor, "\t")
	pitch := e.pitch.RegisterKeystroke()
	color := e.colors.ColorFor(TokenTab)

	e.startGlyph(ed, r, TokenTab, color, DirectionMiddle)

	e.display.Notify(ShakeMessage{Intensity: shakeEnter})
	e.display.Notify(PlaySoundMessage{SoundType: SoundNormal, Pitch: pitch})
	e.pushRecent("\t")

	e.logger.Debug("keystroke", "token", string(TokenTab), "range", r.String(), "color", color.Hex(), "pitch", pitch)
	return nil
}

// HandleDeleteLeft is backspace. Deletions never play a sound.
func (e *Engine) HandleDeleteLeft() error {
	ed := e.editor()
	if ed == nil {
		return nil
	}

	cursor := ed.Cursor()
	var rm Range
	switch sel := ed.Selection(); {
	case !sel.Empty():
		rm = sel
	case cursor.Char > 0:
		rm = Range{Start: Position{Line: cursor.Line, Char: cursor.Char - 1}, End: cursor}
	case cursor.Line > 0:
		// Join with the previous line.
		prevEnd := Position{Line: cursor.Line - 1, Char: ed.LineLength(cursor.Line - 1)}
		rm = Range{Start: prevEnd, End: cursor}
	default:
		rm = Range{Start: cursor, End: cursor}
	}

	return e.deleteRange(ed, rm, TokenBackspace)
}

// HandleDeleteRight is forward delete; it also expands a corner box.
func (e *Engine) HandleDeleteRight() error {
	ed := e.editor()
	if ed == nil {
		return nil
	}

	cursor := ed.Cursor()
	var rm Range
	switch sel := ed.Selection(); {
	case !sel.Empty():
		rm = sel
	case cursor.Char < ed.LineLength(cursor.Line):
		rm = Range{Start: cursor, End: Position{Line: cursor.Line, Char: cursor.Char + 1}}
	case cursor.Line < ed.LineCount()-1:
		rm = Range{Start: cursor, End: Position{Line: cursor.Line + 1}}
	default:
		rm = Range{Start: cursor, End: cursor}
	}

	return e.deleteRange(ed, rm, TokenDelete)
}

func (e *Engine) deleteRange(ed Editor, rm Range, token Token) error {
	if !rm.Empty() {
		anchor := rm
		if !rm.SingleLine() {
			anchor = Range{Start: rm.Start, End: rm.Start}
		}
		color := e.colors.ColorFor(token)
		e.startGlyph(ed, anchor, token, color, DirectionFor(token))
		if token == TokenDelete {
			e.startCornerBox(ed, anchor, cornerColorSpecial)
		}

		if err := ed.Delete(rm); err != nil {
			// Animations already started run out on their own.
			return fmt.Errorf("delete %s: %w", rm, err)
		}
	}

	e.recent.Pop()
	e.display.Update(e.recent.Snapshot())
	e.display.Notify(ShakeMessage{Intensity: shakeDelete})

	e.logger.Debug("keystroke", "token", string(token), "range", rm.String())
	return nil
}

// ToggleSound flips the sound setting, persists it and tells the surface.
func (e *Engine) ToggleSound() error {
	e.soundEnabled = !e.soundEnabled
	e.display.Notify(ToggleSoundMessage{Enabled: e.soundEnabled})
	e.logger.Info("sound toggled", "enabled", e.soundEnabled)

	if e.persistSound != nil {
		if err := e.persistSound(e.soundEnabled); err != nil {
			return fmt.Errorf("persist sound setting: %w", err)
		}
	}
	return nil
}

// SurfaceReady opens the display gate, then catches the surface up with the sound
// setting and the recent buffer.
func (e *Engine) SurfaceReady(client string) {
	if e.display.MarkReady() {
		e.logger.Info("display surface ready", "client", client)
	} else {
		e.logger.Debug("display surface ready (already open)", "client", client)
	}
	e.display.Notify(ToggleSoundMessage{Enabled: e.soundEnabled})
	e.display.Update(e.recent.Snapshot())
}

// Shutdown force-disposes every live animation and cancels the pitch reset.
func (e *Engine) Shutdown() {
	if e.closed {
		return
	}
	e.closed = true
	n := e.anims.killAll()
	e.pitch.Stop()
	e.logger.Debug("engine shut down", "animations_disposed", n)
}

// EngineStatus is a point-in-time view of the engine for IPC clients.
type EngineStatus struct {
	SoundEnabled   bool     `json:"sound_enabled"`
	Pitch          float64  `json:"pitch"`
	PitchLevel     int      `json:"pitch_level"`
	Animations     int      `json:"animations"`
	SurfaceReady   bool     `json:"surface_ready"`
	QueuedMessages int      `json:"queued_messages"`
	Recent         []string `json:"recent"`
	Cursor         Position `json:"cursor"`
	Lines          int      `json:"lines"`
}

func (e *Engine) Status() EngineStatus {
	st := EngineStatus{
		SoundEnabled:   e.soundEnabled,
		Pitch:          e.pitch.Pitch(),
		PitchLevel:     e.pitch.Level(),
		Animations:     e.anims.Len(),
		SurfaceReady:   e.display.Ready(),
		QueuedMessages: e.display.Pending(),
		Recent:         e.recent.Snapshot(),
	}
	if ed := e.editor(); ed != nil {
		st.Cursor = ed.Cursor()
		st.Lines = ed.LineCount()
	}
	return st
}

func (e *Engine) SoundEnabled() bool    { return e.soundEnabled }
func (e *Engine) ActiveAnimations() int { return e.anims.Len() }
func (e *Engine) Recent() []string      { return e.recent.Snapshot() }
func (e *Engine) Pitch() float64        { return e.pitch.Pitch() }

func (e *Engine) editor() Editor {
	if e.closed || e.host == nil {
		return nil
	}
	return e.host.ActiveEditor()
}

func (e *Engine) moveCursor(ev CursorMove) error {
	ed := e.editor()
	if ed == nil {
		return nil
	}
	nav, ok := ed.(Navigator)
	if !ok {
		return nil
	}
	nav.MoveCursor(ev.Lines, ev.Chars)
	switch ev.Edge {
	case "":
	case "home":
		nav.MoveLineEdge(false)
	case "end":
		nav.MoveLineEdge(true)
	default:
		return fmt.Errorf("unknown cursor edge %q", ev.Edge)
	}
	return nil
}

func (e *Engine) pushRecent(text string) {
	e.recent.Push(text)
	e.display.Update(e.recent.Snapshot())
}

// insertedRange locates text that was just typed, given the cursor after insertion.
// A newline anchors to the end of the line it ended; a tab covers the tab itself.
func insertedRange(ed Editor, cursor Position, text string) Range {
	switch text {
	case "\n":
		if cursor.Line > 0 {
			end := Position{Line: cursor.Line - 1, Char: ed.LineLength(cursor.Line - 1)}
			return Range{Start: end, End: end}
		}
		return Range{Start: cursor, End: cursor}
	case "\t":
		return Range{Start: Position{Line: cursor.Line, Char: max(0, cursor.Char-1)}, End: cursor}
	}

	// Only the part after the last newline sits on the cursor's line.
	last := []rune(text)
	for i := len(last) - 1; i >= 0; i-- {
		if last[i] == '\n' {
			last = last[i+1:]
			break
		}
	}
	return Range{Start: Position{Line: cursor.Line, Char: max(0, cursor.Char-len(last))}, End: cursor}
}

// ---- animation wiring ----

func (e *Engine) startGlyph(ed Editor, r Range, token Token, c Color, dir Direction) {
	size := e.glyphSize
	e.start(glyphAnimation, rangeDecorator(ed, r), func(offset float64) Visual {
		return TextGlyph(token, c, size, offset, dir)
	})
}

func (e *Engine) startCornerBox(ed Editor, r Range, c Color) {
	e.start(cornerAnimation, rangeDecorator(ed, r), func(expansion float64) Visual {
		return CornerBox(c, expansion)
	})
}

func (e *Engine) startPulse(ed Editor, r Range) {
	e.start(pulseAnimation, rangeDecorator(ed, r), func(phase float64) Visual {
		return PulseBorder(int(phase))
	})
}

func (e *Engine) startGutterArrow(ed Editor, line int) {
	e.start(gutterAnimation, func(v Visual) (Handle, error) {
		return ed.DecorateGutter(line, v)
	}, func(float64) Visual {
		return GutterArrow()
	})
}

func (e *Engine) start(spec AnimationSpec, decorate decorateFunc, frame frameFunc) *Animation {
	a := newAnimation(spec, e.sched, decorate, frame, e.logger)
	e.anims.add(a)
	a.Start()
	return a
}

func rangeDecorator(ed Editor, r Range) decorateFunc {
	return func(v Visual) (Handle, error) {
		return ed.Decorate(r, v)
	}
}
