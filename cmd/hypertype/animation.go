package main

import (
	"log/slog"
	"time"
)

// ============================================================================
// Animation instances
// ============================================================================
//
// Each keystroke effect is an Animation driven by one small state machine:
//
//	Idle -> Delayed -> Running -> Lingering -> Disposed
//
// Start renders frame zero right away. Every later timer firing goes through
// advance(), which disposes the visible handle, moves progress forward, renders
// the next frame, and checks the terminal threshold. An instance owns at most one
// visible handle at any time and only ever disposes its own handles.
//
// ============================================================================

type animState int

const (
	animIdle animState = iota
	animDelayed
	animRunning
	animLingering
	animDisposed
)

func (s animState) String() string {
	switch s {
	case animIdle:
		return "idle"
	case animDelayed:
		return "delayed"
	case animRunning:
		return "running"
	case animLingering:
		return "lingering"
	case animDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// AnimationSpec is the timing of one effect kind.
type AnimationSpec struct {
	Name         string
	StartDelay   time.Duration // frame zero stays up this long before ticking
	TickInterval time.Duration
	Step         float64 // progress added per tick
	Terminal     float64 // ticking stops once progress reaches this
	Linger       time.Duration
}

// Lifetime is the longest an instance of this spec can hold a visible handle.
func (s AnimationSpec) Lifetime() time.Duration {
	ticks := 0
	if s.Step > 0 {
		for p := 0.0; p < s.Terminal; p += s.Step {
			ticks++
		}
	}
	return s.StartDelay + time.Duration(ticks)*s.TickInterval + s.Linger
}

var (
	glyphAnimation = AnimationSpec{
		Name:         "glyph",
		StartDelay:   glyphStartDelay,
		TickInterval: glyphTickInterval,
		Step:         glyphStep,
		Terminal:     glyphMaxOffset,
		Linger:       glyphLinger,
	}
	cornerAnimation = AnimationSpec{
		Name:         "corner_box",
		TickInterval: cornerTickInterval,
		Step:         cornerStep,
		Terminal:     cornerMaxExpansion,
		Linger:       cornerLinger,
	}
	// Three frames, each held for one interval.
	pulseAnimation = AnimationSpec{
		Name:         "pulse",
		TickInterval: pulseFrameInterval,
		Step:         1,
		Terminal:     pulseFrames - 1,
		Linger:       pulseFrameInterval,
	}
	gutterAnimation = AnimationSpec{
		Name:   "gutter_arrow",
		Linger: gutterArrowLifetime,
	}
)

// decorateFunc turns a descriptor into a live overlay.
type decorateFunc func(Visual) (Handle, error)

// frameFunc renders the descriptor for a progress value.
type frameFunc func(progress float64) Visual

// Animation is one running effect instance.
type Animation struct {
	spec     AnimationSpec
	sched    Scheduler
	decorate decorateFunc
	frame    frameFunc
	logger   *slog.Logger

	state    animState
	progress float64
	visible  Handle
	timer    Timer
	frames   int

	onDone func(*Animation)
}

func newAnimation(spec AnimationSpec, sched Scheduler, decorate decorateFunc, frame frameFunc, logger *slog.Logger) *Animation {
	return &Animation{
		spec:     spec,
		sched:    sched,
		decorate: decorate,
		frame:    frame,
		logger:   logger,
	}
}

// Start shows frame zero and arms the first timer. Calling Start twice is a no-op.
func (a *Animation) Start() {
	if a.state != animIdle {
		return
	}
	a.render()

	switch {
	case a.progress >= a.spec.Terminal:
		a.state = animLingering
		a.arm(a.spec.Linger)
	case a.spec.StartDelay > 0:
		a.state = animDelayed
		a.arm(a.spec.StartDelay)
	default:
		a.state = animRunning
		a.arm(a.spec.TickInterval)
	}
}

// advance is the single driver for every timer firing.
func (a *Animation) advance() {
	a.timer = nil

	switch a.state {
	case animDelayed:
		a.state = animRunning
		a.arm(a.spec.TickInterval)

	case animRunning:
		a.hide()
		a.progress += a.spec.Step
		a.render()
		if a.progress >= a.spec.Terminal {
			a.state = animLingering
			a.arm(a.spec.Linger)
			return
		}
		a.arm(a.spec.TickInterval)

	case animLingering:
		a.dispose()
	}
}

// Kill disposes the instance immediately. Safe to call at any point.
func (a *Animation) Kill() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.dispose()
}

func (a *Animation) State() animState  { return a.state }
func (a *Animation) Progress() float64 { return a.progress }
func (a *Animation) Visible() bool     { return a.visible != nil }
func (a *Animation) Frames() int       { return a.frames }

func (a *Animation) arm(d time.Duration) {
	a.timer = a.sched.AfterFunc(d, a.advance)
}

func (a *Animation) render() {
	h, err := a.decorate(a.frame(a.progress))
	a.frames++
	if err != nil {
		// The anchor may have gone stale; keep the timeline and skip the frame.
		a.logger.Debug("animation frame not rendered", "animation", a.spec.Name, "progress", a.progress, "error", err)
		return
	}
	a.visible = h
}

func (a *Animation) hide() {
	if a.visible != nil {
		a.visible.Dispose()
		a.visible = nil
	}
}

func (a *Animation) dispose() {
	if a.state == animDisposed {
		return
	}
	a.hide()
	a.state = animDisposed
	if a.onDone != nil {
		a.onDone(a)
	}
}

// animationSet tracks every live instance so shutdown can tear them down.
type animationSet struct {
	live map[*Animation]struct{}
}

func newAnimationSet() *animationSet {
	return &animationSet{live: make(map[*Animation]struct{})}
}

func (s *animationSet) add(a *Animation) {
	s.live[a] = struct{}{}
	a.onDone = s.remove
}

func (s *animationSet) remove(a *Animation) {
	delete(s.live, a)
}

func (s *animationSet) Len() int { return len(s.live) }

func (s *animationSet) killAll() int {
	n := 0
	for a := range s.live {
		a.Kill()
		n++
	}
	return n
}
