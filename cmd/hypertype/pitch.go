package main

import "time"

// PitchEstimator turns typing velocity into a sound pitch.
//
// Every keystroke raises the level by one. A single debounce timer, restarted on
// every keystroke, drops the level back to zero after a quiet interval. Pitch values
// already handed out are never revised.
//
// This is intended to be used only by the daemon goroutine (single-owner).
type PitchEstimator struct {
	sched Scheduler
	quiet time.Duration

	level int
	reset Timer
}

func NewPitchEstimator(sched Scheduler, quiet time.Duration) *PitchEstimator {
	if quiet <= 0 {
		quiet = defaultPitchQuiet
	}
	return &PitchEstimator{sched: sched, quiet: quiet}
}

// RegisterKeystroke bumps the level, restarts the debounce and returns the pitch for
// this keystroke. Call it exactly once per physical keystroke.
func (p *PitchEstimator) RegisterKeystroke() float64 {
	p.level++
	if p.reset != nil {
		p.reset.Stop()
	}
	p.reset = p.sched.AfterFunc(p.quiet, func() {
		p.level = 0
		p.reset = nil
	})
	return PitchForLevel(p.level)
}

// Level is the current keystroke streak.
func (p *PitchEstimator) Level() int { return p.level }

// Pitch is the pitch implied by the current level without registering a keystroke.
func (p *PitchEstimator) Pitch() float64 { return PitchForLevel(p.level) }

// Stop cancels the pending reset and zeroes the level.
func (p *PitchEstimator) Stop() {
	if p.reset != nil {
		p.reset.Stop()
		p.reset = nil
	}
	p.level = 0
}

// PitchForLevel maps a keystroke streak to a playback rate in [pitchMin, pitchMax].
func PitchForLevel(level int) float64 {
	return clampFloat(1.0+float64(level)*pitchPerLevel, pitchMin, pitchMax)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
