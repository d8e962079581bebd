package main

import (
	"math"
	"testing"
	"time"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPitchEstimator_RisesWithStreak(t *testing.T) {
	clock := newVirtualScheduler(time.Unix(0, 0))
	p := NewPitchEstimator(clock, 300*time.Millisecond)

	want := []float64{1.01, 1.02, 1.03, 1.04}
	for i, w := range want {
		got := p.RegisterKeystroke()
		if !approxEqual(got, w) {
			t.Fatalf("keystroke %d: pitch = %v, want %v", i+1, got, w)
		}
		clock.Advance(100 * time.Millisecond)
	}
	if p.Level() != 4 {
		t.Fatalf("level = %d, want 4", p.Level())
	}
}

func TestPitchEstimator_ResetsAfterQuiet(t *testing.T) {
	clock := newVirtualScheduler(time.Unix(0, 0))
	p := NewPitchEstimator(clock, 300*time.Millisecond)

	p.RegisterKeystroke()
	p.RegisterKeystroke()

	clock.Advance(299 * time.Millisecond)
	if p.Level() != 2 {
		t.Fatalf("level reset early: %d", p.Level())
	}

	clock.Advance(1 * time.Millisecond)
	if p.Level() != 0 {
		t.Fatalf("level = %d after quiet interval, want 0", p.Level())
	}
	if !approxEqual(p.Pitch(), 1.0) {
		t.Fatalf("pitch after reset = %v, want 1.0", p.Pitch())
	}
	if got := p.RegisterKeystroke(); !approxEqual(got, 1.01) {
		t.Fatalf("first keystroke after reset = %v, want 1.01", got)
	}
}

func TestPitchEstimator_DebounceRestartsOnEveryKeystroke(t *testing.T) {
	clock := newVirtualScheduler(time.Unix(0, 0))
	p := NewPitchEstimator(clock, 300*time.Millisecond)

	// Keystrokes 200ms apart never let the quiet interval elapse.
	for i := 0; i < 10; i++ {
		p.RegisterKeystroke()
		clock.Advance(200 * time.Millisecond)
	}
	if p.Level() != 10 {
		t.Fatalf("level = %d, want 10", p.Level())
	}
	if clock.Pending() != 1 {
		t.Fatalf("pending timers = %d, want exactly one debounce", clock.Pending())
	}
}

func TestPitchForLevel_Clamped(t *testing.T) {
	tests := []struct {
		level int
		want  float64
	}{
		{0, 1.0},
		{10, 1.10},
		{30, 1.30},
		{31, 1.30},
		{1000, 1.30},
		{-10, 0.95},
	}
	for _, tt := range tests {
		if got := PitchForLevel(tt.level); !approxEqual(got, tt.want) {
			t.Errorf("PitchForLevel(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestPitchEstimator_StopCancelsReset(t *testing.T) {
	clock := newVirtualScheduler(time.Unix(0, 0))
	p := NewPitchEstimator(clock, 300*time.Millisecond)

	p.RegisterKeystroke()
	p.Stop()
	if clock.Pending() != 0 {
		t.Fatalf("pending timers after Stop = %d, want 0", clock.Pending())
	}
	if p.Level() != 0 {
		t.Fatalf("level after Stop = %d, want 0", p.Level())
	}
}
