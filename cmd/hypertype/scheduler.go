package main

import (
	"context"
	"time"
)

// Timer is a pending one-shot callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the call prevented the
	// callback from running.
	Stop() bool
}

// Scheduler is the engine's only source of time. Every callback it runs executes on
// the goroutine that owns the engine, so engine state needs no locks.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// loopScheduler arms real timers whose callbacks are posted back to the daemon loop
// through its calls channel.
type loopScheduler struct {
	ctx   context.Context
	calls chan<- func()
}

func newLoopScheduler(ctx context.Context, calls chan<- func()) *loopScheduler {
	return &loopScheduler{ctx: ctx, calls: calls}
}

func (s *loopScheduler) Now() time.Time { return time.Now() }

func (s *loopScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		// Runs on the timer goroutine; only hand the work over.
		select {
		case s.calls <- func() {
			if t.stopped {
				return
			}
			t.fired = true
			fn()
		}:
		case <-s.ctx.Done():
		}
	})
	return t
}

// loopTimer fields are only touched from the daemon goroutine.
type loopTimer struct {
	timer   *time.Timer
	stopped bool
	fired   bool
}

func (t *loopTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.timer.Stop()
	return true
}

// virtualScheduler is a manual clock. Callbacks run only from Advance or Drain,
// in deadline order (ties in arming order), on the caller's goroutine.
type virtualScheduler struct {
	now    time.Time
	seq    int
	timers []*virtualTimer
}

type virtualTimer struct {
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *virtualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func newVirtualScheduler(start time.Time) *virtualScheduler {
	return &virtualScheduler{now: start}
}

func (s *virtualScheduler) Now() time.Time { return s.now }

func (s *virtualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.seq++
	t := &virtualTimer{at: s.now.Add(d), seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every callback that comes due,
// including ones armed by callbacks along the way.
func (s *virtualScheduler) Advance(d time.Duration) {
	target := s.now.Add(d)
	for {
		t := s.next()
		if t == nil || t.at.After(target) {
			break
		}
		s.now = t.at
		t.fired = true
		t.fn()
	}
	s.now = target
}

// Drain fires callbacks until none are pending and returns the elapsed time.
func (s *virtualScheduler) Drain() time.Duration {
	start := s.now
	for t := s.next(); t != nil; t = s.next() {
		s.now = t.at
		t.fired = true
		t.fn()
	}
	return s.now.Sub(start)
}

// Pending is the number of armed, unfired timers.
func (s *virtualScheduler) Pending() int {
	s.compact()
	return len(s.timers)
}

func (s *virtualScheduler) next() *virtualTimer {
	s.compact()
	var best *virtualTimer
	for _, t := range s.timers {
		if best == nil || t.at.Before(best.at) || (t.at.Equal(best.at) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

func (s *virtualScheduler) compact() {
	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	clear(s.timers[len(live):])
	s.timers = live
}
