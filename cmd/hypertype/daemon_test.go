package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type daemonFixture struct {
	ctx     context.Context
	cancel  context.CancelFunc
	events  chan Event
	calls   chan func()
	doc     *Document
	surface *recordingSurface
	engine  *Engine
	done    chan struct{}
}

func startDaemon(t *testing.T, hooks daemonHooks) *daemonFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	f := &daemonFixture{
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan Event, defaultEventsBuf),
		calls:   make(chan func(), defaultCallsBuf),
		doc:     NewDocument(""),
		surface: &recordingSurface{},
		done:    make(chan struct{}),
	}
	display := NewDisplayChannel(f.surface, defaultMaxPending, discardLogger())
	f.engine = NewEngine(documentHost{doc: f.doc}, newLoopScheduler(ctx, f.calls), display, EngineConfig{}, discardLogger())

	go func() {
		defer close(f.done)
		runDaemon(ctx, f.events, f.calls, f.engine, hooks, discardLogger())
	}()
	t.Cleanup(func() {
		cancel()
		<-f.done
	})
	return f
}

// onLoop runs fn on the daemon goroutine and waits for it.
func (f *daemonFixture) onLoop(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	select {
	case f.calls <- func() { fn(); close(done) }:
	case <-time.After(time.Second):
		t.Fatalf("daemon loop not accepting calls")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("call did not run on the daemon loop")
	}
}

func TestRunDaemon_DispatchesEventsInOrder(t *testing.T) {
	f := startDaemon(t, daemonHooks{})

	for _, ev := range []Event{SurfaceReady{Client: "test"}, KeyTyped{Text: "h"}, KeyTyped{Text: "i"}, KeyTab{}, KeyDeleteLeft{}} {
		f.events <- ev
	}

	waitUntil(t, time.Second, func() bool {
		var text string
		f.onLoop(t, func() { text = f.doc.Text() })
		return text == "hi"
	}, "document never reached \"hi\"")

	var recent []string
	f.onLoop(t, func() { recent = f.engine.Recent() })
	if len(recent) != 2 || recent[0] != "h" || recent[1] != "i" {
		t.Fatalf("recent = %q", recent)
	}
}

func TestRunDaemon_AnimationsExpireOnRealTimers(t *testing.T) {
	f := startDaemon(t, daemonHooks{})
	f.events <- KeyTyped{Text: "x"}

	waitUntil(t, time.Second, func() bool {
		var n int
		f.onLoop(t, func() { n = f.engine.ActiveAnimations() })
		return n > 0
	}, "keystroke never started animations")

	waitUntil(t, 3*time.Second, func() bool {
		var n, overlays int
		f.onLoop(t, func() {
			n = f.engine.ActiveAnimations()
			overlays = len(f.doc.Overlays())
		})
		return n == 0 && overlays == 0
	}, "animations did not expire")
}

func TestRunDaemon_CancelShutsEngineDown(t *testing.T) {
	f := startDaemon(t, daemonHooks{})
	f.events <- KeyTyped{Text: "\n"}

	waitUntil(t, time.Second, func() bool {
		var n int
		f.onLoop(t, func() { n = f.engine.ActiveAnimations() })
		return n > 0
	}, "keystroke never started animations")

	f.cancel()
	select {
	case <-f.done:
	case <-time.After(time.Second):
		t.Fatalf("daemon did not stop after cancel")
	}

	// The loop has exited, so reading engine state here is race free.
	if n := f.engine.ActiveAnimations(); n != 0 {
		t.Fatalf("active animations after shutdown = %d", n)
	}
	if n := len(f.doc.Overlays()); n != 0 {
		t.Fatalf("overlays after shutdown = %d", n)
	}
}

func TestRunDaemon_StopsWhenEventsClose(t *testing.T) {
	f := startDaemon(t, daemonHooks{})
	close(f.events)

	select {
	case <-f.done:
	case <-time.After(time.Second):
		t.Fatalf("daemon did not stop after events closed")
	}
}

func TestRunDaemon_RedrawHook(t *testing.T) {
	var redraws atomic.Int64
	f := startDaemon(t, daemonHooks{
		Redraw:         func() { redraws.Add(1) },
		RedrawInterval: 10 * time.Millisecond,
	})

	waitUntil(t, time.Second, func() bool { return redraws.Load() >= 3 }, "ticker never redrew")

	before := redraws.Load()
	f.events <- KeyTyped{Text: "a"}
	waitUntil(t, time.Second, func() bool { return redraws.Load() > before }, "no redraw after event batch")
}

func TestLoopScheduler_StopPreventsCallback(t *testing.T) {
	f := startDaemon(t, daemonHooks{})
	sched := newLoopScheduler(f.ctx, f.calls)

	var fired atomic.Bool
	var stopped bool
	f.onLoop(t, func() {
		tm := sched.AfterFunc(20*time.Millisecond, func() { fired.Store(true) })
		stopped = tm.Stop()
	})
	if !stopped {
		t.Fatalf("Stop on a pending timer reported false")
	}

	var ran atomic.Bool
	f.onLoop(t, func() {
		sched.AfterFunc(5*time.Millisecond, func() { ran.Store(true) })
	})
	waitUntil(t, time.Second, ran.Load, "timer callback never ran")

	time.Sleep(50 * time.Millisecond)
	if fired.Load() {
		t.Fatalf("stopped timer fired")
	}
}

func TestEventName(t *testing.T) {
	if got := eventName(KeyTyped{Text: "a"}); got != "KeyTyped" {
		t.Fatalf("eventName = %q", got)
	}
}

func TestEngineStatusQuery(t *testing.T) {
	f := startDaemon(t, daemonHooks{})
	f.events <- KeyTyped{Text: "x"}

	query := engineStatusQuery(f.calls, f.engine)
	waitUntil(t, time.Second, func() bool {
		st, err := query(context.Background())
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		return len(st.Recent) == 1 && st.Recent[0] == "x"
	}, "status never showed the keystroke")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stalled := engineStatusQuery(make(chan func()), f.engine)
	if _, err := stalled(ctx); err == nil {
		t.Fatalf("expected an error from a canceled query")
	}
}
