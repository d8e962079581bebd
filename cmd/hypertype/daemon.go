package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// One goroutine owns the Engine and the Document. Three things feed it:
//   - events: keystrokes and readiness signals from the terminal, IPC and the
//     display websocket
//   - calls: closures that must run on the owner goroutine (timer callbacks from
//     loopScheduler, save requests, snapshots for readers)
//   - an optional redraw ticker for the terminal editor
//
// Events are queued and drained in arrival order; a handler never re-enters the
// loop, so one keystroke's state mutations always finish before the next starts.
//
// ============================================================================

// daemonHooks are optional per-frontend callbacks run on the daemon goroutine.
type daemonHooks struct {
	// Redraw is called every RedrawInterval and after each drained batch.
	Redraw         func()
	RedrawInterval time.Duration
}

// runDaemon runs until ctx is canceled or events is closed. On exit every live
// animation is torn down.
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	calls <-chan func(),
	engine *Engine,
	hooks daemonHooks,
	logger *slog.Logger,
) {
	defer engine.Shutdown()

	var tick <-chan time.Time
	if hooks.Redraw != nil && hooks.RedrawInterval > 0 {
		ticker := time.NewTicker(hooks.RedrawInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	redraw := func() {
		if hooks.Redraw != nil {
			hooks.Redraw()
		}
	}

	var eventQueue []Event
	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			if err := engine.Dispatch(ev); err != nil {
				logger.Warn("event failed", "event", eventName(ev), "error", err)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			eventQueue = append(eventQueue, ev)
			// Pick up whatever else is already buffered so bursts are handled as one batch.
			for drained := false; !drained; {
				select {
				case more, ok := <-events:
					if !ok {
						drained = true
						break
					}
					eventQueue = append(eventQueue, more)
				default:
					drained = true
				}
			}
			flushEvents()
			redraw()

		case fn := <-calls:
			fn()

		case <-tick:
			redraw()
		}
	}
}

func eventName(ev Event) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", ev), "main.")
}

// engineStatusQuery runs Engine.Status on the daemon goroutine. Events queued
// before the query are not guaranteed to be reflected.
func engineStatusQuery(calls chan<- func(), engine *Engine) func(context.Context) (EngineStatus, error) {
	return func(ctx context.Context) (EngineStatus, error) {
		reply := make(chan EngineStatus, 1)
		select {
		case calls <- func() { reply <- engine.Status() }:
		case <-ctx.Done():
			return EngineStatus{}, ctx.Err()
		}
		select {
		case st := <-reply:
			return st, nil
		case <-ctx.Done():
			return EngineStatus{}, ctx.Err()
		}
	}
}
