//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// inputPollTimeoutMS bounds each epoll_wait so cancellation is noticed promptly.
const inputPollTimeoutMS = 200

// runKeyboardInput reads every device in paths and feeds the translated keystrokes
// into events until ctx is canceled or a device fails.
func runKeyboardInput(ctx context.Context, paths []string, events chan<- Event, logger *slog.Logger) error {
	var files []*os.File
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, p := range paths {
		f, err := os.Open(ExpandPath(p))
		if err != nil {
			logger.Error("failed to open input device", "device", p, "error", err, "tip", "run as root or add user to 'input' group")
			return fmt.Errorf("open input device: %w", err)
		}
		files = append(files, f)
	}
	logger.Info("reading keyboard input", "devices", paths)

	raw := make(chan inputEvent, 64)
	errc := make(chan error, 1)
	go func() { errc <- readInputEventsEpoll(ctx, files, raw) }()

	var keys keyTranslator
	for {
		select {
		case <-ctx.Done():
			return <-errc

		case err := <-errc:
			if err != nil {
				logger.Error("input reader stopped", "error", err)
			}
			return err

		case ev := <-raw:
			e := keys.translate(ev)
			if e == nil {
				continue
			}
			if err := enqueueEvent(ctx, events, e, ipcEnqueueTimeout); err != nil {
				logger.Warn("keystroke dropped", "event", eventName(e), "error", err)
			}
		}
	}
}

// readInputEventsEpoll multiplexes every device through one epoll instance and
// forwards raw events until ctx ends or a device fails.
//
// Instead of:
//   - N goroutines, each blocking on read()
//
// We use:
//   - 1 goroutine with epoll
//   - Kernel wakes us only when events are available
func readInputEventsEpoll(ctx context.Context, files []*os.File, out chan<- inputEvent) error {
	if len(files) == 0 {
		return errors.New("no input devices provided")
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	fdToFile := make(map[int]*os.File)
	for _, f := range files {
		fd := int(f.Fd())
		fdToFile[fd] = f

		event := unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			return fmt.Errorf("epoll_ctl_add %s: %w", f.Name(), err)
		}
	}

	const maxEvents = 32
	epollEvents := make([]unix.EpollEvent, maxEvents)
	buf := make([]byte, inputEventSize)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := unix.EpollWait(epfd, epollEvents, inputPollTimeoutMS)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			f := fdToFile[int(epollEvents[i].Fd)]
			flags := epollEvents[i].Events

			// Pending data is read before a hangup is reported.
			if flags&unix.EPOLLIN == 0 {
				if flags&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
					return fmt.Errorf("device error/hangup: %s", f.Name())
				}
				continue
			}

			if _, err := io.ReadFull(f, buf); err != nil {
				return fmt.Errorf("read from %s: %w", f.Name(), err)
			}
			ev, err := decodeInputEvent(buf)
			if err != nil {
				// Skip malformed events
				continue
			}

			select {
			case out <- ev:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
