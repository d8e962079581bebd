package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

// ============================================================================
// IPC - Unix Domain Socket Interface
// ============================================================================
// Editor plugins and scripts inject keystrokes into the running daemon, or ask
// for its state, through a Unix domain socket.
//
// Protocol: line-delimited JSON, one response line per request line
//   - Event:    {"type":"type","data":{"text":"a"}}  -> {"status":"ok"}
//   - Status:   {"type":"status"}                     -> {"status":"ok","state":{...}}
//   - Failure:  {"status":"error","error":"msg"}
// ============================================================================

const (
	// ipcEnqueueTimeout bounds how long a request waits for room in the event queue.
	ipcEnqueueTimeout = 250 * time.Millisecond
	// ipcStatusTimeout bounds a status round trip through the daemon loop.
	ipcStatusTimeout = time.Second

	ipcStatusRequest = "status"
)

// IPCResponse is the reply to one request line.
type IPCResponse struct {
	Status string        `json:"status"`
	Error  string        `json:"error,omitempty"`
	State  *EngineStatus `json:"state,omitempty"`
}

func ipcError(err error) IPCResponse {
	return IPCResponse{Status: "error", Error: err.Error()}
}

// ipcBackend is what socket clients can reach. Status is optional.
type ipcBackend struct {
	Events chan<- Event
	Status func(ctx context.Context) (EngineStatus, error)
}

// runIPCServer serves the socket until ctx is canceled, waits for open
// connections to finish and removes the socket. If ready is non-nil it is closed
// once the socket accepts connections.
func runIPCServer(ctx context.Context, socketPath string, backend ipcBackend, ready chan<- struct{}, logger *slog.Logger) error {
	socketPath = ExpandPath(socketPath)

	// A crashed daemon leaves its socket behind.
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer os.Remove(socketPath)
	defer ln.Close()

	if err := os.Chmod(socketPath, 0o600); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)
	if ready != nil {
		close(ready)
	}

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var conns sync.WaitGroup
	defer conns.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Debug("IPC listener closed")
				return nil
			}
			logger.Error("IPC accept error", "error", err)
			continue
		}

		conns.Add(1)
		go func() {
			defer conns.Done()
			backend.serveConn(ctx, conn, logger)
		}()
	}
}

// serveConn answers every request line until the client hangs up or ctx ends.
func (b ipcBackend) serveConn(ctx context.Context, conn net.Conn, logger *slog.Logger) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	logger.Debug("IPC connection opened")
	enc := json.NewEncoder(conn)
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		resp := b.handle(ctx, line)
		if resp.Status != "ok" {
			logger.Debug("IPC request failed", "request", string(line), "error", resp.Error)
		}
		if err := enc.Encode(resp); err != nil {
			logger.Debug("IPC reply failed", "error", err)
			return
		}
	}
	logger.Debug("IPC connection closed")
}

func (b ipcBackend) handle(ctx context.Context, line []byte) IPCResponse {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &head); err != nil {
		return ipcError(fmt.Errorf("parse request: %w", err))
	}

	if head.Type == ipcStatusRequest {
		if b.Status == nil {
			return ipcError(errors.New("status is not available"))
		}
		qctx, cancel := context.WithTimeout(ctx, ipcStatusTimeout)
		defer cancel()
		st, err := b.Status(qctx)
		if err != nil {
			return ipcError(fmt.Errorf("query status: %w", err))
		}
		return IPCResponse{Status: "ok", State: &st}
	}

	ev, err := UnmarshalEvent(line)
	if err != nil {
		return ipcError(fmt.Errorf("parse event: %w", err))
	}
	// Readiness comes from display peers only.
	if _, ok := ev.(SurfaceReady); ok {
		return ipcError(errors.New("surface_ready is only accepted from display surfaces"))
	}
	if err := enqueueEvent(ctx, b.Events, ev, ipcEnqueueTimeout); err != nil {
		return ipcError(err)
	}
	return IPCResponse{Status: "ok"}
}

// enqueueEvent hands ev to the daemon, giving up after timeout.
func enqueueEvent(ctx context.Context, events chan<- Event, ev Event, timeout time.Duration) error {
	select {
	case events <- ev:
		return nil
	default:
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case events <- ev:
		return nil
	case <-t.C:
		return errors.New("event queue full")
	case <-ctx.Done():
		return errors.New("daemon shutting down")
	}
}

// ============================================================================
// IPC Client
// ============================================================================

// SendIPCEvent sends one event to the daemon and waits for its response.
func SendIPCEvent(ctx context.Context, socketPath string, ev Event) error {
	line, err := MarshalEvent(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = ipcRoundTrip(ctx, socketPath, line)
	return err
}

// QueryIPCStatus asks the daemon for a snapshot of its engine state.
func QueryIPCStatus(ctx context.Context, socketPath string) (EngineStatus, error) {
	resp, err := ipcRoundTrip(ctx, socketPath, []byte(`{"type":"`+ipcStatusRequest+`"}`))
	if err != nil {
		return EngineStatus{}, err
	}
	if resp.State == nil {
		return EngineStatus{}, errors.New("status response without state")
	}
	return *resp.State, nil
}

func ipcRoundTrip(ctx context.Context, socketPath string, line []byte) (IPCResponse, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", ExpandPath(socketPath))
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(append(line, '\n')); err != nil {
		return IPCResponse{}, fmt.Errorf("send request: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return IPCResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return resp, fmt.Errorf("ipc error: %s", resp.Error)
	}
	return resp, nil
}
