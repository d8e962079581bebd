package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func startIPC(t *testing.T, backend ipcBackend) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "hypertype.sock")
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	errc := make(chan error, 1)
	go func() { errc <- runIPCServer(ctx, socket, backend, ready, discardLogger()) }()

	select {
	case <-ready:
	case err := <-errc:
		t.Fatalf("runIPCServer: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("IPC server not ready")
	}
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errc:
			if err != nil {
				t.Errorf("runIPCServer: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("IPC server did not stop")
		}
	})
	return socket
}

func TestIPC_SendEvent(t *testing.T) {
	events := make(chan Event, 4)
	socket := startIPC(t, ipcBackend{Events: events})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sent := []Event{KeyTyped{Text: "q"}, KeyDeleteLeft{}, CursorMove{Edge: "home"}}
	for _, ev := range sent {
		if err := SendIPCEvent(ctx, socket, ev); err != nil {
			t.Fatalf("SendIPCEvent(%#v): %v", ev, err)
		}
	}
	for i, want := range sent {
		select {
		case got := <-events:
			if got != want {
				t.Fatalf("event %d = %#v, want %#v", i, got, want)
			}
		default:
			t.Fatalf("event %d never enqueued", i)
		}
	}
}

func TestIPC_BadLineGetsErrorResponse(t *testing.T) {
	events := make(chan Event, 1)
	socket := startIPC(t, ipcBackend{Events: events})

	conn, err := net.Dial("unix", socket)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	fmt.Fprintln(conn, `{"type":"warp"}`)
	fmt.Fprintln(conn, ``)
	fmt.Fprintln(conn, `{"type":"tab"}`)

	sc := bufio.NewScanner(conn)
	var resps []IPCResponse
	for len(resps) < 2 && sc.Scan() {
		var r IPCResponse
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("decode response %q: %v", sc.Text(), err)
		}
		resps = append(resps, r)
	}
	if len(resps) != 2 {
		t.Fatalf("responses = %d, want 2", len(resps))
	}
	if resps[0].Status != "error" || resps[0].Error == "" {
		t.Fatalf("bad line response = %+v", resps[0])
	}
	if resps[1].Status != "ok" {
		t.Fatalf("tab response = %+v", resps[1])
	}
	if ev := <-events; ev != (KeyTab{}) {
		t.Fatalf("event = %#v", ev)
	}
}

func TestIPC_RejectsSurfaceReady(t *testing.T) {
	events := make(chan Event, 1)
	socket := startIPC(t, ipcBackend{Events: events})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := SendIPCEvent(ctx, socket, SurfaceReady{Client: "script"})
	if err == nil || !strings.Contains(err.Error(), "surface_ready") {
		t.Fatalf("err = %v, want surface_ready rejection", err)
	}
	select {
	case ev := <-events:
		t.Fatalf("enqueued %#v", ev)
	default:
	}
}

func TestEnqueueEvent_FullQueueTimesOut(t *testing.T) {
	events := make(chan Event, 1)
	events <- KeyTab{}

	err := enqueueEvent(context.Background(), events, KeyTab{}, 20*time.Millisecond)
	if err == nil {
		t.Fatalf("expected queue full error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := enqueueEvent(ctx, events, KeyTab{}, time.Second); err == nil {
		t.Fatalf("expected shutdown error")
	}
}

func TestSendIPCEvent_NoDaemon(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "missing.sock")
	if err := SendIPCEvent(context.Background(), socket, KeyTab{}); err == nil {
		t.Fatalf("expected connect error")
	}
}

func TestIPC_Status(t *testing.T) {
	want := EngineStatus{SoundEnabled: true, Pitch: 1.02, PitchLevel: 2, Recent: []string{"h", "i"}, Cursor: Position{Char: 2}, Lines: 1}
	socket := startIPC(t, ipcBackend{
		Events: make(chan Event),
		Status: func(context.Context) (EngineStatus, error) { return want, nil },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := QueryIPCStatus(ctx, socket)
	if err != nil {
		t.Fatalf("QueryIPCStatus: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("status = %+v, want %+v", got, want)
	}
}

func TestIPC_StatusErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bare := startIPC(t, ipcBackend{Events: make(chan Event)})
	if _, err := QueryIPCStatus(ctx, bare); err == nil || !strings.Contains(err.Error(), "not available") {
		t.Fatalf("err = %v, want status not available", err)
	}

	failing := startIPC(t, ipcBackend{
		Events: make(chan Event),
		Status: func(context.Context) (EngineStatus, error) { return EngineStatus{}, errors.New("loop busy") },
	})
	if _, err := QueryIPCStatus(ctx, failing); err == nil || !strings.Contains(err.Error(), "loop busy") {
		t.Fatalf("err = %v, want loop busy", err)
	}
}

func TestIPC_ShutdownClosesIdleConnections(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "idle.sock")
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	errc := make(chan error, 1)
	go func() { errc <- runIPCServer(ctx, socket, ipcBackend{Events: make(chan Event)}, ready, discardLogger()) }()
	<-ready

	conn, err := net.Dial("unix", socket)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("runIPCServer: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server waited on an idle connection")
	}
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := conn.Read(make([]byte, 1)); err == nil {
		t.Fatalf("idle connection still open after shutdown")
	}
}
