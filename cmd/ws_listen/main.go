package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// ws_listen joins the hypertype display websocket as a surface, reports ready
// and prints every message it receives. With -reconnect it keeps coming back
// after the daemon restarts.

const readTimeout = 60 * time.Second

type options struct {
	url       string
	noReady   bool
	raw       bool
	reconnect time.Duration
	only      map[string]bool
}

func main() {
	var (
		wsURL     = flag.String("ws", "ws://127.0.0.1:3017/ws", "hypertype display websocket URL")
		noReady   = flag.Bool("no-ready", false, "Do not send the ready command (the daemon keeps messages queued)")
		raw       = flag.Bool("raw", false, "Print raw JSON instead of a summary")
		reconnect = flag.Duration("reconnect", 0, "Reconnect after this delay when the connection drops (0 exits)")
		only      = flag.String("only", "", "Comma-separated message types to print (e.g. shake,playSound)")
	)
	flag.Parse()

	opts := options{url: *wsURL, noReady: *noReady, raw: *raw, reconnect: *reconnect}
	if *only != "" {
		opts.only = make(map[string]bool)
		for _, t := range strings.Split(*only, ",") {
			opts.only[strings.TrimSpace(t)] = true
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		err := listen(ctx, opts, os.Stdout)
		if ctx.Err() != nil {
			log.Printf("shutting down")
			return
		}
		if err != nil {
			log.Printf("session ended: %v", err)
		} else {
			log.Printf("connection closed")
		}
		if opts.reconnect <= 0 {
			if err != nil {
				os.Exit(1)
			}
			return
		}
		select {
		case <-time.After(opts.reconnect):
		case <-ctx.Done():
			return
		}
	}
}

// listen runs one session: dial, report ready, print until the socket or ctx ends.
func listen(ctx context.Context, opts options, out io.Writer) error {
	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	log.Printf("connecting to %s...", opts.url)
	conn, _, err := d.DialContext(ctx, opts.url, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()
	log.Printf("connected (press Ctrl+C to exit)")

	// The daemon pings; every frame pushes the deadline out. WriteControl may run
	// alongside ReadMessage.
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	if !opts.noReady {
		if err := conn.WriteJSON(map[string]string{"command": "ready"}); err != nil {
			return fmt.Errorf("send ready: %w", err)
		}
	}

	// Unblock ReadMessage on shutdown.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		if kind != websocket.TextMessage {
			fmt.Fprintf(out, "[BINARY] %d bytes\n", len(data))
			continue
		}
		line, typ := describe(data)
		if opts.only != nil && !opts.only[typ] {
			continue
		}
		if opts.raw {
			line = string(data)
		}
		fmt.Fprintln(out, line)
	}
}

// displayMessage is the union of every display message field.
type displayMessage struct {
	Type      string   `json:"type"`
	Buffer    []string `json:"buffer"`
	Intensity *float64 `json:"intensity"`
	SoundType string   `json:"soundType"`
	Pitch     float64  `json:"pitch"`
	Enabled   bool     `json:"enabled"`
}

// describe summarizes a display message and returns its type.
func describe(data []byte) (string, string) {
	var m displayMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return "[TEXT] " + string(data), ""
	}

	switch m.Type {
	case "update":
		return fmt.Sprintf("[UPDATE] %d entries: %s", len(m.Buffer), printable(strings.Join(m.Buffer, ""))), m.Type
	case "shake":
		intensity := 0.5
		if m.Intensity != nil {
			intensity = *m.Intensity
		}
		return fmt.Sprintf("[SHAKE] %.1f", intensity), m.Type
	case "playSound":
		return fmt.Sprintf("[SOUND] %s pitch=%.2f", m.SoundType, m.Pitch), m.Type
	case "toggleSound":
		state := "OFF"
		if m.Enabled {
			state = "ON"
		}
		return "[SOUND] " + state, m.Type
	default:
		return "[UNKNOWN] " + string(data), m.Type
	}
}

func printable(s string) string {
	return strings.NewReplacer("\n", "⏎", "\t", "→").Replace(s)
}
