package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// hypertype-ctl - Command-line IPC Client
// ============================================================================
// Injects keystrokes into a running hypertype daemon over its unix socket and
// reports its state.
//
// Usage:
//   hypertype-ctl type "hello"
//   hypertype-ctl enter | tab | backspace | delete
//   hypertype-ctl move <lines> <chars>
//   hypertype-ctl toggle-sound
//   hypertype-ctl status
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/hypertype.sock)
// ============================================================================

const (
	defaultSocketPath = "/tmp/hypertype.sock"
	dialTimeout       = 2 * time.Second
	replyTimeout      = 5 * time.Second
)

// envelope is one request line: an event, or {"type":"status"}.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type typedText struct {
	Text string `json:"text"`
}

type cursorMove struct {
	Lines int    `json:"lines"`
	Chars int    `json:"chars"`
	Edge  string `json:"edge,omitempty"`
}

// engineStatus mirrors the daemon's status payload.
type engineStatus struct {
	SoundEnabled   bool     `json:"sound_enabled"`
	Pitch          float64  `json:"pitch"`
	PitchLevel     int      `json:"pitch_level"`
	Animations     int      `json:"animations"`
	SurfaceReady   bool     `json:"surface_ready"`
	QueuedMessages int      `json:"queued_messages"`
	Recent         []string `json:"recent"`
	Cursor         struct {
		Line int `json:"line"`
		Char int `json:"char"`
	} `json:"cursor"`
	Lines int `json:"lines"`
}

type response struct {
	Status string        `json:"status"`
	Error  string        `json:"error,omitempty"`
	State  *engineStatus `json:"state,omitempty"`
}

var errUsage = errors.New("usage requested")

func main() {
	socketPath := defaultSocketPath
	args := os.Args[1:]

	if len(args) > 0 && (args[0] == "-socket" || args[0] == "--socket") {
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "error: -socket requires an argument")
			os.Exit(1)
		}
		socketPath, args = args[1], args[2:]
	}
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	reqs, err := parseCommand(args)
	if errors.Is(err, errUsage) {
		printUsage()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: connect to %s: %v\n", socketPath, err)
		os.Exit(1)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(replyTimeout))

	resps, err := exchange(conn, reqs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if last := resps[len(resps)-1]; last.State != nil {
		printStatus(os.Stdout, *last.State)
		return
	}
	fmt.Println("ok")
}

// parseCommand turns command-line arguments into request lines.
// "type" sends one event per character so the daemon animates each keystroke.
func parseCommand(args []string) ([]envelope, error) {
	switch args[0] {
	case "type":
		if len(args) < 2 || args[1] == "" {
			return nil, errors.New("type requires text")
		}
		var out []envelope
		for _, r := range args[1] {
			if r == '\t' {
				out = append(out, envelope{Type: "tab"})
				continue
			}
			out = append(out, envelope{Type: "type", Data: typedText{Text: string(r)}})
		}
		return out, nil

	case "paste":
		if len(args) < 2 || args[1] == "" {
			return nil, errors.New("paste requires text")
		}
		return []envelope{{Type: "type", Data: typedText{Text: args[1]}}}, nil

	case "enter":
		return []envelope{{Type: "type", Data: typedText{Text: "\n"}}}, nil
	case "tab":
		return []envelope{{Type: "tab"}}, nil
	case "backspace":
		return []envelope{{Type: "delete_left"}}, nil
	case "delete":
		return []envelope{{Type: "delete_right"}}, nil

	case "move":
		if len(args) < 3 {
			return nil, errors.New("move requires <lines> <chars>")
		}
		lines, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid lines: %w", err)
		}
		chars, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("invalid chars: %w", err)
		}
		return []envelope{{Type: "cursor_move", Data: cursorMove{Lines: lines, Chars: chars}}}, nil

	case "home", "end":
		return []envelope{{Type: "cursor_move", Data: cursorMove{Edge: args[0]}}}, nil

	case "toggle-sound", "sound":
		return []envelope{{Type: "toggle_sound"}}, nil

	case "status":
		return []envelope{{Type: "status"}}, nil

	case "help", "-h", "--help":
		return nil, errUsage

	default:
		return nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

// exchange sends each request on rw and reads its response line, stopping at
// the first error the daemon reports.
func exchange(rw io.ReadWriter, reqs []envelope) ([]response, error) {
	reader := bufio.NewReader(rw)
	out := make([]response, 0, len(reqs))
	for _, req := range reqs {
		line, err := json.Marshal(req)
		if err != nil {
			return out, fmt.Errorf("marshal %s: %w", req.Type, err)
		}
		if _, err := rw.Write(append(line, '\n')); err != nil {
			return out, fmt.Errorf("send %s: %w", req.Type, err)
		}

		raw, err := reader.ReadBytes('\n')
		if err != nil {
			return out, fmt.Errorf("read response: %w", err)
		}
		var resp response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return out, fmt.Errorf("decode response: %w", err)
		}
		if resp.Status != "ok" {
			return out, fmt.Errorf("daemon error: %s", resp.Error)
		}
		out = append(out, resp)
	}
	return out, nil
}

func printStatus(w io.Writer, st engineStatus) {
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	surface := "waiting"
	if st.SurfaceReady {
		surface = "ready"
	}
	recent := strings.NewReplacer("\n", "⏎", "\t", "→").Replace(strings.Join(st.Recent, ""))

	fmt.Fprintf(w, "sound:       %s\n", onOff(st.SoundEnabled))
	fmt.Fprintf(w, "pitch:       %.2f (level %d)\n", st.Pitch, st.PitchLevel)
	fmt.Fprintf(w, "animations:  %d\n", st.Animations)
	fmt.Fprintf(w, "surface:     %s (%d queued)\n", surface, st.QueuedMessages)
	fmt.Fprintf(w, "cursor:      %d:%d of %d lines\n", st.Cursor.Line+1, st.Cursor.Char+1, st.Lines)
	fmt.Fprintf(w, "recent:      %q\n", recent)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `hypertype-ctl - Drive the hypertype daemon via IPC

Usage:
  hypertype-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: %s)

Commands:
  type <text>             Type text one keystroke at a time
  paste <text>            Insert text as a single edit
  enter                   Press Enter
  tab                     Press Tab
  backspace               Delete left of the cursor
  delete                  Delete right of the cursor
  move <lines> <chars>    Move the cursor relatively
  home, end               Jump to the start or end of the line
  toggle-sound, sound     Toggle typing sounds
  status                  Show sound, pitch, animation and surface state
  help, -h, --help        Show this help message

Examples:
  hypertype-ctl type 'hello world'
  hypertype-ctl move -1 0
  hypertype-ctl -socket /run/user/1000/hypertype.sock status
`, defaultSocketPath)
}
