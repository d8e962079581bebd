package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Events
// ============================================================================
// Events are the inputs of the daemon loop: keystrokes from the terminal
// editor or IPC clients, and readiness signals from display surfaces.
// ============================================================================

// Event is a marker interface for everything the daemon loop consumes.
type Event interface {
	eventMarker()
}

// KeyTyped is text typed at the cursor ("\n" for Enter).
type KeyTyped struct {
	Text string `json:"text"`
}

func (KeyTyped) eventMarker() {}

// KeyTab is the tab key.
type KeyTab struct{}

func (KeyTab) eventMarker() {}

// KeyDeleteLeft is backspace.
type KeyDeleteLeft struct{}

func (KeyDeleteLeft) eventMarker() {}

// KeyDeleteRight is forward delete.
type KeyDeleteRight struct{}

func (KeyDeleteRight) eventMarker() {}

// CursorMove is pure navigation; it never animates. Edge is "home" or "end" to
// jump within the line after the relative move.
type CursorMove struct {
	Lines int    `json:"lines"`
	Chars int    `json:"chars"`
	Edge  string `json:"edge,omitempty"`
}

func (CursorMove) eventMarker() {}

// ToggleSound flips the sound setting.
type ToggleSound struct{}

func (ToggleSound) eventMarker() {}

// SurfaceReady is the display surface's {"command":"ready"}.
type SurfaceReady struct {
	Client string `json:"client,omitempty"`
}

func (SurfaceReady) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "type":
		var e KeyTyped
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal KeyTyped: %w", err)
		}
		if e.Text == "" {
			return nil, fmt.Errorf("unmarshal KeyTyped: empty text")
		}
		return e, nil

	case "tab":
		return KeyTab{}, nil
	case "delete_left":
		return KeyDeleteLeft{}, nil
	case "delete_right":
		return KeyDeleteRight{}, nil
	case "toggle_sound":
		return ToggleSound{}, nil

	case "cursor_move":
		var e CursorMove
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal CursorMove: %w", err)
		}
		return e, nil

	case "surface_ready":
		var e SurfaceReady
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &e); err != nil {
				return nil, fmt.Errorf("unmarshal SurfaceReady: %w", err)
			}
		}
		return e, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case KeyTyped:
		env.Type = "type"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal KeyTyped: %w", err)
		}
		env.Data = data

	case KeyTab:
		env.Type = "tab"
	case KeyDeleteLeft:
		env.Type = "delete_left"
	case KeyDeleteRight:
		env.Type = "delete_right"
	case ToggleSound:
		env.Type = "toggle_sound"

	case CursorMove:
		env.Type = "cursor_move"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal CursorMove: %w", err)
		}
		env.Data = data

	case SurfaceReady:
		env.Type = "surface_ready"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SurfaceReady: %w", err)
		}
		env.Data = data

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
