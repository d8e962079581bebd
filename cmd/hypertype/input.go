package main

import (
	"bytes"
	"encoding/binary"
	"unicode"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

// decodeInputEvent parses one raw event. buf must hold exactly inputEventSize bytes.
func decodeInputEvent(buf []byte) (inputEvent, error) {
	var ev inputEvent
	err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &ev)
	return ev, err
}

// usKeymap maps printable evdev key codes to their plain and shifted runes on a
// US layout.
var usKeymap = buildKeymap()

func buildKeymap() map[uint16][2]rune {
	rows := []struct {
		first   uint16
		plain   string
		shifted string
	}{
		{KEY_1, "1234567890-=", "!@#$%^&*()_+"},
		{KEY_Q, "qwertyuiop[]", "QWERTYUIOP{}"},
		{KEY_A, "asdfghjkl;'`", "ASDFGHJKL:\"~"},
		{KEY_BACKSLASH, "\\zxcvbnm,./", "|ZXCVBNM<>?"},
		{KEY_SPACE, " ", " "},
	}
	m := make(map[uint16][2]rune)
	for _, row := range rows {
		shifted := []rune(row.shifted)
		for i, r := range []rune(row.plain) {
			m[row.first+uint16(i)] = [2]rune{r, shifted[i]}
		}
	}
	return m
}

// keyTranslator turns raw key events from a keyboard into engine events. It
// tracks modifier state, so one translator serves one stream of events.
type keyTranslator struct {
	shift    int // held shift keys
	command  int // held ctrl, alt and meta keys
	capsLock bool
}

// translate returns the event for ev, or nil when ev only changes modifier state
// or maps to nothing.
func (k *keyTranslator) translate(ev inputEvent) Event {
	if ev.Type != EV_KEY {
		return nil
	}

	switch ev.Code {
	case KEY_LEFTSHIFT, KEY_RIGHTSHIFT:
		k.shift = holdCount(k.shift, ev.Value)
		return nil
	case KEY_LEFTCTRL, KEY_RIGHTCTRL, KEY_LEFTALT, KEY_RIGHTALT, KEY_LEFTMETA, KEY_RIGHTMETA:
		k.command = holdCount(k.command, ev.Value)
		return nil
	case KEY_CAPSLOCK:
		if ev.Value == evValuePress {
			k.capsLock = !k.capsLock
		}
		return nil
	}

	if ev.Value != evValuePress && ev.Value != evValueRepeat {
		return nil
	}

	switch ev.Code {
	case KEY_ENTER, KEY_KPENTER:
		return KeyTyped{Text: "\n"}
	case KEY_TAB:
		return KeyTab{}
	case KEY_BACKSPACE:
		return KeyDeleteLeft{}
	case KEY_DELETE:
		return KeyDeleteRight{}
	case KEY_UP:
		return CursorMove{Lines: -1}
	case KEY_DOWN:
		return CursorMove{Lines: 1}
	case KEY_LEFT:
		return CursorMove{Chars: -1}
	case KEY_RIGHT:
		return CursorMove{Chars: 1}
	case KEY_HOME:
		return CursorMove{Edge: "home"}
	case KEY_END:
		return CursorMove{Edge: "end"}
	}

	// Shortcuts type nothing.
	if k.command > 0 {
		return nil
	}
	runes, ok := usKeymap[ev.Code]
	if !ok {
		return nil
	}
	upper := k.shift > 0
	if unicode.IsLetter(runes[0]) && k.capsLock {
		upper = !upper
	}
	if upper {
		return KeyTyped{Text: string(runes[1])}
	}
	return KeyTyped{Text: string(runes[0])}
}

func holdCount(n int, value int32) int {
	switch value {
	case evValuePress:
		return n + 1
	case evValueRelease:
		return max(0, n-1)
	}
	return n
}
