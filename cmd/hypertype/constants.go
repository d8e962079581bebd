package main

import "time"

// Floating glyph animation
const (
	defaultGlyphSize = 26 // Glyph font size in pixels

	glyphStartDelay   = 150 * time.Millisecond // Hold the first frame before drifting
	glyphTickInterval = 25 * time.Millisecond  // Frame cadence while drifting
	glyphStep         = 1.5                    // Offset added per frame (px)
	glyphMaxOffset    = 12.0                   // Drift stops once offset reaches this
	glyphLinger       = 150 * time.Millisecond // Last frame stays up this long
)

// Corner bracket animation
const (
	cornerTickInterval = 16 * time.Millisecond
	cornerStep         = 3.0
	cornerMaxExpansion = 30.0
	cornerLinger       = 50 * time.Millisecond

	// Stroke opacity reaches zero at this expansion.
	cornerFadeCeiling = 15.0

	cornerBaseWidth  = 14.0
	cornerBaseHeight = 16.0
	cornerThickness  = 3
)

// Pulse border and gutter arrow
const (
	pulseFrameInterval = 55 * time.Millisecond
	pulseFrames        = 3
	pulseRadiusPx      = 4
	pulseBackgroundA   = 0.07

	gutterArrowText     = ">>>"
	gutterArrowColorHex = "#0080ff"
	gutterArrowSize     = 24
	gutterArrowMargin   = -65 // px, relative to the line start
	gutterArrowLifetime = 1500 * time.Millisecond
)

// Corner box stroke colors
const (
	cornerColorSpecialHex = "#ff00ff"
	cornerColorNormalHex  = "#00ffff"
)

// Shake intensities sent to the display surface
const (
	shakeEnter  = 0.3
	shakeNormal = 0.5
	shakeDelete = 0.5
)

// Pitch estimation
const (
	defaultPitchQuiet = 300 * time.Millisecond // Debounce before the level resets
	pitchPerLevel     = 0.01
	pitchMin          = 0.95
	pitchMax          = 1.30
)

// Recent token buffer and display queue
const (
	defaultRecentCapacity = 50
	defaultMaxPending     = 512
)

// Daemon plumbing
const (
	defaultEventsBuf  = 128
	defaultCallsBuf   = 256
	defaultSocketPath = "/tmp/hypertype.sock"
	defaultWSListen   = "127.0.0.1:3017"
	defaultWSPath     = "/ws"
)

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_KEY = 0x01

	KEY_1          = 2
	KEY_BACKSPACE  = 14
	KEY_TAB        = 15
	KEY_Q          = 16
	KEY_ENTER      = 28
	KEY_LEFTCTRL   = 29
	KEY_A          = 30
	KEY_LEFTSHIFT  = 42
	KEY_BACKSLASH  = 43
	KEY_RIGHTSHIFT = 54
	KEY_LEFTALT    = 56
	KEY_SPACE      = 57
	KEY_CAPSLOCK   = 58
	KEY_KPENTER    = 96
	KEY_RIGHTCTRL  = 97
	KEY_RIGHTALT   = 100
	KEY_HOME       = 102
	KEY_UP         = 103
	KEY_LEFT       = 105
	KEY_RIGHT      = 106
	KEY_END        = 107
	KEY_DOWN       = 108
	KEY_DELETE     = 111
	KEY_LEFTMETA   = 125
	KEY_RIGHTMETA  = 126
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)
