package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// ============================================================================
// Display messages
// ============================================================================
// Outbound notifications for the display surface. On the wire every message
// is a flat JSON object discriminated by "type":
//
//	{"type":"update","buffer":["a","b"]}
//	{"type":"shake","intensity":0.5}
//	{"type":"playSound","soundType":"normal","pitch":1.03}
//	{"type":"toggleSound","enabled":true}
// ============================================================================

// Message is a marker interface for display notifications.
type Message interface {
	messageType() string
}

// UpdateMessage carries the full recent buffer. Consumers replace, never merge.
type UpdateMessage struct {
	Buffer []string
}

type ShakeMessage struct {
	Intensity float64
}

type PlaySoundMessage struct {
	SoundType SoundKind
	Pitch     float64
}

type ToggleSoundMessage struct {
	Enabled bool
}

func (UpdateMessage) messageType() string      { return "update" }
func (ShakeMessage) messageType() string       { return "shake" }
func (PlaySoundMessage) messageType() string   { return "playSound" }
func (ToggleSoundMessage) messageType() string { return "toggleSound" }

// EncodeMessage serializes m into its wire form.
func EncodeMessage(m Message) ([]byte, error) {
	switch m := m.(type) {
	case UpdateMessage:
		buf := m.Buffer
		if buf == nil {
			buf = []string{}
		}
		return json.Marshal(struct {
			Type   string   `json:"type"`
			Buffer []string `json:"buffer"`
		}{m.messageType(), buf})

	case ShakeMessage:
		return json.Marshal(struct {
			Type      string  `json:"type"`
			Intensity float64 `json:"intensity"`
		}{m.messageType(), m.Intensity})

	case PlaySoundMessage:
		return json.Marshal(struct {
			Type      string    `json:"type"`
			SoundType SoundKind `json:"soundType"`
			Pitch     float64   `json:"pitch"`
		}{m.messageType(), m.SoundType, m.Pitch})

	case ToggleSoundMessage:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Enabled bool   `json:"enabled"`
		}{m.messageType(), m.Enabled})

	default:
		return nil, fmt.Errorf("unsupported message type: %T", m)
	}
}

// DecodeMessage parses a wire message. Used by debug clients and tests.
func DecodeMessage(data []byte) (Message, error) {
	var wire struct {
		Type      string    `json:"type"`
		Buffer    []string  `json:"buffer"`
		Intensity *float64  `json:"intensity"`
		SoundType SoundKind `json:"soundType"`
		Pitch     float64   `json:"pitch"`
		Enabled   bool      `json:"enabled"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}

	switch wire.Type {
	case "update":
		return UpdateMessage{Buffer: wire.Buffer}, nil
	case "shake":
		m := ShakeMessage{Intensity: shakeNormal}
		if wire.Intensity != nil {
			m.Intensity = *wire.Intensity
		}
		return m, nil
	case "playSound":
		return PlaySoundMessage{SoundType: wire.SoundType, Pitch: wire.Pitch}, nil
	case "toggleSound":
		return ToggleSoundMessage{Enabled: wire.Enabled}, nil
	default:
		return nil, fmt.Errorf("unknown message type: %q", wire.Type)
	}
}

// ============================================================================
// Surfaces
// ============================================================================

// Surface consumes display messages. Post must not block.
type Surface interface {
	Post(m Message)
}

// multiSurface fans every message out to each surface in order.
type multiSurface []Surface

func (ms multiSurface) Post(m Message) {
	for _, s := range ms {
		s.Post(m)
	}
}

// ============================================================================
// DisplayChannel: queue-until-ready gate
// ============================================================================

// DisplayChannel holds messages back until the surface signals readiness, then
// flushes them in order and passes everything straight through from then on.
//
// maxPending caps the queue before readiness; the oldest message is dropped when
// the cap is hit. Zero means unbounded.
//
// Local surfaces (the speaker) sit outside the gate and see every message as it
// is sent.
//
// Owned by the daemon goroutine.
type DisplayChannel struct {
	surface    Surface
	local      multiSurface
	logger     *slog.Logger
	maxPending int

	ready   bool
	pending []Message
	dropped int
}

func NewDisplayChannel(surface Surface, maxPending int, logger *slog.Logger) *DisplayChannel {
	return &DisplayChannel{
		surface:    surface,
		maxPending: maxPending,
		logger:     logger,
	}
}

// AddLocal attaches a surface that is ready from the start.
func (d *DisplayChannel) AddLocal(s Surface) {
	d.local = append(d.local, s)
}

// Notify forwards m, or queues it while the surface is not ready. Local
// surfaces always get m immediately.
func (d *DisplayChannel) Notify(m Message) {
	d.local.Post(m)
	if d.ready {
		d.surface.Post(m)
		return
	}
	if d.maxPending > 0 && len(d.pending) >= d.maxPending {
		d.pending[0] = nil
		d.pending = d.pending[1:]
		d.dropped++
		if d.dropped == 1 || d.dropped%100 == 0 {
			d.logger.Warn("display not ready, dropping oldest queued message", "queued", len(d.pending), "dropped", d.dropped)
		}
	}
	d.pending = append(d.pending, m)
}

// Update sends a full replace of the recent buffer.
func (d *DisplayChannel) Update(buffer []string) {
	d.Notify(UpdateMessage{Buffer: buffer})
}

// MarkReady opens the gate and drains the queue in FIFO order. Later calls are
// no-ops and report false.
func (d *DisplayChannel) MarkReady() bool {
	if d.ready {
		return false
	}
	d.ready = true

	queued := d.pending
	d.pending = nil
	if len(queued) > 0 {
		d.logger.Debug("display ready, flushing queued messages", "count", len(queued))
	}
	for _, m := range queued {
		d.surface.Post(m)
	}
	return true
}

func (d *DisplayChannel) Ready() bool  { return d.ready }
func (d *DisplayChannel) Pending() int { return len(d.pending) }
func (d *DisplayChannel) Dropped() int { return d.dropped }
