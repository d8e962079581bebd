package main

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

// Local typing sounds: a short sine blip per keystroke, resampled by pitch.
const (
	soundSampleRate = beep.SampleRate(44100)

	blipNormalFreq = 880.0
	blipNormalLen  = 35 * time.Millisecond
	blipEnterFreq  = 440.0
	blipEnterLen   = 90 * time.Millisecond
	blipVolume     = 0.25
)

// SoundPlayer is a Surface that plays playSound messages on the local speaker and
// follows toggleSound messages.
//
// The speaker is opened lazily on the first sound. If that fails the player logs
// once and stays silent.
type SoundPlayer struct {
	logger *slog.Logger

	mu      sync.Mutex
	enabled bool

	initOnce sync.Once
	initErr  error

	// Speaker hooks, swapped out in tests.
	initSpeaker func() error
	play        func(beep.Streamer)
}

func NewSoundPlayer(enabled bool, logger *slog.Logger) *SoundPlayer {
	return &SoundPlayer{
		logger:      logger,
		enabled:     enabled,
		initSpeaker: initSpeaker,
		play:        func(s beep.Streamer) { speaker.Play(s) },
	}
}

func initSpeaker() error {
	return speaker.Init(soundSampleRate, soundSampleRate.N(time.Second/20))
}

func (p *SoundPlayer) Post(m Message) {
	switch m := m.(type) {
	case PlaySoundMessage:
		p.Play(m.SoundType, m.Pitch)
	case ToggleSoundMessage:
		p.SetEnabled(m.Enabled)
	}
}

func (p *SoundPlayer) SetEnabled(enabled bool) {
	p.mu.Lock()
	p.enabled = enabled
	p.mu.Unlock()
}

func (p *SoundPlayer) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Play starts a blip and returns immediately.
func (p *SoundPlayer) Play(kind SoundKind, pitch float64) {
	if !p.Enabled() || !p.ensureSpeaker() {
		return
	}
	s, err := blipStreamer(soundSampleRate, kind, pitch)
	if err != nil {
		p.logger.Debug("sound not played", "sound", kind, "error", err)
		return
	}
	p.play(s)
}

func (p *SoundPlayer) ensureSpeaker() bool {
	p.initOnce.Do(func() {
		p.initErr = p.initSpeaker()
		if p.initErr != nil {
			p.logger.Warn("audio unavailable, local sound disabled", "error", p.initErr)
		}
	})
	return p.initErr == nil
}

// blipStreamer builds the finite stream for one keystroke. Higher pitch plays the
// tone faster, which raises it and shortens it together.
func blipStreamer(sr beep.SampleRate, kind SoundKind, pitch float64) (beep.Streamer, error) {
	freq, length := blipNormalFreq, blipNormalLen
	if kind == SoundEnter {
		freq, length = blipEnterFreq, blipEnterLen
	}
	if pitch <= 0 || math.IsNaN(pitch) {
		pitch = 1
	}

	tone, err := generators.SineTone(sr, freq)
	if err != nil {
		return nil, fmt.Errorf("sine tone: %w", err)
	}
	blip := beep.Take(sr.N(length), tone)
	shaped := beep.ResampleRatio(4, pitch, blip)

	return &effects.Volume{
		Streamer: shaped,
		Base:     2,
		Volume:   math.Log2(blipVolume),
	}, nil
}
