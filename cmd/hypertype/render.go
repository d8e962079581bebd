package main

import "math"

// GlyphVisual is the floating token text. DX/DY is the translation of the glyph's
// top-left corner relative to the anchor, in pixels (negative DY is up).
type GlyphVisual struct {
	Text      string    `json:"text"`
	Color     Color     `json:"color"`
	Size      int       `json:"size"`
	Offset    float64   `json:"offset"`
	Direction Direction `json:"-"`
	Opacity   float64   `json:"opacity"`

	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
}

func (GlyphVisual) Kind() string { return "glyph" }

// TextGlyph describes token rendered at the given drift offset.
func TextGlyph(token Token, c Color, size int, offset float64, dir Direction) GlyphVisual {
	if size <= 0 {
		size = defaultGlyphSize
	}
	s := float64(size)
	text := string(token)

	var dx float64
	switch dir {
	case DirectionMiddle:
		dx = -4
	case DirectionRight:
		dx = offset*0.5 - 4
	default:
		dx = -offset*0.5 - 4
	}

	return GlyphVisual{
		Text:      text,
		Color:     c,
		Size:      size,
		Offset:    offset,
		Direction: dir,
		Opacity:   1,
		Width:     float64(len([]rune(text)))*s*0.7 + 16,
		Height:    s + 20,
		DX:        dx,
		DY:        -(s + 14 + offset),
	}
}

// CornerBoxVisual is four L-shaped brackets around a character cell.
type CornerBoxVisual struct {
	Color      Color   `json:"color"`
	Expansion  float64 `json:"expansion"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	CornerSize float64 `json:"corner_size"`
	Thickness  int     `json:"thickness"`
	Opacity    float64 `json:"opacity"`
	OriginX    float64 `json:"origin_x"`
	OriginY    float64 `json:"origin_y"`
}

func (CornerBoxVisual) Kind() string { return "corner_box" }

// CornerBox grows the box linearly with expansion and fades the stroke out by
// cornerFadeCeiling. The origin shifts by half the growth so the box expands
// around the cell.
func CornerBox(c Color, expansion float64) CornerBoxVisual {
	grow := expansion * 1.5
	return CornerBoxVisual{
		Color:      c,
		Expansion:  expansion,
		Width:      cornerBaseWidth + grow,
		Height:     cornerBaseHeight + grow,
		CornerSize: 4 + expansion*0.5,
		Thickness:  cornerThickness,
		Opacity:    math.Max(0, 1-expansion/cornerFadeCeiling),
		OriginX:    -grow / 2,
		OriginY:    -grow / 2,
	}
}

// PulseVisual is a rounded border drawn around the typed range.
type PulseVisual struct {
	Phase           int     `json:"phase"`
	BorderWidth     int     `json:"border_width"`
	BorderColor     Color   `json:"border_color"`
	BorderAlpha     float64 `json:"border_alpha"`
	Radius          int     `json:"radius"`
	BackgroundAlpha float64 `json:"background_alpha"`
}

func (PulseVisual) Kind() string { return "pulse" }

var pulseStyles = [pulseFrames]struct {
	width int
	alpha float64
}{
	{1, 0.4},
	{2, 0.8},
	{1, 0.4},
}

// PulseBorder returns the style of frame phase (0..2). Out of range phases clamp.
func PulseBorder(phase int) PulseVisual {
	phase = max(0, min(phase, pulseFrames-1))
	st := pulseStyles[phase]
	return PulseVisual{
		Phase:           phase,
		BorderWidth:     st.width,
		BorderColor:     pulseBorderColor,
		BorderAlpha:     st.alpha,
		Radius:          pulseRadiusPx,
		BackgroundAlpha: pulseBackgroundA,
	}
}

// GutterArrowVisual marks a freshly opened line in the margin.
type GutterArrowVisual struct {
	Text   string `json:"text"`
	Color  Color  `json:"color"`
	Size   int    `json:"size"`
	Margin int    `json:"margin"`
}

func (GutterArrowVisual) Kind() string { return "gutter_arrow" }

func GutterArrow() GutterArrowVisual {
	return GutterArrowVisual{
		Text:   gutterArrowText,
		Color:  gutterArrowColor,
		Size:   gutterArrowSize,
		Margin: gutterArrowMargin,
	}
}
