package main

import (
	"fmt"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an opaque 8-bit RGB value.
type Color struct {
	R, G, B uint8
}

// ParseColor parses "#rrggbb" (or the short "#rgb" form).
func ParseColor(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return Color{R: r, G: g, B: b}, nil
}

func mustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) String() string { return c.Hex() }

// RGBA returns the color with the given alpha (0..1) for image rasters.
func (c Color) RGBA(alpha float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(clamp01(alpha) * 255))}
}

// MarshalText encodes the color as hex so it reads naturally in JSON and YAML.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Interpolate blends c1 toward c2 per channel, rounding each channel to the nearest
// integer. Factors outside [0,1] extrapolate; results are saturated to 0..255 only
// because a channel cannot hold anything else.
func Interpolate(c1, c2 Color, factor float64) Color {
	mix := func(a, b uint8) uint8 {
		v := math.Round(float64(a) + (float64(b)-float64(a))*factor)
		switch {
		case v < 0:
			return 0
		case v > 255:
			return 255
		}
		return uint8(v)
	}
	return Color{R: mix(c1.R, c2.R), G: mix(c1.G, c2.G), B: mix(c1.B, c2.B)}
}

var gradientHex = []string{
	"#fda0a5", "#ee8f8d", "#ff7269", "#ff6368", "#fd5f55", "#ec2d33", "#a61a1f", "#f6f0d5",
	"#fee9c6", "#fde486", "#fff4b4", "#fde4b3", "#fdcf51", "#fde700", "#da9a81", "#ca8466",
	"#fd7957", "#eb6b43", "#ca6430", "#ba5131", "#a24e34", "#f5a600", "#fd9e57", "#fda200",
	"#db9720", "#f2994b", "#fa8f0b", "#f28a3c", "#d66b1b", "#864b1c", "#ffd081", "#d9b672",
	"#b88828", "#a48447", "#f4f8f9", "#dcdcdc", "#bcbcbc", "#a6a6a6", "#bfc7d5", "#009cfd",
	"#d7f9fc", "#b5e8f2", "#b1fffd", "#bafee2", "#83e9f8", "#5aabdc", "#3cb4ff", "#0081d3",
	"#899ad1", "#718dbf", "#5d5e8e", "#d58ac0", "#e074a2", "#beb0e1", "#aa8ed4", "#9879cb",
	"#ae65ff", "#935adc", "#7d51ae", "#796e9e", "#634d84", "#4e3381", "#a0b29d", "#a0c5c3",
	"#86a367", "#64825c", "#5e7977", "#4f7869", "#4f6367", "#334461", "#74cca8", "#56a786",
	"#459373",
}

var specialHex = []string{
	"#ff9690", "#c14139", "#008be3", "#ea9600", "#c88000", "#fdfdfd", "#f7f1e4", "#b7a88a",
	"#847f66",
}

var (
	gradientPalette = parsePalette(gradientHex)
	specialPalette  = parsePalette(specialHex)

	cornerColorSpecial = mustParseColor(cornerColorSpecialHex)
	cornerColorNormal  = mustParseColor(cornerColorNormalHex)
	gutterArrowColor   = mustParseColor(gutterArrowColorHex)
	pulseBorderColor   = Color{R: 0xff, G: 0xff, B: 0xff}
)

func parsePalette(hex []string) []Color {
	out := make([]Color, len(hex))
	for i, h := range hex {
		out[i] = mustParseColor(h)
	}
	return out
}

// ColorAllocator hands out glyph colors.
//
// The gradient cursor only ever moves forward (wrapping) for the lifetime of the
// allocator. Owned by the daemon goroutine; not safe for concurrent use.
type ColorAllocator struct {
	gradient []Color
	special  []Color
	cursor   int
	rng      *rand.Rand
}

// NewColorAllocator builds an allocator over the built-in palettes.
// A nil rng gets a randomly seeded source.
func NewColorAllocator(rng *rand.Rand) *ColorAllocator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &ColorAllocator{
		gradient: gradientPalette,
		special:  specialPalette,
		rng:      rng,
	}
}

// NextGradientColor returns the color under the cursor, then advances it.
func (a *ColorAllocator) NextGradientColor() Color {
	c := a.gradient[a.cursor]
	a.cursor = (a.cursor + 1) % len(a.gradient)
	return c
}

// GradientCursor is the index NextGradientColor will return next.
func (a *ColorAllocator) GradientCursor() int { return a.cursor }

// RandomSpecialColor picks uniformly from the special palette.
func (a *ColorAllocator) RandomSpecialColor() Color {
	return a.special[a.rng.IntN(len(a.special))]
}

// ColorFor allocates exactly one color for a keystroke.
func (a *ColorAllocator) ColorFor(t Token) Color {
	if t.IsSpecial() {
		return a.RandomSpecialColor()
	}
	return a.NextGradientColor()
}

// TransitionColor walks the gradient palette by progress (0..1), blending between
// neighbouring entries.
func TransitionColor(progress float64) Color {
	n := len(gradientPalette)
	pos := clamp01(progress) * float64(n-1)
	i1 := int(math.Floor(pos)) % n
	i2 := (i1 + 1) % n
	return Interpolate(gradientPalette[i1], gradientPalette[i2], pos-math.Floor(pos))
}

// CornerColor is the fixed stroke color of a token's corner box.
func CornerColor(t Token) Color {
	if t.IsSpecial() {
		return cornerColorSpecial
	}
	return cornerColorNormal
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
