package main

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ============================================================================
// Rasters
// ============================================================================
// Pixel renderings of visual descriptors. Text uses the 7x13 bitmap face blown
// up with nearest-neighbour scaling, which keeps the blocky pixel-font look at
// any size.
// ============================================================================

// Raster renders the glyph onto a transparent canvas of Width x Height.
func (g GlyphVisual) Raster() *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, ceilPx(g.Width), ceilPx(g.Height)))
	n := len([]rune(g.Text))
	if n == 0 {
		return dst
	}
	box := image.Rect(8, 4, 8+int(math.Round(float64(n)*float64(g.Size)*0.7)), 4+g.Size)
	drawPixelText(dst, box, g.Text, g.Color.RGBA(g.Opacity))
	return dst
}

// Raster renders the gutter arrow at its nominal size.
func (a GutterArrowVisual) Raster() *image.NRGBA {
	n := len([]rune(a.Text))
	w := int(math.Round(float64(n)*float64(a.Size)*0.7)) + 4
	dst := image.NewNRGBA(image.Rect(0, 0, w, a.Size+4))
	drawPixelText(dst, image.Rect(2, 2, w-2, a.Size+2), a.Text, a.Color.RGBA(1))
	return dst
}

// Raster draws the four corner brackets with the current stroke opacity.
func (c CornerBoxVisual) Raster() *image.NRGBA {
	w, h := ceilPx(c.Width), ceilPx(c.Height)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if c.Opacity <= 0 {
		return dst
	}

	stroke := image.NewUniform(c.Color.RGBA(c.Opacity))
	t := c.Thickness
	arm := min(ceilPx(c.CornerSize), w, h)

	rects := []image.Rectangle{
		// top-left
		image.Rect(0, 0, arm, t),
		image.Rect(0, 0, t, arm),
		// top-right
		image.Rect(w-arm, 0, w, t),
		image.Rect(w-t, 0, w, arm),
		// bottom-left
		image.Rect(0, h-t, arm, h),
		image.Rect(0, h-arm, t, h),
		// bottom-right
		image.Rect(w-arm, h-t, w, h),
		image.Rect(w-t, h-arm, w, h),
	}
	for _, r := range rects {
		// Src, not Over: overlapping strokes must not stack their alpha.
		draw.Draw(dst, r.Intersect(dst.Bounds()), stroke, image.Point{}, draw.Src)
	}
	return dst
}

// drawPixelText renders text with the bitmap face and scales it into box.
func drawPixelText(dst draw.Image, box image.Rectangle, text string, c color.NRGBA) {
	face := basicfont.Face7x13
	n := len([]rune(text))
	src := image.NewNRGBA(image.Rect(0, 0, face.Advance*n, face.Height))

	d := &font.Drawer{
		Dst:  src,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)

	xdraw.NearestNeighbor.Scale(dst, box, src, src.Bounds(), xdraw.Over, nil)
}

func ceilPx(v float64) int {
	return max(1, int(math.Ceil(v)))
}

// Raster draws the pulse border around a box of w x h pixels.
func (p PulseVisual) Raster(w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	bg := image.NewUniform(p.BorderColor.RGBA(p.BackgroundAlpha))
	draw.Draw(dst, dst.Bounds(), bg, image.Point{}, draw.Src)

	border := image.NewUniform(p.BorderColor.RGBA(p.BorderAlpha))
	b := p.BorderWidth
	r := p.Radius
	edges := []image.Rectangle{
		image.Rect(r, 0, w-r, b),
		image.Rect(r, h-b, w-r, h),
		image.Rect(0, r, b, h-r),
		image.Rect(w-b, r, w, h-r),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), border, image.Point{}, draw.Src)
	}
	return dst
}
