package main

import (
	"image"
	"testing"
)

func TestTextGlyph_Geometry(t *testing.T) {
	c := Color{R: 10, G: 20, B: 30}

	g := TextGlyph("ab", c, 26, 6, DirectionLeft)
	if !approxEqual(g.Width, 52.4) {
		t.Fatalf("width = %v", g.Width)
	}
	if g.Height != 46 {
		t.Fatalf("height = %v, want 46", g.Height)
	}
	if g.DY != -(26 + 14 + 6) {
		t.Fatalf("dy = %v", g.DY)
	}
	if g.DX != -7 {
		t.Fatalf("left dx = %v, want -7", g.DX)
	}
	if g.Opacity != 1 || g.Color != c {
		t.Fatalf("opacity=%v color=%s", g.Opacity, g.Color)
	}

	if got := TextGlyph("a", c, 26, 6, DirectionRight).DX; got != -1 {
		t.Fatalf("right dx = %v, want -1", got)
	}
	if got := TextGlyph("ENTER", c, 26, 6, DirectionMiddle).DX; got != -4 {
		t.Fatalf("middle dx = %v, want -4", got)
	}
	if got := TextGlyph("a", c, 0, 0, DirectionLeft).Size; got != defaultGlyphSize {
		t.Fatalf("size = %d, want default %d", got, defaultGlyphSize)
	}
}

func TestTextGlyph_DriftsUpward(t *testing.T) {
	prev := TextGlyph("a", Color{}, 26, 0, DirectionLeft)
	for off := 1.5; off <= glyphMaxOffset; off += glyphStep {
		cur := TextGlyph("a", Color{}, 26, off, DirectionLeft)
		if cur.DY >= prev.DY {
			t.Fatalf("glyph did not move up at offset %v", off)
		}
		prev = cur
	}
}

func TestCornerBox_Geometry(t *testing.T) {
	b := CornerBox(cornerColorNormal, 10)
	if b.Width != cornerBaseWidth+15 || b.Height != cornerBaseHeight+15 {
		t.Fatalf("size = %vx%v", b.Width, b.Height)
	}
	if b.OriginX != -7.5 || b.OriginY != -7.5 {
		t.Fatalf("origin = %v,%v", b.OriginX, b.OriginY)
	}
	if b.CornerSize != 9 {
		t.Fatalf("corner size = %v, want 9", b.CornerSize)
	}
	if b.Thickness != cornerThickness {
		t.Fatalf("thickness = %d", b.Thickness)
	}
	if got := CornerBox(cornerColorNormal, 20).Opacity; got != 0 {
		t.Fatalf("opacity past fade ceiling = %v, want 0", got)
	}
}

func TestPulseBorder(t *testing.T) {
	want := []struct {
		width int
		alpha float64
	}{{1, 0.4}, {2, 0.8}, {1, 0.4}}
	for phase, w := range want {
		p := PulseBorder(phase)
		if p.BorderWidth != w.width || p.BorderAlpha != w.alpha {
			t.Fatalf("phase %d: width=%d alpha=%v", phase, p.BorderWidth, p.BorderAlpha)
		}
		if p.Radius != 4 || p.BackgroundAlpha != 0.07 || p.BorderColor != pulseBorderColor {
			t.Fatalf("phase %d: unexpected style %+v", phase, p)
		}
	}
	if PulseBorder(9).Phase != 2 || PulseBorder(-1).Phase != 0 {
		t.Fatalf("out of range phases are not clamped")
	}
}

func TestGutterArrow(t *testing.T) {
	a := GutterArrow()
	if a.Text != ">>>" || a.Color.Hex() != "#0080ff" || a.Size != 24 || a.Margin != -65 {
		t.Fatalf("unexpected arrow %+v", a)
	}
}

func TestRaster_GlyphHasInk(t *testing.T) {
	g := TextGlyph("A", Color{R: 255, G: 0, B: 0}, 26, 0, DirectionLeft)
	img := g.Raster()

	b := img.Bounds()
	if b.Dx() != 35 || b.Dy() != 46 {
		t.Fatalf("raster size = %dx%d, want 35x46", b.Dx(), b.Dy())
	}
	if inked(img) == 0 {
		t.Fatalf("glyph raster is empty")
	}
	// Nothing is drawn outside the text box.
	if a := img.NRGBAAt(0, 0).A; a != 0 {
		t.Fatalf("corner pixel alpha = %d, want 0", a)
	}
}

func TestRaster_CornerBoxFadesOut(t *testing.T) {
	full := CornerBox(cornerColorNormal, 0).Raster()
	if inked(full) == 0 {
		t.Fatalf("corner box at expansion 0 is empty")
	}
	if px := full.NRGBAAt(0, 0); px.A != 255 || px.G != 255 || px.B != 255 {
		t.Fatalf("top-left bracket pixel = %+v", px)
	}

	gone := CornerBox(cornerColorNormal, cornerMaxExpansion).Raster()
	if inked(gone) != 0 {
		t.Fatalf("fully faded corner box still has ink")
	}
}

func TestRaster_PulseBorder(t *testing.T) {
	img := PulseBorder(1).Raster(24, 24)
	if a := img.NRGBAAt(12, 0).A; a != 204 {
		t.Fatalf("border alpha = %d, want 204", a)
	}
	if a := img.NRGBAAt(12, 12).A; a != 18 {
		t.Fatalf("background alpha = %d, want 18", a)
	}
}

func inked(img *image.NRGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).A > 0 {
				n++
			}
		}
	}
	return n
}
