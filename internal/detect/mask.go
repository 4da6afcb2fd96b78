package detect

import (
	"image"
	"image/color"

	"github.com/deckle/deckle/internal/geom"
)

// TextMask is a page-sized bitmap marking pixels covered by text blocks.
// One instance is built per page and dropped with it.
type TextMask struct {
	w, h int
	bits []bool
}

// BuildTextMask rasterizes text-block rectangles (page points, top-left
// origin) onto a w×h pixel grid at the given scale. marginPt expands each
// block on all sides so anti-aliased glyph fringes are covered too.
func BuildTextMask(w, h int, scale float64, blocks []geom.Rect, marginPt float64) *TextMask {
	m := &TextMask{w: w, h: h, bits: make([]bool, w*h)}
	for _, b := range blocks {
		r := b.Expand(marginPt)
		x0 := int(r.Left() * scale)
		y0 := int(r.Top() * scale)
		x1 := int(r.Right()*scale) + 1
		y1 := int(r.Bottom()*scale) + 1
		if x0 < 0 {
			x0 = 0
		}
		if y0 < 0 {
			y0 = 0
		}
		if x1 > w {
			x1 = w
		}
		if y1 > h {
			y1 = h
		}
		for y := y0; y < y1; y++ {
			row := y * w
			for x := x0; x < x1; x++ {
				m.bits[row+x] = true
			}
		}
	}
	return m
}

// At reports whether the pixel is covered by text.
func (m *TextMask) At(x, y int) bool {
	if x < 0 || x >= m.w || y < 0 || y >= m.h {
		return false
	}
	return m.bits[y*m.w+x]
}

// Coverage returns the fraction of rect pixels covered by text. Overlapping
// blocks are not double counted.
func (m *TextMask) Coverage(rect image.Rectangle) float64 {
	clamped := rect.Intersect(image.Rect(0, 0, m.w, m.h))
	total := clamped.Dx() * clamped.Dy()
	if total <= 0 {
		return 0
	}
	covered := 0
	for y := clamped.Min.Y; y < clamped.Max.Y; y++ {
		row := y * m.w
		for x := clamped.Min.X; x < clamped.Max.X; x++ {
			if m.bits[row+x] {
				covered++
			}
		}
	}
	return float64(covered) / float64(total)
}

// Apply returns a copy of gray with masked pixels flattened to the page
// median luma, so body text generates no edges during candidate detection.
func (m *TextMask) Apply(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	out := image.NewGray(bounds)
	copy(out.Pix, gray.Pix)

	fill := color.Gray{Y: medianLuma(gray)}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if m.At(x-bounds.Min.X, y-bounds.Min.Y) {
				out.SetGray(x, y, fill)
			}
		}
	}
	return out
}

// medianLuma returns the median gray value of the whole image.
func medianLuma(gray *image.Gray) uint8 {
	var hist [256]int
	bounds := gray.Bounds()
	total := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[gray.GrayAt(x, y).Y]++
			total++
		}
	}
	if total == 0 {
		return 0
	}
	half := total / 2
	acc := 0
	for v := 0; v < 256; v++ {
		acc += hist[v]
		if acc > half {
			return uint8(v)
		}
	}
	return 255
}
