package source

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/deckle/deckle/internal/geom"
)

// RenderedPage is one page rasterized at a known resolution. The buffer is
// always RGBA with origin (0,0); page dimensions are kept in PDF points so
// pixel measurements can be mapped back to physical units.
type RenderedPage struct {
	Index    int
	Image    *image.RGBA
	DPI      int
	WidthPt  float64
	HeightPt float64
}

// Scale returns pixels per PDF point at the page's render resolution.
func (p *RenderedPage) Scale() float64 {
	return float64(p.DPI) / 72.0
}

// Bounds returns the pixel bounds of the rendered buffer.
func (p *RenderedPage) Bounds() image.Rectangle {
	return p.Image.Bounds()
}

// PixelRect maps a page-space rectangle to pixel coordinates at the page's
// render scale, rounded outward so the clip never loses covered pixels.
func (p *RenderedPage) PixelRect(r geom.Rect) image.Rectangle {
	s := p.Scale()
	return image.Rect(
		int(math.Floor(r.Left()*s)),
		int(math.Floor(r.Top()*s)),
		int(math.Ceil(r.Right()*s)),
		int(math.Ceil(r.Bottom()*s)),
	)
}

// PageRect maps a pixel rectangle back to page space.
func (p *RenderedPage) PageRect(r image.Rectangle) geom.Rect {
	s := p.Scale()
	if s <= 0 {
		return geom.Rect{}
	}
	return geom.NewRect(
		float64(r.Min.X)/s,
		float64(r.Min.Y)/s,
		float64(r.Dx())/s,
		float64(r.Dy())/s,
	)
}

// EnsureRGBA returns img as *image.RGBA, converting when the decoder produced
// a different pixel format. The result always has its origin at (0,0).
func EnsureRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == image.Pt(0, 0) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// CropRGBA copies the region of img under rect into a fresh buffer with
// origin (0,0). The rectangle is clamped to the image bounds; an empty
// intersection is an error.
func CropRGBA(img *image.RGBA, rect image.Rectangle) (*image.RGBA, error) {
	clamped := rect.Intersect(img.Bounds())
	if clamped.Empty() {
		return nil, fmt.Errorf("crop %v outside image bounds %v", rect, img.Bounds())
	}
	out := image.NewRGBA(image.Rect(0, 0, clamped.Dx(), clamped.Dy()))
	draw.Draw(out, out.Bounds(), img, clamped.Min, draw.Src)
	return out, nil
}
