// Package geom provides the page-space rectangle type shared by the text
// provider, the detector and the report layer. Coordinates are PDF points
// (1/72 in) with the origin at the top-left corner of the page, matching
// raster orientation.
package geom

import "math"

// Rect is an axis-aligned rectangle in page space.
type Rect struct {
	X      float64 // Left
	Y      float64 // Top
	Width  float64
	Height float64
}

// NewRect creates a rectangle from its top-left corner and size.
func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// Left returns the left edge X coordinate.
func (r Rect) Left() float64 { return r.X }

// Right returns the right edge X coordinate.
func (r Rect) Right() float64 { return r.X + r.Width }

// Top returns the top edge Y coordinate.
func (r Rect) Top() float64 { return r.Y }

// Bottom returns the bottom edge Y coordinate.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Area returns the area of the rectangle.
func (r Rect) Area() float64 { return r.Width * r.Height }

// IsEmpty returns true if the rectangle has no positive extent.
func (r Rect) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Intersects checks whether two rectangles overlap.
func (r Rect) Intersects(other Rect) bool {
	return !(r.Right() <= other.Left() ||
		r.Left() >= other.Right() ||
		r.Bottom() <= other.Top() ||
		r.Top() >= other.Bottom())
}

// Intersection returns the overlapping region, or a zero Rect when disjoint.
func (r Rect) Intersection(other Rect) Rect {
	if !r.Intersects(other) {
		return Rect{}
	}
	x := math.Max(r.Left(), other.Left())
	y := math.Max(r.Top(), other.Top())
	right := math.Min(r.Right(), other.Right())
	bottom := math.Min(r.Bottom(), other.Bottom())
	return Rect{X: x, Y: y, Width: right - x, Height: bottom - y}
}

// Union returns the smallest rectangle enclosing both.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	x := math.Min(r.Left(), other.Left())
	y := math.Min(r.Top(), other.Top())
	right := math.Max(r.Right(), other.Right())
	bottom := math.Max(r.Bottom(), other.Bottom())
	return Rect{X: x, Y: y, Width: right - x, Height: bottom - y}
}

// IoU returns intersection area over union area, in [0, 1].
func (r Rect) IoU(other Rect) float64 {
	inter := r.Intersection(other).Area()
	if inter <= 0 {
		return 0
	}
	union := r.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// OverlapRatio returns the intersection area divided by r's own area.
// Used for text coverage: "how much of r is covered by other".
func (r Rect) OverlapRatio(other Rect) float64 {
	if r.Area() <= 0 {
		return 0
	}
	return r.Intersection(other).Area() / r.Area()
}

// Expand grows the rectangle by a margin on every side.
func (r Rect) Expand(margin float64) Rect {
	return Rect{
		X:      r.X - margin,
		Y:      r.Y - margin,
		Width:  r.Width + 2*margin,
		Height: r.Height + 2*margin,
	}
}

// Clip constrains the rectangle to the given bounds.
func (r Rect) Clip(bounds Rect) Rect {
	return r.Intersection(bounds)
}
