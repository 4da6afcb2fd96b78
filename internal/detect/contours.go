package detect

import "image"

// findContours returns the bounding rectangles of connected white regions
// in a binary edge map. Components are discovered in scan order, so the
// output order is deterministic for identical input.
func findContours(img *image.Gray) []image.Rectangle {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	visited := make([]bool, w*h)

	var contours []image.Rectangle
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			idx := (y-bounds.Min.Y)*w + (x - bounds.Min.X)
			if img.GrayAt(x, y).Y > 128 && !visited[idx] {
				contours = append(contours, floodFill(img, visited, x, y))
			}
		}
	}
	return contours
}

// floodFill walks one connected component iteratively and returns its
// bounding rectangle, marking every visited pixel.
func floodFill(img *image.Gray, visited []bool, startX, startY int) image.Rectangle {
	bounds := img.Bounds()
	w := bounds.Dx()
	minX, minY := startX, startY
	maxX, maxY := startX, startY

	stack := []image.Point{{X: startX, Y: startY}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, y := p.X, p.Y
		if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		idx := (y-bounds.Min.Y)*w + (x - bounds.Min.X)
		if visited[idx] || img.GrayAt(x, y).Y <= 128 {
			continue
		}
		visited[idx] = true

		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}

		stack = append(stack,
			image.Point{X: x + 1, Y: y},
			image.Point{X: x - 1, Y: y},
			image.Point{X: x, Y: y + 1},
			image.Point{X: x, Y: y - 1},
		)
	}

	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// countComponents counts connected white regions in a binary image. Used by
// the texture gate, where many small components signal rows of glyphs.
func countComponents(img *image.Gray) int {
	return len(findContours(img))
}
