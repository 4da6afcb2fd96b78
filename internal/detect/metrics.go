package detect

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// regionStats are the edge measurements of one candidate region, computed on
// the unmasked page grayscale.
type regionStats struct {
	EdgeDensity      float64 // edge pixels / region pixels
	EnergyRatio      float64 // Σ|gx| / Σ|gy|
	Components       int
	ComponentDensity float64 // components per 1000 px²
}

// computeRegionStats runs the Sobel operator inside rect and derives the
// texture measurements the gates consume.
func computeRegionStats(gray *image.Gray, rect image.Rectangle, threshold float64) regionStats {
	r := rect.Intersect(gray.Bounds())
	if r.Dx() < 3 || r.Dy() < 3 {
		return regionStats{}
	}

	binary := image.NewGray(r)
	var energyX, energyY float64
	edgePixels := 0

	for y := r.Min.Y + 1; y < r.Max.Y-1; y++ {
		for x := r.Min.X + 1; x < r.Max.X-1; x++ {
			var sumX, sumY float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					pixel := float64(gray.GrayAt(x+kx, y+ky).Y)
					sumX += pixel * float64(sobelGX[ky+1][kx+1])
					sumY += pixel * float64(sobelGY[ky+1][kx+1])
				}
			}
			energyX += math.Abs(sumX)
			energyY += math.Abs(sumY)
			if math.Sqrt(sumX*sumX+sumY*sumY) > threshold {
				binary.SetGray(x, y, color.Gray{Y: 255})
				edgePixels++
			}
		}
	}

	area := float64(r.Dx() * r.Dy())
	components := countComponents(binary)

	ratio := 0.0
	if energyY > 0 {
		ratio = energyX / energyY
	} else if energyX > 0 {
		ratio = math.Inf(1)
	}

	return regionStats{
		EdgeDensity:      float64(edgePixels) / area,
		EnergyRatio:      ratio,
		Components:       components,
		ComponentDensity: float64(components) / area * 1000,
	}
}

// lumaStats are the brightness measurements of one candidate region.
type lumaStats struct {
	Mean       float64
	StdDev     float64
	Median     uint8
	Uniformity float64 // fraction of pixels within ±window of the median
}

func computeLumaStats(gray *image.Gray, rect image.Rectangle, window uint8) lumaStats {
	r := rect.Intersect(gray.Bounds())
	total := r.Dx() * r.Dy()
	if total <= 0 {
		return lumaStats{}
	}

	var hist [256]int
	var sum, sumSq float64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := gray.GrayAt(x, y).Y
			hist[v]++
			f := float64(v)
			sum += f
			sumSq += f * f
		}
	}

	n := float64(total)
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}

	half := total / 2
	acc := 0
	median := uint8(255)
	for v := 0; v < 256; v++ {
		acc += hist[v]
		if acc > half {
			median = uint8(v)
			break
		}
	}

	lo := int(median) - int(window)
	hi := int(median) + int(window)
	if lo < 0 {
		lo = 0
	}
	if hi > 255 {
		hi = 255
	}
	within := 0
	for v := lo; v <= hi; v++ {
		within += hist[v]
	}

	return lumaStats{
		Mean:       mean,
		StdDev:     math.Sqrt(variance),
		Median:     median,
		Uniformity: float64(within) / n,
	}
}

// lumaWindow is the ± band around the median used for the uniformity ratio.
const lumaWindow = 15

// meanColorHex averages the region in Lab space and returns the result as a
// hex string. Perceptual averaging keeps mixed-hue art from collapsing into
// muddy RGB midpoints.
func meanColorHex(img *image.RGBA, rect image.Rectangle) string {
	r := rect.Intersect(img.Bounds())
	if r.Empty() {
		return "#000000"
	}

	// Sample on a stride for large regions; deterministic for a given rect.
	step := 1
	if area := r.Dx() * r.Dy(); area > 65536 {
		step = int(math.Sqrt(float64(area) / 65536))
	}

	var l, a, b float64
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y += step {
		for x := r.Min.X; x < r.Max.X; x += step {
			c, ok := colorful.MakeColor(img.RGBAAt(x, y))
			if !ok {
				continue
			}
			cl, ca, cb := c.Lab()
			l += cl
			a += ca
			b += cb
			n++
		}
	}
	if n == 0 {
		return "#000000"
	}

	mean := colorful.Lab(l/float64(n), a/float64(n), b/float64(n)).Clamped()
	return mean.Hex()
}

// gateReason formats the canonical measured-vs-limit rejection string.
func gateReason(gate string, measured, limit float64) string {
	return fmt.Sprintf("%s(%.3f vs %.3f)", gate, measured, limit)
}
