package detect

import (
	"image"
	"math"
	"testing"

	"github.com/deckle/deckle/internal/geom"
)

func TestBuildTextMaskCoverage(t *testing.T) {
	// 100x100 px page at scale 1 (one point per pixel) with a text block
	// covering the top 10 rows.
	mask := BuildTextMask(100, 100, 1.0, []geom.Rect{geom.NewRect(0, 0, 100, 10)}, 0)

	if !mask.At(50, 5) {
		t.Error("pixel inside the text block not masked")
	}
	if mask.At(50, 50) {
		t.Error("pixel far below the text block masked")
	}

	// Coverage of the whole page is roughly the block share. Rasterization
	// rounds outward by up to one pixel per edge.
	got := mask.Coverage(image.Rect(0, 0, 100, 100))
	if math.Abs(got-0.11) > 0.02 {
		t.Errorf("page coverage = %v, want about 0.11", got)
	}

	// A rect fully inside the block is fully covered.
	if got := mask.Coverage(image.Rect(10, 2, 90, 8)); got != 1.0 {
		t.Errorf("interior coverage = %v, want 1.0", got)
	}
}

func TestBuildTextMaskMarginExpansion(t *testing.T) {
	block := geom.NewRect(40, 40, 20, 20)

	tight := BuildTextMask(100, 100, 1.0, []geom.Rect{block}, 0)
	wide := BuildTextMask(100, 100, 1.0, []geom.Rect{block}, 5)

	if tight.At(37, 50) {
		t.Error("unexpanded mask covers pixel outside the block")
	}
	if !wide.At(37, 50) {
		t.Error("expanded mask misses pixel within the margin")
	}
}

func TestBuildTextMaskScale(t *testing.T) {
	// Two pixels per point: a block at (10,10)pt lands at (20,20)px.
	mask := BuildTextMask(200, 200, 2.0, []geom.Rect{geom.NewRect(10, 10, 30, 5)}, 0)

	if !mask.At(40, 24) {
		t.Error("scaled mask misses block interior")
	}
	if mask.At(10, 10) {
		t.Error("scaled mask covers area before the block")
	}
}

func TestBuildTextMaskOverlappingBlocksNotDoubleCounted(t *testing.T) {
	blocks := []geom.Rect{
		geom.NewRect(0, 0, 50, 50),
		geom.NewRect(0, 0, 50, 50), // exact duplicate
	}
	mask := BuildTextMask(100, 100, 1.0, blocks, 0)

	got := mask.Coverage(image.Rect(0, 0, 100, 100))
	if got > 0.30 {
		t.Errorf("duplicate blocks double counted: coverage = %v", got)
	}
}

func TestMaskApplyFlattensText(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 100, 100))
	fillGray(gray, gray.Bounds(), 230)
	// Dark "glyphs" in the masked band and a dark shape outside it.
	fillGray(gray, image.Rect(10, 10, 90, 20), 20)
	fillGray(gray, image.Rect(30, 60, 60, 90), 40)

	mask := BuildTextMask(100, 100, 1.0, []geom.Rect{geom.NewRect(10, 10, 80, 10)}, 0)
	flattened := mask.Apply(gray)

	// Masked glyphs flattened to the page median (light background).
	if got := flattened.GrayAt(50, 15).Y; got < 200 {
		t.Errorf("masked pixel = %d, want flattened to light median", got)
	}
	// The shape outside the mask is untouched.
	if got := flattened.GrayAt(45, 75).Y; got != 40 {
		t.Errorf("unmasked pixel = %d, want 40", got)
	}
	// The input image is not mutated.
	if got := gray.GrayAt(50, 15).Y; got != 20 {
		t.Errorf("Apply mutated its input: pixel = %d, want 20", got)
	}
}

func TestMedianLuma(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 10, 10))
	fillGray(gray, gray.Bounds(), 200)
	fillGray(gray, image.Rect(0, 0, 10, 3), 10)

	if got := medianLuma(gray); got != 200 {
		t.Errorf("medianLuma = %d, want 200", got)
	}
}
