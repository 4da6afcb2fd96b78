package detect

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/deckle/deckle/internal/geom"
)

// testPG is the synthetic page geometry used across gate tests:
// 1000x1400 px at 150 DPI.
var testPG = pageGeometry{widthPx: 1000, heightPx: 1400, dpi: 150}

const testScale = 150.0 / 72.0 // px per pt at the test DPI

func newTestGray() *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, testPG.widthPx, testPG.heightPx))
	fillGray(gray, gray.Bounds(), 230)
	return gray
}

func emptyMask() *TextMask {
	return BuildTextMask(testPG.widthPx, testPG.heightPx, testScale, nil, 0)
}

// drawGlyphDashes fills a region with rows of small dark dashes, the
// texture of rendered body text.
func drawGlyphDashes(gray *image.Gray, r image.Rectangle) {
	for y := r.Min.Y; y+8 <= r.Max.Y; y += 12 {
		for x := r.Min.X; x+4 <= r.Max.X; x += 8 {
			fillGray(gray, image.Rect(x, y, x+4, y+8), 30)
		}
	}
}

// drawChecker fills a region with an 8px checkerboard, dense structured
// content that is nothing like text.
func drawChecker(gray *image.Gray, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if ((x-r.Min.X)/8+(y-r.Min.Y)/8)%2 == 0 {
				gray.SetGray(x, y, color.Gray{Y: 20})
			} else {
				gray.SetGray(x, y, color.Gray{Y: 240})
			}
		}
	}
}

func rawCand(r image.Rectangle) Candidate {
	return Candidate{PixelRect: r, Confidence: 0.7, passes: 1}
}

func TestStage1AreaGates(t *testing.T) {
	d := New(DefaultConfig())
	gray := newTestGray()

	tests := []struct {
		name       string
		rect       image.Rectangle
		wantPrefix string
	}{
		{"tiny fragment", image.Rect(500, 500, 510, 510), "too_small("},
		{"whole page blob", image.Rect(5, 5, 995, 1395), "oversize("},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason := d.stage1Gate(rawCand(tt.rect), testPG, gray)
			if !strings.HasPrefix(reason, tt.wantPrefix) {
				t.Errorf("reason = %q, want prefix %q", reason, tt.wantPrefix)
			}
		})
	}
}

func TestStage1BorderGates(t *testing.T) {
	d := New(DefaultConfig())
	gray := newTestGray()

	tests := []struct {
		name       string
		rect       image.Rectangle
		wantPrefix string
	}{
		{"header strip", image.Rect(300, 10, 700, 180), "border_top("},
		{"footer strip", image.Rect(300, 1250, 700, 1390), "border_bottom("},
		{"left gutter", image.Rect(10, 400, 250, 700), "border_left("},
		{"right gutter", image.Rect(750, 400, 990, 700), "border_right("},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason := d.stage1Gate(rawCand(tt.rect), testPG, gray)
			if !strings.HasPrefix(reason, tt.wantPrefix) {
				t.Errorf("reason = %q, want prefix %q", reason, tt.wantPrefix)
			}
		})
	}
}

func TestStage1AspectGate(t *testing.T) {
	d := New(DefaultConfig())
	gray := newTestGray()

	// An 860x50 banner: aspect 17.2 against a ceiling of 8.
	reason := d.stage1Gate(rawCand(image.Rect(100, 700, 960, 750)), testPG, gray)
	if !strings.HasPrefix(reason, "aspect_extreme(") {
		t.Errorf("reason = %q, want aspect_extreme", reason)
	}
}

func TestStage1TextureGate(t *testing.T) {
	d := New(DefaultConfig())

	textGray := newTestGray()
	textRect := image.Rect(200, 200, 500, 320)
	drawGlyphDashes(textGray, textRect)

	reason := d.stage1Gate(rawCand(textRect), testPG, textGray)
	if !strings.HasPrefix(reason, "text_panel_texture(") {
		t.Errorf("glyph block reason = %q, want text_panel_texture", reason)
	}

	// A checkerboard is just as edge-dense but symmetric in energy, so the
	// three-way AND must let it through.
	checkerGray := newTestGray()
	checkerRect := image.Rect(200, 200, 500, 500)
	drawChecker(checkerGray, checkerRect)

	if reason := d.stage1Gate(rawCand(checkerRect), testPG, checkerGray); reason != "" {
		t.Errorf("checkerboard rejected by stage1: %q", reason)
	}
}

func TestStage2CoverageRoles(t *testing.T) {
	d := New(DefaultConfig())
	gray := newTestGray()
	mask := emptyMask()

	// 900x1288 px of a 1000x1400 page: 90% x 92% coverage.
	_, _, reason := d.stage2Gate(rawCand(image.Rect(50, 56, 950, 1344)), testPG, gray, mask)
	if !strings.HasPrefix(reason, "full_page_coverage(") {
		t.Errorf("art region reason = %q, want full_page_coverage", reason)
	}

	// 65% x 70% coverage.
	_, _, reason = d.stage2Gate(rawCand(image.Rect(100, 100, 750, 1080)), testPG, gray, mask)
	if !strings.HasPrefix(reason, "illustration_coverage(") {
		t.Errorf("illustration region reason = %q, want illustration_coverage", reason)
	}
}

func TestStage2MicroAndFloor(t *testing.T) {
	d := New(DefaultConfig())
	gray := newTestGray()
	mask := emptyMask()

	// 25x35 px: 2.5% x 2.5% coverage, below the micro limit on both axes.
	_, _, reason := d.stage2Gate(rawCand(image.Rect(500, 500, 525, 535)), testPG, gray, mask)
	if !strings.HasPrefix(reason, "micro_fragment(") {
		t.Errorf("micro region reason = %q, want micro_fragment", reason)
	}

	// 15x100 px: icon tier, but 0.1in is under even the icon floor.
	_, _, reason = d.stage2Gate(rawCand(image.Rect(500, 500, 515, 600)), testPG, gray, mask)
	if !strings.HasPrefix(reason, "icon_floor(") {
		t.Errorf("sub-floor region reason = %q, want icon_floor", reason)
	}
}

func TestStage2TextOverlapHardReject(t *testing.T) {
	d := New(DefaultConfig())

	// The candidate is a flat uniform region (which would also trip the
	// background gate) overlapped 16% by a text block. The overlap gate
	// must fire first, regardless of edge density.
	gray := newTestGray()
	candRect := image.Rect(200, 200, 350, 350)

	// A text band across the candidate's top 24 rows, specified in points.
	textBlocks := []geom.Rect{geom.NewRect(
		float64(candRect.Min.X)/testScale,
		float64(candRect.Min.Y)/testScale,
		float64(candRect.Dx())/testScale,
		24.0/testScale,
	)}
	mask := BuildTextMask(testPG.widthPx, testPG.heightPx, testScale, textBlocks, 0)

	_, _, reason := d.stage2Gate(rawCand(candRect), testPG, gray, mask)
	if !strings.HasPrefix(reason, "text_panel_overlap(") {
		t.Errorf("overlapped region reason = %q, want text_panel_overlap", reason)
	}
	if !strings.Contains(reason, "text_panel") {
		t.Errorf("reason %q must name text_panel", reason)
	}
}

func TestStage2FlatBackgroundGate(t *testing.T) {
	d := New(DefaultConfig())
	mask := emptyMask()

	// Uniform fill: no edges, no variance, total uniformity.
	flatGray := newTestGray()
	_, _, reason := d.stage2Gate(rawCand(image.Rect(300, 400, 600, 700)), testPG, flatGray, mask)
	if !strings.HasPrefix(reason, "background_flat(") {
		t.Errorf("flat region reason = %q, want background_flat", reason)
	}

	// Structured content with strong contrast must survive.
	checkerGray := newTestGray()
	checkerRect := image.Rect(300, 400, 600, 700)
	drawChecker(checkerGray, checkerRect)

	metrics, tier, reason := d.stage2Gate(rawCand(checkerRect), testPG, checkerGray, mask)
	if reason != "" {
		t.Fatalf("structured region rejected: %q", reason)
	}
	if tier != TierMid {
		t.Errorf("tier = %v, want %v", tier, TierMid)
	}
	if metrics.EdgeDensity <= 0 {
		t.Error("accepted region has zero edge density metric")
	}
	if metrics.LumaStdDev <= d.cfg.Flat.LumaStdDevMax {
		t.Errorf("checker luma stddev = %v, expected high contrast", metrics.LumaStdDev)
	}
	if metrics.WidthIn != 2.0 || metrics.HeightIn != 2.0 {
		t.Errorf("physical size = %vx%v in, want 2x2", metrics.WidthIn, metrics.HeightIn)
	}
}
