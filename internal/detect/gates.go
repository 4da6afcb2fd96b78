package detect

import (
	"fmt"
	"image"
	"math"
)

// pageGeometry carries the per-page values every gate needs.
type pageGeometry struct {
	widthPx, heightPx int
	dpi               int
}

func (g pageGeometry) areaPx() int { return g.widthPx * g.heightPx }

// stage1Gate checks a raw pooled bbox against the candidate gates: area
// bounds, border margins, aspect ceiling and the text-texture heuristic.
// Returns the rejection reason, or "" when the candidate passes.
func (d *Detector) stage1Gate(c Candidate, pg pageGeometry, gray *image.Gray) string {
	area := c.Area()

	minArea := d.cfg.MinAreaPx
	if rel := int(d.cfg.MinAreaPage * float64(pg.areaPx())); rel > minArea {
		minArea = rel
	}
	if area < minArea {
		return gateReason("too_small", float64(area), float64(minArea))
	}
	if maxArea := int(d.cfg.MaxAreaPage * float64(pg.areaPx())); area > maxArea {
		return gateReason("oversize", float64(area), float64(maxArea))
	}

	// Border margins, each side as a fraction of the page dimension.
	left := float64(c.PixelRect.Min.X) / float64(pg.widthPx)
	right := float64(pg.widthPx-c.PixelRect.Max.X) / float64(pg.widthPx)
	top := float64(c.PixelRect.Min.Y) / float64(pg.heightPx)
	bottom := float64(pg.heightPx-c.PixelRect.Max.Y) / float64(pg.heightPx)
	switch {
	case left < d.cfg.Margins.Left:
		return gateReason("border_left", left, d.cfg.Margins.Left)
	case right < d.cfg.Margins.Right:
		return gateReason("border_right", right, d.cfg.Margins.Right)
	case top < d.cfg.Margins.Top:
		return gateReason("border_top", top, d.cfg.Margins.Top)
	case bottom < d.cfg.Margins.Bottom:
		return gateReason("border_bottom", bottom, d.cfg.Margins.Bottom)
	}

	w, h := float64(c.PixelRect.Dx()), float64(c.PixelRect.Dy())
	aspect := math.Max(w/h, h/w)
	if aspect > d.cfg.AspectMax {
		return gateReason("aspect_extreme", aspect, d.cfg.AspectMax)
	}

	// Text-texture heuristic: all three must hold. Glyph rows show dense
	// edges, many small components, and horizontal-dominant energy.
	t := d.cfg.Texture
	stats := computeRegionStats(gray, c.PixelRect, d.cfg.Fine.EdgeThreshold)
	if stats.EdgeDensity > t.EdgeDensityMin &&
		stats.ComponentDensity > t.ComponentDensityMin &&
		stats.EnergyRatio > t.EnergyRatioMin {
		return fmt.Sprintf("text_panel_texture(edge %.3f vs %.3f, comp %.3f vs %.3f, hv %.3f vs %.3f)",
			stats.EdgeDensity, t.EdgeDensityMin,
			stats.ComponentDensity, t.ComponentDensityMin,
			stats.EnergyRatio, t.EnergyRatioMin)
	}

	return ""
}

// stage2Gate runs the role and quality pipeline on a merged candidate.
// On success it returns the figure's metrics and tier; on rejection the
// reason string.
func (d *Detector) stage2Gate(c Candidate, pg pageGeometry, gray *image.Gray, overlapMask *TextMask) (Metrics, Tier, string) {
	covX := float64(c.PixelRect.Dx()) / float64(pg.widthPx)
	covY := float64(c.PixelRect.Dy()) / float64(pg.heightPx)
	widthIn := float64(c.PixelRect.Dx()) / float64(pg.dpi)
	heightIn := float64(c.PixelRect.Dy()) / float64(pg.dpi)

	// Coverage roles, in strict priority. Full-page art first.
	if covX >= d.cfg.ArtCoverage && covY >= d.cfg.ArtCoverage {
		return Metrics{}, "", fmt.Sprintf("full_page_coverage(%.2fx%.2f vs %.2f)", covX, covY, d.cfg.ArtCoverage)
	}
	if covX >= d.cfg.IllustrationCoverage && covY >= d.cfg.IllustrationCoverage {
		return Metrics{}, "", fmt.Sprintf("illustration_coverage(%.2fx%.2f vs %.2f)", covX, covY, d.cfg.IllustrationCoverage)
	}

	tier := classifyTier(widthIn, heightIn, covX, covY, d.cfg)

	if floor := tierFloor(tier, d.cfg); math.Min(widthIn, heightIn) < floor {
		return Metrics{}, "", gateReason(string(tier)+"_floor", math.Min(widthIn, heightIn), floor)
	}

	if covX < d.cfg.MicroCoverage && covY < d.cfg.MicroCoverage {
		return Metrics{}, "", fmt.Sprintf("micro_fragment(%.3fx%.3f vs %.3f)", covX, covY, d.cfg.MicroCoverage)
	}
	if covX > d.cfg.RemnantCoverage && covY > d.cfg.RemnantCoverage {
		return Metrics{}, "", fmt.Sprintf("page_remnant(%.2fx%.2f vs %.2f)", covX, covY, d.cfg.RemnantCoverage)
	}

	// Hard text-overlap reject: material overlap with the text layer means
	// a caption panel, whatever the texture looks like.
	overlap := overlapMask.Coverage(c.PixelRect)
	if overlap >= d.cfg.TextOverlapMax {
		return Metrics{}, "", gateReason("text_panel_overlap", overlap, d.cfg.TextOverlapMax)
	}

	stats := computeRegionStats(gray, c.PixelRect, d.cfg.Fine.EdgeThreshold)
	luma := computeLumaStats(gray, c.PixelRect, lumaWindow)

	// Flat-background heuristic: all three must hold so low-contrast but
	// structured art survives.
	f := d.cfg.Flat
	if stats.EdgeDensity < f.EdgeDensityMax &&
		luma.StdDev < f.LumaStdDevMax &&
		luma.Uniformity > f.UniformityMin {
		return Metrics{}, "", fmt.Sprintf("background_flat(edge %.3f vs %.3f, std %.1f vs %.1f, uniform %.2f vs %.2f)",
			stats.EdgeDensity, f.EdgeDensityMax,
			luma.StdDev, f.LumaStdDevMax,
			luma.Uniformity, f.UniformityMin)
	}

	m := Metrics{
		WidthIn:     widthIn,
		HeightIn:    heightIn,
		CoverageX:   covX,
		CoverageY:   covY,
		TextOverlap: overlap,
		EdgeDensity: stats.EdgeDensity,
		LumaStdDev:  luma.StdDev,
		Uniformity:  luma.Uniformity,
	}
	return m, tier, ""
}
