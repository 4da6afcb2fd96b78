package detect

import (
	"math"
	"sort"
)

// Score banding. Each band rewards the measurement range typical of genuine
// component art; the sum is clamped to [0, 1].
const (
	scoreBase = 0.35

	areaBandLo, areaBandHi   = 0.02, 0.25 // page-area fraction sweet spot
	areaBandBonus            = 0.20
	areaBandWideHi           = 0.50
	areaBandWideBonus        = 0.12

	aspectSquareMax   = 1.4
	aspectSquareBonus = 0.15
	aspectModerateMax = 2.5
	aspectModerate    = 0.10
	aspectLooseMax    = 4.0
	aspectLoose       = 0.05

	edgeBandLo, edgeBandHi = 0.05, 0.25
	edgeBandBonus          = 0.15
	edgeNearBonus          = 0.08

	lumaBandLo, lumaBandHi = 18.0, 70.0
	lumaBandBonus          = 0.15
	lumaNearLo             = 12.0
	lumaNearBonus          = 0.08
)

// likenessScore estimates how component-like an accepted figure is. Purely
// a ranking aid; it never rejects.
func likenessScore(m Metrics) float64 {
	score := scoreBase

	areaFrac := m.CoverageX * m.CoverageY
	switch {
	case areaFrac >= areaBandLo && areaFrac <= areaBandHi:
		score += areaBandBonus
	case areaFrac > areaBandHi && areaFrac <= areaBandWideHi:
		score += areaBandWideBonus
	}

	aspect := math.Max(m.WidthIn/m.HeightIn, m.HeightIn/m.WidthIn)
	switch {
	case aspect <= aspectSquareMax:
		score += aspectSquareBonus
	case aspect <= aspectModerateMax:
		score += aspectModerate
	case aspect <= aspectLooseMax:
		score += aspectLoose
	}

	switch {
	case m.EdgeDensity >= edgeBandLo && m.EdgeDensity <= edgeBandHi:
		score += edgeBandBonus
	case m.EdgeDensity >= edgeBandLo/2 && m.EdgeDensity < edgeBandLo,
		m.EdgeDensity > edgeBandHi && m.EdgeDensity <= edgeBandHi+0.10:
		score += edgeNearBonus
	}

	switch {
	case m.LumaStdDev >= lumaBandLo && m.LumaStdDev <= lumaBandHi:
		score += lumaBandBonus
	case m.LumaStdDev >= lumaNearLo && m.LumaStdDev < lumaBandLo:
		score += lumaNearBonus
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// rankFigures orders figures by (-score, x0, y0, width, height) and assigns
// 1-based ranks. The geometric tie-break makes the order total: two distinct
// figures cannot share all four values after merging.
func rankFigures(figs []Figure) {
	sort.Slice(figs, func(i, j int) bool {
		a, b := figs[i], figs[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.PixelRect.Min.X != b.PixelRect.Min.X {
			return a.PixelRect.Min.X < b.PixelRect.Min.X
		}
		if a.PixelRect.Min.Y != b.PixelRect.Min.Y {
			return a.PixelRect.Min.Y < b.PixelRect.Min.Y
		}
		if a.PixelRect.Dx() != b.PixelRect.Dx() {
			return a.PixelRect.Dx() < b.PixelRect.Dx()
		}
		return a.PixelRect.Dy() < b.PixelRect.Dy()
	})
	for i := range figs {
		figs[i].Rank = i + 1
	}
}

// Both output lists are sorted by (y, x, -area).
func readingOrderLess(a, b Candidate) bool {
	if a.PixelRect.Min.Y != b.PixelRect.Min.Y {
		return a.PixelRect.Min.Y < b.PixelRect.Min.Y
	}
	if a.PixelRect.Min.X != b.PixelRect.Min.X {
		return a.PixelRect.Min.X < b.PixelRect.Min.X
	}
	return a.Area() > b.Area()
}

func sortFiguresReading(figs []Figure) {
	sort.Slice(figs, func(i, j int) bool {
		return readingOrderLess(figs[i].Candidate, figs[j].Candidate)
	})
}

func sortRejectionsReading(rejs []Rejection) {
	sort.Slice(rejs, func(i, j int) bool {
		return readingOrderLess(rejs[i].Candidate, rejs[j].Candidate)
	})
}
