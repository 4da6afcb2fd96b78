package detect

import (
	"image"

	"github.com/deckle/deckle/internal/geom"
)

// Tier is the coarse physical-size class of an accepted figure. It selects
// which floors apply and whether the figure qualifies for high-resolution
// re-rendering.
type Tier string

const (
	TierIcon  Tier = "icon"
	TierMid   Tier = "mid"
	TierBoard Tier = "board"
)

// Candidate is a raw detected region before gating. PixelRect is in page
// raster coordinates at the detection DPI; PageRect is the same region in
// PDF points.
type Candidate struct {
	PixelRect  image.Rectangle
	PageRect   geom.Rect
	Confidence float64
	Merged     bool

	// passes counts how many pooled detections this candidate absorbed,
	// so merge keeps confidence a true average.
	passes int
}

// Area returns the candidate area in pixels.
func (c Candidate) Area() int {
	return c.PixelRect.Dx() * c.PixelRect.Dy()
}

// Metrics are the measured properties of an accepted figure.
type Metrics struct {
	WidthIn      float64 `yaml:"width_in"`
	HeightIn     float64 `yaml:"height_in"`
	CoverageX    float64 `yaml:"coverage_x"`
	CoverageY    float64 `yaml:"coverage_y"`
	TextOverlap  float64 `yaml:"text_overlap"`
	EdgeDensity  float64 `yaml:"edge_density"`
	LumaStdDev   float64 `yaml:"luma_stddev"`
	Uniformity   float64 `yaml:"uniformity"`
	MeanColorHex string  `yaml:"mean_color"`
}

// Figure is a candidate that survived every gate. Immutable once built,
// except for the fidelity fields which the Upgrader fills in.
type Figure struct {
	Candidate
	Metrics Metrics
	Tier    Tier
	Score   float64
	Rank    int

	// Fidelity output: the crop to persist and the DPI it was rendered at.
	Image          *image.RGBA
	RenderDPI      int
	UpscaleSuspect bool
}

// Rejection is a candidate refused by a gate. Reason names the gate and the
// measured-vs-limit values, e.g. "too_small(312 vs 840)".
type Rejection struct {
	Candidate
	Reason string
}
