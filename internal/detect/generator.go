// Package detect finds component-like regions on rendered rulebook pages.
// Two edge-detection passes propose candidate boxes, a gate chain filters
// them with explained rejections, and survivors are measured, tiered,
// scored and ranked deterministically.
package detect

import (
	"image"
	"log/slog"

	"github.com/deckle/deckle/internal/geom"
	"github.com/deckle/deckle/internal/source"
	"github.com/deckle/deckle/internal/system"
)

// Detector runs candidate generation and the gate pipeline on single pages.
// Safe for reuse across pages of one document; holds no page state.
type Detector struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config) *Detector {
	cfg.defaults()
	return &Detector{cfg: cfg, logger: cfg.Logger}
}

// Config returns the detector's effective configuration after defaulting.
func (d *Detector) Config() Config {
	return d.cfg
}

// Detect evaluates one rendered page against its text blocks and returns
// accepted figures and explained rejections, both in reading order. An
// empty page yields empty lists, never an error.
func (d *Detector) Detect(page *source.RenderedPage, textBlocks []geom.Rect) ([]Figure, []Rejection) {
	bounds := page.Image.Bounds()
	pg := pageGeometry{
		widthPx:  bounds.Dx(),
		heightPx: bounds.Dy(),
		dpi:      page.DPI,
	}

	gray := toGrayscale(page.Image)

	// Text is flattened away before edge detection so body copy proposes no
	// candidates. Texture and luma gates later read the untouched grayscale.
	detectMask := BuildTextMask(pg.widthPx, pg.heightPx, page.Scale(), textBlocks, d.cfg.TextMaskMarginPt)
	overlapMask := BuildTextMask(pg.widthPx, pg.heightPx, page.Scale(), textBlocks, 0)
	masked := detectMask.Apply(gray)

	pooled := d.generate(masked, page)
	d.logger.Debug("candidates pooled", "page", page.Index, "count", len(pooled))

	var kept []Candidate
	var rejections []Rejection
	for _, c := range pooled {
		if reason := d.stage1Gate(c, pg, gray); reason != "" {
			rejections = append(rejections, Rejection{Candidate: c, Reason: reason})
			continue
		}
		kept = append(kept, c)
	}

	merged := mergeCandidates(kept, d.cfg.MergeIoU)

	var figures []Figure
	for _, c := range merged {
		metrics, tier, reason := d.stage2Gate(c, pg, gray, overlapMask)
		if reason != "" {
			rejections = append(rejections, Rejection{Candidate: c, Reason: reason})
			continue
		}
		metrics.MeanColorHex = meanColorHex(page.Image, c.PixelRect)
		figures = append(figures, Figure{
			Candidate: c,
			Metrics:   metrics,
			Tier:      tier,
			Score:     likenessScore(metrics),
		})
	}

	rankFigures(figures)
	sortFiguresReading(figures)
	sortRejectionsReading(rejections)

	d.logger.Debug("page gated", "page", page.Index,
		"accepted", len(figures), "rejected", len(rejections))
	return figures, rejections
}

// generate runs both sensitivity passes over the masked grayscale and pools
// their contours into candidates.
func (d *Detector) generate(masked *image.Gray, page *source.RenderedPage) []Candidate {
	var pooled []Candidate
	for _, pass := range []PassConfig{d.cfg.Coarse, d.cfg.Fine} {
		edges := sobelEdgeDetection(masked, pass.EdgeThreshold)
		dilated := dilate(edges, pass.DilateKernel, pass.DilateIterations)
		system.PutPlane(edges)
		for _, rect := range findContours(dilated) {
			pooled = append(pooled, Candidate{
				PixelRect:  rect,
				PageRect:   page.PageRect(rect),
				Confidence: pass.Confidence,
				passes:     1,
			})
		}
		system.PutPlane(dilated)
	}
	return pooled
}
