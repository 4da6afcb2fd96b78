package detect

import (
	"fmt"
	"image"
	"log/slog"

	xdraw "golang.org/x/image/draw"

	"github.com/deckle/deckle/internal/source"
)

// Upgrader re-renders small accepted figures at higher resolution until they
// meet the quality floor, and probes whether the underlying art is a raster
// upscale.
type Upgrader struct {
	cfg    Config
	src    source.Source
	logger *slog.Logger
}

func NewUpgrader(cfg Config, src source.Source) *Upgrader {
	cfg.defaults()
	return &Upgrader{cfg: cfg, src: src, logger: cfg.Logger}
}

// Upgrade fills in the figure's output crop. Every figure gets at least the
// base-resolution crop; ICON-tier figures and crops below the quality floor
// climb the DPI ladder. Re-render trouble degrades to the best crop obtained
// so far and never fails the figure.
func (u *Upgrader) Upgrade(page *source.RenderedPage, fig *Figure) error {
	base, err := source.CropRGBA(page.Image, fig.PixelRect)
	if err != nil {
		return fmt.Errorf("crop figure at %v: %w", fig.PixelRect, err)
	}
	fig.Image = base
	fig.RenderDPI = page.DPI

	if fig.Tier != TierIcon && minDim(base) >= u.cfg.QualityFloorPx {
		return nil
	}

	for _, dpi := range u.cfg.DPILadder {
		if dpi <= fig.RenderDPI {
			continue
		}
		crop, err := u.src.RenderClip(page.Index, fig.PageRect, dpi)
		if err != nil {
			u.logger.Warn("clip re-render failed, keeping lower resolution",
				"page", page.Index, "dpi", dpi, "error", err)
			break
		}
		fig.Image = crop
		fig.RenderDPI = dpi
		if minDim(crop) >= u.cfg.QualityFloorPx {
			break
		}
	}

	if fig.RenderDPI > page.DPI {
		fig.UpscaleSuspect = u.probeUpscale(base, fig.Image)
	}
	return nil
}

// probeUpscale compares the high-resolution re-render against the base crop
// magnified to the same size with a high-quality scaler. A genuine vector or
// high-resolution source carries clearly more high-frequency detail than the
// magnification; a raster original does not, because the renderer could only
// interpolate the same pixels the magnifier did.
func (u *Upgrader) probeUpscale(base, high *image.RGBA) bool {
	hb := high.Bounds()
	if hb.Dx() < 8 || hb.Dy() < 8 {
		return false
	}

	magnified := image.NewRGBA(image.Rect(0, 0, hb.Dx(), hb.Dy()))
	xdraw.CatmullRom.Scale(magnified, magnified.Bounds(), base, base.Bounds(), xdraw.Src, nil)

	magSharpness := laplacianVariance(toGrayscale(magnified))
	highSharpness := laplacianVariance(toGrayscale(high))
	if magSharpness <= 0 {
		return false
	}

	gain := highSharpness / magSharpness
	return gain < u.cfg.UpscaleGainMin
}

// laplacianVariance measures image sharpness as the variance of the 3x3
// Laplacian response. Blurry inputs score low.
func laplacianVariance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	if bounds.Dx() < 3 || bounds.Dy() < 3 {
		return 0
	}

	var sum, sumSq float64
	n := 0
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			lap := float64(gray.GrayAt(x, y-1).Y) +
				float64(gray.GrayAt(x-1, y).Y) +
				float64(gray.GrayAt(x+1, y).Y) +
				float64(gray.GrayAt(x, y+1).Y) -
				4*float64(gray.GrayAt(x, y).Y)
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

func minDim(img *image.RGBA) int {
	b := img.Bounds()
	if b.Dx() < b.Dy() {
		return b.Dx()
	}
	return b.Dy()
}
