package source

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"

	xdraw "golang.org/x/image/draw"

	"github.com/deckle/deckle/internal/geom"
)

// ImageSource serves pre-rendered page images from a file or directory.
// Pixel dimensions are mapped to PDF points through an assumed source DPI,
// so detection thresholds expressed in physical units keep working.
type ImageSource struct {
	paths      []string
	assumedDPI int
}

func NewImageSource(path string, assumedDPI int) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if assumedDPI <= 0 {
		assumedDPI = 96
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				ext := filepath.Ext(entry.Name())
				if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
					paths = append(paths, filepath.Join(path, entry.Name()))
				}
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no page images under %s", path)
	}
	return &ImageSource{paths: paths, assumedDPI: assumedDPI}, nil
}

func (s *ImageSource) PageCount() int {
	return len(s.paths)
}

func (s *ImageSource) GetPageDimensions(index int) (float64, float64, error) {
	if index < 0 || index >= len(s.paths) {
		return 0, 0, fmt.Errorf("page index %d out of range", index)
	}
	f, err := os.Open(s.paths[index])
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode config %s: %w", s.paths[index], err)
	}
	ptPerPx := 72.0 / float64(s.assumedDPI)
	return float64(cfg.Width) * ptPerPx, float64(cfg.Height) * ptPerPx, nil
}

func (s *ImageSource) RenderPage(index int, dpi int) (*RenderedPage, error) {
	if index < 0 || index >= len(s.paths) {
		return nil, fmt.Errorf("page index %d out of range", index)
	}
	f, err := os.Open(s.paths[index])
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoded, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.paths[index], err)
	}

	img := EnsureRGBA(decoded)
	if dpi != s.assumedDPI {
		// Resample to the requested resolution so per-inch measurements
		// match what a live PDF render would produce.
		factor := float64(dpi) / float64(s.assumedDPI)
		w := int(float64(img.Bounds().Dx()) * factor)
		h := int(float64(img.Bounds().Dy()) * factor)
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		img = scaled
	}

	return &RenderedPage{
		Index:    index,
		Image:    img,
		DPI:      dpi,
		WidthPt:  float64(img.Bounds().Dx()) * 72.0 / float64(dpi),
		HeightPt: float64(img.Bounds().Dy()) * 72.0 / float64(dpi),
	}, nil
}

func (s *ImageSource) RenderClip(index int, clip geom.Rect, dpi int) (*image.RGBA, error) {
	page, err := s.RenderPage(index, dpi)
	if err != nil {
		return nil, err
	}
	return CropRGBA(page.Image, page.PixelRect(clip))
}

func (s *ImageSource) Close() error {
	return nil
}
