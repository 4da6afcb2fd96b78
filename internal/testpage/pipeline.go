package testpage

import (
	"fmt"
	"image"
	"sort"

	"github.com/deckle/deckle/internal/geom"
	"github.com/deckle/deckle/internal/source"
	"github.com/deckle/deckle/internal/textblock"
)

// PageSource exposes the synthetic page through the source interface. Every
// requested DPI is drawn fresh, so clip re-renders gain real resolution the
// way a vector original would.
type PageSource struct{}

func NewSource() *PageSource { return &PageSource{} }

func (s *PageSource) PageCount() int { return 1 }

func (s *PageSource) GetPageDimensions(index int) (float64, float64, error) {
	if index != 0 {
		return 0, 0, fmt.Errorf("page index %d out of range", index)
	}
	return 612, 792, nil
}

func (s *PageSource) RenderPage(index int, dpi int) (*source.RenderedPage, error) {
	if index != 0 {
		return nil, fmt.Errorf("page index %d out of range", index)
	}
	p, err := Render(dpi)
	if err != nil {
		return nil, err
	}
	return &source.RenderedPage{
		Index:    index,
		Image:    p.Image,
		DPI:      p.DPI,
		WidthPt:  p.WidthPt,
		HeightPt: p.HeightPt,
	}, nil
}

func (s *PageSource) RenderClip(index int, clip geom.Rect, dpi int) (*image.RGBA, error) {
	page, err := s.RenderPage(index, dpi)
	if err != nil {
		return nil, err
	}
	return source.CropRGBA(page.Image, page.PixelRect(clip))
}

func (s *PageSource) Close() error { return nil }

// BlockProvider serves the page's planted text boxes through the textblock
// interface, so pipeline runs over synthetic pages mask text the same way
// real documents do.
func (p *Page) BlockProvider() textblock.Provider {
	return blockProvider{page: p}
}

type blockProvider struct{ page *Page }

func (b blockProvider) PageBlocks(int, float64) ([]geom.Rect, error) {
	return b.page.TextBlocks, nil
}

func (b blockProvider) Close() error { return nil }

// Verify matches detected rectangles against the planted components. A
// component counts as found when some rectangle overlaps it with IoU of at
// least 0.35, loose enough to absorb dilation growth around true edges.
// The returned lines describe each component for selfcheck output.
func (p *Page) Verify(rects []image.Rectangle) (bool, []string) {
	var lines []string
	found := 0
	for _, c := range p.Components {
		best := 0.0
		var bestRect image.Rectangle
		for _, r := range rects {
			if v := iou(c.Rect, r); v > best {
				best = v
				bestRect = r
			}
		}
		if best >= 0.35 {
			found++
			lines = append(lines, fmt.Sprintf("  ok   %-5s planted=%v detected=%v iou=%.2f",
				c.Kind, c.Rect, bestRect, best))
		} else {
			lines = append(lines, fmt.Sprintf("  MISS %-5s planted=%v best_iou=%.2f",
				c.Kind, c.Rect, best))
		}
	}
	sort.Strings(lines)
	return found == len(p.Components), lines
}

func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := inter.Dx() * inter.Dy()
	ua := a.Dx()*a.Dy() + b.Dx()*b.Dy() - ia
	if ua <= 0 {
		return 0
	}
	return float64(ia) / float64(ua)
}
