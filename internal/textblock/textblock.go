// Package textblock locates rendered text on PDF pages. It clusters the
// positioned character runs of the text layer into line and paragraph boxes,
// which the detector uses to mask text regions out of figure candidates.
// Pages without a text layer (scans) simply yield no blocks.
package textblock

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/deckle/deckle/internal/geom"
)

// Provider yields the text-block rectangles of a page in page space
// (points, top-left origin). Implementations must tolerate pages without
// a text layer by returning an empty slice.
type Provider interface {
	PageBlocks(index int, pageHeightPt float64) ([]geom.Rect, error)
	Close() error
}

// Config tunes run clustering.
type Config struct {
	// RowTolerancePt groups runs whose baselines differ by at most this
	// many points into the same line.
	RowTolerancePt float64
	// LineGapPt splits a line at horizontal gaps wider than this, so text
	// in separate columns stays in separate boxes.
	LineGapPt float64
	// BlockGapFactor merges consecutive lines into one block while their
	// vertical gap stays below factor × line height.
	BlockGapFactor float64
	// MinBlockWidthPt drops degenerate fragments narrower than this.
	MinBlockWidthPt float64

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.RowTolerancePt <= 0 {
		c.RowTolerancePt = 3.0
	}
	if c.LineGapPt <= 0 {
		c.LineGapPt = 18.0
	}
	if c.BlockGapFactor <= 0 {
		c.BlockGapFactor = 0.9
	}
	if c.MinBlockWidthPt <= 0 {
		c.MinBlockWidthPt = 2.0
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// PDFProvider reads the text layer through the pure-Go pdf parser. The
// rasterizer never sees this handle; text geometry is the only thing taken
// from it.
type PDFProvider struct {
	cfg    Config
	file   io.Closer
	reader *pdf.Reader
	logger *slog.Logger
}

func NewPDFProvider(path string, cfg Config) (*PDFProvider, error) {
	cfg.defaults()
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open text layer %s: %w", path, err)
	}
	return &PDFProvider{cfg: cfg, file: f, reader: r, logger: cfg.Logger}, nil
}

// PageBlocks returns the clustered text boxes of the zero-based page. The
// underlying parser panics on some malformed content streams; those pages
// are reported as having no text rather than failing the run.
func (p *PDFProvider) PageBlocks(index int, pageHeightPt float64) (blocks []geom.Rect, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("text layer parse panic", "page", index, "panic", fmt.Sprint(r))
			blocks = nil
			err = nil
		}
	}()

	if index < 0 || index >= p.reader.NumPage() {
		return nil, fmt.Errorf("page index %d out of range", index)
	}
	page := p.reader.Page(index + 1)
	if page.V.IsNull() {
		return nil, nil
	}

	runs := page.Content().Text
	return clusterRuns(runs, pageHeightPt, p.cfg), nil
}

func (p *PDFProvider) Close() error {
	return p.file.Close()
}

// NullProvider reports every page as text-free. Used when the source has no
// text layer to consult, e.g. pre-rendered page images.
type NullProvider struct{}

func (NullProvider) PageBlocks(int, float64) ([]geom.Rect, error) { return nil, nil }
func (NullProvider) Close() error                                 { return nil }

// clusterRuns turns raw character runs into paragraph boxes: rows by
// baseline, line segments by horizontal gap, blocks by vertical adjacency.
// Run coordinates arrive with the PDF bottom-left origin and are flipped to
// the raster top-left orientation here.
func clusterRuns(runs []pdf.Text, pageHeightPt float64, cfg Config) []geom.Rect {
	type run struct {
		x, y, w, h float64 // top-left origin
	}

	flipped := make([]run, 0, len(runs))
	for _, t := range runs {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		h := t.FontSize
		if h <= 0 {
			h = 8
		}
		w := t.W
		if w <= 0 {
			w = h * 0.5
		}
		flipped = append(flipped, run{
			x: t.X,
			y: pageHeightPt - t.Y - h,
			w: w,
			h: h,
		})
	}
	if len(flipped) == 0 {
		return nil
	}

	sort.Slice(flipped, func(i, j int) bool {
		if flipped[i].y != flipped[j].y {
			return flipped[i].y < flipped[j].y
		}
		return flipped[i].x < flipped[j].x
	})

	// Rows by baseline, then line segments split at column-scale gaps.
	var lines []geom.Rect
	rowStart := 0
	for i := 1; i <= len(flipped); i++ {
		if i < len(flipped) && flipped[i].y-flipped[rowStart].y <= cfg.RowTolerancePt {
			continue
		}
		row := flipped[rowStart:i]
		sort.Slice(row, func(a, b int) bool { return row[a].x < row[b].x })

		seg := geom.NewRect(row[0].x, row[0].y, row[0].w, row[0].h)
		for _, r := range row[1:] {
			if r.x-seg.Right() > cfg.LineGapPt {
				lines = append(lines, seg)
				seg = geom.NewRect(r.x, r.y, r.w, r.h)
				continue
			}
			seg = seg.Union(geom.NewRect(r.x, r.y, r.w, r.h))
		}
		lines = append(lines, seg)
		rowStart = i
	}

	// Merge vertically adjacent lines with overlapping horizontal extent
	// into paragraph blocks.
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Y != lines[j].Y {
			return lines[i].Y < lines[j].Y
		}
		return lines[i].X < lines[j].X
	})

	var blocks []geom.Rect
	for _, line := range lines {
		if line.Width < cfg.MinBlockWidthPt {
			continue
		}
		merged := false
		for i := range blocks {
			b := blocks[i]
			gap := line.Top() - b.Bottom()
			if gap > cfg.BlockGapFactor*line.Height {
				continue
			}
			if horizontalOverlap(b, line) <= 0 {
				continue
			}
			blocks[i] = b.Union(line)
			merged = true
			break
		}
		if !merged {
			blocks = append(blocks, line)
		}
	}

	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].Y != blocks[j].Y {
			return blocks[i].Y < blocks[j].Y
		}
		return blocks[i].X < blocks[j].X
	})
	return blocks
}

func horizontalOverlap(a, b geom.Rect) float64 {
	left := a.Left()
	if b.Left() > left {
		left = b.Left()
	}
	right := a.Right()
	if b.Right() < right {
		right = b.Right()
	}
	return right - left
}
