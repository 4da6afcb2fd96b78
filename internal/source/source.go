// Package source abstracts page providers. A Source yields page dimensions in
// PDF points and rasterized pages at a requested DPI; the PDF-backed
// implementation wraps go-fitz, the directory-backed one serves pre-rendered
// images.
package source

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/deckle/deckle/internal/geom"
)

type Source interface {
	PageCount() int
	// GetPageDimensions returns the page size in PDF points.
	GetPageDimensions(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (*RenderedPage, error)
	// RenderClip rasterizes only the given page-space region at the requested
	// DPI. Used to re-render small figures at higher resolution.
	RenderClip(index int, clip geom.Rect, dpi int) (*image.RGBA, error)
	Close() error
}

type FitzPDFSource struct {
	doc  *fitz.Document
	path string
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", path, err)
	}
	return &FitzPDFSource{doc: doc, path: path}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) GetPageDimensions(index int) (float64, float64, error) {
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, fmt.Errorf("page %d bounds: %w", index, err)
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

func (f *FitzPDFSource) RenderPage(index int, dpi int) (*RenderedPage, error) {
	widthPt, heightPt, err := f.GetPageDimensions(index)
	if err != nil {
		return nil, err
	}

	// Each render opens its own handle; fitz documents are not safe for
	// concurrent page access.
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, fmt.Errorf("open render handle: %w", err)
	}
	defer workerDoc.Close()

	img, err := workerDoc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("render page %d at %d dpi: %w", index, dpi, err)
	}

	return &RenderedPage{
		Index:    index,
		Image:    EnsureRGBA(img),
		DPI:      dpi,
		WidthPt:  widthPt,
		HeightPt: heightPt,
	}, nil
}

// RenderClip renders the full page at the requested DPI and crops the clip
// region out of it. fitz exposes no partial-page raster, so resolution is
// bought for the whole page and the clip extracted afterwards.
func (f *FitzPDFSource) RenderClip(index int, clip geom.Rect, dpi int) (*image.RGBA, error) {
	page, err := f.RenderPage(index, dpi)
	if err != nil {
		return nil, err
	}
	return CropRGBA(page.Image, page.PixelRect(clip))
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}
