// Package testpage renders synthetic rulebook pages with a known component
// layout. The selfcheck command runs the detection pipeline over these
// pages and verifies the planted components come back out.
package testpage

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/deckle/deckle/internal/geom"
)

// Block is one planted component with its ground-truth pixel rectangle.
type Block struct {
	Kind string
	Rect image.Rectangle
}

// Page is a synthetic render plus the ground truth needed to judge
// detection results against it.
type Page struct {
	Image      *image.RGBA
	DPI        int
	WidthPt    float64
	HeightPt   float64
	Components []Block     // regions detection should accept
	TextBlocks []geom.Rect // page-space boxes fed to the text mask
}

// Palette of the synthetic page. Kept strongly separated in luma so the
// grayscale pass sees the same structure a printed page would have.
var (
	paper     = color.RGBA{R: 250, G: 250, B: 246, A: 255}
	ink       = color.RGBA{R: 32, G: 30, B: 34, A: 255}
	cardFill  = color.RGBA{R: 236, G: 222, B: 188, A: 255}
	cardIcon  = color.RGBA{R: 150, G: 52, B: 44, A: 255}
	tokenRim  = color.RGBA{R: 40, G: 68, B: 130, A: 255}
	tokenFill = color.RGBA{R: 210, G: 176, B: 90, A: 255}
	tileDark  = color.RGBA{R: 70, G: 104, B: 70, A: 255}
	tileLight = color.RGBA{R: 196, G: 216, B: 188, A: 255}
)

// Render draws a US Letter page at the given DPI: a heading and a body
// paragraph of fake text, one card, one round token, one checkered tile
// and one QR code. Positions are fixed so runs are reproducible.
func Render(dpi int) (*Page, error) {
	if dpi <= 0 {
		dpi = 150
	}
	const widthPt, heightPt = 612.0, 792.0
	scale := float64(dpi) / 72.0

	px := func(pt float64) int { return int(pt * scale) }
	rectPx := func(x, y, w, h float64) image.Rectangle {
		return image.Rect(px(x), px(y), px(x+w), px(y+h))
	}

	img := image.NewRGBA(image.Rect(0, 0, px(widthPt), px(heightPt)))
	draw.Draw(img, img.Bounds(), image.NewUniform(paper), image.Point{}, draw.Src)

	p := &Page{
		Image:    img,
		DPI:      dpi,
		WidthPt:  widthPt,
		HeightPt: heightPt,
	}

	// Fake text: stripe bands standing in for a heading and a paragraph.
	heading := geom.NewRect(60, 40, 360, 24)
	body := geom.NewRect(60, 330, 480, 80)
	drawStripes(img, rectPx(60, 40, 360, 24), px(10), px(6))
	drawStripes(img, rectPx(60, 330, 480, 80), px(7), px(5))
	p.TextBlocks = append(p.TextBlocks, heading, body)

	// Card: border, fill, a title bar and a suit mark for inner texture.
	card := rectPx(60, 100, 120, 168)
	drawCard(img, card, px(3))
	p.Components = append(p.Components, Block{Kind: "card", Rect: card})

	// Round token with a contrasting rim.
	token := rectPx(390, 130, 72, 72)
	drawToken(img, token)
	p.Components = append(p.Components, Block{Kind: "token", Rect: token})

	// Checkered terrain tile.
	tile := rectPx(330, 450, 108, 108)
	drawTile(img, tile, px(18))
	p.Components = append(p.Components, Block{Kind: "tile", Rect: tile})

	// QR code, rendered borderless so the planted rect is exact.
	qr := rectPx(80, 470, 84, 84)
	if err := drawQR(img, qr); err != nil {
		return nil, fmt.Errorf("render qr block: %w", err)
	}
	p.Components = append(p.Components, Block{Kind: "qr", Rect: qr})

	return p, nil
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// drawStripes fills r with horizontal ink bands separated by paper gaps,
// the luma profile of a text paragraph without the glyph detail.
func drawStripes(img *image.RGBA, r image.Rectangle, lineH, gap int) {
	if lineH < 1 {
		lineH = 1
	}
	for y := r.Min.Y; y+lineH <= r.Max.Y; y += lineH + gap {
		fillRect(img, image.Rect(r.Min.X, y, r.Max.X, y+lineH), ink)
	}
}

func drawCard(img *image.RGBA, r image.Rectangle, border int) {
	fillRect(img, r, ink)
	fillRect(img, r.Inset(border), cardFill)

	// Title bar across the top.
	inner := r.Inset(border * 3)
	bar := image.Rect(inner.Min.X, inner.Min.Y, inner.Max.X, inner.Min.Y+inner.Dy()/8)
	fillRect(img, bar, cardIcon)

	// Suit mark below the bar.
	cx := (r.Min.X + r.Max.X) / 2
	cy := r.Min.Y + r.Dy()*5/8
	drawDisc(img, image.Pt(cx, cy), r.Dx()/5, cardIcon)
}

func drawToken(img *image.RGBA, r image.Rectangle) {
	c := image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
	radius := r.Dx() / 2
	drawDisc(img, c, radius, tokenRim)
	drawDisc(img, c, radius*3/4, tokenFill)
	drawDisc(img, c, radius/4, tokenRim)
}

func drawTile(img *image.RGBA, r image.Rectangle, cell int) {
	if cell < 1 {
		cell = 1
	}
	fillRect(img, r, tileLight)
	for y := r.Min.Y; y < r.Max.Y; y += cell {
		for x := r.Min.X; x < r.Max.X; x += cell {
			if ((x-r.Min.X)/cell+(y-r.Min.Y)/cell)%2 == 0 {
				continue
			}
			c := image.Rect(x, y, x+cell, y+cell).Intersect(r)
			fillRect(img, c, tileDark)
		}
	}
}

func drawDisc(img *image.RGBA, center image.Point, radius int, c color.Color) {
	rr := radius * radius
	for y := center.Y - radius; y <= center.Y+radius; y++ {
		for x := center.X - radius; x <= center.X+radius; x++ {
			dx, dy := x-center.X, y-center.Y
			if dx*dx+dy*dy <= rr {
				img.Set(x, y, c)
			}
		}
	}
}

func drawQR(img *image.RGBA, r image.Rectangle) error {
	qr, err := qrcode.New("deckle selfcheck page", qrcode.Medium)
	if err != nil {
		return err
	}
	qr.DisableBorder = true
	code := qr.Image(r.Dx())
	draw.Draw(img, r, code, code.Bounds().Min, draw.Src)
	return nil
}
