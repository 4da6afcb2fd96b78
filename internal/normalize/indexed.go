package normalize

import (
	"fmt"
	"image"
	"image/color"
)

// convertIndexed resolves palette indices through the base colorspace.
// Out-of-range indices clamp to the highest entry, as PDF prescribes.
func convertIndexed(buf *RawBuffer) (*image.RGBA, error) {
	p := buf.Palette
	if p == nil {
		return nil, fmt.Errorf("indexed buffer carries no palette")
	}

	var baseN int
	switch familyOf(p.Base) {
	case familyGray:
		baseN = 1
	case familyRGB:
		baseN = 3
	case familyCMYK:
		baseN = 4
	default:
		return nil, fmt.Errorf("unsupported palette base space %q", p.Base)
	}
	need := (p.HiVal + 1) * baseN
	if p.HiVal < 0 || len(p.Lookup) < need {
		return nil, fmt.Errorf("palette lookup has %d bytes, need %d", len(p.Lookup), need)
	}

	samples, err := unpackSamples(buf.Data, buf.Width, buf.Height, buf.BitsPerComponent)
	if err != nil {
		return nil, err
	}

	out := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for i, s := range samples {
		idx := int(s)
		if idx > p.HiVal {
			idx = p.HiVal
		}
		entry := p.Lookup[idx*baseN:]
		dst := i * 4
		switch baseN {
		case 1:
			out.Pix[dst+0] = entry[0]
			out.Pix[dst+1] = entry[0]
			out.Pix[dst+2] = entry[0]
		case 3:
			out.Pix[dst+0] = entry[0]
			out.Pix[dst+1] = entry[1]
			out.Pix[dst+2] = entry[2]
		case 4:
			r, g, b := color.CMYKToRGB(entry[0], entry[1], entry[2], entry[3])
			out.Pix[dst+0] = r
			out.Pix[dst+1] = g
			out.Pix[dst+2] = b
		}
		out.Pix[dst+3] = 255
	}
	return out, nil
}

// convertIndexAsGray treats the index stream itself as grayscale intensity,
// for palettes that cannot be decoded.
func convertIndexAsGray(buf *RawBuffer) (*image.RGBA, error) {
	samples, err := unpackSamples(buf.Data, buf.Width, buf.Height, buf.BitsPerComponent)
	if err != nil {
		return nil, err
	}
	scale := byte(255 / (1<<buf.BitsPerComponent - 1))
	gray := image.NewGray(image.Rect(0, 0, buf.Width, buf.Height))
	for i, s := range samples {
		gray.Pix[i] = s * scale
	}
	return grayToRGBA(gray), nil
}

// convertRawSamples is the last resort: copy whatever samples exist onto a
// grayscale canvas. Missing data renders black.
func convertRawSamples(buf *RawBuffer) (*image.RGBA, error) {
	gray := image.NewGray(image.Rect(0, 0, buf.Width, buf.Height))
	copy(gray.Pix, buf.Data)
	return grayToRGBA(gray), nil
}
