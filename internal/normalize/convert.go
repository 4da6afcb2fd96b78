package normalize

import (
	"fmt"
	"image"
	"image/color"
)

// unpackSamples expands packed sub-byte samples to one byte per sample,
// without rescaling. Rows are bit-padded to byte boundaries.
func unpackSamples(data []byte, w, h, bpc int) ([]byte, error) {
	switch bpc {
	case 8:
		need := w * h
		if len(data) < need {
			return nil, fmt.Errorf("insufficient data: got %d, expected %d", len(data), need)
		}
		return data[:need], nil
	case 1, 2, 4:
		bytesPerRow := (w*bpc + 7) / 8
		need := bytesPerRow * h
		if len(data) < need {
			return nil, fmt.Errorf("insufficient data for %d-bit samples: got %d, expected %d",
				bpc, len(data), need)
		}
		mask := byte(1<<bpc - 1)
		out := make([]byte, w*h)
		for y := 0; y < h; y++ {
			rowStart := y * bytesPerRow
			for x := 0; x < w; x++ {
				bitPos := x * bpc
				shift := 8 - bpc - bitPos%8
				out[y*w+x] = (data[rowStart+bitPos/8] >> shift) & mask
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported bits per component: %d", bpc)
}

// toGray decodes a single-component buffer to 8-bit grayscale. Sub-byte
// depths are unpacked MSB-first and rescaled; 16-bit samples keep their high
// byte.
func toGray(buf *RawBuffer) (*image.Gray, error) {
	gray := image.NewGray(image.Rect(0, 0, buf.Width, buf.Height))
	switch buf.BitsPerComponent {
	case 8:
		need := buf.Width * buf.Height
		if len(buf.Data) < need {
			return nil, fmt.Errorf("insufficient data: got %d, expected %d", len(buf.Data), need)
		}
		copy(gray.Pix, buf.Data[:need])
	case 16:
		need := buf.Width * buf.Height * 2
		if len(buf.Data) < need {
			return nil, fmt.Errorf("insufficient data for 16-bit gray: got %d, expected %d",
				len(buf.Data), need)
		}
		for i := 0; i < buf.Width*buf.Height; i++ {
			gray.Pix[i] = buf.Data[i*2]
		}
	case 1, 2, 4:
		samples, err := unpackSamples(buf.Data, buf.Width, buf.Height, buf.BitsPerComponent)
		if err != nil {
			return nil, err
		}
		scale := byte(255 / (1<<buf.BitsPerComponent - 1))
		for i, s := range samples {
			gray.Pix[i] = s * scale
		}
	default:
		return nil, fmt.Errorf("unsupported bits per component: %d", buf.BitsPerComponent)
	}
	return gray, nil
}

func grayToRGBA(gray *image.Gray) *image.RGBA {
	out := image.NewRGBA(gray.Bounds())
	for i, g := range gray.Pix {
		dst := i * 4
		out.Pix[dst+0] = g
		out.Pix[dst+1] = g
		out.Pix[dst+2] = g
		out.Pix[dst+3] = 255
	}
	return out
}

func convertGray(buf *RawBuffer) (*image.RGBA, error) {
	gray, err := toGray(buf)
	if err != nil {
		return nil, err
	}
	return grayToRGBA(gray), nil
}

func convertRGB(buf *RawBuffer) (*image.RGBA, error) {
	out := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	pixels := buf.Width * buf.Height
	switch buf.BitsPerComponent {
	case 8:
		need := pixels * 3
		if len(buf.Data) < need {
			return nil, fmt.Errorf("insufficient data for RGB image: got %d, expected %d",
				len(buf.Data), need)
		}
		for i := 0; i < pixels; i++ {
			src := i * 3
			dst := i * 4
			out.Pix[dst+0] = buf.Data[src+0]
			out.Pix[dst+1] = buf.Data[src+1]
			out.Pix[dst+2] = buf.Data[src+2]
			out.Pix[dst+3] = 255
		}
	case 16:
		need := pixels * 6
		if len(buf.Data) < need {
			return nil, fmt.Errorf("insufficient data for 16-bit RGB image: got %d, expected %d",
				len(buf.Data), need)
		}
		for i := 0; i < pixels; i++ {
			src := i * 6
			dst := i * 4
			out.Pix[dst+0] = buf.Data[src+0]
			out.Pix[dst+1] = buf.Data[src+2]
			out.Pix[dst+2] = buf.Data[src+4]
			out.Pix[dst+3] = 255
		}
	default:
		return nil, fmt.Errorf("unsupported bits per component for RGB: %d", buf.BitsPerComponent)
	}
	return out, nil
}

func convertCMYK(buf *RawBuffer) (*image.RGBA, error) {
	if buf.BitsPerComponent != 8 {
		return nil, fmt.Errorf("unsupported bits per component for CMYK: %d", buf.BitsPerComponent)
	}
	pixels := buf.Width * buf.Height
	need := pixels * 4
	if len(buf.Data) < need {
		return nil, fmt.Errorf("insufficient data for CMYK image: got %d, expected %d",
			len(buf.Data), need)
	}
	out := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for i := 0; i < pixels; i++ {
		src := i * 4
		r, g, b := color.CMYKToRGB(buf.Data[src+0], buf.Data[src+1], buf.Data[src+2], buf.Data[src+3])
		dst := i * 4
		out.Pix[dst+0] = r
		out.Pix[dst+1] = g
		out.Pix[dst+2] = b
		out.Pix[dst+3] = 255
	}
	return out, nil
}

// convertByComponents routes by declared component count when the colorspace
// name alone cannot decide the decoding.
func convertByComponents(buf *RawBuffer) (*image.RGBA, error) {
	switch buf.NumComponents {
	case 1:
		return convertGray(buf)
	case 3:
		return convertRGB(buf)
	case 4:
		return convertCMYK(buf)
	}
	return nil, fmt.Errorf("unsupported component count: %d", buf.NumComponents)
}

// applyAlpha overlays a soft-mask plane. image.RGBA stores premultiplied
// alpha, so color channels are scaled down to match.
func applyAlpha(img *image.RGBA, alpha []byte) error {
	b := img.Bounds()
	pixels := b.Dx() * b.Dy()
	if len(alpha) != pixels {
		return fmt.Errorf("alpha plane has %d samples for %d pixels", len(alpha), pixels)
	}
	for i, a := range alpha {
		p := i * 4
		if a != 255 {
			img.Pix[p+0] = premul(img.Pix[p+0], a)
			img.Pix[p+1] = premul(img.Pix[p+1], a)
			img.Pix[p+2] = premul(img.Pix[p+2], a)
		}
		img.Pix[p+3] = a
	}
	return nil
}

func premul(c, a byte) byte {
	return byte((uint32(c)*uint32(a) + 127) / 255)
}

// FromRGBA wraps an already-rendered crop as a raw buffer. Color channels are
// un-premultiplied; the alpha plane is carried only when some pixel is not
// fully opaque.
func FromRGBA(img *image.RGBA) *RawBuffer {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	data := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	opaque := true
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			p := x * 4
			a := row[p+3]
			data = append(data, unmul(row[p+0], a), unmul(row[p+1], a), unmul(row[p+2], a))
			alpha = append(alpha, a)
			if a != 255 {
				opaque = false
			}
		}
	}
	buf := &RawBuffer{
		Data:             data,
		ColorSpace:       "DeviceRGB",
		BitsPerComponent: 8,
		Width:            w,
		Height:           h,
		NumComponents:    3,
	}
	if !opaque {
		buf.Alpha = alpha
	}
	return buf
}

func unmul(c, a byte) byte {
	if a == 0 || a == 255 {
		return c
	}
	v := (uint32(c)*255 + uint32(a)/2) / uint32(a)
	if v > 255 {
		v = 255
	}
	return byte(v)
}
