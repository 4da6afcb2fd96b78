package normalize

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"
)

func TestUnpackSamplesBitDepths(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		w, h int
		bpc  int
		want []byte
	}{
		{"1-bit", []byte{0b10100000}, 4, 1, 1, []byte{1, 0, 1, 0}},
		{"1-bit row padding", []byte{0b10100000, 0b01100000}, 3, 2, 1, []byte{1, 0, 1, 0, 1, 1}},
		{"2-bit", []byte{0b00011011}, 4, 1, 2, []byte{0, 1, 2, 3}},
		{"4-bit", []byte{0xF0}, 2, 1, 4, []byte{15, 0}},
		{"8-bit", []byte{1, 2, 3, 4}, 2, 2, 8, []byte{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unpackSamples(tt.data, tt.w, tt.h, tt.bpc)
			if err != nil {
				t.Fatalf("unpackSamples: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("samples = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnpackSamplesErrors(t *testing.T) {
	if _, err := unpackSamples([]byte{1}, 4, 4, 8); err == nil {
		t.Error("short 8-bit data accepted")
	}
	if _, err := unpackSamples([]byte{1, 2}, 1, 1, 16); err == nil {
		t.Error("16-bit depth accepted by sample unpacker")
	}
}

func TestToGrayDepths(t *testing.T) {
	tests := []struct {
		name string
		buf  *RawBuffer
		want []byte
	}{
		{
			"1-bit scales to full range",
			&RawBuffer{Data: []byte{0xA0}, BitsPerComponent: 1, Width: 4, Height: 1},
			[]byte{255, 0, 255, 0},
		},
		{
			"2-bit scales by 85",
			&RawBuffer{Data: []byte{0x1B}, BitsPerComponent: 2, Width: 4, Height: 1},
			[]byte{0, 85, 170, 255},
		},
		{
			"4-bit scales by 17",
			&RawBuffer{Data: []byte{0xF8}, BitsPerComponent: 4, Width: 2, Height: 1},
			[]byte{255, 136},
		},
		{
			"16-bit keeps high byte",
			&RawBuffer{Data: []byte{0x12, 0xFF, 0xAB, 0x01}, BitsPerComponent: 16, Width: 2, Height: 1},
			[]byte{0x12, 0xAB},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gray, err := toGray(tt.buf)
			if err != nil {
				t.Fatalf("toGray: %v", err)
			}
			if !bytes.Equal(gray.Pix, tt.want) {
				t.Errorf("pixels = %v, want %v", gray.Pix, tt.want)
			}
		})
	}
}

func TestToGrayUnsupportedDepth(t *testing.T) {
	_, err := toGray(&RawBuffer{Data: []byte{1}, BitsPerComponent: 3, Width: 1, Height: 1})
	if err == nil || !strings.Contains(err.Error(), "unsupported bits per component") {
		t.Errorf("err = %v, want unsupported depth", err)
	}
}

func TestConvertRGB16TakesHighBytes(t *testing.T) {
	buf := &RawBuffer{
		Data:             []byte{0xFF, 0x11, 0x80, 0x22, 0x00, 0x33},
		BitsPerComponent: 16,
		Width:            1,
		Height:           1,
	}
	out, err := convertRGB(buf)
	if err != nil {
		t.Fatalf("convertRGB: %v", err)
	}
	if got := out.RGBAAt(0, 0); got != (color.RGBA{R: 255, G: 128, B: 0, A: 255}) {
		t.Errorf("pixel = %v", got)
	}
}

func TestApplyAlphaPremultiplies(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 30, G: 40, B: 50, A: 255})

	if err := applyAlpha(img, []byte{128, 255}); err != nil {
		t.Fatalf("applyAlpha: %v", err)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{R: 128, G: 128, B: 128, A: 128}) {
		t.Errorf("half-alpha white = %v", got)
	}
	if got := img.RGBAAt(1, 0); got != (color.RGBA{R: 30, G: 40, B: 50, A: 255}) {
		t.Errorf("opaque pixel changed: %v", got)
	}
}

func TestApplyAlphaSizeMismatch(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if err := applyAlpha(img, []byte{255}); err == nil {
		t.Error("short alpha plane accepted")
	}
}

func TestFromRGBAOpaque(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 40, G: 50, B: 60, A: 255})

	buf := FromRGBA(img)
	if buf.ColorSpace != "DeviceRGB" || buf.BitsPerComponent != 8 || buf.NumComponents != 3 {
		t.Errorf("buffer header = %+v", buf)
	}
	if buf.Alpha != nil {
		t.Error("opaque image grew an alpha plane")
	}
	if !bytes.Equal(buf.Data, []byte{10, 20, 30, 40, 50, 60}) {
		t.Errorf("Data = %v", buf.Data)
	}
}

func TestFromRGBACarriesAlpha(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	// Premultiplied bytes for color (199,100,50) at half alpha.
	img.SetRGBA(0, 0, color.RGBA{R: 100, G: 50, B: 25, A: 128})

	buf := FromRGBA(img)
	if !bytes.Equal(buf.Alpha, []byte{128}) {
		t.Fatalf("Alpha = %v", buf.Alpha)
	}
	if !bytes.Equal(buf.Data, []byte{199, 100, 50}) {
		t.Errorf("un-premultiplied Data = %v, want [199 100 50]", buf.Data)
	}
}

func TestFromRGBASurvivesNormalize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 7)
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}

	out, err := New(nil).Normalize(FromRGBA(img))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if out.Mode != ModeRGB {
		t.Errorf("Mode = %q, want rgb for an opaque crop", out.Mode)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			if got, want := out.Image.RGBAAt(x, y), img.RGBAAt(x, y); got != want {
				t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}
