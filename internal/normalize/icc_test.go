package normalize

import (
	"encoding/binary"
	"image/color"
	"strings"
	"testing"
)

func makeProfile(space string) []byte {
	p := make([]byte, 128)
	binary.BigEndian.PutUint32(p[0:4], 128)
	copy(p[16:20], space)
	copy(p[36:40], "acsp")
	return p
}

func TestICCColorSpaceParse(t *testing.T) {
	tests := []struct {
		space string
		want  string
	}{
		{"GRAY", "DeviceGray"},
		{"RGB ", "DeviceRGB"},
		{"CMYK", "DeviceCMYK"},
	}
	for _, tt := range tests {
		got, err := iccColorSpace(makeProfile(tt.space))
		if err != nil {
			t.Errorf("iccColorSpace(%q): %v", tt.space, err)
			continue
		}
		if got != tt.want {
			t.Errorf("iccColorSpace(%q) = %q, want %q", tt.space, got, tt.want)
		}
	}
}

func TestICCColorSpaceRejectsMalformed(t *testing.T) {
	short := make([]byte, 64)
	if _, err := iccColorSpace(short); err == nil {
		t.Error("64-byte profile accepted")
	}

	badSig := makeProfile("RGB ")
	copy(badSig[36:40], "nope")
	if _, err := iccColorSpace(badSig); err == nil {
		t.Error("profile without acsp signature accepted")
	}

	tinySize := makeProfile("RGB ")
	binary.BigEndian.PutUint32(tinySize[0:4], 64)
	if _, err := iccColorSpace(tinySize); err == nil {
		t.Error("profile claiming 64-byte size accepted")
	}

	overSize := makeProfile("RGB ")
	binary.BigEndian.PutUint32(overSize[0:4], 4096)
	if _, err := iccColorSpace(overSize); err == nil {
		t.Error("profile claiming more bytes than present accepted")
	}

	weird := makeProfile("XYZ ")
	if _, err := iccColorSpace(weird); err == nil {
		t.Error("XYZ connection-space profile accepted")
	}
}

func TestNormalizeICCWithProfile(t *testing.T) {
	buf := &RawBuffer{
		Data:             []byte{1, 2, 3},
		ColorSpace:       "ICCBased",
		BitsPerComponent: 8,
		Width:            1,
		Height:           1,
		NumComponents:    3,
		ICCProfile:       makeProfile("RGB "),
	}

	out, err := New(nil).Normalize(buf)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if out.Op != "icc_profile" {
		t.Errorf("Op = %q, want icc_profile", out.Op)
	}
	if len(out.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", out.Warnings)
	}
	if got := out.Image.RGBAAt(0, 0); got != (color.RGBA{R: 1, G: 2, B: 3, A: 255}) {
		t.Errorf("pixel = %v", got)
	}
}

func TestNormalizeICCGarbageProfileFallsBack(t *testing.T) {
	buf := &RawBuffer{
		Data:             []byte{9, 9, 9},
		ColorSpace:       "ICCBased",
		BitsPerComponent: 8,
		Width:            1,
		Height:           1,
		NumComponents:    3,
		ICCProfile:       []byte("not a profile"),
	}

	out, err := New(nil).Normalize(buf)
	if err != nil {
		t.Fatalf("unusable profile must not be a hard failure: %v", err)
	}
	if out.Op != "icc_components" {
		t.Errorf("Op = %q, want icc_components", out.Op)
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], ReasonICCFallback) {
		t.Errorf("warnings = %v, want one %s", out.Warnings, ReasonICCFallback)
	}
}

func TestNormalizeICCProfileDataMismatchFallsBack(t *testing.T) {
	// The profile claims CMYK but only three components of data exist; the
	// profile-routed decode fails and component-count routing recovers.
	buf := &RawBuffer{
		Data:             []byte{40, 50, 60},
		ColorSpace:       "ICCBased",
		BitsPerComponent: 8,
		Width:            1,
		Height:           1,
		NumComponents:    3,
		ICCProfile:       makeProfile("CMYK"),
	}

	out, err := New(nil).Normalize(buf)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if out.Op != "icc_components" {
		t.Errorf("Op = %q, want icc_components", out.Op)
	}
	if len(out.Warnings) != 1 {
		t.Errorf("warnings = %v, want exactly one", out.Warnings)
	}
	if got := out.Image.RGBAAt(0, 0); got != (color.RGBA{R: 40, G: 50, B: 60, A: 255}) {
		t.Errorf("pixel = %v", got)
	}
}

func TestNormalizeICCUnrecoverable(t *testing.T) {
	buf := &RawBuffer{
		Data:             []byte{1, 2},
		ColorSpace:       "ICCBased",
		BitsPerComponent: 8,
		Width:            1,
		Height:           1,
		NumComponents:    2,
		ICCProfile:       []byte{0x00},
	}

	_, err := New(nil).Normalize(buf)
	if err == nil {
		t.Fatal("2-component buffer with garbage profile decoded")
	}
	if got := ReasonOf(err); got != ReasonConversionError {
		t.Errorf("reason = %q, want %q", got, ReasonConversionError)
	}
}
