// Package normalize converts raw pixel buffers from arbitrary PDF colorspaces
// into canonical RGB/RGBA images. Each colorspace family runs an ordered chain
// of conversion strategies; a chain either produces a usable image, possibly
// carrying fallback warnings, or a Failure with a stable reason code. No
// buffer is ever dropped without one or the other.
package normalize

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
)

// Reason codes for terminal failures and fallback warnings. These strings are
// stable: they key the health histograms and appear in the attempt log.
const (
	ReasonPixmapInvalid         = "pixmap_invalid"
	ReasonColorspaceUnsupported = "colorspace_unsupported"
	ReasonICCFallback           = "icc_profile_invalid_fallback"
	ReasonAlphaApplyFailed      = "alpha_apply_failed"
	ReasonConversionError       = "conversion_error"
)

// Output pixel modes.
const (
	ModeRGB  = "rgb"
	ModeRGBA = "rgba"
)

// RawBuffer is decoded pixel data together with its declared source
// colorspace. Data holds color components only; a soft-mask alpha plane, when
// present, rides separately in Alpha with one sample per pixel.
type RawBuffer struct {
	Data             []byte
	ColorSpace       string
	BitsPerComponent int
	Width            int
	Height           int
	NumComponents    int
	Alpha            []byte
	ICCProfile       []byte
	Palette          *Palette
}

// Palette describes an indexed colorspace lookup table. Lookup holds
// (HiVal+1) entries of the base space's component width.
type Palette struct {
	Base   string
	HiVal  int
	Lookup []byte
}

// Normalized is a successfully converted buffer. Op names the conversion
// strategy that produced it, for the per-operation histogram.
type Normalized struct {
	Image    *image.RGBA
	Mode     string
	Op       string
	Warnings []string
}

// Failure is a terminal normalization failure with a stable reason code.
type Failure struct {
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Reason
	}
	return fmt.Sprintf("%s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// ReasonOf extracts the reason code from a normalization error.
func ReasonOf(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ReasonConversionError
}

type family int

const (
	familyUnknown family = iota
	familyRGB
	familyGray
	familyCMYK
	familyICC
	familyIndexed
)

func familyOf(colorSpace string) family {
	switch strings.TrimPrefix(colorSpace, "/") {
	case "DeviceRGB", "CalRGB", "RGB", "sRGB":
		return familyRGB
	case "DeviceGray", "CalGray", "Gray", "G":
		return familyGray
	case "DeviceCMYK", "CMYK":
		return familyCMYK
	case "ICCBased", "ICC":
		return familyICC
	case "Indexed", "I":
		return familyIndexed
	}
	return familyUnknown
}

// step is one strategy in a family's fallback chain. warn is the warning code
// recorded when the step fails and a later one succeeds; the last step of a
// chain leaves it empty.
type step struct {
	op   string
	warn string
	run  func(*RawBuffer) (*image.RGBA, error)
}

type Normalizer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Normalizer{logger: logger}
}

// Normalize converts buf to a canonical RGB/RGBA image. The error, when
// non-nil, is always a *Failure carrying one of the reason codes above.
func (n *Normalizer) Normalize(buf *RawBuffer) (*Normalized, error) {
	if err := validate(buf); err != nil {
		return nil, &Failure{Reason: ReasonPixmapInvalid, Err: err}
	}

	steps, terminal := chainFor(familyOf(buf.ColorSpace))
	out, err := n.runChain(buf, steps, terminal)
	if err != nil {
		return nil, err
	}

	out.Mode = ModeRGB
	if buf.Alpha != nil {
		if err := applyAlpha(out.Image, buf.Alpha); err != nil {
			return nil, &Failure{Reason: ReasonAlphaApplyFailed, Err: err}
		}
		out.Mode = ModeRGBA
	}

	n.logger.Debug("normalized pixel buffer",
		"colorspace", buf.ColorSpace, "op", out.Op, "mode", out.Mode,
		"width", buf.Width, "height", buf.Height)
	return out, nil
}

func validate(buf *RawBuffer) error {
	if buf == nil {
		return fmt.Errorf("nil buffer")
	}
	if buf.Width <= 0 || buf.Height <= 0 {
		return fmt.Errorf("zero-area buffer: %dx%d", buf.Width, buf.Height)
	}
	if len(buf.Data) == 0 {
		return fmt.Errorf("empty pixel data")
	}
	return nil
}

// chainFor returns the ordered strategy chain for a colorspace family and the
// reason code used when every strategy fails.
func chainFor(fam family) ([]step, string) {
	switch fam {
	case familyRGB:
		return []step{
			{op: "rgb_passthrough", run: convertRGB},
		}, ReasonConversionError
	case familyGray:
		return []step{
			{op: "gray_expand", run: convertGray},
		}, ReasonConversionError
	case familyCMYK:
		return []step{
			{op: "cmyk_convert", run: convertCMYK},
		}, ReasonConversionError
	case familyICC:
		return []step{
			{op: "icc_profile", warn: ReasonICCFallback, run: convertICCProfile},
			{op: "icc_components", run: convertByComponents},
		}, ReasonConversionError
	case familyIndexed:
		return []step{
			{op: "indexed_palette", warn: "indexed_palette_fallback", run: convertIndexed},
			{op: "indexed_gray", warn: "indexed_gray_fallback", run: convertIndexAsGray},
			{op: "indexed_raw", run: convertRawSamples},
		}, ReasonConversionError
	}
	return []step{
		{op: "unknown_generic", run: convertByComponents},
	}, ReasonColorspaceUnsupported
}

// runChain tries the strategies in order. The first success wins; each failed
// step before it is recorded as a warning on the result.
func (n *Normalizer) runChain(buf *RawBuffer, steps []step, terminal string) (*Normalized, error) {
	var warnings []string
	var lastErr error
	for _, s := range steps {
		img, err := s.run(buf)
		if err != nil {
			lastErr = err
			if s.warn != "" {
				warnings = append(warnings, fmt.Sprintf("%s: %v", s.warn, err))
				n.logger.Warn("conversion strategy failed, trying fallback",
					"colorspace", buf.ColorSpace, "strategy", s.op, "error", err)
			}
			continue
		}
		return &Normalized{Image: img, Op: s.op, Warnings: warnings}, nil
	}
	return nil, &Failure{Reason: terminal, Err: lastErr}
}
