package normalize

import (
	"encoding/binary"
	"fmt"
	"image"
)

// iccColorSpace reads the data colour space out of an ICC profile header.
// Only the 128-byte header is inspected: profile size, the 'acsp' signature,
// and the colour space field at offset 16.
func iccColorSpace(profile []byte) (string, error) {
	if len(profile) < 128 {
		return "", fmt.Errorf("profile too short: %d bytes", len(profile))
	}
	size := int(binary.BigEndian.Uint32(profile[0:4]))
	if size < 128 || size > len(profile) {
		return "", fmt.Errorf("implausible profile size %d for %d bytes", size, len(profile))
	}
	if string(profile[36:40]) != "acsp" {
		return "", fmt.Errorf("missing acsp signature")
	}
	switch string(profile[16:20]) {
	case "GRAY":
		return "DeviceGray", nil
	case "RGB ":
		return "DeviceRGB", nil
	case "CMYK":
		return "DeviceCMYK", nil
	}
	return "", fmt.Errorf("unsupported profile colour space %q", profile[16:20])
}

// convertICCProfile routes the buffer through the decoding named by its ICC
// profile. Any parse or decode trouble surfaces as an error so the chain can
// fall back to component-count routing.
func convertICCProfile(buf *RawBuffer) (*image.RGBA, error) {
	space, err := iccColorSpace(buf.ICCProfile)
	if err != nil {
		return nil, err
	}
	switch space {
	case "DeviceGray":
		return convertGray(buf)
	case "DeviceRGB":
		return convertRGB(buf)
	default:
		return convertCMYK(buf)
	}
}
