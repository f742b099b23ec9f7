package images

import "strings"

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatGIF is the GIF image format. Only the first frame is used.
	FormatGIF ImageFormat = "gif"
)

// AllowedFormats returns the still-image formats accepted for conversion.
func AllowedFormats() []ImageFormat {
	return []ImageFormat{FormatJPEG, FormatPNG, FormatWebP, FormatGIF}
}

// Allowed reports whether f is in the allow-list.
func (f ImageFormat) Allowed() bool {
	for _, a := range AllowedFormats() {
		if f == a {
			return true
		}
	}
	return false
}

// ParseFormat maps a decoder registry name (as returned by image.DecodeConfig)
// or a common alias to an ImageFormat. Unknown names are returned verbatim so
// that Allowed() rejects them.
func ParseFormat(name string) ImageFormat {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "jpg", "jpeg":
		return FormatJPEG
	default:
		return ImageFormat(n)
	}
}
