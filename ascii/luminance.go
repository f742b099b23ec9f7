package ascii

import (
	"math"

	"github.com/nvr-ai/asciidraw/images"
)

// BT.709 luma coefficients scaled by 10000. They sum to exactly 10000, so
// integer accumulation keeps pure white at exactly 1.
const (
	lumaR     = 2126
	lumaG     = 7152
	lumaB     = 722
	lumaScale = 10000 * 255
)

// Luminance returns the perceptual brightness of an RGB triple normalised to
// [0, 1].
//
// Arguments:
// - r, g, b: Channel values in [0, 255].
//
// Returns:
// - The luminance, clamped so that pure white is exactly 1.
func Luminance(r, g, b uint8) float64 {
	sum := lumaR*int(r) + lumaG*int(g) + lumaB*int(b)
	return images.Clamp(float64(sum)/lumaScale, 0, 1)
}

// ApplyContrast stretches l linearly around 0.5 by factor c. A factor of zero
// or one is the identity.
func ApplyContrast(l, c float64) float64 {
	if c <= 0 || c == 1 {
		return l
	}
	return images.Clamp((l-0.5)*c+0.5, 0, 1)
}

// GlyphIndex maps a luminance in [0, 1] onto a ramp of n glyphs. Low
// luminance selects low indices, so ramps must be ordered darkest first.
//
// Arguments:
// - l: The luminance.
// - n: The ramp length.
//
// Returns:
// - An index in [0, n-1], or 0 when n <= 1.
//
// @example
// GlyphIndex(0, 10) // 0 ('@' in the default ramp)
// GlyphIndex(1, 10) // 9 (' ' in the default ramp)
func GlyphIndex(l float64, n int) int {
	if n <= 1 {
		return 0
	}

	idx := int(math.Floor(l * float64(n-1)))
	if idx < 0 {
		return 0
	}
	if idx > n-1 {
		return n - 1
	}
	return idx
}
