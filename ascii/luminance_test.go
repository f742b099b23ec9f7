package ascii

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLuminancePolarity(t *testing.T) {
	ramp := []rune(DefaultChars)

	black := GlyphIndex(Luminance(0, 0, 0), len(ramp))
	assert.Equal(t, 0, black)
	assert.Equal(t, '@', ramp[black], "black should map to the densest glyph")

	white := GlyphIndex(Luminance(255, 255, 255), len(ramp))
	assert.Equal(t, len(ramp)-1, white)
	assert.Equal(t, ' ', ramp[white], "white should map to the blank glyph")
}

func TestLuminanceRange(t *testing.T) {
	assert.Equal(t, 1.0, Luminance(255, 255, 255), "white must clamp to exactly 1")
	assert.Equal(t, 0.0, Luminance(0, 0, 0))
	assert.InDelta(t, 0.2126, Luminance(255, 0, 0), 1e-9)
	assert.InDelta(t, 0.7152, Luminance(0, 255, 0), 1e-9)
	assert.InDelta(t, 0.0722, Luminance(0, 0, 255), 1e-9)
}

func TestGlyphIndexMonotonic(t *testing.T) {
	for _, n := range []int{2, 3, 10, 70} {
		prev := -1
		for i := 0; i <= 10000; i++ {
			idx := GlyphIndex(float64(i)/10000, n)
			assert.GreaterOrEqual(t, idx, prev, "index must never decrease (n=%d, step %d)", n, i)
			assert.True(t, idx >= 0 && idx < n)
			prev = idx
		}
	}

	// Monotonic through the RGB path too.
	prev := -1
	for v := 0; v < 256; v++ {
		idx := GlyphIndex(Luminance(uint8(v), uint8(v), uint8(v)), 10)
		assert.GreaterOrEqual(t, idx, prev)
		prev = idx
	}
}

func TestGlyphIndexDegenerate(t *testing.T) {
	assert.Equal(t, 0, GlyphIndex(0.7, 1))
	assert.Equal(t, 0, GlyphIndex(1, 0))
	assert.Equal(t, 0, GlyphIndex(-0.5, 10))
	assert.Equal(t, 9, GlyphIndex(1.5, 10))
}

func TestApplyContrast(t *testing.T) {
	assert.Equal(t, 0.3, ApplyContrast(0.3, 0), "unset contrast is inert")
	assert.Equal(t, 0.3, ApplyContrast(0.3, 1))
	assert.InDelta(t, 0.1, ApplyContrast(0.3, 2), 1e-9)
	assert.Equal(t, 1.0, ApplyContrast(0.9, 4))
	assert.Equal(t, 0.5, ApplyContrast(0.5, 3), "midpoint is a fixed point")

	// Stretching keeps ordering.
	assert.Less(t, ApplyContrast(0.4, 2.5), ApplyContrast(0.45, 2.5))
}
