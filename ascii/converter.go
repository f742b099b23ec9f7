// Package ascii converts raster images into coloured character grids.
//
// A conversion is two independent passes over the same buffer: a Validator
// reads only the header and rejects unsupported or oversized input, then a
// Converter decodes the pixels, resamples them onto the character grid and
// encodes the result for a terminal or for a styled renderer.
//
//	v := ascii.NewValidator()
//	if !v.Validate(buf) {
//	    // invalid or malicious image
//	}
//	out, err := ascii.NewConverter().Convert(buf, ascii.Options{Width: 80, IsTerminal: true})
package ascii

import (
	"context"
	"image"
	"log"
	"math"

	"github.com/pkg/errors"

	"github.com/nvr-ai/asciidraw/images"
)

// Converter turns encoded images into character grids. It holds no
// per-conversion state and is safe for concurrent use once configured.
type Converter struct {
	filter    images.ResampleFilter
	debugMode bool
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithResampleFilter selects the resampling filter (default bilinear).
func WithResampleFilter(filter images.ResampleFilter) ConverterOption {
	return func(c *Converter) {
		c.filter = filter
	}
}

// NewConverter creates a converter using bilinear fill resampling.
func NewConverter(opts ...ConverterOption) *Converter {
	c := &Converter{filter: images.BilinearFilter}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetDebugMode enables or disables debug logging.
//
// Arguments:
// - enabled: Whether to enable debug mode.
func (c *Converter) SetDebugMode(enabled bool) {
	c.debugMode = enabled
}

// TargetSize computes the grid size for a source image: the requested width,
// and a height that preserves the source aspect ratio corrected for the
// 1:2 glyph cell. A zero source dimension is treated as 1.
//
// The result is not capped. Conversion clamps the height to MaxHeight, so when
// the computed height exceeds it (a 1x4000 source at width 2000 asks for
// 4000000 rows) the converted grid is squashed vertically and no longer
// follows the source aspect ratio.
//
// Arguments:
// - srcWidth, srcHeight: Source dimensions in pixels.
// - width: Requested grid columns.
//
// Returns:
// - The grid width and height; the height is at least 1.
//
// @example
// TargetSize(200, 100, 100) // 100, 25
func TargetSize(srcWidth, srcHeight, width int) (int, int) {
	if srcWidth <= 0 {
		srcWidth = 1
	}
	if srcHeight <= 0 {
		srcHeight = 1
	}

	aspectRatio := float64(srcHeight) / float64(srcWidth)
	height := int(math.Round(float64(width) * aspectRatio * cellAspect))
	if height < 1 {
		height = 1
	}

	return width, height
}

// Convert decodes the buffer and returns it encoded per opts.IsTerminal.
//
// Arguments:
// - data: An encoded image that already passed a Validator.
// - opts: Conversion options.
//
// Returns:
// - The encoded grid.
// - error (always a *ProcessingError) if the image cannot be processed.
func (c *Converter) Convert(data []byte, opts Options) (string, error) {
	return c.ConvertContext(context.Background(), data, opts)
}

// ConvertContext is Convert with cancellation checked between pipeline stages.
func (c *Converter) ConvertContext(ctx context.Context, data []byte, opts Options) (string, error) {
	grid, err := c.ConvertGridContext(ctx, data, opts)
	if err != nil {
		return "", err
	}
	return grid.Encode(opts.IsTerminal), nil
}

// ConvertGrid decodes the buffer and returns the unencoded grid.
func (c *Converter) ConvertGrid(data []byte, opts Options) (*Grid, error) {
	return c.ConvertGridContext(context.Background(), data, opts)
}

// ConvertGridContext is ConvertGrid with cancellation checked between
// pipeline stages.
func (c *Converter) ConvertGridContext(ctx context.Context, data []byte, opts Options) (*Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, newProcessingError(err)
	}

	img, format, err := images.Decode(data)
	if err != nil {
		return nil, newProcessingError(errors.Wrap(err, "image decoding failed"))
	}

	if c.debugMode {
		b := img.Bounds()
		log.Printf("[DEBUG] Decoded %s image: %dx%d", format, b.Dx(), b.Dy())
	}

	if err := ctx.Err(); err != nil {
		return nil, newProcessingError(err)
	}

	opts = opts.Normalized()
	resized := c.resample(img, opts)

	if err := ctx.Err(); err != nil {
		return nil, newProcessingError(err)
	}

	return c.scan(resized, opts), nil
}

// ConvertImage converts an already decoded image.
//
// Arguments:
// - img: The decoded image.
// - opts: Conversion options; IsTerminal is ignored.
//
// Returns:
// - The character grid.
func (c *Converter) ConvertImage(img image.Image, opts Options) *Grid {
	opts = opts.Normalized()
	return c.scan(c.resample(img, opts), opts)
}

// resample maps the full image onto the target grid, one pixel per cell.
func (c *Converter) resample(img image.Image, opts Options) *image.RGBA {
	b := img.Bounds()
	width, height := TargetSize(b.Dx(), b.Dy(), opts.Width)
	if height > MaxHeight {
		height = MaxHeight
	}

	if c.debugMode {
		log.Printf("[DEBUG] Resampling %dx%d -> %dx%d cells", b.Dx(), b.Dy(), width, height)
	}

	return images.ResizeFill(img, width, height, c.filter)
}

// scan maps every resampled pixel to a cell. Rows are split across
// goroutines; each writes only its own rows, so the grid stays row-major.
func (c *Converter) scan(img *image.RGBA, opts Options) *Grid {
	b := img.Bounds()
	grid := NewGrid(b.Dx(), b.Dy())
	ramp := opts.Ramp()

	images.Parallel(grid.Height, func(start, end int) {
		for y := start; y < end; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+grid.Width*4]
			cells := grid.Row(y)
			for x := range cells {
				r, g, bl := row[x*4], row[x*4+1], row[x*4+2]
				l := ApplyContrast(Luminance(r, g, bl), opts.Contrast)
				cells[x] = Cell{
					Glyph: ramp[GlyphIndex(l, len(ramp))],
					R:     r,
					G:     g,
					B:     bl,
				}
			}
		}
	})

	if c.debugMode {
		log.Printf("[DEBUG] Mapped %d cells onto a %d-glyph ramp", len(grid.Cells), len(ramp))
	}

	return grid
}
