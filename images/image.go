// Package images - Image decoding, inspection and resampling utilities used by
// the character-art pipeline.
package images

import (
	"bytes"
	"image"

	// Decoders are resolved through the image registry.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/chai2010/webp"
	"github.com/pkg/errors"
)

// Image represents an encoded image with a format, data, width, and height.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"-" yaml:"-"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// ErrEmptyImage is returned when there are no bytes to decode.
var ErrEmptyImage = errors.New("empty image data")

// Inspect reads only the format and dimensions of an encoded image.
//
// Arguments:
// - data: The encoded image bytes.
//
// Returns:
// - The image metadata, with Data referencing the input slice.
// - error if the header cannot be parsed.
//
// @example
// meta, err := images.Inspect(buf)
//
//	if err == nil && meta.Width > 4000 {
//	    // reject
//	}
func Inspect(data []byte) (meta *Image, err error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	defer func() {
		if r := recover(); r != nil {
			meta = nil
			err = errors.Errorf("decoder panic: %v", r)
		}
	}()

	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read image header")
	}

	return &Image{
		Format: ParseFormat(name),
		Data:   data,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// Decode fully decodes an encoded image. For animated formats only the first
// frame is returned.
//
// Arguments:
// - data: The encoded image bytes.
//
// Returns:
// - The decoded image.
// - The detected format.
// - error if decoding fails.
func Decode(data []byte) (img image.Image, format ImageFormat, err error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}

	defer func() {
		if r := recover(); r != nil {
			img, format = nil, ""
			err = errors.Errorf("decoder panic: %v", r)
		}
	}()

	decoded, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ParseFormat(name), errors.Wrap(err, "failed to decode image")
	}

	b := decoded.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ParseFormat(name), errors.Errorf("invalid image dimensions: %dx%d", b.Dx(), b.Dy())
	}

	return decoded, ParseFormat(name), nil
}
