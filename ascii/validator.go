package ascii

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/nvr-ai/asciidraw/images"
)

// DefaultMaxDimension bounds the width and height of an accepted image.
const DefaultMaxDimension = 4000

// Rejection reasons reported by Validator.Check.
var (
	ErrUndecodable        = errors.New("image could not be decoded")
	ErrUnsupportedFormat  = errors.New("image format is not allowed")
	ErrDimensionsExceeded = errors.New("image dimensions exceed the limit")
)

// Validator rejects undecodable, disallowed or oversized images using only
// header metadata, before any pixel data is decoded.
type Validator struct {
	maxWidth  int
	maxHeight int
	formats   map[images.ImageFormat]struct{}
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithMaxDimensions overrides the 4000x4000 limit. Non-positive values keep the default.
func WithMaxDimensions(width, height int) ValidatorOption {
	return func(v *Validator) {
		if width > 0 {
			v.maxWidth = width
		}
		if height > 0 {
			v.maxHeight = height
		}
	}
}

// WithFormats replaces the format allow-list.
func WithFormats(formats ...images.ImageFormat) ValidatorOption {
	return func(v *Validator) {
		v.formats = make(map[images.ImageFormat]struct{}, len(formats))
		for _, f := range formats {
			v.formats[f] = struct{}{}
		}
	}
}

// NewValidator creates a validator accepting JPEG, PNG, WEBP and GIF images
// of at most 4000x4000 pixels, then applies opts.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		maxWidth:  DefaultMaxDimension,
		maxHeight: DefaultMaxDimension,
	}
	WithFormats(images.AllowedFormats()...)(v)

	for _, o := range opts {
		o(v)
	}

	return v
}

// Check inspects the buffer and returns its metadata, or the reason it is
// rejected. The returned error wraps one of ErrUndecodable,
// ErrUnsupportedFormat or ErrDimensionsExceeded.
//
// Arguments:
// - data: The encoded image.
//
// Returns:
// - The image metadata when accepted.
// - error describing the rejection.
func (v *Validator) Check(data []byte) (meta *images.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			meta = nil
			err = errors.Wrap(ErrUndecodable, fmt.Sprint(r))
		}
	}()

	meta, err = images.Inspect(data)
	if err != nil {
		return nil, errors.Wrap(ErrUndecodable, err.Error())
	}

	if _, ok := v.formats[meta.Format]; !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "format %q", meta.Format)
	}

	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, errors.Wrapf(ErrUndecodable, "empty raster %dx%d", meta.Width, meta.Height)
	}

	if meta.Width > v.maxWidth || meta.Height > v.maxHeight {
		return nil, errors.Wrapf(ErrDimensionsExceeded, "%dx%d, limit %dx%d",
			meta.Width, meta.Height, v.maxWidth, v.maxHeight)
	}

	return meta, nil
}

// Validate reports whether the buffer is an acceptable image. It never
// panics and never returns an error; every failure is a rejection.
func (v *Validator) Validate(data []byte) bool {
	_, err := v.Check(data)
	return err == nil
}
