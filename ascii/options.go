package ascii

const (
	// DefaultWidth is the number of grid columns used when Options.Width is unset.
	DefaultWidth = 100
	// MaxWidth caps the grid width requested by a caller.
	MaxWidth = 2000
	// MaxHeight caps the grid height derived from the source aspect ratio.
	MaxHeight = 4000
	// DefaultChars is the default glyph ramp, ordered darkest (densest) first.
	DefaultChars = "@%#*+=-:. "

	// cellAspect corrects for a monospace cell being about twice as tall as it is wide.
	cellAspect = 0.5
)

// Options configures a single conversion. The zero value is valid and
// selects the defaults.
type Options struct {
	// Width is the number of grid columns. Non-positive values select
	// DefaultWidth and values above MaxWidth are capped.
	Width int `json:"width,omitempty" yaml:"width"`
	// Chars is the glyph ramp ordered darkest first. An empty ramp selects
	// DefaultChars; a single glyph maps every cell to that glyph.
	Chars string `json:"chars,omitempty" yaml:"chars"`
	// IsTerminal selects the ANSI terminal encoding instead of the structured one.
	IsTerminal bool `json:"isTerminal,omitempty" yaml:"is_terminal"`
	// Contrast stretches luminance around the midpoint before glyph mapping.
	// Zero (unset) and one leave luminance untouched.
	Contrast float64 `json:"contrast,omitempty" yaml:"contrast"`
}

// DefaultOptions returns the options used when a caller supplies none.
func DefaultOptions() Options {
	return Options{
		Width: DefaultWidth,
		Chars: DefaultChars,
	}
}

// Normalized resolves defaults and limits. Options that convert to the same
// output normalise to the same value; a contrast of one is the identity and
// resolves to zero.
func (o Options) Normalized() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Width > MaxWidth {
		o.Width = MaxWidth
	}
	if o.Chars == "" {
		o.Chars = DefaultChars
	}
	if o.Contrast < 0 || o.Contrast == 1 {
		o.Contrast = 0
	}
	return o
}

// Ramp returns the glyph ramp as runes, falling back to DefaultChars.
func (o Options) Ramp() []rune {
	if o.Chars == "" {
		return []rune(DefaultChars)
	}
	return []rune(o.Chars)
}
