package ascii

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Cell is one glyph of the output grid together with the colour of the
// source region it represents.
type Cell struct {
	Glyph   rune
	R, G, B uint8
}

// Grid is a row-major matrix of cells.
type Grid struct {
	Width  int
	Height int
	Cells  []Cell
}

// NewGrid allocates a width x height grid of zero cells.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Cells:  make([]Cell, width*height),
	}
}

// At returns the cell at column x, row y.
func (g *Grid) At(x, y int) Cell {
	return g.Cells[y*g.Width+x]
}

// Row returns the cells of row y. The slice aliases the grid.
func (g *Grid) Row(y int) []Cell {
	return g.Cells[y*g.Width : (y+1)*g.Width]
}

// Text returns the glyphs only, one line per row.
func (g *Grid) Text() string {
	var sb strings.Builder
	sb.Grow((g.Width + 1) * g.Height)

	for y := 0; y < g.Height; y++ {
		for _, c := range g.Row(y) {
			sb.WriteRune(c.Glyph)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Encode serialises the grid in the terminal or structured encoding.
func (g *Grid) Encode(terminal bool) string {
	if terminal {
		return EncodeTerminal(g)
	}
	return EncodeStructured(g)
}

// MarshalJSON encodes the cell as a ["glyph", r, g, b] tuple.
func (c Cell) MarshalJSON() ([]byte, error) {
	glyph, err := json.Marshal(string(c.Glyph))
	if err != nil {
		return nil, err
	}
	return appendCellJSON(make([]byte, 0, len(glyph)+16), glyph, c), nil
}

// UnmarshalJSON decodes a ["glyph", r, g, b] tuple.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return errors.Wrap(err, "cell is not a JSON array")
	}
	if len(tuple) != 4 {
		return errors.Errorf("cell has %d elements, want 4", len(tuple))
	}

	var glyph string
	if err := json.Unmarshal(tuple[0], &glyph); err != nil {
		return errors.Wrap(err, "cell glyph is not a string")
	}
	if utf8.RuneCountInString(glyph) != 1 {
		return errors.Errorf("cell glyph %q is not a single character", glyph)
	}

	var channels [3]uint8
	for i := range channels {
		var v int
		if err := json.Unmarshal(tuple[i+1], &v); err != nil {
			return errors.Wrapf(err, "cell channel %d is not an integer", i)
		}
		if v < 0 || v > 255 {
			return errors.Errorf("cell channel %d out of range: %d", i, v)
		}
		channels[i] = uint8(v)
	}

	r, _ := utf8.DecodeRuneInString(glyph)
	*c = Cell{Glyph: r, R: channels[0], G: channels[1], B: channels[2]}
	return nil
}

// appendCellJSON appends [glyph,r,g,b] where glyph is an already quoted JSON string.
func appendCellJSON(dst, glyph []byte, c Cell) []byte {
	dst = append(dst, '[')
	dst = append(dst, glyph...)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(c.R), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(c.G), 10)
	dst = append(dst, ',')
	dst = strconv.AppendUint(dst, uint64(c.B), 10)
	return append(dst, ']')
}
