package ascii

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// CellDelimiter terminates every cell token of the structured encoding.
	// JSON never emits a raw TAB, so it cannot occur inside a token.
	CellDelimiter = '\t'
	// RowDelimiter terminates every row in both encodings.
	RowDelimiter = '\n'

	ansiReset = "\x1b[0m"

	// Capacity hints, per cell, for the output builders.
	bytesReservedTerminal   = 20 // "\x1b[38;2;255;255;255m" + glyph
	bytesReservedStructured = 18 // ["@",255,255,255]\t
)

// EncodeTerminal renders the grid with a 24-bit ANSI foreground colour
// sequence before every glyph and a reset at the end of every row.
//
// Arguments:
// - g: The grid to render.
//
// Returns:
// - The terminal-ready string.
func EncodeTerminal(g *Grid) string {
	var sb strings.Builder
	sb.Grow(g.Height * (g.Width*bytesReservedTerminal + len(ansiReset) + 1))

	scratch := make([]byte, 0, bytesReservedTerminal)
	for y := 0; y < g.Height; y++ {
		for _, c := range g.Row(y) {
			scratch = append(scratch[:0], "\x1b[38;2;"...)
			scratch = strconv.AppendUint(scratch, uint64(c.R), 10)
			scratch = append(scratch, ';')
			scratch = strconv.AppendUint(scratch, uint64(c.G), 10)
			scratch = append(scratch, ';')
			scratch = strconv.AppendUint(scratch, uint64(c.B), 10)
			scratch = append(scratch, 'm')
			sb.Write(scratch)
			sb.WriteRune(c.Glyph)
		}
		sb.WriteString(ansiReset)
		sb.WriteByte(RowDelimiter)
	}

	return sb.String()
}

// EncodeStructured renders every cell as a JSON tuple ["glyph",r,g,b]
// followed by CellDelimiter, with RowDelimiter after every row. The output
// is parsed back by ParseStructured.
//
// Arguments:
// - g: The grid to render.
//
// Returns:
// - The structured string.
func EncodeStructured(g *Grid) string {
	var sb strings.Builder
	sb.Grow(g.Height * (g.Width*bytesReservedStructured + 1))

	// Ramps are short, so quoting each distinct glyph once is enough.
	quoted := make(map[rune][]byte)
	scratch := make([]byte, 0, bytesReservedStructured+8)

	for y := 0; y < g.Height; y++ {
		for _, c := range g.Row(y) {
			glyph, ok := quoted[c.Glyph]
			if !ok {
				// Marshalling a string cannot fail.
				glyph, _ = json.Marshal(string(c.Glyph))
				quoted[c.Glyph] = glyph
			}
			scratch = appendCellJSON(scratch[:0], glyph, c)
			scratch = append(scratch, CellDelimiter)
			sb.Write(scratch)
		}
		sb.WriteByte(RowDelimiter)
	}

	return sb.String()
}

// ParseStructured reverses EncodeStructured.
//
// Arguments:
// - s: A structured encoding.
//
// Returns:
// - The decoded grid.
// - error if a row is ragged, lacks its trailing delimiter, or a cell is malformed.
//
// @example
// grid, err := ParseStructured(EncodeStructured(g))
func ParseStructured(s string) (*Grid, error) {
	lines := strings.Split(s, string(RowDelimiter))
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	grid := &Grid{Height: len(lines)}
	for y, line := range lines {
		tokens := strings.Split(line, string(CellDelimiter))
		if tokens[len(tokens)-1] != "" {
			return nil, errors.Errorf("row %d: missing trailing cell delimiter", y)
		}
		tokens = tokens[:len(tokens)-1]

		if y == 0 {
			grid.Width = len(tokens)
			grid.Cells = make([]Cell, 0, grid.Width*grid.Height)
		} else if len(tokens) != grid.Width {
			return nil, errors.Errorf("row %d: has %d cells, want %d", y, len(tokens), grid.Width)
		}

		for x, tok := range tokens {
			var c Cell
			if err := json.Unmarshal([]byte(tok), &c); err != nil {
				return nil, errors.Wrapf(err, "row %d, cell %d", y, x)
			}
			grid.Cells = append(grid.Cells, c)
		}
	}

	return grid, nil
}
