// Package render draws character grids as styled terminal spans. It is the
// terminal counterpart of a browser painting the structured encoding: every
// run of same-coloured cells becomes one lipgloss span.
package render

import (
	"io"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"

	"github.com/nvr-ai/asciidraw/ascii"
)

// Renderer renders grids for one output.
type Renderer struct {
	lg *lipgloss.Renderer
}

// New creates a renderer whose colour profile is detected from w.
func New(w io.Writer) *Renderer {
	return &Renderer{lg: lipgloss.NewRenderer(w)}
}

// NewTrueColor creates a renderer that always emits 24-bit colour.
func NewTrueColor() *Renderer {
	lg := lipgloss.NewRenderer(io.Discard)
	lg.SetColorProfile(termenv.TrueColor)
	return &Renderer{lg: lg}
}

// ForceTrueColor switches the default lipgloss renderer to 24-bit colour,
// for outputs that support it but are not detected as a terminal.
func ForceTrueColor() {
	lipgloss.SetColorProfile(termenv.TrueColor)
}

// Grid renders g with the default lipgloss renderer.
func Grid(g *ascii.Grid) string {
	return (&Renderer{lg: lipgloss.DefaultRenderer()}).Grid(g)
}

// Structured parses and renders a structured encoding with the default
// lipgloss renderer.
func Structured(s string) (string, error) {
	return (&Renderer{lg: lipgloss.DefaultRenderer()}).Structured(s)
}

// Grid renders every row of g, merging adjacent cells of equal colour into
// a single span. Control characters are drawn as spaces so they cannot
// break the row layout.
//
// Arguments:
// - g: The grid to render.
//
// Returns:
// - The styled rows, each terminated by a newline.
func (r *Renderer) Grid(g *ascii.Grid) string {
	var sb strings.Builder
	styles := make(map[[3]uint8]lipgloss.Style)
	var run strings.Builder

	for y := 0; y < g.Height; y++ {
		row := g.Row(y)
		for start := 0; start < len(row); {
			key := [3]uint8{row[start].R, row[start].G, row[start].B}

			run.Reset()
			end := start
			for end < len(row) && row[end].R == key[0] && row[end].G == key[1] && row[end].B == key[2] {
				run.WriteRune(printable(row[end].Glyph))
				end++
			}

			style, ok := styles[key]
			if !ok {
				style = r.lg.NewStyle().Foreground(lipgloss.Color(Hex(key[0], key[1], key[2])))
				styles[key] = style
			}
			sb.WriteString(style.Render(run.String()))
			start = end
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

// Structured parses a structured encoding and renders it.
func (r *Renderer) Structured(s string) (string, error) {
	g, err := ascii.ParseStructured(s)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse structured output")
	}
	return r.Grid(g), nil
}

// Hex formats an RGB triple as #rrggbb.
func Hex(r, g, b uint8) string {
	c := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
	return c.Hex()
}

func printable(glyph rune) rune {
	if unicode.IsControl(glyph) {
		return ' '
	}
	return glyph
}
