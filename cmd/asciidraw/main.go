package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/asciidraw/ascii"
	"github.com/nvr-ai/asciidraw/images"
	"github.com/nvr-ai/asciidraw/render"
	"github.com/nvr-ai/asciidraw/util"
)

const (
	// DefaultWidth is the grid width for local conversions.
	DefaultWidth = 80
	// DefaultMaxBytes caps the size of a single input file.
	DefaultMaxBytes = 5 << 20
)

// options holds the parsed command line.
type options struct {
	width     int
	chars     string
	terminal  bool
	styled    bool
	trueColor bool
	contrast  float64
	maxBytes  int64
	filter    string
	debug     bool
	paths     []string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("asciidraw", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: asciidraw [flags] [file|dir ...]\n\nWith no arguments, image paths are read from stdin, one per line.\n\n")
		fs.PrintDefaults()
	}

	o := &options{}
	fs.IntVar(&o.width, "width", DefaultWidth, "Output width in characters")
	fs.StringVar(&o.chars, "chars", ascii.DefaultChars, "Glyph ramp ordered darkest first")
	fs.BoolVar(&o.terminal, "terminal", true, "Emit ANSI colour escapes; false emits the structured encoding")
	fs.BoolVar(&o.styled, "styled", false, "Render with lipgloss, merging runs of equal colour")
	fs.BoolVar(&o.trueColor, "truecolor", false, "Force 24-bit colour for -styled output")
	fs.Float64Var(&o.contrast, "contrast", 0, "Contrast stretch around mid-grey (0 or 1 leaves luminance unchanged)")
	fs.Int64Var(&o.maxBytes, "max-bytes", DefaultMaxBytes, "Maximum input file size in bytes")
	fs.StringVar(&o.filter, "filter", images.BilinearFilter.String(), "Resample filter: nearest, bilinear, bicubic, mitchell, lanczos")
	fs.BoolVar(&o.debug, "debug", false, "Log conversion stages")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.width <= 0 {
		return nil, errors.Errorf("-width must be positive, got %d", o.width)
	}
	if o.contrast < 0 {
		return nil, errors.Errorf("-contrast must not be negative, got %g", o.contrast)
	}
	o.paths = fs.Args()
	return o, nil
}

// run converts every input and returns the process exit code: 0 when every
// image converted, 1 when any failed, 2 on usage errors.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	filter, err := images.ParseResampleFilter(o.filter)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	paths := o.paths
	if len(paths) == 0 {
		paths, err = readPaths(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading paths from stdin: %v\n", err)
			return 1
		}
	}

	validator := ascii.NewValidator()
	converter := ascii.NewConverter(ascii.WithResampleFilter(filter))
	converter.SetDebugMode(o.debug)

	var renderer *render.Renderer
	if o.styled {
		renderer = render.New(stdout)
		if o.trueColor {
			renderer = render.NewTrueColor()
		}
	}

	opts := ascii.Options{
		Width:      o.width,
		Chars:      o.chars,
		IsTerminal: o.terminal,
		Contrast:   o.contrast,
	}

	files, failed := collect(paths, o.maxBytes, stderr)
	for i, f := range files {
		if len(files) > 1 {
			if i > 0 {
				fmt.Fprintln(stdout)
			}
			fmt.Fprintf(stdout, "==> %s <==\n", f.Path)
		}

		if _, err := validator.Check(f.Data); err != nil {
			fmt.Fprintf(stderr, "%s: invalid image: %v\n", f.Path, err)
			failed++
			continue
		}

		out, err := convert(converter, renderer, f.Data, opts)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v: %v\n", f.Path, err, errors.Cause(err))
			failed++
			continue
		}
		fmt.Fprint(stdout, out)
	}

	if failed > 0 {
		return 1
	}
	return 0
}

func convert(conv *ascii.Converter, renderer *render.Renderer, data []byte, opts ascii.Options) (string, error) {
	if renderer == nil {
		return conv.Convert(data, opts)
	}
	grid, err := conv.ConvertGrid(data, opts)
	if err != nil {
		return "", err
	}
	return renderer.Grid(grid), nil
}

// collect loads files and expands directories, reporting failures to stderr.
func collect(paths []string, maxBytes int64, stderr io.Writer) ([]util.ImageFile, int) {
	var files []util.ImageFile
	failed := 0

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			failed++
			continue
		}

		if info.IsDir() {
			dirFiles, failures, err := util.LoadDirectoryImageFiles(path, maxBytes)
			if err != nil {
				fmt.Fprintf(stderr, "%s: %v\n", path, err)
				failed++
				continue
			}
			for _, ferr := range failures {
				fmt.Fprintln(stderr, ferr)
			}
			failed += len(failures)
			files = append(files, dirFiles...)
			continue
		}

		f, err := util.LoadImageFile(path, maxBytes)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		files = append(files, *f)
	}

	return files, failed
}

func readPaths(r io.Reader) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, scanner.Err()
}
