package util

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// ErrFileTooLarge is returned when a file exceeds the read limit.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// ImageExtensions lists the file extensions treated as images.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
}

// IsImagePath reports whether path has an image extension (case-insensitive).
func IsImagePath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadImageFile reads a single file, refusing to read more than maxBytes.
//
// Arguments:
// - path: The file to read.
// - maxBytes: The size limit; non-positive means unlimited.
//
// Returns:
// - The loaded file.
// - error wrapping ErrFileTooLarge if the file is over the limit.
func LoadImageFile(path string, maxBytes int64) (*ImageFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, errors.Wrapf(ErrFileTooLarge, "%s is larger than %d bytes", path, maxBytes)
	}

	return &ImageFile{Path: path, Data: data}, nil
}

// LoadDirectoryImageFiles reads all image files from a directory.
// Subdirectories are skipped. Files are ordered by name, comparing trailing
// numbers numerically so that frame-2.png sorts before frame-10.png.
// A file that cannot be loaded does not stop the rest: its error is collected
// and the remaining files are still read.
//
// Arguments:
// - dir: Directory path containing image files.
// - maxBytes: Per-file size limit; non-positive means unlimited.
//
// Returns:
// - []ImageFile: The files that loaded, in name order.
// - []error: One error per file that failed to load, in name order.
// - error: Error if the directory itself cannot be read.
func LoadDirectoryImageFiles(dir string, maxBytes int64) ([]ImageFile, []error, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read directory %s", dir)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !IsImagePath(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}

	sort.Slice(names, func(i, j int) bool {
		return lessNatural(names[i], names[j])
	})

	images := make([]ImageFile, 0, len(names))
	var failures []error
	for _, name := range names {
		img, err := LoadImageFile(filepath.Join(dir, name), maxBytes)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		images = append(images, *img)
	}

	return images, failures, nil
}

// lessNatural compares names by their non-numeric stem, then by the number
// just before the extension.
func lessNatural(a, b string) bool {
	stemA, numA, okA := splitTrailingNumber(a)
	stemB, numB, okB := splitTrailingNumber(b)
	if okA && okB && stemA == stemB && numA != numB {
		return numA < numB
	}
	return a < b
}

func splitTrailingNumber(name string) (string, int, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	i := len(base)
	for i > 0 && unicode.IsDigit(rune(base[i-1])) {
		i--
	}
	if i == len(base) {
		return base, 0, false
	}
	n, err := strconv.Atoi(base[i:])
	if err != nil {
		return base, 0, false
	}
	return base[:i], n, true
}
