// Package loader turns raw CSV, JSON or XLSX bytes into a typed dataset.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/klauspost/compress/gzip"
)

// Loader parses one input format.
type Loader interface {
	// Format is the short name used as the format hint, e.g. "csv".
	Format() string
	// Extensions lists file extensions (with dot) handled by this loader.
	Extensions() []string
	Load(data []byte, opt Options) (*dataset.Dataset, error)
}

// Options tunes format-specific parsing.
type Options struct {
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
}

var (
	// ErrUnsupportedFormat is returned for format hints no loader handles.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrEmptyInput is returned when there are no bytes (or no header) to parse.
	ErrEmptyInput = errors.New("empty input")
)

var registry = map[string]Loader{}

// Register adds a loader to the registry, replacing any loader with the same format.
func Register(l Loader) {
	registry[l.Format()] = l
}

func init() {
	Register(csvLoader{format: "csv", comma: ','})
	Register(csvLoader{format: "tsv", comma: '\t'})
	Register(jsonLoader{})
	Register(xlsxLoader{})
}

// Formats returns the registered format names, sorted.
func Formats() []string {
	out := make([]string, 0, len(registry))
	for f := range registry {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func normalizeFormat(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}

// DetectFormat infers the format hint from a file name. A trailing ".gz" is ignored.
func DetectFormat(name string) (string, error) {
	lower := strings.ToLower(name)
	lower = strings.TrimSuffix(lower, ".gz")
	ext := filepath.Ext(lower)
	for _, l := range registry {
		for _, e := range l.Extensions() {
			if e == ext {
				return l.Format(), nil
			}
		}
	}
	if ext == "" {
		return "", fmt.Errorf("%w: cannot infer format of %q (supported: %s)", ErrUnsupportedFormat, filepath.Base(name), strings.Join(Formats(), ", "))
	}
	return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(Formats(), ", "))
}

// Load parses data according to the format hint. Gzip-compressed input is
// decompressed first. On error no dataset is returned.
func Load(data []byte, format string, opt Options) (*dataset.Dataset, error) {
	name := normalizeFormat(format)
	l, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, format, strings.Join(Formats(), ", "))
	}
	raw, err := maybeGunzip(data)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("load %s: %w", name, ErrEmptyInput)
	}
	ds, err := l.Load(raw, opt)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return ds, nil
}

// Read drains r and parses it like Load.
func Read(r io.Reader, format string, opt Options) (*dataset.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return Load(data, format, opt)
}

// LoadFile reads a file from disk. An empty format is inferred from the extension.
func LoadFile(path, format string, opt Options) (*dataset.Dataset, error) {
	if format == "" {
		f, err := DetectFormat(path)
		if err != nil {
			return nil, err
		}
		format = f
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Load(data, format, opt)
}

func maybeGunzip(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress gzip: %w", err)
	}
	return out, nil
}
