// Package compression frames index files with optional xz or gzip
// compression, chosen by file extension.
package compression

import (
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/ulikunitz/xz"
)

// Format is a stream compression format.
type Format int

const (
	// None stores the stream as-is.
	None Format = iota
	// Gzip wraps the stream in gzip.
	Gzip
	// Xz wraps the stream in xz.
	Xz
)

// DefaultMaxBytes bounds decompressed reads (1 GiB).
const DefaultMaxBytes int64 = 1 << 30

func (f Format) String() string {
	switch f {
	case Gzip:
		return "gzip"
	case Xz:
		return "xz"
	default:
		return "none"
	}
}

// FormatFor detects the format from a file name: ".xz"/".txz" is xz,
// ".gz"/".gzip" is gzip, anything else is uncompressed.
func FormatFor(path string) Format {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".xz"), strings.HasSuffix(lower, ".txz"):
		return Xz
	case strings.HasSuffix(lower, ".gz"), strings.HasSuffix(lower, ".gzip"):
		return Gzip
	default:
		return None
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter wraps w. Closing the returned writer flushes the compressor but
// does not close w.
func NewWriter(w io.Writer, format Format) (io.WriteCloser, error) {
	switch format {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Xz:
		xzw, err := xz.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
		return xzw, nil
	default:
		return nil, fmt.Errorf("unsupported compression format: %d", format)
	}
}

// NewReader wraps r, limiting the decompressed size to maxBytes
// (DefaultMaxBytes when maxBytes <= 0).
func NewReader(r io.Reader, format Format, maxBytes int64) (io.Reader, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	var src io.Reader
	switch format {
	case None:
		src = r
	case Gzip:
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		src = gzr
	case Xz:
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		src = xzr
	default:
		return nil, fmt.Errorf("unsupported compression format: %d", format)
	}

	return NewLimitedReader(src, maxBytes), nil
}

// ReadAll reads and decompresses all of r.
func ReadAll(r io.Reader, format Format, maxBytes int64) ([]byte, error) {
	src, err := NewReader(r, format, maxBytes)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s stream: %w", format, err)
	}
	return data, nil
}
