// Package builder computes representative colours for an image library in
// parallel batches and assembles them into a colour index.
package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/mosaicer/internal/colour"
	"github.com/jmylchreest/mosaicer/internal/image"
	"github.com/jmylchreest/mosaicer/internal/seed"
)

// Entry is one successfully indexed image.
type Entry struct {
	Path   string
	Colour colour.Colour
}

// Failure is an image that was excluded from, or degraded in, the index.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

// BatchResult is the outcome of one batch, in input order.
type BatchResult struct {
	Entries []Entry
	// Failures lists images that produced no colour.
	Failures []Failure
	// Warnings lists images indexed with a fallback colour.
	Warnings []Failure
}

// Colours returns the path to colour mapping of the batch.
func (r *BatchResult) Colours() map[string]colour.Colour {
	out := make(map[string]colour.Colour, len(r.Entries))
	for _, e := range r.Entries {
		out[e.Path] = e.Colour
	}
	return out
}

// ExtractorOptions configures a BatchExtractor.
type ExtractorOptions struct {
	// ClusterIndex is the cluster rank used as the representative colour.
	ClusterIndex int
	// MaxDimension shrinks larger images before clustering; 0 disables.
	MaxDimension int
	// Seed controls per-image k-means seeding.
	Seed seed.Config
	// Loader decodes images; nil uses image.NewFileLoader().
	Loader image.Loader
	// Logger receives per-image diagnostics; nil discards them.
	Logger hclog.Logger
}

// BatchExtractor computes representative colours for a list of image paths.
// It holds no mutable state and may be shared by workers.
type BatchExtractor struct {
	clusterer *colour.Clusterer
	opts      ExtractorOptions
}

// NewBatchExtractor creates a BatchExtractor around clusterer.
func NewBatchExtractor(clusterer *colour.Clusterer, opts ExtractorOptions) (*BatchExtractor, error) {
	if clusterer == nil {
		return nil, errors.New("clusterer cannot be nil")
	}
	if opts.ClusterIndex < 0 || opts.ClusterIndex >= clusterer.Clusters() {
		return nil, fmt.Errorf("cluster index %d out of range for %d clusters", opts.ClusterIndex, clusterer.Clusters())
	}
	if opts.MaxDimension < 0 {
		return nil, fmt.Errorf("max dimension cannot be negative, got %d", opts.MaxDimension)
	}
	if opts.Loader == nil {
		opts.Loader = image.NewFileLoader()
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	return &BatchExtractor{clusterer: clusterer, opts: opts}, nil
}

// Calculate returns the representative colour of a single image file. A
// *colour.ConvergenceWarning comes back with a usable colour.
func (e *BatchExtractor) Calculate(path string) (colour.Colour, error) {
	img, err := e.opts.Loader.Load(path)
	if err != nil {
		return nil, err
	}

	pixels := image.Pixels(img, e.opts.MaxDimension)
	if pixels.IsEmpty() {
		return nil, &image.DecodeError{Path: path, Err: errors.New("image has no pixels")}
	}

	s, err := seed.Calculate(pixels, path, e.opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to derive seed: %w", err)
	}

	return e.clusterer.Seeded(s).Calculate(pixels, e.opts.ClusterIndex)
}

// CalculateArray processes paths in order. An image that fails is recorded
// and the rest of the batch continues. Cancellation marks every remaining
// path as failed with the context error.
func (e *BatchExtractor) CalculateArray(ctx context.Context, paths []string) *BatchResult {
	result := &BatchResult{Entries: make([]Entry, 0, len(paths))}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			for _, rest := range paths[i:] {
				result.Failures = append(result.Failures, Failure{Path: rest, Err: err})
			}
			break
		}

		c, err := e.Calculate(path)
		switch {
		case err == nil:
			result.Entries = append(result.Entries, Entry{Path: path, Colour: c})
			e.opts.Logger.Trace("indexed image", "path", path, "colour", c.Hex())
		case colour.IsConvergenceWarning(err):
			result.Entries = append(result.Entries, Entry{Path: path, Colour: c})
			result.Warnings = append(result.Warnings, Failure{Path: path, Err: err})
			e.opts.Logger.Debug("indexed image with fallback colour", "path", path, "colour", c.Hex(), "warning", err)
		default:
			result.Failures = append(result.Failures, Failure{Path: path, Err: err})
			e.opts.Logger.Warn("skipping image", "path", path, "error", err)
		}
	}

	return result
}
