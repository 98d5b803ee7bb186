package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/mosaicer/internal/colour"
	"github.com/jmylchreest/mosaicer/internal/config"
	"github.com/jmylchreest/mosaicer/internal/image"
	"github.com/jmylchreest/mosaicer/internal/index"
)

// DefaultBatchSize is the number of images handed to a worker at once.
const DefaultBatchSize = 25

// Options configures a Builder.
type Options struct {
	ExtractorOptions
	// BatchSize is the number of images per batch; 0 uses DefaultBatchSize.
	BatchSize int
}

// Report summarises a build.
type Report struct {
	Total    int
	Indexed  int
	Failures []Failure
	Warnings []Failure
	Batches  int
	Duration time.Duration
}

// BatchLostError reports a batch whose worker died before returning a result.
type BatchLostError struct {
	Batch int
	Paths []string
	Cause any
	Stack []byte
}

func (e *BatchLostError) Error() string {
	return fmt.Sprintf("batch %d (%d images) lost: %v", e.Batch, len(e.Paths), e.Cause)
}

// Builder computes the colour index of an image directory using a pool of
// workers.
type Builder struct {
	extractor *BatchExtractor
	batchSize int
	logger    hclog.Logger
}

// NewBuilder creates a Builder around clusterer.
func NewBuilder(clusterer *colour.Clusterer, opts Options) (*Builder, error) {
	if opts.BatchSize < 0 {
		return nil, fmt.Errorf("batch size cannot be negative, got %d", opts.BatchSize)
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	extractor, err := NewBatchExtractor(clusterer, opts.ExtractorOptions)
	if err != nil {
		return nil, err
	}

	return &Builder{
		extractor: extractor,
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
	}, nil
}

// Extractor returns the extractor shared by the workers.
func (b *Builder) Extractor() *BatchExtractor {
	return b.extractor
}

// Batches splits paths into consecutive slices of at most size elements.
func Batches(paths []string, size int) [][]string {
	if size < 1 {
		size = DefaultBatchSize
	}
	batches := make([][]string, 0, (len(paths)+size-1)/size)
	for start := 0; start < len(paths); start += size {
		end := min(start+size, len(paths))
		batches = append(batches, paths[start:end:end])
	}
	return batches
}

// CalculateAll indexes every file in imagesDir and writes the colours and
// labels files. Nothing is written when the build fails.
func (b *Builder) CalculateAll(ctx context.Context, imagesDir, coloursOut, labelsOut string, workers int) (*Report, error) {
	if err := checkOutputs(coloursOut, labelsOut); err != nil {
		return nil, err
	}
	return b.BuildTo(ctx, imagesDir, index.NewFileStore(coloursOut, labelsOut), workers)
}

// BuildTo indexes imagesDir and saves the result to store.
func (b *Builder) BuildTo(ctx context.Context, imagesDir string, store index.Store, workers int) (*Report, error) {
	idx, report, err := b.Build(ctx, imagesDir, workers)
	if err != nil {
		return report, err
	}

	if err := store.Save(ctx, idx); err != nil {
		return report, fmt.Errorf("failed to save index to %s: %w", store, err)
	}
	b.logger.Info("saved colour index", "store", store.String(), "entries", idx.Len())
	return report, nil
}

// Build indexes every regular file in imagesDir with the given number of
// workers. The index lists images in directory order.
func (b *Builder) Build(ctx context.Context, imagesDir string, workers int) (*index.Index, *Report, error) {
	paths, err := listImages(imagesDir)
	if err != nil {
		return nil, nil, err
	}
	if workers < 1 {
		return nil, nil, config.Errorf("processes", "must be at least 1, got %d", workers)
	}

	start := time.Now()
	batches := Batches(paths, b.batchSize)
	workers = min(workers, len(batches))
	b.logger.Info("building colour index", "dir", imagesDir, "images", len(paths), "batches", len(batches), "workers", workers)

	results, err := b.run(ctx, batches, workers)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{Total: len(paths), Batches: len(batches)}
	labels := make([]string, 0, len(paths))
	colours := make([]colour.Colour, 0, len(paths))
	seen := make(map[string]int, len(paths))

	for i, res := range results {
		for _, e := range res.Entries {
			if prev, ok := seen[e.Path]; ok {
				return nil, nil, fmt.Errorf("image %s produced by batches %d and %d", e.Path, prev, i)
			}
			seen[e.Path] = i
			labels = append(labels, e.Path)
			colours = append(colours, e.Colour)
		}
		report.Failures = append(report.Failures, res.Failures...)
		report.Warnings = append(report.Warnings, res.Warnings...)
	}

	if err := ctx.Err(); err != nil {
		return nil, report, fmt.Errorf("build cancelled: %w", err)
	}

	idx, err := index.New(labels, colours)
	if err != nil {
		return nil, report, fmt.Errorf("failed to assemble index: %w", err)
	}

	report.Indexed = idx.Len()
	report.Duration = time.Since(start)
	b.logger.Info("colour index built",
		"indexed", report.Indexed,
		"failed", len(report.Failures),
		"fallback", len(report.Warnings),
		"duration", report.Duration.Round(time.Millisecond))

	return idx, report, nil
}

type job struct {
	n     int
	paths []string
}

type outcome struct {
	n      int
	result *BatchResult
	lost   *BatchLostError
}

// run fans batches out to workers and returns results in batch order.
func (b *Builder) run(ctx context.Context, batches [][]string, workers int) ([]*BatchResult, error) {
	jobs := make(chan job)
	outcomes := make(chan outcome, len(batches))

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			log := b.logger.With("worker", worker)
			for j := range jobs {
				outcomes <- b.process(ctx, log, j)
			}
		}(w)
	}

	for n, paths := range batches {
		jobs <- job{n: n, paths: paths}
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	results := make([]*BatchResult, len(batches))
	var lost []error
	for o := range outcomes {
		if o.lost != nil {
			lost = append(lost, o.lost)
			continue
		}
		results[o.n] = o.result
	}
	if len(lost) > 0 {
		return nil, errors.Join(lost...)
	}
	return results, nil
}

// process runs one batch and converts a panic into a lost batch.
func (b *Builder) process(ctx context.Context, log hclog.Logger, j job) (o outcome) {
	o.n = j.n
	defer func() {
		if r := recover(); r != nil {
			o.result = nil
			o.lost = &BatchLostError{Batch: j.n, Paths: j.paths, Cause: r, Stack: debug.Stack()}
			log.Error("batch lost", "batch", j.n, "images", len(j.paths), "panic", r)
		}
	}()

	log.Debug("processing batch", "batch", j.n, "images", len(j.paths))
	o.result = b.extractor.CalculateArray(ctx, j.paths)
	return o
}

func listImages(imagesDir string) ([]string, error) {
	if imagesDir == "" {
		return nil, config.Errorf("images", "directory cannot be empty")
	}
	paths, err := image.ListFiles(imagesDir)
	if err != nil {
		return nil, &config.ConfigurationError{Field: "images", Err: err}
	}
	if len(paths) == 0 {
		return nil, config.Errorf("images", "no files found in %s", imagesDir)
	}
	return paths, nil
}

func checkOutputs(coloursOut, labelsOut string) error {
	for _, out := range []struct{ field, path string }{
		{"colours", coloursOut},
		{"labels", labelsOut},
	} {
		if out.path == "" {
			return config.Errorf(out.field, "output path cannot be empty")
		}
		if info, err := os.Stat(out.path); err == nil && info.IsDir() {
			return config.Errorf(out.field, "output path is a directory: %s", out.path)
		}
		parent := filepath.Dir(out.path)
		info, err := os.Stat(parent)
		if err != nil {
			return config.Errorf(out.field, "output directory %s: %v", parent, err)
		}
		if !info.IsDir() {
			return config.Errorf(out.field, "output parent is not a directory: %s", parent)
		}
	}
	if filepath.Clean(coloursOut) == filepath.Clean(labelsOut) {
		return config.Errorf("labels", "must differ from the colours path %q", coloursOut)
	}
	return nil
}
