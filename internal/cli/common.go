package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jmylchreest/mosaicer/internal/builder"
	"github.com/jmylchreest/mosaicer/internal/colour"
	"github.com/jmylchreest/mosaicer/internal/config"
	"github.com/jmylchreest/mosaicer/internal/index"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
)

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	default:
		return config.Errorf("format", "unknown format %q (valid: text, json)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *options) newBuilder() (*builder.Builder, error) {
	clusterer, err := colour.NewClusterer(
		colour.WithClusters(o.cfg.Clusters),
		colour.WithMaxIterations(o.cfg.MaxIterations),
	)
	if err != nil {
		return nil, &config.ConfigurationError{Field: "clusters", Err: err}
	}

	return builder.NewBuilder(clusterer, builder.Options{
		ExtractorOptions: builder.ExtractorOptions{
			ClusterIndex: o.cfg.ClusterIndex,
			MaxDimension: o.cfg.MaxDimension,
			Seed:         o.cfg.Seed(),
			Logger:       o.logger.Named("builder"),
		},
		BatchSize: o.cfg.BatchSize,
	})
}

func (o *options) store() index.Store {
	if o.cfg.Store == config.StoreSQLite {
		return index.NewSQLiteStore(o.cfg.DBPath)
	}
	return index.NewFileStore(o.cfg.ColoursPath, o.cfg.LabelsPath)
}

// buildIndex computes the index of the configured image directory and saves
// it to store.
func (o *options) buildIndex(ctx context.Context, store index.Store) (*builder.Report, error) {
	b, err := o.newBuilder()
	if err != nil {
		return nil, err
	}

	if fs, ok := store.(*index.FileStore); ok {
		return b.CalculateAll(ctx, o.cfg.ImagesDir, fs.ColoursPath, fs.LabelsPath, o.cfg.Processes)
	}
	return b.BuildTo(ctx, o.cfg.ImagesDir, store, o.cfg.Processes)
}

// loadIndex loads the persisted index, building it first when it is missing.
func (o *options) loadIndex(ctx context.Context) (*index.Index, error) {
	store := o.store()

	exists, err := store.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		o.logger.Info("colour index not found, building it", "store", store.String(), "images", o.cfg.ImagesDir)
		report, err := o.buildIndex(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("failed to build colour index: %w", err)
		}
		o.logFailures(report)
	}

	idx, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load colour index: %w", err)
	}
	o.logger.Debug("loaded colour index", "store", store.String(), "entries", idx.Len())
	return idx, nil
}

func (o *options) logFailures(report *builder.Report) {
	if report == nil {
		return
	}
	for _, f := range report.Warnings {
		o.logger.Debug("fallback colour used", "path", f.Path, "warning", f.Err)
	}
	if len(report.Failures) > 0 {
		o.logger.Warn("images excluded from the index", "count", len(report.Failures))
	}
}
