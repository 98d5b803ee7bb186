package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/jmylchreest/mosaicer/internal/config"
	"github.com/jmylchreest/mosaicer/internal/seed"
)

// enumValue is a pflag.Value restricted to a fixed set of strings.
type enumValue[T ~string] struct {
	target  *T
	allowed []T
}

func newEnumValue[T ~string](target *T, allowed ...T) *enumValue[T] {
	return &enumValue[T]{target: target, allowed: allowed}
}

func (e *enumValue[T]) String() string {
	if e.target == nil {
		return ""
	}
	return string(*e.target)
}

func (e *enumValue[T]) Set(s string) error {
	v := T(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(e.allowed, v) {
		return fmt.Errorf("must be one of %s", e.Type())
	}
	*e.target = v
	return nil
}

func (e *enumValue[T]) Type() string {
	names := make([]string, len(e.allowed))
	for i, a := range e.allowed {
		names[i] = string(a)
	}
	return strings.Join(names, "|")
}

// addConfigFlags binds the configuration fields shared by all commands. The
// current values of cfg become the flag defaults.
func addConfigFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVarP(&cfg.ImagesDir, "images", "i", cfg.ImagesDir, "directory of library images")
	fs.StringVar(&cfg.ColoursPath, "colours", cfg.ColoursPath, "colours file (.xz or .gz suffix compresses)")
	fs.StringVar(&cfg.LabelsPath, "labels", cfg.LabelsPath, "labels file")
	fs.Var(newEnumValue(&cfg.Store, config.StoreFiles, config.StoreSQLite), "store", "index store")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database used with --store sqlite")

	fs.IntVarP(&cfg.Clusters, "clusters", "k", cfg.Clusters, "k-means clusters per image (1-256)")
	fs.IntVar(&cfg.ClusterIndex, "cluster-index", cfg.ClusterIndex, "cluster rank used as the representative colour")
	fs.IntVar(&cfg.MaxIterations, "max-iterations", cfg.MaxIterations, "k-means iteration limit")
	fs.IntVar(&cfg.MaxDimension, "max-dimension", cfg.MaxDimension, "shrink larger images to this size before clustering (0 disables)")
	fs.Var(newEnumValue(&cfg.SeedMode, seed.ValidModes()...), "seed-mode", "k-means seeding")
	fs.Int64Var(&cfg.SeedValue, "seed", cfg.SeedValue, "seed used with --seed-mode manual")

	fs.IntVarP(&cfg.Processes, "processes", "p", cfg.Processes, "parallel workers")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "images per worker batch")
}
