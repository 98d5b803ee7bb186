// Package config holds mosaicer's runtime configuration: defaults, the
// MOSAICER_* environment overlay and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jmylchreest/mosaicer/internal/colour"
	"github.com/jmylchreest/mosaicer/internal/seed"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "MOSAICER_"

// StoreKind selects how the colour index is persisted.
type StoreKind string

const (
	// StoreFiles keeps colours and labels in two files.
	StoreFiles StoreKind = "file"
	// StoreSQLite keeps the index in one SQLite database.
	StoreSQLite StoreKind = "sqlite"
)

// ErrConfiguration is the sentinel wrapped by every ConfigurationError.
var ErrConfiguration = errors.New("invalid configuration")

// ConfigurationError reports an invalid or missing setting detected before
// any work starts.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %v", ErrConfiguration, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrConfiguration, e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() []error {
	return []error{ErrConfiguration, e.Err}
}

// Errorf builds a ConfigurationError for field.
func Errorf(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Err: fmt.Errorf(format, args...)}
}

// Config holds all settings for building and querying a colour index.
type Config struct {
	ImagesDir   string
	ColoursPath string
	LabelsPath  string
	Store       StoreKind
	DBPath      string

	Clusters      int
	ClusterIndex  int
	MaxIterations int
	MaxDimension  int
	SeedMode      seed.Mode
	SeedValue     int64

	Processes int
	BatchSize int
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		ImagesDir:     "images",
		ColoursPath:   "colours.bin",
		LabelsPath:    "labels.json",
		Store:         StoreFiles,
		DBPath:        "index.db",
		Clusters:      colour.DefaultClusters,
		ClusterIndex:  colour.DefaultClusterIndex,
		MaxIterations: colour.DefaultMaxIterations,
		MaxDimension:  256,
		SeedMode:      seed.ModeContent,
		Processes:     4,
		BatchSize:     25,
	}
}

// FromEnv overlays MOSAICER_* environment variables onto c. Unset variables
// leave the field untouched.
func (c *Config) FromEnv() error {
	return c.fromLookup(os.LookupEnv)
}

func (c *Config) fromLookup(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"IMAGES":  &c.ImagesDir,
		"COLOURS": &c.ColoursPath,
		"LABELS":  &c.LabelsPath,
		"DB":      &c.DBPath,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"CLUSTERS":       &c.Clusters,
		"CLUSTER_INDEX":  &c.ClusterIndex,
		"MAX_ITERATIONS": &c.MaxIterations,
		"MAX_DIMENSION":  &c.MaxDimension,
		"PROCESSES":      &c.Processes,
		"BATCH_SIZE":     &c.BatchSize,
	}
	for name, dst := range ints {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Errorf(EnvPrefix+name, "not an integer: %q", v)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "STORE"); ok {
		c.Store = StoreKind(strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := lookup(EnvPrefix + "SEED_MODE"); ok {
		c.SeedMode = seed.Mode(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvPrefix + "SEED_VALUE"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return Errorf(EnvPrefix+"SEED_VALUE", "not an integer: %q", v)
		}
		c.SeedValue = n
	}
	return nil
}

// Seed returns the seed configuration.
func (c Config) Seed() seed.Config {
	return seed.Config{Mode: c.SeedMode, Value: c.SeedValue}
}

// Validate checks value ranges. Filesystem checks happen where the paths are
// used.
func (c Config) Validate() error {
	if c.Clusters < 1 || c.Clusters > 256 {
		return Errorf("clusters", "must be between 1 and 256, got %d", c.Clusters)
	}
	if c.ClusterIndex < 0 || c.ClusterIndex >= c.Clusters {
		return Errorf("cluster-index", "must be between 0 and %d, got %d", c.Clusters-1, c.ClusterIndex)
	}
	if c.MaxIterations < 1 {
		return Errorf("max-iterations", "must be at least 1, got %d", c.MaxIterations)
	}
	if c.MaxDimension < 0 {
		return Errorf("max-dimension", "cannot be negative, got %d", c.MaxDimension)
	}
	if c.Processes < 1 {
		return Errorf("processes", "must be at least 1, got %d", c.Processes)
	}
	if c.BatchSize < 1 {
		return Errorf("batch-size", "must be at least 1, got %d", c.BatchSize)
	}
	if _, err := seed.ParseMode(string(c.SeedMode)); err != nil {
		return &ConfigurationError{Field: "seed-mode", Err: err}
	}

	switch c.Store {
	case StoreFiles:
		if c.ColoursPath == "" {
			return Errorf("colours", "path cannot be empty")
		}
		if c.LabelsPath == "" {
			return Errorf("labels", "path cannot be empty")
		}
		if c.ColoursPath == c.LabelsPath {
			return Errorf("labels", "must differ from the colours path %q", c.ColoursPath)
		}
	case StoreSQLite:
		if c.DBPath == "" {
			return Errorf("db", "path cannot be empty")
		}
	default:
		return Errorf("store", "unknown store %q (valid: file, sqlite)", c.Store)
	}
	return nil
}
