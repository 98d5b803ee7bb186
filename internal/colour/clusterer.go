package colour

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultClusters is the number of k-means clusters per image.
	DefaultClusters = 4
	// DefaultClusterIndex selects the second cluster in label order; the
	// first is usually background.
	DefaultClusterIndex = 1
	// DefaultMaxIterations caps Lloyd iterations on pathological images.
	DefaultMaxIterations = 300
	// DefaultTolerance is the total centroid shift treated as converged.
	DefaultTolerance = 1e-4
)

// Clusterer computes an image's representative colour: the centroid of one
// k-means cluster chosen by its rank in ascending label order.
//
// A Clusterer is immutable and safe for concurrent use.
type Clusterer struct {
	clusters      int
	maxIterations int
	tolerance     float64
	seed          int64
}

// ClustererOption configures a Clusterer.
type ClustererOption func(*Clusterer)

// WithClusters sets k.
func WithClusters(n int) ClustererOption {
	return func(c *Clusterer) { c.clusters = n }
}

// WithMaxIterations caps the number of k-means iterations.
func WithMaxIterations(n int) ClustererOption {
	return func(c *Clusterer) { c.maxIterations = n }
}

// WithTolerance sets the convergence threshold on total centroid movement.
func WithTolerance(tol float64) ClustererOption {
	return func(c *Clusterer) { c.tolerance = tol }
}

// WithSeed sets the k-means random seed.
func WithSeed(seed int64) ClustererOption {
	return func(c *Clusterer) { c.seed = seed }
}

// NewClusterer creates a Clusterer, validating the options.
func NewClusterer(opts ...ClustererOption) (*Clusterer, error) {
	c := &Clusterer{
		clusters:      DefaultClusters,
		maxIterations: DefaultMaxIterations,
		tolerance:     DefaultTolerance,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.clusters < 1 {
		return nil, fmt.Errorf("cluster count must be at least 1, got %d", c.clusters)
	}
	if c.clusters > 256 {
		return nil, fmt.Errorf("cluster count too large: %d (maximum: 256)", c.clusters)
	}
	if c.maxIterations < 1 {
		return nil, fmt.Errorf("max iterations must be at least 1, got %d", c.maxIterations)
	}
	if c.tolerance < 0 {
		return nil, fmt.Errorf("tolerance cannot be negative, got %g", c.tolerance)
	}
	return c, nil
}

// Clusters returns the configured k.
func (c *Clusterer) Clusters() int {
	return c.clusters
}

// Seeded returns a copy of c that uses seed.
func (c *Clusterer) Seeded(seed int64) *Clusterer {
	out := *c
	out.seed = seed
	return &out
}

// Cluster runs k-means over pixels, one row per pixel.
func (c *Clusterer) Cluster(pixels *mat.Dense) (*Clusters, error) {
	if pixels == nil || pixels.IsEmpty() {
		return nil, ErrNoPixels
	}
	rng := rand.New(rand.NewSource(c.seed)) // #nosec G404 -- reproducible clustering, not security
	return c.kmeans(pixels, rng), nil
}

// Calculate returns the centroid at position clusterIndex once the populated
// clusters are sorted by label. Population only decides whether a label is
// present, never its rank.
//
// When fewer populated clusters exist than clusterIndex needs, the centroid of
// the last populated label is returned together with a *ConvergenceWarning.
func (c *Clusterer) Calculate(pixels *mat.Dense, clusterIndex int) (Colour, error) {
	if clusterIndex < 0 {
		return nil, fmt.Errorf("cluster index cannot be negative, got %d", clusterIndex)
	}
	if clusterIndex >= c.clusters {
		return nil, fmt.Errorf("cluster index %d out of range for %d clusters", clusterIndex, c.clusters)
	}

	result, err := c.Cluster(pixels)
	if err != nil {
		return nil, err
	}

	return result.Select(clusterIndex)
}

// CalculateDefault is Calculate with DefaultClusterIndex.
func (c *Clusterer) CalculateDefault(pixels *mat.Dense) (Colour, error) {
	return c.Calculate(pixels, DefaultClusterIndex)
}
