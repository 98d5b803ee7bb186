package colour

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Clusters is the outcome of one k-means run over an image's pixels.
type Clusters struct {
	// Centroids holds one centroid per cluster label.
	Centroids []Colour
	// Counts holds the number of pixels assigned to each label.
	Counts []int
	// Iterations is the number of assignment passes performed.
	Iterations int
}

// Select returns the centroid at position rank among the populated labels
// sorted ascending by label. With too few populated labels it falls back to
// the last one and returns a *ConvergenceWarning.
func (c *Clusters) Select(rank int) (Colour, error) {
	populated := c.Populated()
	if len(populated) == 0 {
		return nil, ErrNoPixels
	}
	if rank < len(populated) {
		return c.Centroids[populated[rank]].Clone(), nil
	}
	return c.Centroids[populated[len(populated)-1]].Clone(), &ConvergenceWarning{
		Requested: rank,
		Populated: len(populated),
		Clusters:  len(c.Centroids),
	}
}

// Populated returns the labels that own at least one pixel, ascending.
func (c *Clusters) Populated() []int {
	labels := make([]int, 0, len(c.Counts))
	for label, n := range c.Counts {
		if n > 0 {
			labels = append(labels, label)
		}
	}
	return labels
}

// kmeans partitions the rows of pixels into k clusters. All randomness is
// drawn from rng, so a fixed seed gives a fixed result.
func (c *Clusterer) kmeans(pixels *mat.Dense, rng *rand.Rand) *Clusters {
	n, _ := pixels.Dims()
	points := make([][]float64, n)
	for i := range points {
		points[i] = pixels.RawRowView(i)
	}

	centroids := initCentroidsPlusPlus(points, c.clusters, rng)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	iterations := 0
	for iterations < c.maxIterations {
		iterations++
		if changed := assign(points, centroids, labels); changed == 0 {
			break
		}
		if shift := recalculate(points, labels, centroids); shift <= c.tolerance {
			break
		}
	}

	counts := make([]int, len(centroids))
	for _, label := range labels {
		counts[label]++
	}

	out := make([]Colour, len(centroids))
	for i, centroid := range centroids {
		out[i] = Colour(centroid)
	}
	return &Clusters{Centroids: out, Counts: counts, Iterations: iterations}
}

// initCentroidsPlusPlus picks k starting centroids with k-means++: the first
// uniformly, the rest with probability proportional to squared distance.
func initCentroidsPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.Intn(len(points))]))

	distances := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			best := math.MaxFloat64
			for _, centroid := range centroids {
				if d := squaredDistance(p, centroid); d < best {
					best = d
				}
			}
			distances[i] = best
			total += best
		}

		// Every point already coincides with a centroid. Nudge a copy of the
		// last one so it can never win an assignment tie.
		if total == 0 {
			next := clone(centroids[len(centroids)-1])
			floats.AddConst(0.1, next)
			centroids = append(centroids, next)
			continue
		}

		target := rng.Float64() * total
		cumulative := 0.0
		chosen := len(points) - 1
		for i, d := range distances {
			cumulative += d
			if cumulative >= target && d > 0 {
				chosen = i
				break
			}
		}
		centroids = append(centroids, clone(points[chosen]))
	}

	return centroids
}

// assign labels each point with its nearest centroid, lowest label on ties.
// It returns how many labels changed.
func assign(points, centroids [][]float64, labels []int) int {
	changed := 0
	for i, p := range points {
		nearest := 0
		best := math.MaxFloat64
		for j, centroid := range centroids {
			if d := squaredDistance(p, centroid); d < best {
				best = d
				nearest = j
			}
		}
		if labels[i] != nearest {
			labels[i] = nearest
			changed++
		}
	}
	return changed
}

// recalculate moves each centroid to the mean of its members and returns the
// total distance moved. Empty clusters keep their centroid.
func recalculate(points [][]float64, labels []int, centroids [][]float64) float64 {
	dim := len(centroids[0])
	sums := make([][]float64, len(centroids))
	for i := range sums {
		sums[i] = make([]float64, dim)
	}
	counts := make([]int, len(centroids))

	for i, p := range points {
		floats.Add(sums[labels[i]], p)
		counts[labels[i]]++
	}

	shift := 0.0
	for i := range centroids {
		if counts[i] == 0 {
			continue
		}
		for j := range sums[i] {
			sums[i][j] /= float64(counts[i])
		}
		shift += floats.Distance(centroids[i], sums[i], 2)
		centroids[i] = sums[i]
	}
	return shift
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
