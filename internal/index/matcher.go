package index

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/jmylchreest/mosaicer/internal/colour"
)

// Matcher answers nearest-colour queries against an in-memory copy of an
// index. With no-repeat matching the copy shrinks as labels are consumed; the
// persisted index is never touched.
//
// Matcher is safe for concurrent use: search and the optional removal happen
// under one lock.
type Matcher struct {
	mu  sync.Mutex
	idx *Index
}

// NewMatcher creates a matcher over a private copy of idx.
func NewMatcher(idx *Index) *Matcher {
	if idx == nil {
		idx = &Index{}
	}
	return &Matcher{idx: idx.Clone()}
}

// Len returns the number of entries still available.
func (m *Matcher) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idx.Len()
}

// Snapshot returns a deep copy of the current entries.
func (m *Matcher) Snapshot() *Index {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idx.Clone()
}

// Search returns the label and position of the entry closest to query by
// Euclidean distance. On ties the lowest position wins.
func (m *Matcher) Search(query colour.Colour) (string, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.search(query)
}

// RemoveAt drops the entry at position from both labels and colours.
func (m *Matcher) RemoveAt(position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeAt(position)
}

// Match is the result of one nearest-colour query.
type Match struct {
	Label    string
	Colour   colour.Colour
	Position int
	Distance float64
}

// Nearest returns the closest entry to query. When noRepeat is set the entry
// is removed in the same critical section, so concurrent callers never share
// a match.
func (m *Matcher) Nearest(query colour.Colour, noRepeat bool) (Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	label, position, err := m.search(query)
	if err != nil {
		return Match{}, err
	}
	c := m.idx.Colours[position]
	match := Match{
		Label:    label,
		Colour:   c.Clone(),
		Position: position,
		Distance: query.Distance(c),
	}
	if noRepeat {
		if err := m.removeAt(position); err != nil {
			return Match{}, err
		}
	}
	return match, nil
}

// NearestLabel returns the label of the closest colour. When noRepeat is set
// the matched entry is removed so it cannot be returned again.
func (m *Matcher) NearestLabel(query colour.Colour, noRepeat bool) (string, error) {
	match, err := m.Nearest(query, noRepeat)
	if err != nil {
		return "", err
	}
	return match.Label, nil
}

func (m *Matcher) search(query colour.Colour) (string, int, error) {
	if m.idx.Len() == 0 {
		return "", -1, &ExhaustedIndexError{Query: query.Clone()}
	}
	if len(query) != m.idx.Dim() {
		return "", -1, fmt.Errorf("%w: query has %d channels, index has %d", ErrDimensionMismatch, len(query), m.idx.Dim())
	}

	best := -1
	bestDist := math.Inf(1)
	for i, c := range m.idx.Colours {
		if d := query.Distance(c); d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		// Only reachable when every distance is NaN.
		return "", -1, fmt.Errorf("no comparable colour for query %s", query)
	}
	return m.idx.Labels[best], best, nil
}

func (m *Matcher) removeAt(position int) error {
	if position < 0 || position >= m.idx.Len() {
		return fmt.Errorf("position %d out of range for index of %d entries", position, m.idx.Len())
	}
	m.idx.Labels = slices.Delete(m.idx.Labels, position, position+1)
	m.idx.Colours = slices.Delete(m.idx.Colours, position, position+1)
	return nil
}
