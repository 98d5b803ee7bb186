// Package index holds the colour index: image labels paired positionally
// with their representative colours, its persisted forms, and the
// nearest-colour matcher that queries it.
package index

import (
	"fmt"

	"github.com/jmylchreest/mosaicer/internal/colour"
)

// Index pairs Labels[i] with Colours[i]. Order is build insertion order and
// carries no meaning beyond the pairing.
type Index struct {
	Labels  []string
	Colours []colour.Colour
}

// New builds a validated index from parallel slices. The slices are copied.
func New(labels []string, colours []colour.Colour) (*Index, error) {
	idx := &Index{
		Labels:  append([]string(nil), labels...),
		Colours: make([]colour.Colour, len(colours)),
	}
	for i, c := range colours {
		idx.Colours[i] = c.Clone()
	}
	if err := idx.Validate(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.Labels)
}

// Dim returns the colour dimension, or 0 for an empty index.
func (idx *Index) Dim() int {
	if len(idx.Colours) == 0 {
		return 0
	}
	return len(idx.Colours[0])
}

// Validate checks the pairing invariants: equal lengths, one non-zero colour
// dimension and unique labels.
func (idx *Index) Validate() error {
	if len(idx.Labels) != len(idx.Colours) {
		return fmt.Errorf("labels and colours length mismatch: %d != %d", len(idx.Labels), len(idx.Colours))
	}
	dim := idx.Dim()
	if dim == 0 && len(idx.Colours) > 0 {
		return fmt.Errorf("colours must have at least one channel")
	}
	seen := make(map[string]int, len(idx.Labels))
	for i, label := range idx.Labels {
		if len(idx.Colours[i]) != dim {
			return fmt.Errorf("colour %d has dimension %d, want %d", i, len(idx.Colours[i]), dim)
		}
		if prev, ok := seen[label]; ok {
			return fmt.Errorf("duplicate label %q at positions %d and %d", label, prev, i)
		}
		seen[label] = i
	}
	return nil
}

// Clone returns a deep copy.
func (idx *Index) Clone() *Index {
	out := &Index{
		Labels:  append([]string(nil), idx.Labels...),
		Colours: make([]colour.Colour, len(idx.Colours)),
	}
	for i, c := range idx.Colours {
		out.Colours[i] = c.Clone()
	}
	return out
}
