package index

import (
	"errors"
	"fmt"

	"github.com/jmylchreest/mosaicer/internal/colour"
)

var (
	// ErrExhaustedIndex is returned when a match is requested against an
	// empty index.
	ErrExhaustedIndex = errors.New("colour index is exhausted")

	// ErrDimensionMismatch is returned when a query colour has a different
	// number of channels than the indexed colours.
	ErrDimensionMismatch = errors.New("query colour dimension does not match index")
)

// ExhaustedIndexError records the query that found the index empty.
type ExhaustedIndexError struct {
	Query colour.Colour
}

func (e *ExhaustedIndexError) Error() string {
	return fmt.Sprintf("no match for %s: %v", e.Query, ErrExhaustedIndex)
}

func (e *ExhaustedIndexError) Unwrap() error {
	return ErrExhaustedIndex
}

// CorruptIndexError reports persisted index files that cannot be loaded as a
// consistent index.
type CorruptIndexError struct {
	Source string
	Err    error
}

func (e *CorruptIndexError) Error() string {
	return fmt.Sprintf("corrupt colour index %s: %v", e.Source, e.Err)
}

func (e *CorruptIndexError) Unwrap() error {
	return e.Err
}
