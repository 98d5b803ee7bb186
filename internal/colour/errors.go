package colour

import (
	"errors"
	"fmt"
)

// ErrNoPixels is returned when there is nothing to cluster.
var ErrNoPixels = errors.New("no pixels to cluster")

// ConvergenceWarning reports that clustering produced fewer populated
// clusters than the requested rank needs. It is returned alongside a usable
// fallback colour and is never fatal.
type ConvergenceWarning struct {
	Requested int // requested cluster rank
	Populated int // populated clusters found
	Clusters  int // configured k
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("only %d of %d clusters populated, cannot select rank %d; using rank %d",
		w.Populated, w.Clusters, w.Requested, w.Populated-1)
}

// IsConvergenceWarning reports whether err carries a ConvergenceWarning.
func IsConvergenceWarning(err error) bool {
	var w *ConvergenceWarning
	return errors.As(err, &w)
}
