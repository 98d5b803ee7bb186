package cli

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/term"
)

// newLogger writes to w at Info, Debug with verbose or Error with quiet.
func newLogger(w io.Writer, verbose, quiet bool) hclog.Logger {
	level := hclog.Info
	switch {
	case verbose:
		level = hclog.Debug
	case quiet:
		level = hclog.Error
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   "mosaicer",
		Output: w,
		Level:  level,
		Color:  colourOption(w),
	})
}

func colourOption(w io.Writer) hclog.ColorOption {
	if isTerminal(w) {
		return hclog.ForceColor
	}
	return hclog.ColorOff
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) // #nosec G115 -- file descriptors fit in int
}
