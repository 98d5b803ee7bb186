package cli

import (
	"fmt"
	"io"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/jmylchreest/mosaicer/internal/colour"
)

// ANSI escape codes for 24-bit terminal colours.
const (
	ansiReset    = "\033[0m"
	ansiBgPrefix = "\033[48;2;"
	swatchWidth  = 4
)

// swatch returns a solid block of c for terminals. Colours that are not RGB
// triples render as blank padding.
func swatch(c colour.Colour) string {
	if c.Dim() != 3 {
		return strings.Repeat(" ", swatchWidth)
	}
	r, g, b := colorful.Color{R: c[0] / 255, G: c[1] / 255, B: c[2] / 255}.Clamped().RGB255()
	return fmt.Sprintf("%s%d;%d;%dm%s%s", ansiBgPrefix, r, g, b, strings.Repeat(" ", swatchWidth), ansiReset)
}

// withSwatch prefixes text with a swatch of c when w is a terminal.
func withSwatch(w io.Writer, c colour.Colour, text string) string {
	if !isTerminal(w) {
		return text
	}
	return swatch(c) + " " + text
}
