// Package colour computes representative colours of images with seeded
// k-means clustering.
package colour

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/floats"
)

// Colour is a representative colour: one value per channel, 0-255 scale.
type Colour []float64

// RGB builds a three channel colour.
func RGB(r, g, b float64) Colour {
	return Colour{r, g, b}
}

// Dim returns the number of channels.
func (c Colour) Dim() int {
	return len(c)
}

// Clone returns a copy that shares no memory with c.
func (c Colour) Clone() Colour {
	if c == nil {
		return nil
	}
	out := make(Colour, len(c))
	copy(out, c)
	return out
}

// Distance returns the Euclidean distance between two colours of equal length.
func (c Colour) Distance(other Colour) float64 {
	return floats.Distance(c, other, 2)
}

// Hex formats a three channel colour as "#rrggbb". Other lengths format as
// a decimal tuple.
func (c Colour) Hex() string {
	if len(c) != 3 {
		return c.String()
	}
	col := colorful.Color{R: c[0] / 255, G: c[1] / 255, B: c[2] / 255}.Clamped()
	return col.Hex()
}

// String returns the colour as "(r, g, b)" with up to two decimals.
func (c Colour) String() string {
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
		if strings.Contains(parts[i], ".") {
			parts[i] = strconv.FormatFloat(v, 'f', 2, 64)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Parse reads a colour written as "#rrggbb", "rrggbb", "#rgb" or a comma
// separated list of channel values such as "12,200,31.5".
func Parse(s string) (Colour, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty colour")
	}

	if strings.Contains(s, ",") {
		fields := strings.Split(s, ",")
		out := make(Colour, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid channel %q in colour %q: %w", f, s, err)
			}
			out[i] = v
		}
		return out, nil
	}

	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	col, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	r, g, b := col.RGB255()
	return RGB(float64(r), float64(g), float64(b)), nil
}
