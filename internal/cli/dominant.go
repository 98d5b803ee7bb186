package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/mosaicer/internal/colour"
)

type dominantJSON struct {
	Path     string    `json:"path"`
	Colour   []float64 `json:"colour"`
	Hex      string    `json:"hex"`
	Fallback bool      `json:"fallback,omitempty"`
}

func newDominantCmd(o *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "dominant <image>",
		Short: "Print the representative colour of one image",
		Long: `Print the colour an image would be indexed under.

The same clustering settings as the index command apply, so the result matches
the image's entry in an index built with those settings.

Examples:
  mosaicer dominant photo.jpg
  mosaicer dominant -k 6 --cluster-index 2 -f json photo.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			b, err := o.newBuilder()
			if err != nil {
				return err
			}

			path := args[0]
			c, err := b.Extractor().Calculate(path)
			fallback := colour.IsConvergenceWarning(err)
			if err != nil && !fallback {
				return fmt.Errorf("failed to calculate colour: %w", err)
			}
			if fallback {
				o.logger.Warn("using fallback colour", "path", path, "warning", err)
			}

			out := cmd.OutOrStdout()
			if format == formatJSON {
				return writeJSON(out, dominantJSON{Path: path, Colour: c, Hex: c.Hex(), Fallback: fallback})
			}
			fmt.Fprintln(out, withSwatch(out, c, fmt.Sprintf("%s %s", c.Hex(), c)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format (text, json)")
	return cmd
}
