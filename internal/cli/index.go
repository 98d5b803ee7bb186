package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/mosaicer/internal/builder"
)

type indexReport struct {
	Store    string        `json:"store"`
	Total    int           `json:"total"`
	Indexed  int           `json:"indexed"`
	Batches  int           `json:"batches"`
	Duration string        `json:"duration"`
	Failures []failureJSON `json:"failures,omitempty"`
	Warnings []failureJSON `json:"fallbacks,omitempty"`
}

type failureJSON struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func toFailureJSON(fs []builder.Failure) []failureJSON {
	out := make([]failureJSON, len(fs))
	for i, f := range fs {
		out[i] = failureJSON{Path: f.Path, Error: f.Err.Error()}
	}
	return out
}

func newIndexCmd(o *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the colour index of an image directory",
		Long: `Build the colour index of every file in the images directory and save it.

Images are processed in batches by parallel workers. Files that cannot be
decoded are reported and left out of the index. An existing index is
replaced.

Examples:
  # Index ./images into colours.bin and labels.json
  mosaicer index

  # Index a library with 8 workers into compressed files
  mosaicer index -i ~/Pictures/library -p 8 --colours colours.bin.xz

  # Index into a SQLite database
  mosaicer index --store sqlite --db library.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			store := o.store()
			report, err := o.buildIndex(cmd.Context(), store)
			if err != nil {
				return err
			}
			o.logFailures(report)

			out := cmd.OutOrStdout()
			if format == formatJSON {
				return writeJSON(out, indexReport{
					Store:    store.String(),
					Total:    report.Total,
					Indexed:  report.Indexed,
					Batches:  report.Batches,
					Duration: report.Duration.Round(time.Millisecond).String(),
					Failures: toFailureJSON(report.Failures),
					Warnings: toFailureJSON(report.Warnings),
				})
			}

			fmt.Fprintf(out, "Indexed %d of %d images in %d batches (%s)\n",
				report.Indexed, report.Total, report.Batches, report.Duration.Round(time.Millisecond))
			fmt.Fprintf(out, "Saved to %s\n", store)

			if len(report.Failures) > 0 && !o.quiet {
				table := NewTable([]string{"SKIPPED", "REASON"})
				table.SetColumnMaxWidth(1, 60)
				for _, f := range report.Failures {
					table.AddRow([]string{f.Path, f.Err.Error()})
				}
				fmt.Fprintln(out)
				fmt.Fprint(out, table.Render())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format (text, json)")
	return cmd
}
