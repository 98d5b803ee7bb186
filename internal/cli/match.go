package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/mosaicer/internal/colour"
	"github.com/jmylchreest/mosaicer/internal/config"
	"github.com/jmylchreest/mosaicer/internal/index"
)

type matchJSON struct {
	Query    []float64 `json:"query"`
	Label    string    `json:"label,omitempty"`
	Colour   []float64 `json:"colour,omitempty"`
	Distance float64   `json:"distance"`
	Error    string    `json:"error,omitempty"`
}

// matchOptions holds the flags of the match command.
type matchOptions struct {
	noRepeat bool
	stdin    bool
	format   string
}

func newMatchCmd(o *options) *cobra.Command {
	var m matchOptions

	cmd := &cobra.Command{
		Use:   "match [colour...]",
		Short: "Find the library image closest to each colour",
		Long: `Find the library image whose representative colour is closest to each query.

Colours are given as #rrggbb, rrggbb or r,g,b. One label is printed per query,
in query order. The index is built first when it does not exist yet.

With --no-repeat every matched image is removed from the in-memory index, so
no image is returned twice during one run.

Examples:
  # Closest image to a colour
  mosaicer match '#3a5f8c'

  # One distinct image per tile colour, read from a file
  mosaicer match --no-repeat --stdin < tiles.txt

  # JSON output with distances
  mosaicer match -f json 12,200,31 ffffff`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(m.format); err != nil {
				return err
			}
			if m.stdin && len(args) > 0 {
				return config.Errorf("stdin", "cannot be combined with colour arguments")
			}
			if !m.stdin && len(args) == 0 {
				return config.Errorf("colour", "at least one colour or --stdin is required")
			}

			queries, err := readQueries(cmd.InOrStdin(), args, m.stdin)
			if err != nil {
				return err
			}

			idx, err := o.loadIndex(cmd.Context())
			if err != nil {
				return err
			}

			return runMatch(cmd.OutOrStdout(), o, index.NewMatcher(idx), queries, m)
		},
	}

	cmd.Flags().BoolVar(&m.noRepeat, "no-repeat", false, "never return the same image twice")
	cmd.Flags().BoolVar(&m.stdin, "stdin", false, "read colours from stdin, one per line")
	cmd.Flags().StringVarP(&m.format, "format", "f", formatText, "output format (text, json)")
	return cmd
}

// readQueries parses colours from args, or from r line by line. Blank lines
// and lines starting with # followed by a space are skipped.
func readQueries(r io.Reader, args []string, fromStdin bool) ([]colour.Colour, error) {
	var queries []colour.Colour

	if !fromStdin {
		for _, arg := range args {
			c, err := colour.Parse(arg)
			if err != nil {
				return nil, config.Errorf("colour", "%v", err)
			}
			queries = append(queries, c)
		}
		return queries, nil
	}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "# ") || text == "#" {
			continue
		}
		c, err := colour.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("stdin line %d: %w", line, err)
		}
		queries = append(queries, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return queries, nil
}

// runMatch answers queries in order. An exhausted index fails only the
// queries it affects; the command still reports an error at the end.
func runMatch(w io.Writer, o *options, m *index.Matcher, queries []colour.Colour, opts matchOptions) error {
	results := make([]matchJSON, 0, len(queries))
	unmatched := 0

	for _, q := range queries {
		res := matchJSON{Query: q}

		match, err := m.Nearest(q, opts.noRepeat)
		switch {
		case err == nil:
			res.Label = match.Label
			res.Colour = match.Colour
			res.Distance = match.Distance
		case errors.Is(err, index.ErrExhaustedIndex):
			unmatched++
			res.Error = err.Error()
			o.logger.Warn("no match", "query", q.String(), "error", err)
		default:
			return err
		}
		results = append(results, res)

		if opts.format == formatText && res.Error == "" {
			fmt.Fprintln(w, withSwatch(w, res.Colour, res.Label))
		}
	}

	if opts.format == formatJSON {
		if err := writeJSON(w, results); err != nil {
			return err
		}
	}

	if unmatched > 0 {
		return fmt.Errorf("%d of %d queries unmatched: %w", unmatched, len(queries), index.ErrExhaustedIndex)
	}
	return nil
}
