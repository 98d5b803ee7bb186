// Package cli provides the command-line interface for mosaicer.
package cli

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/mosaicer/internal/config"
	"github.com/jmylchreest/mosaicer/internal/version"
)

// options is the state shared by every command of one root command tree.
type options struct {
	cfg     config.Config
	envErr  error
	verbose bool
	quiet   bool
	logger  hclog.Logger
}

// NewRootCmd builds a fresh command tree. Defaults come from config.Default,
// overlaid by MOSAICER_* environment variables, then by flags.
func NewRootCmd() *cobra.Command {
	o := &options{cfg: config.Default()}
	o.envErr = o.cfg.FromEnv()

	rootCmd := &cobra.Command{
		Use:   "mosaicer",
		Short: "Colour index engine for photo mosaics",
		Long: `mosaicer indexes a directory of images by a representative colour and
answers nearest-colour queries against that index.

Each image is reduced to one colour with seeded k-means clustering. The index
is persisted to disk and can be queried repeatedly, optionally consuming each
image so it is used at most once.`,
		Version:      version.Short(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&o.quiet, "quiet", "q", false, "suppress non-error output")
	addConfigFlags(rootCmd.PersistentFlags(), &o.cfg)

	rootCmd.SetVersionTemplate(version.String() + "\n")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newIndexCmd(o))
	rootCmd.AddCommand(newMatchCmd(o))
	rootCmd.AddCommand(newDominantCmd(o))

	return rootCmd
}

func (o *options) setup(cmd *cobra.Command) error {
	if o.verbose && o.quiet {
		return config.Errorf("verbose", "cannot be combined with --quiet")
	}
	o.logger = newLogger(cmd.ErrOrStderr(), o.verbose, o.quiet)

	if o.envErr != nil {
		return o.envErr
	}
	if err := o.cfg.Validate(); err != nil {
		return err
	}

	o.logger.Debug("configuration",
		"images", o.cfg.ImagesDir,
		"store", o.cfg.Store,
		"clusters", o.cfg.Clusters,
		"cluster_index", o.cfg.ClusterIndex,
		"processes", o.cfg.Processes,
		"batch_size", o.cfg.BatchSize,
		"seed_mode", o.cfg.SeedMode)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including build date, commit hash, and Go version.`,
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
