package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"supplychain/internal/bootstrap/config"
	"supplychain/internal/errs"
	"supplychain/internal/usecase/loader"
)

var (
	loadRecreate  bool
	loadSourceDir string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load every table from its extract and report row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(runLoad, fx.Decorate(overrideSourceDir(loadSourceDir)))(cmd, args)
	},
}

func runLoad(cmd *cobra.Command, svc services) error {
	summary, runErr := svc.Pipeline.Run(cmd.Context(), loader.RunOptions{Recreate: loadRecreate})

	if err := renderResults(cmd.OutOrStdout(), summary.Results); err != nil {
		return errs.Wrap(err, "write load results")
	}
	if runErr != nil {
		return runErr
	}
	if err := renderReport(cmd.OutOrStdout(), summary.Report); err != nil {
		return errs.Wrap(err, "write verification report")
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "run %s finished in %s\n", summary.RunID, summary.Duration.Round(time.Millisecond))
	return err
}

// overrideSourceDir points the fs source at dir when set.
func overrideSourceDir(dir string) func(config.Config) config.Config {
	return func(cfg config.Config) config.Config {
		if dir != "" {
			cfg.Source.Driver = "fs"
			cfg.Source.Dir = dir
		}
		return cfg
	}
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().BoolVar(&loadRecreate, "recreate", false, "Drop and recreate the schema before loading")
	loadCmd.Flags().StringVar(&loadSourceDir, "source-dir", "", "Directory holding the extracts (overrides source config)")
}
