package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"supplychain/internal/bootstrap/config"
	"supplychain/internal/errs"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "List tables with their row counts",
	RunE: withApp(func(cmd *cobra.Command, svc services) error {
		report, err := svc.Verifier.Report(cmd.Context())
		if err != nil {
			return errs.Wrap(err, "build verification report")
		}
		return renderReport(cmd.OutOrStdout(), report)
	}, fx.Decorate(requireExistingStore)),
}

// requireExistingStore keeps verify from creating an empty store.
func requireExistingStore(cfg config.Config) config.Config {
	cfg.Database.MustExist = true
	return cfg
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
