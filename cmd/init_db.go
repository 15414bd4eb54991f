/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"supplychain/internal/bootstrap/logging"
	"supplychain/internal/errs"
)

var (
	initDbRecreate bool
	initDbPrint    bool
)

// initDbCmd represents the init-db command
var initDbCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the supply chain schema",
	RunE: withApp(func(cmd *cobra.Command, svc services) error {
		ctx := cmd.Context()
		app := svc.App

		if initDbPrint {
			stmts, err := app.Schema.Statements()
			if err != nil {
				return errs.Wrap(err, "render schema")
			}
			for _, stmt := range stmts {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", stmt); err != nil {
					return errs.Wrap(err, "write schema")
				}
			}
			return nil
		}

		logging.Info(ctx, "start init-db", slog.Bool("recreate", initDbRecreate))
		if err := app.InitSchema(ctx, initDbRecreate); err != nil {
			logging.Error(ctx, "initialize schema failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "initialize schema")
		}

		report, err := svc.Verifier.Report(ctx)
		if err != nil {
			return errs.Wrap(err, "verify schema")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "database schema initialized: %d tables\n", len(report)); err != nil {
			return errs.Wrap(err, "write init-db output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(initDbCmd)

	initDbCmd.Flags().BoolVar(&initDbRecreate, "recreate", false, "Drop every table before creating the schema")
	initDbCmd.Flags().BoolVar(&initDbPrint, "print", false, "Print the DDL instead of applying it")
}
