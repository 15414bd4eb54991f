package cmd

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"supplychain/internal/bootstrap"
	"supplychain/internal/bootstrap/logging"
	"supplychain/internal/errs"
	"supplychain/internal/usecase/loader"
)

// services is what a command needs from the fx graph.
type services struct {
	App      *bootstrap.App
	Pipeline *loader.Pipeline
	Verifier *loader.Verifier
}

func withApp(run func(cmd *cobra.Command, svc services) error, opts ...fx.Option) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var svc services
		fxApp := fx.New(
			bootstrap.Module,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Provide(
				fx.Annotate(
					func() io.Writer { return cmd.ErrOrStderr() },
					fx.ResultTags(`name:"logOutput"`),
				),
			),
			fx.Options(opts...),
			fx.Populate(&svc.App, &svc.Pipeline, &svc.Verifier),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		cmd.SetContext(svc.App.Context(ctx))
		if err := run(cmd, svc); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}
