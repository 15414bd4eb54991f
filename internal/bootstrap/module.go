package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"supplychain/internal/bootstrap/config"
	"supplychain/internal/bootstrap/database"
	"supplychain/internal/bootstrap/logging"
	"supplychain/internal/domain/catalog"
	"supplychain/internal/infrastructure/metrics"
	"supplychain/internal/infrastructure/persistence/dialect"
	"supplychain/internal/infrastructure/persistence/repository"
	"supplychain/internal/infrastructure/persistence/schema"
	"supplychain/internal/infrastructure/source"
	"supplychain/internal/ports"
	"supplychain/internal/usecase/loader"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideLogger),
	fx.Provide(provideDatabase),
	fx.Provide(provideDialect),
	fx.Provide(catalog.SupplyChain),
	fx.Provide(schema.NewManager),
	fx.Provide(func(m *schema.Manager) ports.SchemaManager { return m }),
	fx.Provide(provideTableStore),
	fx.Provide(provideSource),
	fx.Provide(
		fx.Annotate(
			provideMetrics,
			fx.As(new(ports.LoadMetrics)),
		),
	),
	fx.Provide(loader.NewLoader),
	fx.Provide(loader.NewVerifier),
	fx.Provide(loader.NewPipeline),
	fx.Provide(provideApp),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithComponent(p.Ctx, "bootstrap.fx")
	return config.Load(ctx, p.ConfigFile)
}

type loggerParams struct {
	fx.In

	Config config.Config
	Output io.Writer `name:"logOutput" optional:"true"`
}

func provideLogger(p loggerParams) (*slog.Logger, error) {
	out := p.Output
	if out == nil {
		out = os.Stderr
	}
	return logging.New(out, p.Config.Log.Level, p.Config.Log.Format)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithComponent(ctx, "bootstrap.fx")

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return database.Close(logCtx, db)
		},
	})

	return db, nil
}

func provideDialect(cfg config.Config) (dialect.Dialect, error) {
	return dialect.ForDriver(cfg.Database.Driver)
}

func provideTableStore(db *gorm.DB, d dialect.Dialect, cfg config.Config) ports.TableStore {
	return repository.NewTableStore(db, d, cfg.Load.BatchSize)
}

func provideSource(ctx context.Context, cfg config.Config) (ports.SourceReader, error) {
	if strings.EqualFold(cfg.Source.Driver, "s3") {
		return source.NewS3Reader(ctx, source.S3Config{
			Bucket:   cfg.Source.Bucket,
			Prefix:   cfg.Source.Prefix,
			Region:   cfg.Source.Region,
			Endpoint: cfg.Source.Endpoint,
		})
	}
	return source.NewFSReader(cfg.Source.Dir), nil
}

func provideMetrics(cfg config.Config) *metrics.Recorder {
	return metrics.NewRecorder(cfg.Metrics.Textfile)
}

func provideApp(cfg config.Config, db *gorm.DB, logger *slog.Logger, m *schema.Manager) *App {
	return &App{
		Config: cfg,
		DB:     db,
		Logger: logger,
		Schema: m,
	}
}
