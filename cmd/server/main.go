package main

import (
	"context"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/workforcehq/workforce-sdk/modules/workforce/infrastructure/persistence"
	"github.com/workforcehq/workforce-sdk/modules/workforce/presentation/controllers"
	"github.com/workforcehq/workforce-sdk/modules/workforce/services"
	"github.com/workforcehq/workforce-sdk/pkg/configuration"
	"github.com/workforcehq/workforce-sdk/pkg/eventbus"
	"github.com/workforcehq/workforce-sdk/pkg/middleware"
	"github.com/workforcehq/workforce-sdk/pkg/server"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	if conf.MigrationsEnabled {
		if err := persistence.RunMigrations(ctx, pool); err != nil {
			logger.WithError(err).Fatal("migrations failed")
		}
	}

	bus := eventbus.NewEventPublisher(logger)
	bus.Subscribe(func(event services.ImportCompletedEvent) {
		logger.WithFields(logrus.Fields{
			"dryRun":   event.DryRun,
			"imported": event.Summary.Imported,
			"skipped":  event.Summary.Skipped,
			"failed":   event.Summary.Failed,
		}).Info("workbook import completed")
	})

	repository := persistence.NewWorkforceRepository()
	uow := persistence.NewPgUnitOfWork(conf.Exchange.TxTimeout)
	importer := services.NewImportService(repository, uow, bus)
	exporter := services.NewExportService(repository, conf.Exchange.MaxCellLength)

	srv := server.NewHTTPServer(
		[]server.Controller{
			controllers.NewExchangeController(importer, exporter, conf.Exchange),
		},
		middleware.RequestLogger(logger, conf.RequestIDHeader),
		middleware.ProvidePool(pool),
	)

	logger.WithField("address", conf.SocketAddress).Info("starting server")
	if err := srv.Start(conf.SocketAddress); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
