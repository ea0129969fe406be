package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/dairy/internal/config"
	"github.com/mamadbah2/dairy/internal/events"
	"github.com/mamadbah2/dairy/internal/repository"
	"github.com/mamadbah2/dairy/internal/repository/mongodb"
	"github.com/mamadbah2/dairy/internal/repository/sheets"
	"github.com/mamadbah2/dairy/internal/repository/sqlite"
	"github.com/mamadbah2/dairy/internal/scheduler"
	"github.com/mamadbah2/dairy/internal/server/handlers"
	"github.com/mamadbah2/dairy/internal/server/router"
	"github.com/mamadbah2/dairy/internal/service/billing"
	"github.com/mamadbah2/dairy/internal/service/masterdata"
	"github.com/mamadbah2/dairy/internal/service/notify"
	"github.com/mamadbah2/dairy/internal/service/procurement"
	whatsappclient "github.com/mamadbah2/dairy/pkg/clients/whatsapp"
	"github.com/mamadbah2/dairy/pkg/logger"
)

func main() {
	envFile := flag.String("env", "", "path to an env file (defaults to .env when present)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	if err := run(cfg, baseLogger); err != nil {
		baseLogger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, baseLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, baseLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close store", zap.Error(err))
		}
	}()

	var publisher events.Publisher = events.Nop{}
	if cfg.Kafka.Enabled() {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Broker, cfg.Kafka.Topic, baseLogger.Named("events.kafka"))
		baseLogger.Info("kafka events enabled", zap.String("topic", cfg.Kafka.Topic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			baseLogger.Error("failed to close event publisher", zap.Error(err))
		}
	}()

	var notifier notify.Notifier = notify.Disabled{}
	if cfg.WhatsApp.Enabled() {
		notifier = notify.NewWhatsAppNotifier(whatsappclient.NewClient(cfg.WhatsApp), baseLogger.Named("svc.notify"))
		baseLogger.Info("whatsapp notifications enabled")
	} else {
		baseLogger.Warn("whatsapp token missing, farmer notifications disabled")
	}

	procOpts := procurement.Options{
		Publisher: publisher,
		Notifier:  notifier,
		Logger:    baseLogger.Named("svc.procurement"),
	}
	billOpts := billing.Options{
		Publisher: publisher,
		Notifier:  notifier,
		Logger:    baseLogger.Named("svc.billing"),
	}
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			return fmt.Errorf("init sheets repository: %w", err)
		}
		procOpts.Sheets = sheetsRepo
		procOpts.ImportRange = cfg.Sheets.ImportRange
		billOpts.Register = sheetsRepo
		billOpts.RegisterRange = cfg.Sheets.RegisterRange
	}

	masterSvc := masterdata.NewService(store, publisher, cfg.Limits.MaxRangeDays, baseLogger.Named("svc.masterdata"))
	procurementSvc := procurement.NewService(store, masterSvc, procOpts)
	billingSvc := billing.NewService(store, masterSvc, billOpts)

	engine := router.New(router.Handlers{
		MasterData:    handlers.NewMasterDataHandler(masterSvc, baseLogger.Named("handlers.masterdata")),
		Collections:   handlers.NewCollectionHandler(procurementSvc, baseLogger.Named("handlers.collections")),
		Statements:    handlers.NewStatementHandler(billingSvc, baseLogger.Named("handlers.statements")),
		Notifications: handlers.NewNotificationHandler(notifier, baseLogger.Named("handlers.notifications")),
	}, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Scheduler, procurementSvc, billingSvc, baseLogger.Named("scheduler"))
	if err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		baseLogger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// openStore connects the configured persistence adapter.
func openStore(ctx context.Context, cfg *config.Config, baseLogger *zap.Logger) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageMongo:
		store, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			return nil, fmt.Errorf("init mongodb repository: %w", err)
		}
		baseLogger.Info("using mongodb store", zap.String("db", cfg.MongoDB.DBName))
		return store, nil
	default:
		store, err := sqlite.New(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		baseLogger.Info("using sqlite store", zap.String("path", cfg.Storage.SQLitePath))
		return store, nil
	}
}
