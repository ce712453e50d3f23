package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/api-sage/account-ledger-service/internal/adapter/http/controller"
	"github.com/api-sage/account-ledger-service/internal/adapter/http/middleware"
	"github.com/api-sage/account-ledger-service/internal/adapter/http/router"
	"github.com/api-sage/account-ledger-service/internal/adapter/repository/jsonstore"
	"github.com/api-sage/account-ledger-service/internal/adapter/repository/postgres"
	"github.com/api-sage/account-ledger-service/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger-service/internal/config"
	"github.com/api-sage/account-ledger-service/internal/logger"
	"github.com/api-sage/account-ledger-service/internal/usecase/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("init account store: %v", err)
	}
	defer cleanup()

	ledgerService := services.NewLedgerService(store)
	accountController := controller.NewAccountController(ledgerService)
	mux := router.New(accountController, middleware.Identity(cfg.ChannelID, cfg.ChannelKey))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           middleware.RequestLogging(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("account ledger server listening", logger.Fields{
			"addr":    cfg.ListenAddr,
			"storage": cfg.StorageBackend,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}

	logger.Info("account ledger server stopped", nil)
}

func buildStore(ctx context.Context, cfg config.Config) (repo_interfaces.AccountStore, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageBackendPostgres:
		migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if err := postgres.RunMigrations(migrateCtx, cfg.DatabaseDSN, cfg.MigrationsDir); err != nil {
			return nil, nil, err
		}

		db, err := postgres.Open(migrateCtx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStore(db), func() { _ = db.Close() }, nil
	default:
		return jsonstore.New(cfg.DataFile), func() {}, nil
	}
}
