// Package main запускает HTTP-API эмитента NFC-токенов.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/tappass/internal/config"
	"github.com/mmeshcher/tappass/internal/handler"
	"github.com/mmeshcher/tappass/internal/keyring"
	"github.com/mmeshcher/tappass/internal/nfc"
	"github.com/mmeshcher/tappass/internal/repository"
	"github.com/mmeshcher/tappass/internal/service"
)

func openRepository(cfg *config.Config) (service.Repository, error) {
	if cfg.DatabaseURI != "" {
		return repository.NewPostgresRepository(cfg.DatabaseURI)
	}
	return repository.NewFileRepository(cfg.StoreFile, cfg.PayeesFile), nil
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	sealer, err := keyring.LoadOrCreate(cfg.KeyFile)
	if err != nil {
		sugar.Fatalw("key initialization error", "error", err.Error(), "path", cfg.KeyFile)
	}

	repo, err := openRepository(cfg)
	if err != nil {
		sugar.Fatalw("store initialization error", "error", err.Error())
	}

	svc := service.NewService(repo, sealer, nfc.NewChannel(cfg.ScanFile))
	defer svc.Close()

	h := handler.NewHandler(svc, logger)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.SetupRouter(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting issuer server",
			"addr", cfg.RunAddress,
			"store", cfg.StoreFile,
			"postgres", cfg.DatabaseURI != "",
			"scan", cfg.ScanFile,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
