// Package main запускает симулятор банкомата: сканирует NFC-файл и гасит токен.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mmeshcher/tappass/internal/config"
	"github.com/mmeshcher/tappass/internal/issuerclient"
	"github.com/mmeshcher/tappass/internal/nfc"
	"github.com/mmeshcher/tappass/internal/repository"
	"github.com/mmeshcher/tappass/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()

	cfg, err := config.Parse()
	if err != nil {
		logger.Sugar().Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, logger, flag.Args(), os.Stdout, os.Stderr)

	stop()
	_ = logger.Sync()
	os.Exit(code)
}

// run выполняет один цикл банкомата и возвращает код завершения.
// Ресурсы хранилища закрываются до возврата.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string, stdout, stderr io.Writer) int {
	sugar := logger.Sugar()

	var r redeemer
	if cfg.IssuerAddress != "" {
		r = &remoteRedeemer{client: issuerclient.NewClient(cfg.IssuerAddress)}
	} else {
		var repo service.Repository
		if cfg.DatabaseURI != "" {
			var err error
			repo, err = repository.NewPostgresRepository(cfg.DatabaseURI)
			if err != nil {
				sugar.Errorw("store initialization error", "error", err.Error())
				return 1
			}
		} else {
			repo = repository.NewFileRepository(cfg.StoreFile, cfg.PayeesFile)
		}

		svc := service.NewService(repo, nil, nfc.NewChannel(cfg.ScanFile))
		defer svc.Close()

		r = &localRedeemer{svc: svc}
	}

	err := process(ctx, r, args, stdout)
	if err == nil {
		return 0
	}

	if msg, ok := userMessage(err); ok {
		sugar.Infow("redemption rejected", "reason", err.Error())
		fmt.Fprintln(stderr, msg)
	} else {
		sugar.Errorw("redemption failed", "error", err.Error())
	}
	return 1
}
