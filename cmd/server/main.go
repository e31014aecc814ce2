package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/splitword/splitword-server/internal/config"
	"github.com/splitword/splitword-server/internal/httpapi"
	"github.com/splitword/splitword-server/internal/registry"
	"github.com/splitword/splitword-server/internal/words"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := zap.Must(zap.NewProduction())
	if cfg.Env == "development" {
		logger = zap.Must(zap.NewDevelopment())
	}
	defer func() { _ = logger.Sync() }()

	catalog := words.Load(cfg.AllowedWordsFile, cfg.AnswerWordsFile, logger)
	reg := registry.New(catalog, logger)
	handler := httpapi.SetupRoutes(reg, cfg.MaxRounds, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
