package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"cineverse/internal/bootstrap"
	"cineverse/internal/core/config"
	"cineverse/internal/core/logger"
	"cineverse/internal/core/server"
	"cineverse/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zap.InfoLevel)()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	app, err := bootstrap.New(startCtx, cfg, log)
	cancelStart()
	if err != nil {
		log.Fatal("bootstrap failed", zap.Error(err))
	}
	defer func() { _ = app.Close() }()

	srv := server.BuildServer(
		server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port),
		router.NewAPIEngine(app.RouterDeps()),
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)
	base := server.BaseURL(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	log.Info("user api starting",
		zap.String("open", base),
		zap.String("health", base+"/health"),
		zap.String("api_v1", base+"/api/v1"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := server.Serve(ctx, srv, log, 10*time.Second); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("user api stopped", zap.Error(err))
		return
	}
	log.Info("user api stopped gracefully")
}
