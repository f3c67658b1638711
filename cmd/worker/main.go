package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"cineverse/internal/bootstrap"
	"cineverse/internal/core/config"
	"cineverse/internal/core/logger"
	"cineverse/internal/mail"
	"cineverse/internal/repo"
	"cineverse/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()

	db, err := bootstrap.OpenDB(cfg, log)
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}

	// 没配 SMTP 时只打日志（本地开发）
	var sender mail.Sender = mail.LogSender{Log: log.Named("mail")}
	if cfg.Mail.SMTPHost != "" {
		sender = &mail.SMTPSender{
			Host: cfg.Mail.SMTPHost, Port: cfg.Mail.SMTPPort,
			Username: cfg.Mail.Username, Password: cfg.Mail.Password,
			From: cfg.Mail.From,
		}
	}
	h := &mail.Handlers{App: cfg.App.Name, Sender: sender, Log: log.Named("mail")}
	reconciler := service.NewReconciler(repo.NewCredentialRepo(db), log)

	w, err := mail.NewWorker(mail.WorkerConfig{
		RedisOpts:   bootstrap.RedisOpt(cfg),
		Log:         log,
		Concurrency: cfg.Worker.Concurrency,
		Handlers: []mail.TaskHandler{
			{Type: mail.TaskVerify, Handler: h.HandleVerify},
			{Type: mail.TaskReset, Handler: h.HandleReset},
			{Type: mail.TaskReconcile, Handler: reconciler.HandleTask},
		},
		Cron: []mail.CronRegistration{
			{Spec: cfg.Worker.ReconcileCron, Task: mail.NewReconcileTask()},
		},
	})
	if err != nil {
		log.Fatal("worker init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log.Info("worker starting",
		zap.String("redis", cfg.Redis.Addr),
		zap.Int("concurrency", cfg.Worker.Concurrency),
		zap.String("reconcile_cron", cfg.Worker.ReconcileCron),
	)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped", zap.Error(err))
		return
	}
	log.Info("worker stopped gracefully")
}
