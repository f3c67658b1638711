// Package bootstrap 组装各进程共用的依赖：DB、redis、缓存、身份后端、业务服务
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cineverse/internal/core/auth"
	"cineverse/internal/core/cache"
	"cineverse/internal/core/config"
	"cineverse/internal/core/database"
	"cineverse/internal/identity"
	"cineverse/internal/mail"
	"cineverse/internal/repo"
	"cineverse/internal/service"
	"cineverse/internal/transport/http/router"
)

type App struct {
	Cfg   *config.Config
	Log   *zap.Logger
	DB    *gorm.DB
	RDB   *redis.Client
	Cache *cache.Cache
	Queue *asynq.Client

	Credentials *repo.CredentialRepo
	Profiles    *repo.ProfileRepo
	Backend     *identity.Backend
	Users       *service.UserService
	Pages       *service.PageService
}

// RedisOpt asynq 与 go-redis 共用同一份配置
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
}

func OpenDB(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Log:                l,
	})
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}
	return db, nil
}

// New 打开连接并组装服务；失败时已打开的连接会被关闭
func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, error) {
	db, err := OpenDB(cfg, l)
	if err != nil {
		return nil, err
	}
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	c := cache.NewWithClient(rdb, cfg.App.Name)
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		closeDB(db)
		return nil, err
	}
	l.Info("redis connected", zap.String("addr", cfg.Redis.Addr))

	ttl := time.Duration(cfg.Session.ProfileCacheSec) * time.Second
	a := &App{
		Cfg: cfg, Log: l, DB: db, RDB: rdb, Cache: c,
		Queue:       asynq.NewClient(RedisOpt(cfg)),
		Credentials: repo.NewCredentialRepo(db),
		Profiles:    repo.NewProfileRepo(db, c, ttl),
	}
	pages := repo.NewPageRepo(db, c, ttl)
	jwter := &auth.JWTer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, TTL: cfg.AccessTokenTTL()}
	a.Backend = identity.NewBackend(a.Credentials, a.Profiles, jwter, rdb, mail.NewDispatcher(a.Queue, l), l,
		identity.Config{
			PublicURL: cfg.App.PublicURL,
			VerifyTTL: time.Duration(cfg.Mail.VerifyTTLMin) * time.Minute,
			ResetTTL:  time.Duration(cfg.Mail.ResetTTLMin) * time.Minute,
		})
	a.Users = service.NewUserService(a.Profiles, pages, repo.NewFavoriteRepo(db), a.Backend, l)
	a.Pages = service.NewPageService(pages)
	return a, nil
}

// RouterDeps HTTP 引擎依赖
func (a *App) RouterDeps() router.Deps {
	return router.Deps{
		Log: a.Log, Cfg: a.Cfg, DB: a.DB, Backend: a.Backend,
		Profiles: a.Profiles, Users: a.Users, Pages: a.Pages,
	}
}

func (a *App) Close() error {
	err := errors.Join(a.Queue.Close(), a.RDB.Close())
	closeDB(a.DB)
	return err
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
