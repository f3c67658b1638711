package database

import (
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"

	applog "cineverse/internal/core/logger"
	"cineverse/internal/feature/account"
	"cineverse/internal/feature/favorite"
	"cineverse/internal/feature/page"
	"cineverse/internal/feature/user"
)

type Opts struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string
	Log                *zap.Logger // 为空时不输出 SQL 日志
}

func NewGorm(o Opts) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch o.Driver {
	case "postgres":
		dial = postgres.Open(o.DSN)
	case "mysql":
		mc, err := mysqlConfig(o.DSN, o.Username, o.Password)
		if err != nil {
			return nil, err
		}
		if o.Log != nil {
			o.Log.Info("mysql dsn", zap.String("dsn", maskedDSN(mc)))
		}
		dial = mysql.New(mysql.Config{DSN: mc.FormatDSN(), DSNConfig: mc})
	case "sqlite":
		// 本地开发/测试：纯 Go 实现，不依赖 cgo
		dial = sqlite.Open(o.DSN)
	default:
		return nil, ErrUnsupportedDriver
	}
	lvl := logger.Warn
	switch o.LogLevel {
	case "silent":
		lvl = logger.Silent
	case "error":
		lvl = logger.Error
	case "info":
		lvl = logger.Info
	}
	gl := logger.Discard
	if o.Log != nil {
		std, err := applog.ToStdLogger(o.Log.Named("gorm"), zapcore.InfoLevel)
		if err != nil {
			return nil, err
		}
		gl = logger.New(std, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  lvl,
			IgnoreRecordNotFoundError: true,
		})
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger: gl,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if o.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(o.ConnMaxLifetimeMin) * time.Minute)
	db = db.
		Session(&gorm.Session{
			PrepareStmt:            true, // 预编译缓存，提高 QPS
			CreateBatchSize:        200,  // 批量写
			SkipDefaultTransaction: true, // 只在需要时手动开 Tx
		})
	return db, nil
}

var ErrUnsupportedDriver = gorm.ErrInvalidDB

// Migrate 建表（凭证、资料、页面、收藏）
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&account.CredentialModel{},
		&user.ProfileModel{},
		&page.PageModel{},
		&favorite.FavoriteModel{},
	)
}
