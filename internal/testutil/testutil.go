// Package testutil 测试用的 sqlite 内存库与 miniredis
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cineverse/internal/core/cache"
	"cineverse/internal/core/database"
)

// DB 每个测试一个独立的内存库，已建表
func DB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Redis miniredis + 客户端
func Redis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

// Cache 基于 miniredis 的缓存
func Cache(t testing.TB) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	rdb, mr := Redis(t)
	return cache.NewWithClient(rdb, "test"), mr
}
