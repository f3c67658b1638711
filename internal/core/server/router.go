package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cineverse/internal/core/logger"
)

// NewRouter 基础引擎：只挂 CORS；panic 恢复与访问日志在 middleware 链里
func NewRouter(l *zap.Logger, origins []string) *gin.Engine {
	gin.DefaultErrorWriter = logger.ToWriter(l.Named("gin"), zapcore.ErrorLevel)

	r := gin.New()
	if len(origins) == 0 {
		r.Use(cors.Default())
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID"},
			AllowCredentials: true, // 会话 cookie
			MaxAge:           12 * time.Hour,
		}))
	}
	return r
}

// Serve 监听直到 ctx 结束，然后在 grace 内优雅关闭
func Serve(ctx context.Context, srv *http.Server, l *zap.Logger, grace time.Duration) error {
	errc := make(chan error, 1)
	go func() {
		l.Info("http starting", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	l.Info("http stopped", zap.String("addr", srv.Addr))
	return nil
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    rt,
		WriteTimeout:   wt,
		IdleTimeout:    it,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }

// BaseURL 日志里给人看的地址
func BaseURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return "http://" + Addr(host, port)
}
