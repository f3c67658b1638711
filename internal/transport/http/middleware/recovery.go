package middleware

import (
	"fmt"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "cineverse/internal/transport/http/response"
)

// panicLog ginzap 恢复日志会附带原始请求（含 Cookie/Authorization），这里去掉
type panicLog struct{ l *zap.Logger }

func (p panicLog) Info(msg string, fields ...zap.Field)  { p.l.Info(msg, scrub(fields)...) }
func (p panicLog) Error(msg string, fields ...zap.Field) { p.l.Error(msg, scrub(fields)...) }

func scrub(fields []zap.Field) []zap.Field {
	out := fields[:0:0]
	for _, f := range fields {
		if f.Key != "request" {
			out = append(out, f)
		}
	}
	return out
}

// Recovery 处理器 panic 时记录堆栈并返回统一信封；放在 AccessLog 之内，访问日志带上错误
func Recovery(l *zap.Logger) gin.HandlerFunc {
	return ginzap.CustomRecoveryWithZap(panicLog{l: l}, true, func(c *gin.Context, rec any) {
		_ = c.Error(fmt.Errorf("panic: %v", rec))
		resp.Abort(c, resp.CodeServerError, "internal error")
	})
}
